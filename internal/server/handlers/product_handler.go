package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/models"
	"github.com/safar/retail-pos/internal/store"
)

// CatalogService is implemented by store.Catalog.
type CatalogService interface {
	Create(ctx context.Context, req store.NewProduct) (*models.ProductStock, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ProductStock, error)
	List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restock(ctx context.Context, id uuid.UUID, amount int) (*models.InventoryRecord, error)
}

type ProductHandler struct {
	catalog CatalogService
	logger  *zap.Logger
}

func NewProductHandler(catalog CatalogService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{catalog: catalog, logger: logger}
}

type createProductRequest struct {
	Name         string             `json:"name" binding:"required"`
	Price        *decimal.Decimal   `json:"price" binding:"required"`
	ProductType  models.ProductType `json:"product_type" binding:"required"`
	InitialStock int                `json:"initial_stock"`
}

type updatePriceRequest struct {
	Price *decimal.Decimal `json:"price" binding:"required"`
}

type restockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.Create(c.Request.Context(), store.NewProduct{
		Name:         req.Name,
		Price:        *req.Price,
		Type:         req.ProductType,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := h.catalog.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) UpdatePrice(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.UpdatePrice(c.Request.Context(), id, *req.Price)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) Restock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.catalog.Restock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProductHandler) respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrProductNotFound), errors.Is(err, database.ErrInventoryNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidProduct), errors.Is(err, database.ErrInvalidQuantity):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("catalog operation failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}
