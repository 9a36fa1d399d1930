package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/models"
	"github.com/safar/retail-pos/internal/purchase"
	"github.com/safar/retail-pos/internal/store"
)

// PurchaseService is the part of purchase.Engine the HTTP layer uses.
type PurchaseService interface {
	Submit(ctx context.Context, lines []purchase.LineRequest) (*models.CustomerPurchase, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CustomerPurchase, error)
	List(ctx context.Context, cursor string, limit int) (*store.CursorPage, error)
}

type PurchaseHandler struct {
	svc    PurchaseService
	logger *zap.Logger
}

func NewPurchaseHandler(svc PurchaseService, logger *zap.Logger) *PurchaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseHandler{svc: svc, logger: logger}
}

// lineInput keeps the product id as text so the submission can be echoed
// back exactly as typed when it is rejected.
type lineInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type submitRequest struct {
	Lines []lineInput `json:"lines"`
}

type purchaseLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type purchaseResponse struct {
	PurchaseID  uuid.UUID       `json:"purchase_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PurchasedAt time.Time       `json:"purchased_at"`
	Lines       []purchaseLine  `json:"lines"`
}

type purchaseErrorResponse struct {
	ErrorKind        purchase.Kind `json:"error_kind"`
	Message          string        `json:"message"`
	FailingProductID *uuid.UUID    `json:"failing_product_id,omitempty"`
	Line             int           `json:"line,omitempty"`
	Requested        int           `json:"requested,omitempty"`
	Available        *int          `json:"available,omitempty"`
	Retryable        bool          `json:"retryable"`
	Lines            []lineInput   `json:"lines"`
}

func newPurchaseResponse(p *models.CustomerPurchase) purchaseResponse {
	lines := make([]purchaseLine, 0, len(p.Items))
	for _, item := range p.Items {
		lines = append(lines, purchaseLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		})
	}

	return purchaseResponse{
		PurchaseID:  p.ID,
		TotalAmount: p.TotalAmount,
		PurchasedAt: p.PurchasedAt,
		Lines:       lines,
	}
}

// Submit handles POST /purchases.
func (h *PurchaseHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid purchase payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, purchaseErrorResponse{
			ErrorKind: purchase.KindValidation,
			Message:   "invalid request body",
			Lines:     []lineInput{},
		})
		return
	}
	if req.Lines == nil {
		req.Lines = []lineInput{}
	}

	lines := make([]purchase.LineRequest, 0, len(req.Lines))
	for i, in := range req.Lines {
		raw := strings.TrimSpace(in.ProductID)
		if raw == "" {
			lines = append(lines, purchase.LineRequest{Quantity: in.Quantity})
			continue
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, purchaseErrorResponse{
				ErrorKind: purchase.KindValidation,
				Message:   "line " + strconv.Itoa(i+1) + ": product id is not a valid identifier",
				Line:      i + 1,
				Lines:     req.Lines,
			})
			return
		}
		lines = append(lines, purchase.LineRequest{ProductID: id, Quantity: in.Quantity})
	}

	p, err := h.svc.Submit(c.Request.Context(), lines)
	if err != nil {
		h.respondPurchaseError(c, err, req.Lines)
		return
	}

	c.JSON(http.StatusCreated, newPurchaseResponse(p))
}

func (h *PurchaseHandler) respondPurchaseError(c *gin.Context, err error, submitted []lineInput) {
	var perr *purchase.Error
	if !errors.As(err, &perr) {
		perr = &purchase.Error{Kind: purchase.KindStorageFailure, Err: err}
	}

	resp := purchaseErrorResponse{
		ErrorKind: perr.Kind,
		Message:   messageFor(perr),
		Line:      perr.Line,
		Retryable: perr.Retryable(),
		Lines:     submitted,
	}
	if perr.ProductID != uuid.Nil {
		id := perr.ProductID
		resp.FailingProductID = &id
	}
	if perr.Kind == purchase.KindInsufficientStock {
		available := perr.Available
		resp.Requested = perr.Requested
		resp.Available = &available
	}

	if perr.Kind == purchase.KindStorageFailure {
		h.logger.Error("purchase storage failure", zap.Error(err))
	}

	c.JSON(statusFor(perr.Kind), resp)
}

func messageFor(perr *purchase.Error) string {
	switch perr.Kind {
	case purchase.KindValidation:
		if perr.Err != nil {
			return perr.Err.Error()
		}
		return "the submission is not valid"
	case purchase.KindProductNotFound:
		return "line " + strconv.Itoa(perr.Line) + ": product does not exist"
	case purchase.KindInsufficientStock:
		return "line " + strconv.Itoa(perr.Line) + ": not enough stock (requested " +
			strconv.Itoa(perr.Requested) + ", available " + strconv.Itoa(perr.Available) + ")"
	case purchase.KindTransactionConflict:
		return "the purchase conflicted with another checkout, please submit again"
	default:
		return "the purchase could not be recorded"
	}
}

func statusFor(kind purchase.Kind) int {
	switch kind {
	case purchase.KindValidation:
		return http.StatusBadRequest
	case purchase.KindProductNotFound:
		return http.StatusNotFound
	case purchase.KindInsufficientStock:
		return http.StatusConflict
	case purchase.KindTransactionConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Get handles GET /purchases/:id and renders the invoice.
func (h *PurchaseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid purchase id")
		return
	}

	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrPurchaseNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("get purchase failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load purchase")
		return
	}

	c.JSON(http.StatusOK, newPurchaseResponse(p))
}

// List handles GET /purchases?cursor=&limit=.
func (h *PurchaseHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cursor := c.Query("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		respondError(c, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := h.svc.List(c.Request.Context(), cursor, limit)
	if err != nil {
		h.logger.Error("list purchases failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to list purchases")
		return
	}

	c.JSON(http.StatusOK, page)
}
