package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/safar/retail-pos/internal/server/handlers"
)

// New wires the Gin engine with the purchase and catalog routes.
func New(purchases *handlers.PurchaseHandler, products *handlers.ProductHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/purchases", purchases.Submit)
	r.GET("/purchases", purchases.List)
	r.GET("/purchases/:id", purchases.Get)

	r.POST("/products", products.Create)
	r.GET("/products", products.List)
	r.GET("/products/:id", products.Get)
	r.PATCH("/products/:id/price", products.UpdatePrice)
	r.POST("/products/:id/restock", products.Restock)
	r.DELETE("/products/:id", products.Delete)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
