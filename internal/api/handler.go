package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"printful-sync/internal/service"
	"printful-sync/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	syncService  *service.SyncService
	orderService *service.OrderService
}

// NewHandler creates a new HTTP handler
func NewHandler(syncService *service.SyncService, orderService *service.OrderService) *Handler {
	return &Handler{
		syncService:  syncService,
		orderService: orderService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/printful", h.printfulWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sync/products/:id", h.syncProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
		v1.DELETE("/variants/:id", h.deleteVariant)

		v1.POST("/orders/:id/submit", h.submitOrder)
		v1.POST("/orders/:id/confirm", h.confirmOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.GET("/orders/:id/shipping-rates", h.shippingRates)
		v1.GET("/orders/:id/costs", h.estimateCosts)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// syncProduct reconciles one Printful product into the local catalog. The id
// is the Printful sync-product id.
func (h *Handler) syncProduct(c *gin.Context) {
	externalID := c.Param("id")

	res, err := h.syncService.SyncProduct(c.Request.Context(), externalID)
	if errors.Is(err, service.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Sync already in progress for this product",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Sync failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":       res.ProductID,
		"created":          res.Created,
		"variants_created": res.VariantsCreated,
		"variants_updated": res.VariantsUpdated,
		"variants_deleted": res.VariantsDeleted,
		"failed_ops":       len(res.Failures),
	})
}

// deleteProduct handles local product deletion
func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.syncService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete product",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteVariant handles local variant deletion
func (h *Handler) deleteVariant(c *gin.Context) {
	if err := h.syncService.DeleteVariant(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete variant",
			"details": err.Error(),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// submitOrder sends a local order to Printful as an unconfirmed draft
func (h *Handler) submitOrder(c *gin.Context) {
	remote, err := h.orderService.SubmitOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to submit order",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"remote_order_id": remote.ID,
		"status":          remote.Status,
	})
}

// confirmOrder commits a submitted draft for fulfillment
func (h *Handler) confirmOrder(c *gin.Context) {
	remote, err := h.orderService.ConfirmOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to confirm order",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"remote_order_id": remote.ID,
		"status":          remote.Status,
	})
}

// cancelOrder asks Printful to cancel an order. A provider rejection comes
// back as 409 with accepted=false rather than a server error.
func (h *Handler) cancelOrder(c *gin.Context) {
	accepted, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to cancel order",
			"details": err.Error(),
		})
		return
	}
	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"accepted": accepted})
}

// shippingRates quotes shipping for a local order
func (h *Handler) shippingRates(c *gin.Context) {
	rates, err := h.orderService.QuoteShipping(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to quote shipping",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

// estimateCosts estimates full order costs before submission
func (h *Handler) estimateCosts(c *gin.Context) {
	costs, err := h.orderService.EstimateCosts(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to estimate costs",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, costs)
}

// printfulWebhookPayload is the envelope Printful posts to webhook consumers.
type printfulWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		SyncProduct struct {
			ID int64 `json:"id"`
		} `json:"sync_product"`
		Order struct {
			ID         int64  `json:"id"`
			ExternalID string `json:"external_id"`
		} `json:"order"`
		Shipment struct {
			TrackingNumber string `json:"tracking_number"`
		} `json:"shipment"`
	} `json:"data"`
}

// printfulWebhook turns provider notifications into domain events. Product
// changes become sync requests picked up by the sync worker; shipped packages
// become fulfillment events picked up by the fulfillment worker.
func (h *Handler) printfulWebhook(c *gin.Context) {
	var payload printfulWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid webhook payload",
			"details": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	switch payload.Type {
	case "product_updated", "product_synced":
		externalID := strconv.FormatInt(payload.Data.SyncProduct.ID, 10)
		if err := h.syncService.RequestSync(ctx, externalID, payload.Type); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to enqueue sync request",
				"details": err.Error(),
			})
			return
		}

	case "package_shipped":
		if err := h.syncService.NotifyPackageShipped(ctx,
			payload.Data.Order.ExternalID,
			payload.Data.Order.ID,
			payload.Data.Shipment.TrackingNumber,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to enqueue fulfillment event",
				"details": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
