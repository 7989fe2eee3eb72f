package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
)

// CreateOrder handles POST /api/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateOrderResponse{
		Message: "Order saved",
		ID:      order.ID,
		OrderID: order.OrderID,
	})
}

// UpdatePayment handles POST /api/orders/:id/payment
func (h *Handlers) UpdatePayment(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind request", logging.Fields{"id": id, "error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.UpdatePayment(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UpdatePaymentResponse{
		Message: "Payment updated",
		Order:   order,
	})
}

// ListOrders handles GET /api/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListRecent(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	if orders == nil {
		orders = []*models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func handleError(c *gin.Context, err error) {
	if errors.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if validationErr, ok := errors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Fields,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}
