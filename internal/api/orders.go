package api

import (
	"net/http"

	"catalog-service/internal/models"
	"catalog-service/internal/service"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader carries the client's retry key for POST /orders.
const IdempotencyHeader = "Idempotency-Key"

// createOrder handles order creation. A replayed Idempotency-Key answers
// 200 with the original order instead of 201.
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, created, err := h.orders.CreateOrder(c.Request.Context(), &req, c.GetHeader(IdempotencyHeader))
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	message := "Order created successfully"
	if !created {
		status = http.StatusOK
		message = "Order already exists for this idempotency key"
	}

	c.JSON(status, gin.H{
		"message":  message,
		"order_id": order.ID,
		"order":    order,
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// listUserOrders handles GET /orders/user?email=
func (h *Handler) listUserOrders(c *gin.Context) {
	orders, err := h.orders.ListOrdersByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}
