package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deepaktraders/storefront-backend/middleware"
	"github.com/deepaktraders/storefront-backend/services"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// ListOrders returns the caller's orders, newest first, with line items.
func (oc *OrderController) ListOrders(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "must be logged in"})
		return
	}

	orders, svcErr := oc.Orders.ListOrdersForUser(c.Request.Context(), principal.UserID)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
