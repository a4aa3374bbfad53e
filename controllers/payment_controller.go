package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/middleware"
	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/services"
)

type PaymentController struct {
	Payments *services.PaymentService
	Orders   *services.OrderService
	Carts    *services.CartService
	Log      *zap.Logger
}

func NewPaymentController(payments *services.PaymentService, orders *services.OrderService, carts *services.CartService, log *zap.Logger) *PaymentController {
	return &PaymentController{Payments: payments, Orders: orders, Carts: carts, Log: log}
}

type checkoutRequest struct {
	Items   []services.CheckoutItem `json:"items" binding:"required,dive"`
	Address models.ShippingAddress  `json:"address" binding:"required"`
}

// Checkout prices the requested items server-side, opens a gateway order, and
// returns the payment widget parameters.
func (pc *PaymentController) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	resp, svcErr := pc.Payments.Checkout(c.Request.Context(), middleware.CurrentPrincipal(c), req.Items, req.Address)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type verifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPayment authenticates the gateway callback. Only a valid signature
// flips the order to paid; the client's word is never taken for it.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid fields"})
		return
	}

	order, svcErr := pc.Orders.VerifyAndMarkPaid(c.Request.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	// The purchase is recorded on the order rows; the cart has served its
	// purpose. Failure here is logged, not surfaced.
	if err := pc.Carts.ClearRemote(c.Request.Context(), order.UserID); err != nil {
		pc.Log.Warn("Failed to clear cart after payment",
			zap.String("user_id", order.UserID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
