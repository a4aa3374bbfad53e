package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deepaktraders/storefront-backend/middleware"
	"github.com/deepaktraders/storefront-backend/services"
)

// cartTokenHeader carries the anonymous cart session token. Browsers persist
// it locally and replay it on every request; the server mints one on first
// contact.
const cartTokenHeader = "X-Cart-Token"

type CartController struct {
	Carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{Carts: carts}
}

// cartToken returns the request's cart session token, minting and echoing a
// fresh one when the client has none yet.
func (cc *CartController) cartToken(c *gin.Context) string {
	token := c.GetHeader(cartTokenHeader)
	if token == "" {
		token = uuid.NewString()
	}
	c.Header(cartTokenHeader, token)
	return token
}

// GetCart returns the authoritative cart, reconciling stores first if the
// caller's identity changed since the last request on this token.
func (cc *CartController) GetCart(c *gin.Context) {
	token := cc.cartToken(c)
	principal := middleware.CurrentPrincipal(c)

	items, svcErr := cc.Carts.Sync(c.Request.Context(), token, principal)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "cart_token": token})
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int    `json:"qty"`
}

func (cc *CartController) AddItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	token := cc.cartToken(c)
	items, svcErr := cc.Carts.AddItem(c.Request.Context(), middleware.CurrentPrincipal(c), token, req.ProductID, req.Qty)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (cc *CartController) SetQty(c *gin.Context) {
	var req struct {
		Qty int `json:"qty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	token := cc.cartToken(c)
	items, svcErr := cc.Carts.SetQty(c.Request.Context(), middleware.CurrentPrincipal(c), token, c.Param("product_id"), req.Qty)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	token := cc.cartToken(c)
	items, svcErr := cc.Carts.RemoveItem(c.Request.Context(), middleware.CurrentPrincipal(c), token, c.Param("product_id"))
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (cc *CartController) ClearCart(c *gin.Context) {
	token := cc.cartToken(c)
	if svcErr := cc.Carts.Clear(c.Request.Context(), middleware.CurrentPrincipal(c), token); svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
