package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deepaktraders/storefront-backend/services"
)

type ProductController struct {
	Products *services.ProductService
	Images   *services.ImageService
}

func NewProductController(products *services.ProductService, images *services.ImageService) *ProductController {
	return &ProductController{Products: products, Images: images}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return value
}

// List returns one catalog page. ?page= and ?per_page= select the window.
func (pc *ProductController) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", services.DefaultPerPage)

	result, svcErr := pc.Products.List(c.Request.Context(), page, perPage)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search runs a text search over product names via ?q=.
func (pc *ProductController) Search(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", services.DefaultPerPage)

	result, svcErr := pc.Products.Search(c.Request.Context(), c.Query("q"), page, perPage)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (pc *ProductController) ByCategory(c *gin.Context) {
	products, svcErr := pc.Products.ByCategory(c.Request.Context(), c.Param("name"), queryInt(c, "limit", 0))
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (pc *ProductController) ByID(c *gin.Context) {
	product, svcErr := pc.Products.ByID(c.Request.Context(), c.Param("id"))
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, product)
}

// Batch resolves a set of product ids in one request, for cart rendering.
func (pc *ProductController) Batch(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	products, svcErr := pc.Products.ResolveMany(c.Request.Context(), req.IDs)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (pc *ProductController) Create(c *gin.Context) {
	var input services.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	product, svcErr := pc.Products.Create(c.Request.Context(), input)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (pc *ProductController) Update(c *gin.Context) {
	var input services.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	product, svcErr := pc.Products.Update(c.Request.Context(), c.Param("id"), input)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) Delete(c *gin.Context) {
	if svcErr := pc.Products.Delete(c.Request.Context(), c.Param("id")); svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// UploadURL mints a presigned image upload slot for the admin console.
func (pc *ProductController) UploadURL(c *gin.Context) {
	slot, svcErr := pc.Images.UploadURL(c.Request.Context())
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, slot)
}

// DeleteUpload removes an uploaded image that never got attached to a product.
func (pc *ProductController) DeleteUpload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing key"})
		return
	}
	pc.Images.Delete(c.Request.Context(), key)
	c.JSON(http.StatusOK, gin.H{"message": "upload deleted"})
}
