package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deepaktraders/storefront-backend/services"
)

type CategoryController struct {
	Categories *services.CategoryService
}

func NewCategoryController(categories *services.CategoryService) *CategoryController {
	return &CategoryController{Categories: categories}
}

func (cc *CategoryController) List(c *gin.Context) {
	categories, svcErr := cc.Categories.List(c.Request.Context())
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Previews returns each category with its newest products for the landing page.
func (cc *CategoryController) Previews(c *gin.Context) {
	previews, svcErr := cc.Categories.Previews(c.Request.Context(), queryInt(c, "limit", 3))
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": previews})
}

func (cc *CategoryController) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	category, svcErr := cc.Categories.Create(c.Request.Context(), req.Name)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusCreated, category)
}
