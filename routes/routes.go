package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/deepaktraders/storefront-backend/controllers"
	"github.com/deepaktraders/storefront-backend/middleware"
	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/services"
)

type Controllers struct {
	Auth     *controllers.AuthController
	Product  *controllers.ProductController
	Category *controllers.CategoryController
	Cart     *controllers.CartController
	Order    *controllers.OrderController
	Payment  *controllers.PaymentController
}

// Register wires every route onto the engine. All routes pass through the
// optional authenticator; guards are layered per group.
func Register(r *gin.Engine, c Controllers, tokens *services.TokenService, corsOrigins []string) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Cart-Token", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Cart-Token"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Authenticate(tokens))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit(), c.Auth.Register)
		auth.POST("/login", middleware.RateLimit(), c.Auth.Login)
		auth.POST("/refresh", c.Auth.Refresh)
		auth.GET("/me", middleware.RequireAuth(), c.Auth.Me)
		auth.DELETE("/me", middleware.RequireAuth(), c.Auth.DeleteAccount)
	}

	products := r.Group("/products")
	{
		products.GET("", c.Product.List)
		products.GET("/search", c.Product.Search)
		products.GET("/category/:name", c.Product.ByCategory)
		products.GET("/:id", c.Product.ByID)
		products.POST("/batch", c.Product.Batch)
	}

	categories := r.Group("/categories")
	{
		categories.GET("", c.Category.List)
		categories.GET("/previews", c.Category.Previews)
	}

	admin := r.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/products", c.Product.Create)
		admin.PATCH("/products/:id", c.Product.Update)
		admin.DELETE("/products/:id", c.Product.Delete)
		admin.POST("/categories", c.Category.Create)
		admin.POST("/uploads", c.Product.UploadURL)
		admin.DELETE("/uploads/*key", c.Product.DeleteUpload)
	}

	cart := r.Group("/cart")
	{
		cart.GET("", c.Cart.GetCart)
		cart.POST("/sync", c.Cart.GetCart)
		cart.POST("/items", c.Cart.AddItem)
		cart.PUT("/items/:product_id", c.Cart.SetQty)
		cart.DELETE("/items/:product_id", c.Cart.RemoveItem)
		cart.DELETE("", c.Cart.ClearCart)
	}

	r.POST("/checkout", middleware.RequireAuth(), middleware.RateLimit(), c.Payment.Checkout)
	r.POST("/payments/verify", middleware.RateLimit(), c.Payment.VerifyPayment)
	r.GET("/orders", middleware.RequireAuth(), c.Order.ListOrders)
}
