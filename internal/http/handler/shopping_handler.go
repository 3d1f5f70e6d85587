package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/http/middleware"
	"github.com/ebasak22/Fitness/internal/member"
)

// ShoppingHandler exposes the shop catalogue and the member's cart.
type ShoppingHandler struct {
	Members *member.Service
	Logger  *zap.Logger
}

// NewShoppingHandler creates the handler set.
func NewShoppingHandler(members *member.Service, logger *zap.Logger) *ShoppingHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &ShoppingHandler{Members: members, Logger: logger}
}

// Products handles GET /member/products.
func (h *ShoppingHandler) Products(c *gin.Context) {
	category := c.DefaultQuery("category", "all")
	sortBy := c.DefaultQuery("sort", member.SortPriceLow)

	products, err := h.Members.Products(c.Request.Context(), category, sortBy)
	if err != nil {
		h.Logger.Error("catalogue load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to load products."})
		return
	}
	if products == nil {
		products = []member.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Cart handles GET /member/cart.
func (h *ShoppingHandler) Cart(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	cart, err := h.Members.Cart(c.Request.Context(), sess)
	if err != nil {
		h.Logger.Error("cart load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to load cart."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cart.Items, "count": cart.Count()})
}

// AddToCart handles POST /member/cart/items.
func (h *ShoppingHandler) AddToCart(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req struct {
		ProductID string `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Product is required."})
		return
	}

	cart, err := h.Members.AddToCart(c.Request.Context(), sess, req.ProductID)
	if err != nil {
		var validation *member.ValidationError
		if errors.As(err, &validation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": validation.Message})
			return
		}
		h.Logger.Error("add to cart failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to add item to cart. Please try again."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cart.Items, "count": cart.Count()})
}
