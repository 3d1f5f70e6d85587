package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/http/middleware"
	"github.com/ebasak22/Fitness/internal/member"
)

// AddressHandler exposes the saved shipping-address book.
type AddressHandler struct {
	Members *member.Service
	Logger  *zap.Logger
}

// NewAddressHandler creates the handler set.
func NewAddressHandler(members *member.Service, logger *zap.Logger) *AddressHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &AddressHandler{Members: members, Logger: logger}
}

// List handles GET /member/addresses.
func (h *AddressHandler) List(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	addresses, err := h.Members.Addresses(c.Request.Context(), sess)
	if err != nil {
		h.Logger.Error("address list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to load addresses."})
		return
	}
	if addresses == nil {
		addresses = []member.Address{}
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// Add handles POST /member/addresses.
func (h *AddressHandler) Add(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var form member.AddressForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid address payload."})
		return
	}

	address, err := h.Members.AddAddress(c.Request.Context(), sess, form)
	if err != nil {
		var validation *member.ValidationError
		if errors.As(err, &validation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": validation.Message})
			return
		}
		h.Logger.Error("address save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to save address. Please try again."})
		return
	}
	c.JSON(http.StatusCreated, address)
}

// Delete handles DELETE /member/addresses/:id.
func (h *AddressHandler) Delete(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	if err := h.Members.DeleteAddress(c.Request.Context(), sess, c.Param("id")); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Address not found."})
			return
		}
		h.Logger.Error("address delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to delete address."})
		return
	}
	c.Status(http.StatusNoContent)
}
