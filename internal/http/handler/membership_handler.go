package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/http/middleware"
	"github.com/ebasak22/Fitness/internal/member"
	"github.com/ebasak22/Fitness/internal/payment"
)

// MembershipHandler exposes plans, purchase, and PT session booking.
type MembershipHandler struct {
	Members *member.Service
	Logger  *zap.Logger
}

// NewMembershipHandler creates the handler set.
func NewMembershipHandler(members *member.Service, logger *zap.Logger) *MembershipHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &MembershipHandler{Members: members, Logger: logger}
}

// Plans handles GET /member/plans.
func (h *MembershipHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": domain.MembershipPlans()})
}

// Trainers handles GET /member/trainers.
func (h *MembershipHandler) Trainers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"trainers": domain.Trainers()})
}

// Status handles GET /member/membership.
func (h *MembershipHandler) Status(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	status, err := h.Members.Membership(c.Request.Context(), sess)
	if err != nil {
		h.writeError(c, err, "Failed to load membership. Please try again.")
		return
	}
	c.JSON(http.StatusOK, status)
}

// Checkout handles POST /member/membership/checkout.
func (h *MembershipHandler) Checkout(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req struct {
		PlanID string `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Plan is required."})
		return
	}

	status, err := h.Members.PurchasePlan(c.Request.Context(), sess, req.PlanID)
	if err != nil {
		h.writeError(c, err, "Failed to update membership. Please try again.")
		return
	}
	c.JSON(http.StatusOK, status)
}

// BookSession handles POST /member/sessions/book.
func (h *MembershipHandler) BookSession(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req struct {
		TrainerID string `json:"trainer_id" binding:"required"`
		Slot      string `json:"slot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Trainer and slot are required."})
		return
	}

	booking, err := h.Members.BookSession(c.Request.Context(), sess, req.TrainerID, req.Slot)
	if err != nil {
		h.writeError(c, err, "There was an error booking your session. Please try again.")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *MembershipHandler) writeError(c *gin.Context, err error, fallback string) {
	var validation *member.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": validation.Message})
	case errors.Is(err, payment.ErrCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": "payment_cancelled", "error_description": "Payment was cancelled. Please try again."})
	case errors.Is(err, docstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Profile not found. Please complete registration."})
	default:
		h.Logger.Error("membership operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": fallback})
	}
}
