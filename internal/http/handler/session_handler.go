package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/http/middleware"
	"github.com/ebasak22/Fitness/internal/identity"
	"github.com/ebasak22/Fitness/internal/session"
)

// SessionHandler exposes the OTP login flow.
type SessionHandler struct {
	Bootstrap *session.Bootstrap
	Logger    *zap.Logger
}

// NewSessionHandler creates the handler set.
func NewSessionHandler(bootstrap *session.Bootstrap, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &SessionHandler{Bootstrap: bootstrap, Logger: logger}
}

// RequestOTP handles POST /member/otp/request.
func (h *SessionHandler) RequestOTP(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Phone number is required."})
		return
	}

	if err := h.Bootstrap.RequestOTP(c.Request.Context(), req.Phone); err != nil {
		h.writeOTPError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

// VerifyOTP handles POST /member/otp/verify.
func (h *SessionHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "OTP code is required."})
		return
	}

	sess, route, err := h.Bootstrap.VerifyOTP(c.Request.Context(), req.Code)
	if err != nil {
		h.writeOTPError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      sess.Token,
		"route":      string(route),
		"phone":      sess.Phone,
		"expires_at": sess.ExpiresAt,
	})
}

// ChangePhone handles POST /member/phone/change.
func (h *SessionHandler) ChangePhone(c *gin.Context) {
	h.Bootstrap.ChangePhone()
	c.Status(http.StatusNoContent)
}

// Logout handles POST /member/logout.
func (h *SessionHandler) Logout(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_session", "error_description": "Not logged in."})
		return
	}
	if err := h.Bootstrap.Logout(c.Request.Context(), sess.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to logout. Please try again."})
		return
	}
	c.Status(http.StatusNoContent)
}

// writeOTPError maps flow errors onto HTTP responses. Provider messages pass
// through for challenge requests; verification failures stay generic.
func (h *SessionHandler) writeOTPError(c *gin.Context, err error) {
	var validation *session.ValidationError
	var auth *session.AuthError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": validation.Message})
	case errors.Is(err, session.ErrNoChallenge):
		c.JSON(http.StatusConflict, gin.H{"error": "no_challenge", "error_description": "Please request OTP first."})
	case errors.As(err, &auth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_otp", "error_description": auth.Error()})
	case errors.Is(err, identity.ErrInvalidNumber):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_number", "error_description": "Please enter a valid phone number."})
	case errors.Is(err, identity.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "error_description": "Too many OTP requests. Please wait before retrying."})
	case errors.Is(err, identity.ErrNetwork):
		c.JSON(http.StatusBadGateway, gin.H{"error": "network_error", "error_description": "Error sending OTP. Please try again."})
	default:
		h.Logger.Error("otp flow failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Something went wrong. Please try again."})
	}
}
