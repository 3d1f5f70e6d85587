package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/http/middleware"
	"github.com/ebasak22/Fitness/internal/member"
	"github.com/ebasak22/Fitness/internal/profile"
)

// SyncFactory builds a profile sync for one streaming consumer. Each stream
// owns its sync for the lifetime of the connection, mirroring the
// screen-focus lifecycle: connect starts it, disconnect stops it.
type SyncFactory func() *profile.Sync

// ProfileHandler exposes the member document and its derived view state.
type ProfileHandler struct {
	Members *member.Service
	NewSync SyncFactory
	Logger  *zap.Logger
}

// NewProfileHandler creates the handler set.
func NewProfileHandler(members *member.Service, newSync SyncFactory, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &ProfileHandler{Members: members, NewSync: newSync, Logger: logger}
}

// Get handles GET /member/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	p, err := h.Members.Profile(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Profile not found. Please complete registration."})
			return
		}
		h.Logger.Error("profile load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Failed to load user data. Please try again."})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Stream handles GET /member/profile/stream: an SSE feed of profile
// snapshots driven by the document store's change notifications.
func (h *ProfileHandler) Stream(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	sync := h.NewSync()
	if err := sync.Start(c.Request.Context(), sess); err != nil {
		h.writeSyncError(c, err)
		return
	}
	defer sync.Stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// First event is the fetched snapshot; the rest follow remote changes.
	if snapshot, ok := sync.Snapshot(); ok {
		c.SSEvent("profile", snapshot)
		c.Writer.Flush()
	}

	snapshots := sync.Snapshots()
	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, open := <-snapshots:
			if !open {
				return false
			}
			c.SSEvent("profile", snapshot)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Complete handles PUT /member/profile.
func (h *ProfileHandler) Complete(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var form member.ProfileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid profile payload."})
		return
	}

	if err := h.Members.CompleteProfile(c.Request.Context(), sess, form); err != nil {
		h.writeMemberError(c, err, "Failed to save profile. Please try again.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile saved"})
}

// SetGoals handles PUT /member/goals.
func (h *ProfileHandler) SetGoals(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var form member.GoalForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid goals payload."})
		return
	}

	goals, err := h.Members.SetGoals(c.Request.Context(), sess, form)
	if err != nil {
		h.writeMemberError(c, err, "Failed to save your goals. Please try again.")
		return
	}
	c.JSON(http.StatusOK, goals)
}

// UpdateImage handles PUT /member/profile/image.
func (h *ProfileHandler) UpdateImage(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req struct {
		ImageURL string `json:"image_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Image URL is required."})
		return
	}

	if err := h.Members.UpdateImage(c.Request.Context(), sess, req.ImageURL); err != nil {
		h.writeMemberError(c, err, "Failed to update profile image. Please try again.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile image updated"})
}

// SaveWorkouts handles PUT /member/workouts.
func (h *ProfileHandler) SaveWorkouts(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req struct {
		Workouts map[domain.Weekday][]domain.ExerciseEntry `json:"workouts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid workouts payload."})
		return
	}

	feedback, err := h.Members.SaveWorkouts(c.Request.Context(), sess, req.Workouts)
	if err != nil {
		h.writeMemberError(c, err, "Failed to save workout progress. Please try again.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": feedback})
}

func (h *ProfileHandler) writeSyncError(c *gin.Context, err error) {
	var timeout *profile.TimeoutError
	var store *profile.StoreError
	switch {
	case errors.As(err, &timeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timeout", "error_description": timeout.Error()})
	case errors.As(err, &store):
		c.JSON(http.StatusBadGateway, gin.H{"error": "store_error", "error_description": store.Error()})
	default:
		h.Logger.Error("profile stream failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Unable to load your profile."})
	}
}

func (h *ProfileHandler) writeMemberError(c *gin.Context, err error, fallback string) {
	var validation *member.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": validation.Message})
	case errors.Is(err, docstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Profile not found. Please complete registration."})
	default:
		h.Logger.Error("member write failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": fallback})
	}
}
