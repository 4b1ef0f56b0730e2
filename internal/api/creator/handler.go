// Package creator exposes hunt authoring over HTTP.
package creator

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailquest/trailquest/internal/api/middleware"
	"github.com/trailquest/trailquest/internal/models"
	creatorsvc "github.com/trailquest/trailquest/internal/service/creator"
	"github.com/trailquest/trailquest/pkg/logger"
)

// AuthoringService interface for creator operations.
type AuthoringService interface {
	CreateDraft(ctx context.Context, viewer models.Viewer, req creatorsvc.DraftRequest) (*models.UserCreatedHunt, error)
	AddClue(ctx context.Context, viewer models.Viewer, huntID uint, req creatorsvc.ClueRequest) (*models.Clue, error)
	Finalize(ctx context.Context, viewer models.Viewer, huntID uint) (*models.UserCreatedHunt, error)
}

// Handler handles creator API requests.
type Handler struct {
	authoring AuthoringService
	log       *logger.Logger
}

// NewHandler creates a new creator handler.
func NewHandler(svc AuthoringService, log *logger.Logger) *Handler {
	return &Handler{authoring: svc, log: log}
}

// RegisterRoutes mounts the authoring endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/created-hunts", h.CreateDraft)
	r.POST("/created-hunts/:id/clues", h.AddClue)
	r.POST("/created-hunts/:id/finalize", h.Finalize)
}

// CreateDraft creates a draft hunt owned by the viewer.
// POST /api/v1/created-hunts.
func (h *Handler) CreateDraft(c *gin.Context) {
	var req creatorsvc.DraftRequest
	if err := middleware.BindJSON(c, &req); err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	created, err := h.authoring.CreateDraft(c.Request.Context(), middleware.CurrentViewer(c), req)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// AddClue appends a clue to a draft.
// POST /api/v1/created-hunts/:id/clues.
func (h *Handler) AddClue(c *gin.Context) {
	huntID, err := middleware.ParseID(c, "id")
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	var req creatorsvc.ClueRequest
	if err := middleware.BindJSON(c, &req); err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	clue, err := h.authoring.AddClue(c.Request.Context(), middleware.CurrentViewer(c), huntID, req)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, clue)
}

// Finalize marks authoring complete without deploying.
// POST /api/v1/created-hunts/:id/finalize.
func (h *Handler) Finalize(c *gin.Context) {
	huntID, err := middleware.ParseID(c, "id")
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	created, err := h.authoring.Finalize(c.Request.Context(), middleware.CurrentViewer(c), huntID)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}
