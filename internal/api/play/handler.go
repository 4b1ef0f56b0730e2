// Package play exposes hunt browsing, progress and answer submission over HTTP.
package play

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailquest/trailquest/internal/api/middleware"
	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/service/access"
	"github.com/trailquest/trailquest/internal/service/judge"
	"github.com/trailquest/trailquest/pkg/logger"
)

// AnswerJudge interface for answer submission.
type AnswerJudge interface {
	Judge(ctx context.Context, viewer models.Viewer, clueID uint, sub judge.Submission) (*judge.Verdict, error)
}

// HuntReader interface for catalog reads.
type HuntReader interface {
	GetWithClues(id uint) (*models.Hunt, error)
	List(includeAdminOnly bool) ([]models.Hunt, error)
}

// AccessDecider interface for unlock decisions.
type AccessDecider interface {
	Decide(ctx context.Context, viewer models.Viewer, hunt *models.Hunt) (access.Decision, error)
}

// ProgressReader interface for progress reads.
type ProgressReader interface {
	Get(ctx context.Context, userID, huntID uint) (*models.UserProgress, error)
}

// Handler handles play API requests.
type Handler struct {
	judge    AnswerJudge
	hunts    HuntReader
	gate     AccessDecider
	progress ProgressReader
	log      *logger.Logger
}

// NewHandler creates a new play handler.
func NewHandler(j AnswerJudge, hunts HuntReader, gate AccessDecider, progress ProgressReader, log *logger.Logger) *Handler {
	return &Handler{
		judge:    j,
		hunts:    hunts,
		gate:     gate,
		progress: progress,
		log:      log,
	}
}

// RegisterRoutes mounts the play endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/hunts", h.ListHunts)
	r.GET("/hunts/:id", h.GetHunt)
	r.GET("/hunts/:id/progress", h.GetProgress)
	r.POST("/clues/:id/answer", h.SubmitAnswer)
}

// SubmitAnswer judges an answer or a bypass request.
// POST /api/v1/clues/:id/answer {"answer": "..."} | {"bypass": true}.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	clueID, err := middleware.ParseID(c, "id")
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	var sub judge.Submission
	if err := middleware.BindJSON(c, &sub); err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	verdict, err := h.judge.Judge(c.Request.Context(), middleware.CurrentViewer(c), clueID, sub)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, verdict)
}

// ListHunts returns the hunts visible to the viewer with their unlock status.
// GET /api/v1/hunts.
func (h *Handler) ListHunts(c *gin.Context) {
	viewer := middleware.CurrentViewer(c)

	hunts, err := h.hunts.List(viewer.IsAdmin)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list hunts")
		middleware.ErrorResponse(c, err)
		return
	}

	entries := make([]gin.H, 0, len(hunts))
	for i := range hunts {
		decision, err := h.gate.Decide(c.Request.Context(), viewer, &hunts[i])
		if err != nil {
			middleware.ErrorResponse(c, err)
			return
		}
		if decision.Reason == access.ReasonHidden {
			continue
		}
		entries = append(entries, gin.H{
			"hunt":     hunts[i],
			"unlocked": decision.Unlocked,
			"reason":   decision.Reason,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"hunts":        entries,
		"total":        len(entries),
		"generated_at": time.Now().UTC(),
	})
}

// GetHunt returns one hunt. Clues are only included once the hunt is unlocked.
// GET /api/v1/hunts/:id.
func (h *Handler) GetHunt(c *gin.Context) {
	hunt, decision, ok := h.loadHunt(c)
	if !ok {
		return
	}

	clues := hunt.Clues
	hunt.Clues = nil
	if !decision.Unlocked {
		clues = []models.Clue{}
	}

	c.JSON(http.StatusOK, gin.H{
		"hunt":     hunt,
		"clues":    clues,
		"unlocked": decision.Unlocked,
		"reason":   decision.Reason,
	})
}

// GetProgress returns the viewer's progress on a hunt.
// GET /api/v1/hunts/:id/progress.
func (h *Handler) GetProgress(c *gin.Context) {
	hunt, _, ok := h.loadHunt(c)
	if !ok {
		return
	}

	viewer := middleware.CurrentViewer(c)
	progress, err := h.progress.Get(c.Request.Context(), viewer.UserID, hunt.ID)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	if progress == nil {
		var first *uint
		if len(hunt.Clues) > 0 {
			first = &hunt.Clues[0].ID
		}
		c.JSON(http.StatusOK, gin.H{
			"hunt_id":         hunt.ID,
			"started":         false,
			"current_clue_id": first,
			"total_points":    0,
			"completed":       false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hunt_id":                 hunt.ID,
		"started":                 true,
		"current_clue_id":         progress.CurrentClueID,
		"total_points":            progress.TotalPoints,
		"completed":               progress.Completed,
		"completion_time_minutes": progress.CompletionTimeMinutes,
		"started_at":              progress.StartedAt,
		"completed_at":            progress.CompletedAt,
	})
}

// loadHunt resolves :id and hides hunts the viewer may not see at all.
func (h *Handler) loadHunt(c *gin.Context) (*models.Hunt, access.Decision, bool) {
	huntID, err := middleware.ParseID(c, "id")
	if err != nil {
		middleware.ErrorResponse(c, err)
		return nil, access.Decision{}, false
	}

	hunt, err := h.hunts.GetWithClues(huntID)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return nil, access.Decision{}, false
	}

	decision, err := h.gate.Decide(c.Request.Context(), middleware.CurrentViewer(c), hunt)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return nil, access.Decision{}, false
	}
	if decision.Reason == access.ReasonHidden {
		middleware.ErrorResponse(c, fmt.Errorf("hunt %d: %w", huntID, apperr.ErrNotFound))
		return nil, access.Decision{}, false
	}

	return hunt, decision, true
}
