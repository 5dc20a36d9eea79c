package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/lookaloud/internal/domain"
	"github.com/timmy/lookaloud/internal/repository"
	"github.com/timmy/lookaloud/internal/service"
	"github.com/timmy/lookaloud/internal/storage"
)

// maxHistoryLimit bounds the limit query parameter.
const maxHistoryLimit = 100

// HistoryStore lists past submissions.
type HistoryStore interface {
	ListRecent(ctx context.Context, limit int, outcome domain.SubmissionOutcome) ([]domain.Submission, error)
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	CountByOutcome(ctx context.Context) (map[domain.SubmissionOutcome]int64, error)
}

// ArchiveReader locates and reads archived narration audio.
type ArchiveReader interface {
	URL(key string) string
	Open(ctx context.Context, key string) (*service.AudioFile, error)
}

// HistoryHandler serves the submission history.
type HistoryHandler struct {
	store   HistoryStore
	archive ArchiveReader
}

// NewHistoryHandler creates a new history handler. archive may be nil.
func NewHistoryHandler(store HistoryStore, archive ArchiveReader) *HistoryHandler {
	return &HistoryHandler{store: store, archive: archive}
}

// List handles GET /api/v1/history?limit=&outcome=.
func (h *HistoryHandler) List(c *gin.Context) {
	limit := repository.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	outcome := domain.SubmissionOutcome(c.Query("outcome"))
	switch outcome {
	case "", domain.OutcomeSucceeded, domain.OutcomeFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be succeeded or failed"})
		return
	}

	subs, err := h.store.ListRecent(c.Request.Context(), limit, outcome)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	for i := range subs {
		h.withArchiveURL(&subs[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"count":       len(subs),
	})
}

// Get handles GET /api/v1/history/:id.
func (h *HistoryHandler) Get(c *gin.Context) {
	sub, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		return
	}
	h.withArchiveURL(sub)
	c.JSON(http.StatusOK, sub)
}

// Audio handles GET /api/v1/history/:id/audio, serving the archived copy.
func (h *HistoryHandler) Audio(c *gin.Context) {
	sub, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		return
	}
	if h.archive == nil || sub.ArchiveKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No archived audio for this submission"})
		return
	}

	file, err := h.archive.Open(c.Request.Context(), sub.ArchiveKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No archived audio for this submission"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read archived audio"})
		return
	}
	sendAttachment(c, file)
}

func (h *HistoryHandler) withArchiveURL(sub *domain.Submission) {
	if h.archive != nil && sub.ArchiveKey != "" {
		sub.ArchiveURL = h.archive.URL(sub.ArchiveKey)
	}
}
