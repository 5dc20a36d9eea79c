package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/lookaloud/internal/domain"
)

// ErrSubmissionNotFound is returned when a history record does not exist.
var ErrSubmissionNotFound = errors.New("submission not found")

// DefaultHistoryLimit bounds ListRecent when no limit is given.
const DefaultHistoryLimit = 20

// SubmissionRepository stores the submission history.
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a settled submission.
func (r *SubmissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission by its ID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	var sub domain.Submission
	err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListRecent returns the newest submissions first, optionally filtered by outcome.
func (r *SubmissionRepository) ListRecent(ctx context.Context, limit int, outcome domain.SubmissionOutcome) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := r.db.WithContext(ctx).Model(&domain.Submission{})
	if outcome != "" {
		query = query.Where("outcome = ?", outcome)
	}

	var subs []domain.Submission
	if err := query.Order("created_at DESC").Limit(limit).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// SetArchiveKey records where the submission's audio was archived.
func (r *SubmissionRepository) SetArchiveKey(ctx context.Context, id, key string) error {
	res := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Where("id = ?", id).
		Update("archive_key", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// CountByOutcome returns the number of submissions per outcome.
func (r *SubmissionRepository) CountByOutcome(ctx context.Context) (map[domain.SubmissionOutcome]int64, error) {
	var rows []struct {
		Outcome domain.SubmissionOutcome
		Count   int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Select("outcome, COUNT(*) AS count").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.SubmissionOutcome]int64, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Count
	}
	return counts, nil
}
