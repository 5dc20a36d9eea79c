package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/timmy/lookaloud/internal/config"
	"github.com/timmy/lookaloud/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "history", "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestSubmissionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(openTestDB(t))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	subs := []*domain.Submission{
		{ID: "a", FileName: "cat.png", Outcome: domain.OutcomeSucceeded, Keywords: domain.StringArray{"cat", "mat"}, CreatedAt: base},
		{ID: "b", FileName: "x.bin", Outcome: domain.OutcomeFailed, ErrorMessage: "Unsupported file type", CreatedAt: base.Add(time.Minute)},
		{ID: "c", FileName: "dog.jpg", Outcome: domain.OutcomeSucceeded, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, s := range subs {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", got.FileName)
	assert.Equal(t, domain.StringArray{"cat", "mat"}, got.Keywords)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	recent, err := repo.ListRecent(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)

	succeeded, err := repo.ListRecent(ctx, 0, domain.OutcomeSucceeded)
	require.NoError(t, err)
	assert.Len(t, succeeded, 2)

	require.NoError(t, repo.SetArchiveKey(ctx, "a", "audio/a.mp3"))
	got, err = repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "audio/a.mp3", got.ArchiveKey)
	assert.ErrorIs(t, repo.SetArchiveKey(ctx, "missing", "k"), ErrSubmissionNotFound)

	counts, err := repo.CountByOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.OutcomeSucceeded])
	assert.Equal(t, int64(1), counts[domain.OutcomeFailed])
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
