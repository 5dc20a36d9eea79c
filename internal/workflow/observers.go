package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/lookaloud/internal/domain"
	apperrors "github.com/timmy/lookaloud/internal/errors"
	"github.com/timmy/lookaloud/internal/logger"
)

// observerTimeout bounds the side work observers do after a submission settles.
const observerTimeout = 30 * time.Second

// LoggingObserver logs submission events
type LoggingObserver struct{}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{}
}

// OnEvent logs the event through the context logger.
func (o *LoggingObserver) OnEvent(ctx context.Context, event SubmissionEvent) {
	entry := logger.With(logger.Fields{
		"event_type":          string(event.Type),
		logger.FieldImageName: event.Image.Name,
		"speaker_voice":       string(event.Options.SpeakerVoice),
		"description_detail":  string(event.Options.DescriptionDetail),
	})

	switch event.Type {
	case SubmissionStarted:
		entry.WithSize(event.Image.Size).Info(ctx, "Submission started")
	case SubmissionCompleted:
		entry.WithDuration(event.Duration.Milliseconds()).
			WithField(logger.FieldCount, len(event.Result.Keywords)).
			Info(ctx, "Submission completed")
	case SubmissionFailed:
		entry = entry.WithDuration(event.Duration.Milliseconds()).WithField("error", event.Err.Error())
		if apperrors.IsType(event.Err, apperrors.ErrorTypeTimeout) {
			entry.Warn(ctx, "Submission timed out: %s", event.ErrorMessage)
			return
		}
		entry.Error(ctx, "Submission failed: %s", event.ErrorMessage)
	case SubmissionRejected:
		entry.WithField("error", event.ErrorMessage).Warn(ctx, "Submission rejected")
	}
}

// Name returns the observer name
func (o *LoggingObserver) Name() string {
	return "logging_observer"
}

// HistoryStore persists settled submissions.
type HistoryStore interface {
	Create(ctx context.Context, sub *domain.Submission) error
}

// HistoryObserver writes one history record per settled submission.
type HistoryObserver struct {
	store HistoryStore
}

// NewHistoryObserver creates a history observer backed by store.
func NewHistoryObserver(store HistoryStore) *HistoryObserver {
	return &HistoryObserver{store: store}
}

// OnEvent records completed and failed submissions.
func (o *HistoryObserver) OnEvent(ctx context.Context, event SubmissionEvent) {
	if event.Type != SubmissionCompleted && event.Type != SubmissionFailed {
		return
	}

	record := &domain.Submission{
		ID:                event.SubmissionID,
		FileName:          event.Image.Name,
		MIMEType:          event.Image.MIMEType,
		FileSize:          event.Image.Size,
		SpeakerVoice:      event.Options.SpeakerVoice,
		DescriptionDetail: event.Options.DescriptionDetail,
		Keywords:          domain.StringArray{},
		DurationMs:        event.Duration.Milliseconds(),
		CreatedAt:         event.Timestamp,
	}
	if event.Type == SubmissionCompleted {
		record.Outcome = domain.OutcomeSucceeded
		record.Description = event.Result.DescriptionText
		record.AudioURL = event.Result.AudioLocation
		record.Keywords = domain.StringArray(event.Result.Keywords)
	} else {
		record.Outcome = domain.OutcomeFailed
		record.ErrorMessage = event.ErrorMessage
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()
	if err := o.store.Create(ctx, record); err != nil {
		logger.CtxWarn(ctx, "Failed to record submission history: %v", err)
	}
}

// Name returns the observer name
func (o *HistoryObserver) Name() string {
	return "history_observer"
}

// Archiver copies a submission's audio somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, submissionID, audioURL string) (string, error)
}

// ArchiveKeyRecorder remembers where a submission's audio was archived.
type ArchiveKeyRecorder interface {
	SetArchiveKey(ctx context.Context, id, key string) error
}

// ArchiveObserver archives the audio of every completed submission.
type ArchiveObserver struct {
	archiver Archiver
	recorder ArchiveKeyRecorder
}

// NewArchiveObserver creates an archive observer. recorder may be nil.
func NewArchiveObserver(archiver Archiver, recorder ArchiveKeyRecorder) *ArchiveObserver {
	return &ArchiveObserver{archiver: archiver, recorder: recorder}
}

// OnEvent archives audio for completed submissions.
func (o *ArchiveObserver) OnEvent(ctx context.Context, event SubmissionEvent) {
	if event.Type != SubmissionCompleted || event.Result == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()

	start := time.Now()
	key, err := o.archiver.Archive(ctx, event.SubmissionID, event.Result.AudioLocation)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to archive audio: %v", err)
		return
	}
	logger.With(logger.Fields{"archive_key": key}).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Audio archived")

	if o.recorder != nil {
		if err := o.recorder.SetArchiveKey(ctx, event.SubmissionID, key); err != nil {
			logger.CtxWarn(ctx, "Failed to record archive key: %v", err)
		}
	}
}

// Name returns the observer name
func (o *ArchiveObserver) Name() string {
	return "archive_observer"
}

// Stats is a summary of submission outcomes since start-up.
type Stats struct {
	Started       int64 `json:"started"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
	Rejected      int64 `json:"rejected"`
	AvgDurationMs int64 `json:"avg_duration_ms"`
	totalDuration time.Duration
}

// StatsObserver counts submission outcomes.
type StatsObserver struct {
	mu    sync.RWMutex
	stats Stats
}

// NewStatsObserver creates a new stats observer
func NewStatsObserver() *StatsObserver {
	return &StatsObserver{}
}

// OnEvent updates the counters.
func (o *StatsObserver) OnEvent(_ context.Context, event SubmissionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.Type {
	case SubmissionStarted:
		o.stats.Started++
	case SubmissionCompleted:
		o.stats.Completed++
		o.stats.totalDuration += event.Duration
	case SubmissionFailed:
		o.stats.Failed++
		o.stats.totalDuration += event.Duration
	case SubmissionRejected:
		o.stats.Rejected++
	}
}

// Name returns the observer name
func (o *StatsObserver) Name() string {
	return "stats_observer"
}

// Snapshot returns the current counters.
func (o *StatsObserver) Snapshot() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := o.stats
	if settled := out.Completed + out.Failed; settled > 0 {
		out.AvgDurationMs = (out.totalDuration / time.Duration(settled)).Milliseconds()
	}
	return out
}
