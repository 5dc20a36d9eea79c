package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/lookaloud/internal/domain"
	"github.com/timmy/lookaloud/internal/logger"
)

// EventType represents the type of submission event
type EventType string

const (
	// SubmissionStarted when a request is about to be sent
	SubmissionStarted EventType = "submission_started"
	// SubmissionCompleted when a result was stored
	SubmissionCompleted EventType = "submission_completed"
	// SubmissionFailed when the request or response handling failed
	SubmissionFailed EventType = "submission_failed"
	// SubmissionRejected when a submit was refused before any request
	SubmissionRejected EventType = "submission_rejected"
)

// SubmissionEvent describes one step in the life of a submission.
type SubmissionEvent struct {
	Type         EventType
	SubmissionID string
	Timestamp    time.Time
	Image        domain.ImageInfo
	Options      domain.AnalysisOptions
	Result       *domain.AnalysisResult
	Err          error
	ErrorMessage string
	Duration     time.Duration
}

// Observer receives submission events.
type Observer interface {
	OnEvent(ctx context.Context, event SubmissionEvent)
	Name() string
}

// EventPublisher fans submission events out to observers, in subscription
// order, on the caller's goroutine.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Notify delivers event to every observer. A panicking observer is logged
// and skipped.
func (p *EventPublisher) Notify(ctx context.Context, event SubmissionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.FromContext(ctx).WithField("observer", obs.Name()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}()
	}
}
