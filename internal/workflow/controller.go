// Package workflow implements the upload-analyze controller: it holds the
// selected image, the analysis options and the last result, and runs one
// describe request at a time.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/lookaloud/internal/domain"
	apperrors "github.com/timmy/lookaloud/internal/errors"
	"github.com/timmy/lookaloud/internal/logger"
	"github.com/timmy/lookaloud/internal/service"
)

// Describer sends an image to the description backend.
type Describer interface {
	Describe(ctx context.Context, req *service.DescribeRequest) (*service.DescribeResponse, error)
}

// Controller owns the workflow state. All methods are safe for concurrent use.
type Controller struct {
	mu      sync.RWMutex
	image   *domain.SelectedImage
	preview *domain.PreviewReference
	options domain.AnalysisOptions
	result  *domain.AnalysisResult
	errMsg  string
	status  domain.SubmissionStatus

	describer   Describer
	keywords    service.KeywordExtractor
	maxKeywords int
	previews    *PreviewRegistry
	buster      *service.CacheBuster
	events      *EventPublisher
	newID       func() string
	now         func() time.Time

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int

	pending sync.WaitGroup
}

type subscriber struct {
	id int
	fn func(domain.State)
}

// submission is the input captured when a submit is accepted.
type submission struct {
	id      string
	image   domain.SelectedImage
	options domain.AnalysisOptions
	started time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithDefaults sets the starting analysis options.
func WithDefaults(opts domain.AnalysisOptions) Option {
	return func(c *Controller) { c.options = opts }
}

// WithObservers subscribes observers to submission events, in order.
func WithObservers(observers ...Observer) Option {
	return func(c *Controller) {
		for _, o := range observers {
			c.events.Subscribe(o)
		}
	}
}

// WithMaxKeywords lowers the keyword cap. Non-positive values are ignored and
// values above domain.MaxKeywords are clamped to it.
func WithMaxKeywords(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxKeywords = min(n, domain.MaxKeywords)
		}
	}
}

// NewController creates a controller in the Idle state with no image.
// Parameters:
//   - describer: backend client used for submissions.
//   - keywords: extractor applied to each description; nil disables keywords.
//   - opts: optional overrides.
//
// Returns:
//   - *Controller: ready controller.
func NewController(describer Describer, keywords service.KeywordExtractor, opts ...Option) *Controller {
	c := &Controller{
		options:     domain.DefaultAnalysisOptions(),
		status:      domain.StatusIdle,
		describer:   describer,
		keywords:    keywords,
		maxKeywords: service.DefaultMaxKeywords,
		events:      NewEventPublisher(),
		previews:    NewPreviewRegistry(DefaultPreviewPrefix),
		buster:      service.NewCacheBuster(),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Previews returns the registry backing preview references.
func (c *Controller) Previews() *PreviewRegistry {
	return c.previews
}

// Events returns the submission event publisher.
func (c *Controller) Events() *EventPublisher {
	return c.events
}

// SelectImage makes img the current image. The previous preview is released
// and any error message is cleared. A running submission keeps the image it
// was started with.
func (c *Controller) SelectImage(img domain.SelectedImage) domain.PreviewReference {
	ref := c.previews.Register(img)

	c.mu.Lock()
	old := c.preview
	c.image = &img
	c.preview = &ref
	c.errMsg = ""
	c.mu.Unlock()

	if old != nil {
		c.previews.Release(old.ID)
	}
	c.notify()
	return ref
}

// SetAnalysisOptions applies the non-nil fields of update. Unknown values are
// rejected with a validation error and nothing changes.
func (c *Controller) SetAnalysisOptions(update domain.OptionsUpdate) error {
	c.mu.Lock()
	merged, err := c.options.Apply(update)
	if err != nil {
		c.mu.Unlock()
		return apperrors.NewValidationError(err.Error(), err)
	}
	changed := merged != c.options
	c.options = merged
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	return nil
}

// Submit sends the current image and options and waits for the outcome.
// It returns ErrSubmissionInFlight while another submission is running, a
// validation error when no image is selected, and otherwise the request or
// response error, if any. The status is Idle again when Submit returns.
func (c *Controller) Submit(ctx context.Context) error {
	sub, err := c.begin(ctx)
	if err != nil {
		return err
	}
	return c.run(ctx, sub)
}

// SubmitAsync performs the same checks as Submit, then runs the request in
// the background. It returns the accepted submission ID.
func (c *Controller) SubmitAsync(ctx context.Context) (string, error) {
	sub, err := c.begin(ctx)
	if err != nil {
		return "", err
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		_ = c.run(ctx, sub)
	}()
	return sub.id, nil
}

// Wait blocks until every background submission has settled.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// State returns a snapshot of the current state.
func (c *Controller) State() domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the subscription.
func (c *Controller) Subscribe(fn func(domain.State)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Controller) begin(ctx context.Context) (*submission, error) {
	c.mu.Lock()
	if c.status == domain.StatusInFlight {
		c.mu.Unlock()
		c.events.Notify(ctx, SubmissionEvent{
			Type:         SubmissionRejected,
			Timestamp:    c.now(),
			Err:          apperrors.ErrSubmissionInFlight,
			ErrorMessage: apperrors.MsgInFlight,
		})
		return nil, apperrors.ErrSubmissionInFlight
	}

	if c.image == nil {
		c.errMsg = apperrors.MsgNoImage
		options := c.options
		c.mu.Unlock()

		err := apperrors.NewValidationError(apperrors.MsgNoImage, nil)
		c.notify()
		c.events.Notify(ctx, SubmissionEvent{
			Type:         SubmissionRejected,
			Timestamp:    c.now(),
			Options:      options,
			Err:          err,
			ErrorMessage: apperrors.MsgNoImage,
		})
		return nil, err
	}

	sub := &submission{
		id:      c.newID(),
		image:   *c.image,
		options: c.options,
		started: c.now(),
	}
	c.status = domain.StatusInFlight
	c.errMsg = ""
	c.mu.Unlock()

	c.notify()
	c.events.Notify(logger.SetSubmissionID(ctx, sub.id), SubmissionEvent{
		Type:         SubmissionStarted,
		SubmissionID: sub.id,
		Timestamp:    sub.started,
		Image:        sub.image.Info(),
		Options:      sub.options,
	})
	return sub, nil
}

// run issues the request and always settles, even when processing panics.
func (c *Controller) run(ctx context.Context, sub *submission) (err error) {
	ctx = logger.SetSubmissionID(ctx, sub.id)

	var result *domain.AnalysisResult
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "Submission panicked: %v", r)
			result = nil
			err = apperrors.NewInternalError(fmt.Sprintf("submission panicked: %v", r), nil)
		}
		c.settle(ctx, sub, result, err)
	}()

	resp, err := c.describer.Describe(ctx, &service.DescribeRequest{
		FileName: sub.image.Name,
		MIMEType: sub.image.MIMEType,
		Data:     sub.image.Data,
		Options:  sub.options,
	})
	if err != nil {
		return err
	}

	result, err = c.process(sub, resp)
	return err
}

func (c *Controller) process(sub *submission, resp *service.DescribeResponse) (*domain.AnalysisResult, error) {
	audioURL, err := c.buster.Apply(resp.AudioURL)
	if err != nil {
		return nil, apperrors.NewDecodeError("invalid audio URL", err)
	}

	return &domain.AnalysisResult{
		SubmissionID:    sub.id,
		DescriptionText: resp.Description,
		AudioLocation:   audioURL,
		Keywords:        c.extractKeywords(resp.Description),
		CompletedAt:     c.now(),
	}, nil
}

func (c *Controller) extractKeywords(text string) []string {
	if c.keywords == nil {
		return []string{}
	}
	found := c.keywords.Extract(text)
	if len(found) > c.maxKeywords {
		found = found[:c.maxKeywords]
	}
	keywords := make([]string, len(found))
	copy(keywords, found)
	return keywords
}

func (c *Controller) settle(ctx context.Context, sub *submission, result *domain.AnalysisResult, err error) {
	event := SubmissionEvent{
		SubmissionID: sub.id,
		Timestamp:    c.now(),
		Image:        sub.image.Info(),
		Options:      sub.options,
		Duration:     c.now().Sub(sub.started),
	}

	c.mu.Lock()
	if err == nil && result != nil {
		c.result = result
		event.Type = SubmissionCompleted
		event.Result = cloneResult(result)
	} else {
		if err == nil {
			err = apperrors.NewInternalError("submission produced no result", nil)
		}
		c.errMsg = apperrors.UserMessage(err)
		event.Type = SubmissionFailed
		event.Err = err
		event.ErrorMessage = c.errMsg
	}
	c.status = domain.StatusIdle
	c.mu.Unlock()

	c.notify()
	c.events.Notify(ctx, event)
}

func (c *Controller) notify() {
	state := c.State()

	c.subMu.Lock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.subMu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.GetDefault().WithField("panic", r).Error("State subscriber panicked")
				}
			}()
			s.fn(state)
		}()
	}
}

func (c *Controller) snapshotLocked() domain.State {
	state := domain.State{
		Options: c.options,
		Error:   c.errMsg,
		Status:  c.status,
	}
	if c.image != nil {
		info := c.image.Info()
		state.Image = &info
	}
	if c.preview != nil {
		ref := *c.preview
		state.Preview = &ref
	}
	if c.result != nil {
		state.Result = cloneResult(c.result)
	}
	return state
}

func cloneResult(r *domain.AnalysisResult) *domain.AnalysisResult {
	out := *r
	out.Keywords = append([]string{}, r.Keywords...)
	return &out
}
