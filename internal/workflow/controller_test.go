package workflow

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/lookaloud/internal/domain"
	apperrors "github.com/timmy/lookaloud/internal/errors"
	"github.com/timmy/lookaloud/internal/service"
)

type fakeDescriber struct {
	mu      sync.Mutex
	calls   []*service.DescribeRequest
	resp    *service.DescribeResponse
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeDescriber) Describe(ctx context.Context, req *service.DescribeRequest) (*service.DescribeResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	resp, err, block, entered := f.resp, f.err, f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, apperrors.FromTransport("cancelled", ctx.Err())
		}
	}
	return resp, err
}

func (f *fakeDescriber) set(resp *service.DescribeResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp, f.err = resp, err
}

func (f *fakeDescriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDescriber) lastCall() *service.DescribeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type keywordFunc func(string) []string

func (f keywordFunc) Extract(text string) []string { return f(text) }

func fixedKeywords(words ...string) keywordFunc {
	return func(string) []string { return words }
}

var catResponse = &service.DescribeResponse{
	Description: "A cat sits on a mat.",
	AudioURL:    "http://localhost:8000/audio/cat.mp3",
}

func catImage() domain.SelectedImage {
	return domain.SelectedImage{Name: "cat.png", MIMEType: "image/png", Data: []byte("png-bytes"), Size: 9}
}

var stampedCatURL = regexp.MustCompile(`/audio/cat\.mp3\?timestamp=\d+$`)

func TestSubmitWithoutImage(t *testing.T) {
	describer := &fakeDescriber{resp: catResponse}
	c := NewController(describer, fixedKeywords())

	err := c.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	state := c.State()
	assert.Equal(t, "Please upload an image.", state.Error)
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Nil(t, state.Result)
	assert.Zero(t, describer.callCount())
}

func TestSubmitSuccess(t *testing.T) {
	describer := &fakeDescriber{resp: catResponse}
	c := NewController(describer, fixedKeywords("cat", "mat"))

	c.SelectImage(catImage())
	require.NoError(t, c.SetAnalysisOptions(domain.OptionsUpdate{SpeakerVoice: ptr(domain.SpeakerMale)}))
	require.NoError(t, c.Submit(context.Background()))

	require.Equal(t, 1, describer.callCount())
	req := describer.lastCall()
	assert.Equal(t, "cat.png", req.FileName)
	assert.Equal(t, []byte("png-bytes"), req.Data)
	assert.Equal(t, domain.AnalysisOptions{SpeakerVoice: domain.SpeakerMale, DescriptionDetail: domain.DetailDetailed}, req.Options)

	state := c.State()
	require.NotNil(t, state.Result)
	assert.Len(t, state.Result.SubmissionID, 36)
	assert.Equal(t, "A cat sits on a mat.", state.Result.DescriptionText)
	assert.Regexp(t, stampedCatURL, state.Result.AudioLocation)
	assert.Subset(t, []string{"cat", "mat"}, state.Result.Keywords)
	assert.Empty(t, state.Error)
	assert.Equal(t, domain.StatusIdle, state.Status)
}

func TestSubmitFailureKeepsPreviousResult(t *testing.T) {
	describer := &fakeDescriber{resp: catResponse}
	c := NewController(describer, fixedKeywords("cat"))
	c.SelectImage(catImage())
	require.NoError(t, c.Submit(context.Background()))
	previous := c.State().Result
	require.NotNil(t, previous)

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"backend error field", apperrors.NewServerError(415, "Unsupported file type"), "Unsupported file type"},
		{"no error field", apperrors.NewServerError(500, ""), apperrors.MsgGenericFailure},
		{"network", apperrors.NewNetworkError("dial", fmt.Errorf("refused")), apperrors.MsgGenericFailure},
		{"malformed body", apperrors.NewDecodeError("no audio_url", nil), apperrors.MsgGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			describer.set(nil, tt.err)
			err := c.Submit(context.Background())
			require.Error(t, err)

			state := c.State()
			assert.Equal(t, tt.wantMsg, state.Error)
			assert.Equal(t, previous, state.Result)
			assert.Equal(t, domain.StatusIdle, state.Status)
		})
	}
}

func TestSubmitClearsErrorWhileInFlight(t *testing.T) {
	describer := &fakeDescriber{err: apperrors.NewServerError(400, "bad image")}
	c := NewController(describer, fixedKeywords())
	c.SelectImage(catImage())
	require.Error(t, c.Submit(context.Background()))
	require.Equal(t, "bad image", c.State().Error)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	describer.mu.Lock()
	describer.resp, describer.err = catResponse, nil
	describer.block, describer.entered = release, entered
	describer.mu.Unlock()

	_, err := c.SubmitAsync(context.Background())
	require.NoError(t, err)
	<-entered

	state := c.State()
	assert.Equal(t, domain.StatusInFlight, state.Status)
	assert.Empty(t, state.Error)

	close(release)
	c.Wait()
	assert.Equal(t, domain.StatusIdle, c.State().Status)
	assert.NotNil(t, c.State().Result)
}

func TestSubmitRejectsOverlappingSubmission(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	describer := &fakeDescriber{resp: catResponse, block: release, entered: entered}
	stats := NewStatsObserver()
	c := NewController(describer, fixedKeywords("cat"), WithObservers(stats))
	c.SelectImage(catImage())

	id, err := c.SubmitAsync(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	<-entered

	before := c.State()
	err = c.Submit(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSubmissionInFlight)
	_, err = c.SubmitAsync(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSubmissionInFlight)
	assert.Equal(t, before, c.State())

	close(release)
	c.Wait()

	assert.Equal(t, 1, describer.callCount())
	snap := stats.Snapshot()
	assert.Equal(t, int64(1), snap.Started)
	assert.Equal(t, int64(1), snap.Completed)
	assert.Equal(t, int64(2), snap.Rejected)
}

func TestStatusSequenceSeenBySubscribers(t *testing.T) {
	describer := &fakeDescriber{resp: catResponse}
	c := NewController(describer, fixedKeywords())
	c.SelectImage(catImage())

	var (
		mu       sync.Mutex
		statuses []domain.SubmissionStatus
	)
	cancel := c.Subscribe(func(s domain.State) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, s.Status)
	})

	require.NoError(t, c.Submit(context.Background()))
	mu.Lock()
	assert.Equal(t, []domain.SubmissionStatus{domain.StatusInFlight, domain.StatusIdle}, statuses)
	mu.Unlock()

	cancel()
	cancel()
	require.NoError(t, c.Submit(context.Background()))
	mu.Lock()
	assert.Len(t, statuses, 2)
	mu.Unlock()
}

func TestSubscriberPanicDoesNotBreakController(t *testing.T) {
	c := NewController(&fakeDescriber{resp: catResponse}, fixedKeywords())
	c.Subscribe(func(domain.State) { panic("render failed") })

	var got domain.State
	c.Subscribe(func(s domain.State) { got = s })

	c.SelectImage(catImage())
	require.NoError(t, c.Submit(context.Background()))
	assert.NotNil(t, got.Result)
}

func TestPanicDuringProcessingSettlesIdle(t *testing.T) {
	c := NewController(&fakeDescriber{resp: catResponse}, keywordFunc(func(string) []string {
		panic("tagger exploded")
	}))
	c.SelectImage(catImage())

	err := c.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))

	state := c.State()
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Equal(t, apperrors.MsgGenericFailure, state.Error)
	assert.Nil(t, state.Result)
}

func TestCancelledContextSettles(t *testing.T) {
	describer := &fakeDescriber{resp: catResponse, block: make(chan struct{})}
	c := NewController(describer, fixedKeywords())
	c.SelectImage(catImage())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Submit(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
	assert.Equal(t, domain.StatusIdle, c.State().Status)
	assert.Equal(t, apperrors.MsgGenericFailure, c.State().Error)
}

func TestKeywordsCappedAndFromCurrentDescription(t *testing.T) {
	many := make([]string, 15)
	for i := range many {
		many[i] = fmt.Sprintf("word%d", i)
	}

	var seen []string
	describer := &fakeDescriber{resp: catResponse}
	c := NewController(describer, keywordFunc(func(text string) []string {
		seen = append(seen, text)
		return many
	}))
	c.SelectImage(catImage())
	require.NoError(t, c.Submit(context.Background()))

	kws := c.State().Result.Keywords
	assert.Len(t, kws, 10)
	assert.Equal(t, many[:10], kws)
	assert.Equal(t, []string{"A cat sits on a mat."}, seen)

	c2 := NewController(describer, keywordFunc(func(string) []string { return many }), WithMaxKeywords(3))
	c2.SelectImage(catImage())
	require.NoError(t, c2.Submit(context.Background()))
	assert.Len(t, c2.State().Result.Keywords, 3)

	c3 := NewController(describer, keywordFunc(func(string) []string { return many }), WithMaxKeywords(25))
	c3.SelectImage(catImage())
	require.NoError(t, c3.Submit(context.Background()))
	assert.Len(t, c3.State().Result.Keywords, domain.MaxKeywords)
}

func TestEmptyDescriptionHasNoKeywords(t *testing.T) {
	describer := &fakeDescriber{resp: &service.DescribeResponse{Description: "", AudioURL: "http://h/a.wav"}}
	c := NewController(describer, service.NewProseKeywordExtractor(10))
	c.SelectImage(catImage())
	require.NoError(t, c.Submit(context.Background()))

	state := c.State()
	assert.Equal(t, "", state.Result.DescriptionText)
	assert.Empty(t, state.Result.Keywords)
}

func TestRepeatedAudioPathGetsDistinctURLs(t *testing.T) {
	c := NewController(&fakeDescriber{resp: catResponse}, fixedKeywords())
	c.SelectImage(catImage())

	require.NoError(t, c.Submit(context.Background()))
	first := c.State().Result.AudioLocation
	require.NoError(t, c.Submit(context.Background()))
	second := c.State().Result.AudioLocation

	assert.Regexp(t, stampedCatURL, first)
	assert.Regexp(t, stampedCatURL, second)
	assert.NotEqual(t, first, second)
}

func TestSelectImageReleasesPreviousPreview(t *testing.T) {
	c := NewController(&fakeDescriber{}, fixedKeywords())

	first := c.SelectImage(catImage())
	data, mimeType, ok := c.Previews().Open(first.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "/preview/"+first.ID, first.URL)

	dog := domain.SelectedImage{Name: "dog.jpg", MIMEType: "image/jpeg", Data: []byte("jpg")}
	second := c.SelectImage(dog)

	_, _, ok = c.Previews().Open(first.ID)
	assert.False(t, ok)
	_, _, ok = c.Previews().Open(second.ID)
	assert.True(t, ok)

	state := c.State()
	assert.Equal(t, "dog.jpg", state.Image.Name)
	assert.Equal(t, second, *state.Preview)
}

func TestSelectImageClearsError(t *testing.T) {
	c := NewController(&fakeDescriber{}, fixedKeywords())
	require.Error(t, c.Submit(context.Background()))
	require.NotEmpty(t, c.State().Error)

	c.SelectImage(catImage())
	assert.Empty(t, c.State().Error)
}

func TestSetAnalysisOptions(t *testing.T) {
	c := NewController(&fakeDescriber{}, fixedKeywords(),
		WithDefaults(domain.AnalysisOptions{SpeakerVoice: domain.SpeakerMale, DescriptionDetail: domain.DetailSimplified}))

	err := c.SetAnalysisOptions(domain.OptionsUpdate{SpeakerVoice: ptr(domain.SpeakerVoice("robot"))})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, domain.SpeakerMale, c.State().Options.SpeakerVoice)

	require.NoError(t, c.SetAnalysisOptions(domain.OptionsUpdate{DescriptionDetail: ptr(domain.DetailDetailed)}))
	assert.Equal(t, domain.AnalysisOptions{SpeakerVoice: domain.SpeakerMale, DescriptionDetail: domain.DetailDetailed}, c.State().Options)
}

func TestStateIsASnapshot(t *testing.T) {
	c := NewController(&fakeDescriber{resp: catResponse}, fixedKeywords("cat"))
	c.SelectImage(catImage())
	require.NoError(t, c.Submit(context.Background()))

	state := c.State()
	state.Result.Keywords[0] = "mutated"
	state.Image.Name = "mutated"
	assert.Equal(t, []string{"cat"}, c.State().Result.Keywords)
	assert.Equal(t, "cat.png", c.State().Image.Name)
}

func ptr[T any](v T) *T { return &v }
