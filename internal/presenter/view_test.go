package presenter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/lookaloud/internal/domain"
)

func TestHighlight(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     []Segment
	}{
		{
			name:     "simple",
			text:     "A cat sits on a mat.",
			keywords: []string{"cat", "mat"},
			want: []Segment{
				{Text: "A "},
				{Text: "cat", Highlight: true},
				{Text: " sits on a "},
				{Text: "mat", Highlight: true},
				{Text: "."},
			},
		},
		{
			name:     "whole words only",
			text:     "The category of cats",
			keywords: []string{"cat"},
			want:     []Segment{{Text: "The category of cats"}},
		},
		{
			name:     "case insensitive, longest first",
			text:     "Coffee table near the TABLE",
			keywords: []string{"table", "coffee table"},
			want: []Segment{
				{Text: "Coffee table", Highlight: true},
				{Text: " near the "},
				{Text: "TABLE", Highlight: true},
			},
		},
		{
			name:     "regex characters are escaped",
			text:     "a c++ book",
			keywords: []string{"c.t", "c++", "book"},
			want: []Segment{
				{Text: "a "},
				{Text: "c++", Highlight: true},
				{Text: " "},
				{Text: "book", Highlight: true},
			},
		},
		{
			name:     "non-ASCII letters at word edges",
			text:     "The café serves crème brûlée to Zoë's cafés.",
			keywords: []string{"café", "crème brûlée", "Zoë"},
			want: []Segment{
				{Text: "The "},
				{Text: "café", Highlight: true},
				{Text: " serves "},
				{Text: "crème brûlée", Highlight: true},
				{Text: " to "},
				{Text: "Zoë", Highlight: true},
				{Text: "'s cafés."},
			},
		},
		{
			name:     "adjacent keywords separated by one space",
			text:     "cat mat",
			keywords: []string{"cat", "mat"},
			want: []Segment{
				{Text: "cat", Highlight: true},
				{Text: " "},
				{Text: "mat", Highlight: true},
			},
		},
		{
			name:     "shorter keyword matches where the longer one runs into a word",
			text:     "big dogs",
			keywords: []string{"big dog", "big"},
			want: []Segment{
				{Text: "big", Highlight: true},
				{Text: " dogs"},
			},
		},
		{
			name:     "no keywords",
			text:     "plain",
			keywords: nil,
			want:     []Segment{{Text: "plain"}},
		},
		{
			name:     "empty text",
			text:     "",
			keywords: []string{"cat"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Highlight(tt.text, tt.keywords)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, joinSegments(got))
		})
	}
}

func TestProjectIdle(t *testing.T) {
	v := Project(domain.State{Options: domain.DefaultAnalysisOptions()})

	assert.False(t, v.HasImage)
	assert.False(t, v.HasResult)
	assert.False(t, v.Submitting)
	assert.Equal(t, SubmitLabelIdle, v.SubmitLabel)
	assert.Equal(t, "Female", selectedLabel(v.SpeakerChoices))
	assert.Equal(t, "Detailed", selectedLabel(v.DetailChoices))
}

func TestProjectInFlightWithResult(t *testing.T) {
	state := domain.State{
		Image:   &domain.ImageInfo{Name: "cat.png", MIMEType: "image/png", Size: 2048, Width: 640, Height: 480},
		Preview: &domain.PreviewReference{ID: "p1", URL: "/preview/p1"},
		Options: domain.AnalysisOptions{SpeakerVoice: domain.SpeakerMale, DescriptionDetail: domain.DetailSimplified},
		Result: &domain.AnalysisResult{
			DescriptionText: "A cat sits on a mat.",
			AudioLocation:   "http://h/audio/cat.mp3?timestamp=1",
			Keywords:        []string{"cat"},
			CompletedAt:     time.Now(),
		},
		Status: domain.StatusInFlight,
	}

	v := Project(state)
	assert.True(t, v.HasImage)
	assert.Equal(t, "image/png, 2.0 KiB, 640x480", v.ImageSummary)
	assert.Equal(t, "/preview/p1", v.PreviewURL)
	assert.True(t, v.Submitting)
	assert.True(t, v.SubmitLocked)
	assert.Equal(t, SubmitLabelInFlight, v.SubmitLabel)
	assert.Equal(t, "Male", selectedLabel(v.SpeakerChoices))
	assert.Equal(t, "Simplified", selectedLabel(v.DetailChoices))
	assert.True(t, v.HasResult)
	assert.Equal(t, "http://h/audio/cat.mp3?timestamp=1", v.AudioURL)
	assert.Equal(t, "A cat sits on a mat.", joinSegments(v.Description))
}

func TestRenderTerminal(t *testing.T) {
	v := Project(domain.State{
		Options: domain.DefaultAnalysisOptions(),
		Error:   "Please upload an image.",
		Result: &domain.AnalysisResult{
			DescriptionText: "A dog runs.",
			AudioLocation:   "http://h/a.mp3?timestamp=2",
			Keywords:        []string{"dog"},
		},
	})

	out := RenderTerminal(v, 60)
	assert.Contains(t, out, "Please upload an image.")
	assert.Contains(t, out, "http://h/a.mp3?timestamp=2")
	assert.Contains(t, out, "Keywords: ")
	assert.Contains(t, out, "runs.")
}

func TestIndexTemplate(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	v := Project(domain.State{
		Options: domain.DefaultAnalysisOptions(),
		Result: &domain.AnalysisResult{
			DescriptionText: "A cat sits on a <mat>.",
			AudioLocation:   "http://h/audio/cat.mp3?timestamp=3",
			Keywords:        []string{"cat"},
		},
		Status: domain.StatusInFlight,
	})

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, IndexTemplate, v))
	html := buf.String()

	assert.Contains(t, html, "<mark>cat</mark>")
	assert.Contains(t, html, "&lt;mat&gt;")
	assert.Contains(t, html, "disabled")
	assert.Contains(t, html, SubmitLabelInFlight)
	assert.True(t, strings.Contains(html, `src="http://h/audio/cat.mp3?timestamp=3"`))
}

func joinSegments(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}
