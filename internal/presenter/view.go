// Package presenter projects workflow state onto what the user sees.
package presenter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/timmy/lookaloud/internal/domain"
)

// Labels shown on the submit control.
const (
	SubmitLabelIdle     = "Analyze Image"
	SubmitLabelInFlight = "Analyzing..."
)

// Segment is a run of description text, highlighted when it matches a keyword.
type Segment struct {
	Text      string
	Highlight bool
}

// Choice is one entry of a selector.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// View is everything a front end needs to render one frame.
type View struct {
	HasImage     bool
	ImageName    string
	ImageSummary string
	PreviewURL   string

	SpeakerChoices []Choice
	DetailChoices  []Choice

	Submitting   bool
	SubmitLabel  string
	SubmitLocked bool

	Error string

	HasResult   bool
	Description []Segment
	Keywords    []string
	AudioURL    string
}

// Project maps a state snapshot to a View. It has no side effects.
func Project(state domain.State) View {
	view := View{
		SpeakerChoices: speakerChoices(state.Options.SpeakerVoice),
		DetailChoices:  detailChoices(state.Options.DescriptionDetail),
		Submitting:     state.InFlight(),
		SubmitLabel:    SubmitLabelIdle,
		SubmitLocked:   state.InFlight(),
		Error:          state.Error,
	}
	if view.Submitting {
		view.SubmitLabel = SubmitLabelInFlight
	}

	if state.Image != nil {
		view.HasImage = true
		view.ImageName = state.Image.Name
		view.ImageSummary = imageSummary(*state.Image)
	}
	if state.Preview != nil {
		view.PreviewURL = state.Preview.URL
	}

	if state.Result != nil {
		view.HasResult = true
		view.Description = Highlight(state.Result.DescriptionText, state.Result.Keywords)
		view.Keywords = append([]string{}, state.Result.Keywords...)
		view.AudioURL = state.Result.AudioLocation
	}

	return view
}

// Highlight splits text into segments, marking whole-word, case-insensitive
// occurrences of any keyword. Longer keywords win over shorter overlapping ones.
func Highlight(text string, keywords []string) []Segment {
	if text == "" {
		return nil
	}

	matchers := keywordMatchers(keywords)
	if len(matchers) == 0 {
		return []Segment{{Text: text}}
	}

	var segments []Segment
	last := 0
	for pos := 0; pos < len(text); {
		if end := matchKeywordAt(text, pos, matchers); end > pos {
			if pos > last {
				segments = append(segments, Segment{Text: text[last:pos]})
			}
			segments = append(segments, Segment{Text: text[pos:end], Highlight: true})
			last, pos = end, end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}
	return segments
}

// keywordMatchers returns one anchored, case-insensitive matcher per keyword,
// longest keyword first.
func keywordMatchers(keywords []string) []*regexp.Regexp {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			terms = append(terms, kw)
		}
	}
	if len(terms) == 0 {
		return nil
	}

	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	matchers := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		matchers[i] = regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(t))
	}
	return matchers
}

// matchKeywordAt returns the end of the first keyword that matches as a whole
// word at pos, or -1. Word runes are Unicode letters, digits, marks and '_'.
func matchKeywordAt(text string, pos int, matchers []*regexp.Regexp) int {
	if pos > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:pos]); isWordRune(r) {
			return -1
		}
	}
	for _, m := range matchers {
		loc := m.FindStringIndex(text[pos:])
		if loc == nil || loc[1] == 0 {
			continue
		}
		end := pos + loc[1]
		if end < len(text) {
			if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
				continue
			}
		}
		return end
	}
	return -1
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func speakerChoices(selected domain.SpeakerVoice) []Choice {
	choices := make([]Choice, 0, len(domain.SpeakerVoices))
	for _, v := range domain.SpeakerVoices {
		choices = append(choices, Choice{Value: string(v), Label: titleCase(string(v)), Selected: v == selected})
	}
	return choices
}

func detailChoices(selected domain.DescriptionDetail) []Choice {
	choices := make([]Choice, 0, len(domain.DescriptionDetails))
	for _, d := range domain.DescriptionDetails {
		choices = append(choices, Choice{Value: string(d), Label: titleCase(string(d)), Selected: d == selected})
	}
	return choices
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func imageSummary(info domain.ImageInfo) string {
	parts := []string{info.MIMEType, humanize.IBytes(uint64(info.Size))}
	if info.Width > 0 && info.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", info.Width, info.Height))
	}
	return strings.Join(parts, ", ")
}
