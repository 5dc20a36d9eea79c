package domain

import "time"

// SubmissionStatus is Idle or InFlight.
type SubmissionStatus int

const (
	StatusIdle SubmissionStatus = iota
	StatusInFlight
)

// String implements fmt.Stringer.
func (s SubmissionStatus) String() string {
	if s == StatusInFlight {
		return "in_flight"
	}
	return "idle"
}

// MarshalText encodes the status by name.
func (s SubmissionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MaxKeywords is the upper bound on AnalysisResult.Keywords.
const MaxKeywords = 10

// AnalysisResult is the outcome of the last successful submission.
type AnalysisResult struct {
	SubmissionID    string    `json:"submission_id"`
	DescriptionText string    `json:"description"`
	AudioLocation   string    `json:"audio_url"`
	Keywords        []string  `json:"keywords"`
	CompletedAt     time.Time `json:"completed_at"`
}

// State is a point-in-time snapshot of the workflow controller.
type State struct {
	Image   *ImageInfo        `json:"image,omitempty"`
	Preview *PreviewReference `json:"preview,omitempty"`
	Options AnalysisOptions   `json:"options"`
	Result  *AnalysisResult   `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	Status  SubmissionStatus  `json:"status"`
}

// InFlight reports whether a submission is pending.
func (s State) InFlight() bool {
	return s.Status == StatusInFlight
}
