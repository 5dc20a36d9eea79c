package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// SubmissionOutcome is the settled result of a submission.
type SubmissionOutcome string

const (
	OutcomeSucceeded SubmissionOutcome = "succeeded"
	OutcomeFailed    SubmissionOutcome = "failed"
)

// Submission is the history record kept for each settled submission.
type Submission struct {
	ID                string            `gorm:"type:text;primaryKey" json:"id"`
	FileName          string            `gorm:"type:text" json:"file_name"`
	MIMEType          string            `gorm:"type:text" json:"mime_type"`
	FileSize          int64             `json:"file_size"`
	SpeakerVoice      SpeakerVoice      `gorm:"type:text" json:"speaker_voice"`
	DescriptionDetail DescriptionDetail `gorm:"type:text" json:"description_detail"`
	Outcome           SubmissionOutcome `gorm:"type:text;index:idx_submissions_outcome" json:"outcome"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	AudioURL          string            `gorm:"type:text" json:"audio_url,omitempty"`
	ArchiveKey        string            `gorm:"type:text" json:"archive_key,omitempty"`
	ArchiveURL        string            `gorm:"-" json:"archive_url,omitempty"`
	Keywords          StringArray       `gorm:"type:text" json:"keywords"`
	ErrorMessage      string            `gorm:"type:text" json:"error_message,omitempty"`
	DurationMs        int64             `json:"duration_ms"`
	CreatedAt         time.Time         `gorm:"index:idx_submissions_created" json:"created_at"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string {
	return "submissions"
}
