package domain

import (
	"fmt"
	"strings"
)

// SpeakerVoice selects the narrator used by the backend's speech synthesis.
type SpeakerVoice string

const (
	SpeakerFemale SpeakerVoice = "female"
	SpeakerMale   SpeakerVoice = "male"
)

// DescriptionDetail selects how long and detailed the generated description is.
type DescriptionDetail string

const (
	DetailSimplified DescriptionDetail = "simplified"
	DetailDetailed   DescriptionDetail = "detailed"
)

// SpeakerVoices lists the accepted speaker voices in display order.
var SpeakerVoices = []SpeakerVoice{SpeakerFemale, SpeakerMale}

// DescriptionDetails lists the accepted detail levels in display order.
var DescriptionDetails = []DescriptionDetail{DetailSimplified, DetailDetailed}

// Valid reports whether v is one of the known voices.
func (v SpeakerVoice) Valid() bool {
	return v == SpeakerFemale || v == SpeakerMale
}

// Valid reports whether d is one of the known detail levels.
func (d DescriptionDetail) Valid() bool {
	return d == DetailSimplified || d == DetailDetailed
}

// ParseSpeakerVoice parses a case-insensitive voice name.
func ParseSpeakerVoice(s string) (SpeakerVoice, error) {
	v := SpeakerVoice(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid speaker voice %q (want female or male)", s)
	}
	return v, nil
}

// ParseDescriptionDetail parses a case-insensitive detail level.
func ParseDescriptionDetail(s string) (DescriptionDetail, error) {
	d := DescriptionDetail(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid description detail %q (want simplified or detailed)", s)
	}
	return d, nil
}

// AnalysisOptions are the two user choices sent with every submission.
type AnalysisOptions struct {
	SpeakerVoice      SpeakerVoice      `json:"speaker_voice"`
	DescriptionDetail DescriptionDetail `json:"description_detail"`
}

// DefaultAnalysisOptions matches the backend's own form defaults.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		SpeakerVoice:      SpeakerFemale,
		DescriptionDetail: DetailDetailed,
	}
}

// OptionsUpdate is a partial change to AnalysisOptions; nil fields are left alone.
type OptionsUpdate struct {
	SpeakerVoice      *SpeakerVoice      `json:"speaker_voice,omitempty"`
	DescriptionDetail *DescriptionDetail `json:"description_detail,omitempty"`
}

// Apply merges u into o. Nothing is applied if any provided value is invalid.
func (o AnalysisOptions) Apply(u OptionsUpdate) (AnalysisOptions, error) {
	merged := o
	if u.SpeakerVoice != nil {
		if !u.SpeakerVoice.Valid() {
			return o, fmt.Errorf("invalid speaker voice %q", *u.SpeakerVoice)
		}
		merged.SpeakerVoice = *u.SpeakerVoice
	}
	if u.DescriptionDetail != nil {
		if !u.DescriptionDetail.Valid() {
			return o, fmt.Errorf("invalid description detail %q", *u.DescriptionDetail)
		}
		merged.DescriptionDetail = *u.DescriptionDetail
	}
	return merged, nil
}
