package service

import (
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/timmy/lookaloud/internal/domain"
)

// DefaultMaxKeywords caps the keyword list when no limit is configured.
const DefaultMaxKeywords = domain.MaxKeywords

// KeywordExtractor derives the noun keywords of a description.
// Implementations must return keywords in a stable order with no duplicates.
type KeywordExtractor interface {
	Extract(text string) []string
}

// ProseKeywordExtractor extracts noun phrases using the prose POS tagger.
type ProseKeywordExtractor struct {
	max int
}

// NewProseKeywordExtractor creates an extractor returning at most max keywords.
// A max outside 1..DefaultMaxKeywords falls back to DefaultMaxKeywords.
func NewProseKeywordExtractor(max int) *ProseKeywordExtractor {
	if max <= 0 || max > DefaultMaxKeywords {
		max = DefaultMaxKeywords
	}
	return &ProseKeywordExtractor{max: max}
}

// Extract returns up to max noun phrases from text, in order of first appearance.
// Tagging failures yield an empty list.
func (e *ProseKeywordExtractor) Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return []string{}
	}

	return nounPhrases(doc.Tokens(), e.max)
}

// nounPhrases joins runs of adjacent noun tokens, dropping case-insensitive
// duplicates.
func nounPhrases(tokens []prose.Token, max int) []string {
	keywords := make([]string, 0, max)
	seen := make(map[string]struct{})
	var run []string

	flush := func() {
		if len(run) == 0 {
			return
		}
		phrase := strings.Join(run, " ")
		run = run[:0]
		key := strings.ToLower(phrase)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keywords = append(keywords, phrase)
	}

	for _, tok := range tokens {
		if len(keywords) >= max {
			break
		}
		if isNounTag(tok.Tag) && hasLetter(tok.Text) {
			run = append(run, tok.Text)
			continue
		}
		flush()
	}
	if len(keywords) < max {
		flush()
	}

	return keywords
}

func isNounTag(tag string) bool {
	switch tag {
	case "NN", "NNS", "NNP", "NNPS":
		return true
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}
