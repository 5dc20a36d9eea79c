package service

import (
	"strings"
	"testing"

	"github.com/jdkato/prose/v2"
	"github.com/stretchr/testify/assert"
)

func tokens(pairs ...string) []prose.Token {
	out := make([]prose.Token, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, prose.Token{Text: pairs[i], Tag: pairs[i+1]})
	}
	return out
}

func TestNounPhrases(t *testing.T) {
	tests := []struct {
		name   string
		tokens []prose.Token
		max    int
		want   []string
	}{
		{
			name:   "single nouns",
			tokens: tokens("A", "DT", "cat", "NN", "sits", "VBZ", "on", "IN", "a", "DT", "mat", "NN", ".", "."),
			max:    10,
			want:   []string{"cat", "mat"},
		},
		{
			name:   "adjacent nouns form a phrase",
			tokens: tokens("The", "DT", "coffee", "NN", "table", "NN", "holds", "VBZ", "books", "NNS"),
			max:    10,
			want:   []string{"coffee table", "books"},
		},
		{
			name:   "case-insensitive duplicates keep first form",
			tokens: tokens("Dog", "NNP", "and", "CC", "dog", "NN", "and", "CC", "cat", "NN"),
			max:    10,
			want:   []string{"Dog", "cat"},
		},
		{
			name:   "capped at max",
			tokens: tokens("a", "NN", ",", ",", "b", "NN", ",", ",", "c", "NN"),
			max:    2,
			want:   []string{"a", "b"},
		},
		{
			name:   "punctuation tagged as noun is ignored",
			tokens: tokens("%", "NN", "sky", "NN"),
			max:    10,
			want:   []string{"sky"},
		},
		{
			name:   "no nouns",
			tokens: tokens("run", "VB", "quickly", "RB"),
			max:    10,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nounPhrases(tt.tokens, tt.max))
		})
	}
}

func TestProseKeywordExtractor(t *testing.T) {
	text := "A brown dog chases a red ball across the green park while children watch from a bench."
	ext := NewProseKeywordExtractor(3)

	got := ext.Extract(text)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 3)
	for _, kw := range got {
		assert.Contains(t, strings.ToLower(text), strings.ToLower(kw))
	}

	assert.Empty(t, ext.Extract("   "))
	assert.Equal(t, DefaultMaxKeywords, NewProseKeywordExtractor(0).max)
	assert.Equal(t, DefaultMaxKeywords, NewProseKeywordExtractor(25).max)
}

func TestProseKeywordExtractorCatSentence(t *testing.T) {
	got := NewProseKeywordExtractor(DefaultMaxKeywords).Extract("A cat sits on a mat.")
	assert.Equal(t, []string{"cat", "mat"}, got)
}
