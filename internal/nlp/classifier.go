// Package nlp defines the topic classifier and entity extractor contracts and
// their Hugging Face inference clients.
package nlp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/clausewatch/internal/model"
)

var (
	// ErrMalformedResponse means a service answered with data that does not fit the contract
	ErrMalformedResponse = errors.New("malformed service response")

	// ErrEnrichmentUnavailable means a service could not be reached or refused the call
	ErrEnrichmentUnavailable = errors.New("enrichment service unavailable")
)

// DefaultThreshold is the minimum confidence a topic must exceed to be reported
const DefaultThreshold = 0.5

var candidateLabels = []string{
	"liability",
	"payment terms",
	"termination",
	"renewal",
	"confidentiality",
	"warranty",
	"jurisdiction",
}

// CandidateLabels returns the fixed topic label set
func CandidateLabels() []string {
	out := make([]string, len(candidateLabels))
	copy(out, candidateLabels)
	return out
}

// TopicClassifier scores text against candidate labels
type TopicClassifier interface {
	Classify(ctx context.Context, text string, labels []string, multiLabel bool) ([]model.TopicScore, error)
}

// ClassifierFunc adapts a function to TopicClassifier
type ClassifierFunc func(ctx context.Context, text string, labels []string, multiLabel bool) ([]model.TopicScore, error)

// Classify calls f
func (f ClassifierFunc) Classify(ctx context.Context, text string, labels []string, multiLabel bool) ([]model.TopicScore, error) {
	return f(ctx, text, labels, multiLabel)
}

// FilterTopics keeps scores strictly above threshold in their original order.
// The result is never nil.
func FilterTopics(scores []model.TopicScore, threshold float64) []model.TopicScore {
	out := make([]model.TopicScore, 0, len(scores))
	for _, s := range scores {
		if s.Score > threshold {
			out = append(out, s)
		}
	}
	return out
}

// SanitizeTopics keeps the first score for each requested label and drops
// unknown labels and anything that is not a probability above zero. The
// result is never nil.
func SanitizeTopics(scores []model.TopicScore, requested []string) []model.TopicScore {
	allowed := make(map[string]bool, len(requested))
	for _, l := range requested {
		allowed[l] = true
	}

	seen := make(map[string]bool, len(scores))
	out := make([]model.TopicScore, 0, len(scores))
	for _, s := range scores {
		if !allowed[s.Label] || seen[s.Label] {
			continue
		}
		if math.IsNaN(s.Score) || s.Score <= 0 || s.Score > 1 {
			continue
		}
		seen[s.Label] = true
		out = append(out, s)
	}
	return out
}

// sanitizeScores pairs labels with scores and runs them through SanitizeTopics.
func sanitizeScores(labels []string, scores []float64, requested []string) ([]model.TopicScore, error) {
	if len(labels) != len(scores) {
		return nil, fmt.Errorf("%w: %d labels but %d scores", ErrMalformedResponse, len(labels), len(scores))
	}

	paired := make([]model.TopicScore, len(labels))
	for i, label := range labels {
		paired[i] = model.TopicScore{Label: label, Score: scores[i]}
	}
	return SanitizeTopics(paired, requested), nil
}
