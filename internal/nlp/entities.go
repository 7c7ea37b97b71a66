package nlp

import (
	"context"
	"sort"
	"strings"
)

// EntityExtractor finds named entities in text, grouped by entity type
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (map[string][]string, error)
}

// ExtractorFunc adapts a function to EntityExtractor
type ExtractorFunc func(ctx context.Context, text string) (map[string][]string, error)

// Extract calls f
func (f ExtractorFunc) Extract(ctx context.Context, text string) (map[string][]string, error) {
	return f(ctx, text)
}

// Span is one recognized entity with its character offsets
type Span struct {
	Type  string
	Text  string
	Start int
	End   int
	Score float64
}

// GroupEntities groups spans by type in order of appearance.
// Duplicates are kept and empty spans dropped. The result is never nil.
func GroupEntities(spans []Span) map[string][]string {
	sorted := make([]Span, 0, len(spans))
	for _, s := range spans {
		s.Type = strings.TrimSpace(s.Type)
		s.Text = strings.TrimSpace(s.Text)
		if s.Type == "" || s.Text == "" {
			continue
		}
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	groups := make(map[string][]string)
	for _, s := range sorted {
		groups[s.Type] = append(groups[s.Type], s.Text)
	}
	return groups
}

// SanitizeEntities trims entity types and spans and drops empty ones. Types
// left with no spans are removed. The result is never nil.
func SanitizeEntities(entities map[string][]string) map[string][]string {
	out := make(map[string][]string, len(entities))
	for typ, spans := range entities {
		typ = strings.TrimSpace(typ)
		if typ == "" {
			continue
		}
		for _, span := range spans {
			span = strings.TrimSpace(span)
			if span == "" {
				continue
			}
			out[typ] = append(out[typ], span)
		}
	}
	return out
}
