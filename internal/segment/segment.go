// Package segment splits document text into sentence-level clauses.
package segment

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/clausewatch/internal/model"
)

// Segmenter produces an ordered sequence of clause strings from raw text
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]string, error)
}

// SegmenterFunc adapts a function to the Segmenter interface
type SegmenterFunc func(ctx context.Context, text string) ([]string, error)

// Segment calls f(ctx, text)
func (f SegmenterFunc) Segment(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f]*\n`)

// RuleSegmenter splits text on sentence terminators and blank lines
type RuleSegmenter struct {
	abbreviations map[string]bool
}

// NewRuleSegmenter creates a rule-based segmenter with common legal abbreviations
func NewRuleSegmenter() *RuleSegmenter {
	abbrevs := []string{
		"inc", "ltd", "llc", "co", "corp", "art", "sec", "para",
		"e.g", "i.e", "etc", "vs", "v", "mr", "mrs", "ms", "dr", "st",
		"u.s", "u.k", "jan", "feb", "mar", "apr", "jun", "jul", "aug",
		"sep", "sept", "oct", "nov", "dec", "approx", "cf", "p", "pp",
	}
	s := &RuleSegmenter{abbreviations: make(map[string]bool, len(abbrevs))}
	for _, a := range abbrevs {
		s.abbreviations[a] = true
	}
	return s
}

// Segment splits text into trimmed, non-empty clauses in document order
func (s *RuleSegmenter) Segment(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clauses []string
	for _, para := range paragraphBreak.Split(text, -1) {
		// Page breaks and hard wraps inside a paragraph are not boundaries
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		clauses = append(clauses, s.splitSentences(para)...)
	}
	return clauses, nil
}

// splitSentences splits a single paragraph into sentences
func (s *RuleSegmenter) splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// Closing quotes and brackets belong to the sentence they end
		for i+1 < len(runes) && strings.ContainsRune(`"')]”’`, runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}

		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && s.isAbbreviation(current.String()) {
			continue
		}
		flush()
	}
	flush()

	return sentences
}

// referenceWords introduce a lettered document part, as in "Exhibit B"
var referenceWords = map[string]bool{
	"schedule": true, "exhibit": true, "appendix": true, "annex": true,
	"section": true, "article": true, "part": true, "clause": true,
	"attachment": true, "rider": true, "paragraph": true, "item": true,
}

// isAbbreviation reports whether the text ends with a known abbreviation or an initial
func (s *RuleSegmenter) isAbbreviation(text string) bool {
	text = strings.TrimRight(text, `"')]”’`)
	text = strings.TrimSuffix(text, ".")
	idx := strings.LastIndexFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	word := text[idx+1:]
	if word == "" {
		return false
	}

	// Single-letter initials ("J. Smith"), unless the letter names a
	// schedule or exhibit ("Schedule A.") and so can end a sentence
	if len([]rune(word)) == 1 && unicode.IsUpper([]rune(word)[0]) {
		prev := strings.Fields(text[:idx+1])
		if len(prev) > 0 && referenceWords[strings.ToLower(strings.Trim(prev[len(prev)-1], "(,"))] {
			return false
		}
		return true
	}
	// "No." only abbreviates "number" when capitalized; "is no." ends a sentence
	if word == "No" || word == "Nos" {
		return true
	}
	return s.abbreviations[strings.ToLower(word)]
}

// Clauses converts segments into positioned clauses, dropping empty ones.
// Positions are the index in segments, so dropped entries leave gaps.
func Clauses(segments []string) []model.Clause {
	clauses := make([]model.Clause, 0, len(segments))
	for i, seg := range segments {
		text := strings.TrimSpace(seg)
		if text == "" {
			continue
		}
		clauses = append(clauses, model.Clause{Text: text, Position: i})
	}
	return clauses
}
