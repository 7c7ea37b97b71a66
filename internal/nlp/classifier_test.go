package nlp

import (
	"math"
	"testing"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateLabels(t *testing.T) {
	labels := CandidateLabels()
	assert.Equal(t, []string{
		"liability", "payment terms", "termination", "renewal",
		"confidentiality", "warranty", "jurisdiction",
	}, labels)

	labels[0] = "mutated"
	assert.Equal(t, "liability", CandidateLabels()[0])
}

func TestFilterTopics(t *testing.T) {
	scores := []model.TopicScore{
		{Label: "renewal", Score: 0.91},
		{Label: "payment terms", Score: 0.5},
		{Label: "termination", Score: 0.62},
		{Label: "warranty", Score: 0.1},
	}

	got := FilterTopics(scores, DefaultThreshold)
	assert.Equal(t, []model.TopicScore{
		{Label: "renewal", Score: 0.91},
		{Label: "termination", Score: 0.62},
	}, got)

	none := FilterTopics([]model.TopicScore{{Label: "warranty", Score: 0.2}}, DefaultThreshold)
	require.NotNil(t, none)
	assert.Empty(t, none)

	assert.NotNil(t, FilterTopics(nil, DefaultThreshold))
}

func TestSanitizeScores(t *testing.T) {
	requested := []string{"renewal", "liability"}

	got, err := sanitizeScores(
		[]string{"renewal", "made-up", "liability", "renewal"},
		[]float64{0.8, 0.9, math.NaN(), 0.3},
		requested,
	)
	require.NoError(t, err)
	assert.Equal(t, []model.TopicScore{{Label: "renewal", Score: 0.8}}, got)

	got, err = sanitizeScores([]string{"liability"}, []float64{1.7}, requested)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = sanitizeScores([]string{"renewal"}, []float64{0.1, 0.2}, requested)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSanitizeTopics(t *testing.T) {
	requested := []string{"renewal", "liability", "warranty", "payment terms"}

	got := SanitizeTopics([]model.TopicScore{
		{Label: "bogus", Score: 7.5},
		{Label: "renewal", Score: math.NaN()},
		{Label: "liability", Score: 0},
		{Label: "warranty", Score: -0.2},
		{Label: "payment terms", Score: 0.7},
		{Label: "payment terms", Score: 0.9},
		{Label: "renewal", Score: 1.2},
	}, requested)
	assert.Equal(t, []model.TopicScore{{Label: "payment terms", Score: 0.7}}, got)

	empty := SanitizeTopics(nil, requested)
	require.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSanitizeEntities(t *testing.T) {
	got := SanitizeEntities(map[string][]string{
		"":      {"x"},
		"  ":    {"y"},
		"ORG":   {" ", "Acme Inc ", ""},
		" LOC ": {"Delaware"},
		"PER":   {"\t"},
	})
	assert.Equal(t, map[string][]string{
		"ORG": {"Acme Inc"},
		"LOC": {"Delaware"},
	}, got)

	empty := SanitizeEntities(nil)
	require.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGroupEntities(t *testing.T) {
	spans := []Span{
		{Type: "ORG", Text: "Beta LLC", Start: 40},
		{Type: "ORG", Text: "Acme Inc", Start: 4},
		{Type: "LOC", Text: "Delaware", Start: 20},
		{Type: "ORG", Text: "Acme Inc", Start: 60},
		{Type: "PER", Text: "  ", Start: 70},
		{Type: "", Text: "orphan", Start: 80},
	}

	got := GroupEntities(spans)
	assert.Equal(t, map[string][]string{
		"ORG": {"Acme Inc", "Beta LLC", "Acme Inc"},
		"LOC": {"Delaware"},
	}, got)

	empty := GroupEntities(nil)
	require.NotNil(t, empty)
	assert.Empty(t, empty)
}
