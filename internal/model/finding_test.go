package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskFinding_MarshalJSON_NoEnrichment(t *testing.T) {
	f := RiskFinding{Text: "Fees are non-refundable.", Position: 3, Risks: []string{"non-refundable"}}

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Fees are non-refundable.", raw["text"])
	assert.NotContains(t, raw, "topics")
	assert.NotContains(t, raw, "entities")
}

func TestRiskFinding_MarshalJSON_EmptyEnrichmentIsKept(t *testing.T) {
	f := RiskFinding{
		Text:     "Fees are non-refundable.",
		Risks:    []string{"non-refundable"},
		Topics:   []TopicScore{},
		Entities: map[string][]string{},
	}

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"topics":[]`)
	assert.Contains(t, string(data), `"entities":{}`)
}

func TestAnalysisResult_MarshalsAsArray(t *testing.T) {
	var empty AnalysisResult
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	r := AnalysisResult{Findings: []RiskFinding{
		{Text: "a", Risks: []string{"x"}},
		{Text: "b", Position: 4, Risks: []string{"y"}},
	}}
	data, err = json.Marshal(r)
	require.NoError(t, err)

	var back AnalysisResult
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, 2, back.Len())
	assert.Equal(t, 4, back.Findings[1].Position)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Analysis.TopicThreshold = 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Concurrency.ClauseWorkers = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Analysis.EnrichTimeout = 0
	assert.Error(t, cfg.Validate())
}
