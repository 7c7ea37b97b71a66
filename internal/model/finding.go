package model

import "encoding/json"

// Clause is one sentence-level unit of contract text
type Clause struct {
	Text     string `json:"text"`     // Trimmed, non-empty clause text
	Position int    `json:"position"` // Index within the document (0-based)
}

// TopicScore is a label/confidence pair returned by the topic classifier
type TopicScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// RiskFinding pairs a clause with the risk categories it matched.
//
// Topics and Entities are nil when the matching enrichment is disabled and
// non-nil (possibly empty) when it ran, including when it degraded.
type RiskFinding struct {
	Text     string              `json:"text"`
	Position int                 `json:"position"`
	Risks    []string            `json:"risks"`
	Topics   []TopicScore        `json:"topics,omitempty"`
	Entities map[string][]string `json:"entities,omitempty"`
}

type findingJSON struct {
	Text     string               `json:"text"`
	Position int                  `json:"position"`
	Risks    []string             `json:"risks"`
	Topics   *[]TopicScore        `json:"topics,omitempty"`
	Entities *map[string][]string `json:"entities,omitempty"`
}

// MarshalJSON emits topics/entities whenever the enrichment ran, so an empty
// enrichment is written as [] or {} rather than being dropped.
func (f RiskFinding) MarshalJSON() ([]byte, error) {
	out := findingJSON{
		Text:     f.Text,
		Position: f.Position,
		Risks:    f.Risks,
	}
	if out.Risks == nil {
		out.Risks = []string{}
	}
	if f.Topics != nil {
		out.Topics = &f.Topics
	}
	if f.Entities != nil {
		out.Entities = &f.Entities
	}
	return json.Marshal(out)
}

// AnalysisStats summarizes one analysis call
type AnalysisStats struct {
	Clauses         int  `json:"clauses"`         // Non-empty clauses evaluated
	Flagged         int  `json:"flagged"`         // Clauses with at least one risk
	TopicFailures   int  `json:"topic_failures"`  // Classifier calls that degraded to empty
	EntityFailures  int  `json:"entity_failures"` // Extractor calls that degraded to empty
	TopicsEnabled   bool `json:"topics_enabled"`
	EntitiesEnabled bool `json:"entities_enabled"`
}

// AnalysisResult is the ordered list of findings for one document
type AnalysisResult struct {
	Findings []RiskFinding
	Stats    AnalysisStats
}

// MarshalJSON serializes the result as the bare findings array
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	findings := r.Findings
	if findings == nil {
		findings = []RiskFinding{}
	}
	return json.Marshal(findings)
}

// UnmarshalJSON reads the bare findings array
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.Findings)
}

// Len returns the number of findings
func (r AnalysisResult) Len() int {
	return len(r.Findings)
}
