package score

import (
	"testing"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/patterns"
)

func finding(pos int, risks ...string) model.RiskFinding {
	return model.RiskFinding{Text: "clause", Position: pos, Risks: risks}
}

func TestScorer_Calculate_Empty(t *testing.T) {
	score := NewScorer().Calculate(model.AnalysisResult{}, nil)

	if score.Index != 0 {
		t.Errorf("expected index 0, got %d", score.Index)
	}
	if score.Level != "low" {
		t.Errorf("expected level low, got %s", score.Level)
	}
	if len(score.Signals) != 1 || score.Signals[0].Type != model.SignalDensity {
		t.Errorf("expected only a density signal, got %+v", score.Signals)
	}
}

func TestScorer_Calculate_CategoryAndDensity(t *testing.T) {
	result := model.AnalysisResult{
		Findings: []model.RiskFinding{
			finding(0, patterns.AutomaticRenewal),                        // medium 10
			finding(2, patterns.NonRefundable, patterns.LatePaymentFees), // medium 10, low 5
			finding(5, patterns.NonRefundable),                           // counted once
		},
		Stats: model.AnalysisStats{Clauses: 10, Flagged: 3},
	}

	score := NewScorer().Calculate(result, patterns.Default())

	// 10 + 10 + 5 category points, round(30 * 3/10) = 9 density points
	if score.Index != 34 {
		t.Errorf("expected index 34, got %d", score.Index)
	}
	if score.Level != "medium" {
		t.Errorf("expected level medium, got %s", score.Level)
	}

	var categories []string
	for _, s := range score.Signals {
		if s.Type == model.SignalCategory {
			categories = append(categories, s.Category)
		}
	}
	want := []string{patterns.AutomaticRenewal, patterns.NonRefundable, patterns.LatePaymentFees}
	if len(categories) != len(want) {
		t.Fatalf("expected %d category signals, got %v", len(want), categories)
	}
	for i := range want {
		if categories[i] != want[i] {
			t.Errorf("signal %d: expected %s, got %s", i, want[i], categories[i])
		}
	}

	for _, s := range score.Signals {
		if s.Category == patterns.NonRefundable && s.Data["clauses"] != 2 {
			t.Errorf("expected non-refundable in 2 clauses, got %v", s.Data["clauses"])
		}
	}
}

func TestScorer_Calculate_CapsAt100(t *testing.T) {
	var all []string
	for _, p := range patterns.Default().Patterns() {
		all = append(all, p.Name)
	}
	result := model.AnalysisResult{
		Findings: []model.RiskFinding{finding(0, all...)},
		Stats:    model.AnalysisStats{Clauses: 1, Flagged: 1},
	}

	score := NewScorer().Calculate(result, nil)
	if score.Index != 100 {
		t.Errorf("expected index capped at 100, got %d", score.Index)
	}
	if score.Level != "high" {
		t.Errorf("expected level high, got %s", score.Level)
	}
}

func TestScorer_Calculate_UnknownCategory(t *testing.T) {
	result := model.AnalysisResult{
		Findings: []model.RiskFinding{finding(0, "arbitration")},
		Stats:    model.AnalysisStats{Clauses: 4, Flagged: 1},
	}

	score := NewScorer().Calculate(result, nil)
	// medium 10 + round(30 * 0.25) = 8
	if score.Index != 18 {
		t.Errorf("expected index 18, got %d", score.Index)
	}
}

func TestScorer_Calculate_DegradedSignal(t *testing.T) {
	result := model.AnalysisResult{
		Findings: []model.RiskFinding{finding(0, patterns.PenaltyClause)},
		Stats:    model.AnalysisStats{Clauses: 1, Flagged: 1, TopicFailures: 1},
	}

	score := NewScorer().Calculate(result, nil)

	found := false
	for _, s := range score.Signals {
		if s.Type == model.SignalDegraded {
			found = true
		}
	}
	if !found {
		t.Error("expected degraded signal")
	}
	// Degradation never changes the index: 15 + 30
	if score.Index != 45 {
		t.Errorf("expected index 45, got %d", score.Index)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "low"},
		{24, "low"},
		{25, "medium"},
		{59, "medium"},
		{60, "high"},
		{100, "high"},
	}
	for _, tt := range tests {
		if got := Level(tt.index); got != tt.want {
			t.Errorf("Level(%d) = %s, want %s", tt.index, got, tt.want)
		}
	}
}
