// Package score turns analysis findings into a transparent 0-100 risk index.
package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/patterns"
)

const (
	pointsHigh   = 15
	pointsMedium = 10
	pointsLow    = 5

	densityWeight = 30
	maxIndex      = 100

	// Level boundaries: index < mediumFrom is low, index < highFrom is medium
	mediumFrom = 25
	highFrom   = 60
)

// Scorer calculates the risk index and generates signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores a result against the registry that produced it.
// Each distinct category counts once by severity; density adds up to 30 points.
func (s *Scorer) Calculate(result model.AnalysisResult, registry *patterns.Registry) model.Score {
	if registry == nil {
		registry = patterns.Default()
	}

	signals := []model.Signal{}

	// 1. Category points, in registry order
	counts := countCategories(result.Findings)
	categoryPoints := 0
	for _, p := range registry.Patterns() {
		n := counts[p.Name]
		if n == 0 {
			continue
		}
		delete(counts, p.Name)
		pts := severityPoints(p.Severity)
		categoryPoints += pts
		signals = append(signals, categorySignal(p.Name, p.Description, p.Severity, n, pts))
	}
	// Categories unknown to the registry (e.g. results loaded from disk)
	for _, name := range sortedKeys(counts) {
		pts := severityPoints(patterns.SeverityMedium)
		categoryPoints += pts
		signals = append(signals, categorySignal(name, "", patterns.SeverityMedium, counts[name], pts))
	}

	// 2. Density points
	densityPoints, densitySig := s.calculateDensity(result)
	signals = append(signals, densitySig)

	// 3. Degraded enrichment (informational, no points)
	if sig, ok := degradedSignal(result.Stats); ok {
		signals = append(signals, sig)
	}

	index := categoryPoints + densityPoints
	if index > maxIndex {
		index = maxIndex
	}

	return model.Score{
		Index:   index,
		Level:   Level(index),
		Signals: signals,
	}
}

// Level maps an index to low, medium or high
func Level(index int) string {
	switch {
	case index < mediumFrom:
		return "low"
	case index < highFrom:
		return "medium"
	default:
		return "high"
	}
}

func (s *Scorer) calculateDensity(result model.AnalysisResult) (int, model.Signal) {
	total := result.Stats.Clauses
	flagged := result.Stats.Flagged
	if flagged == 0 {
		for _, f := range result.Findings {
			if len(f.Risks) > 0 {
				flagged++
			}
		}
	}
	if total < flagged {
		total = flagged
	}

	if total == 0 {
		return 0, model.Signal{
			Type:        model.SignalDensity,
			Severity:    model.SeverityInfo,
			Description: "No clauses to analyze",
			Data: map[string]interface{}{
				"clauses": 0,
				"flagged": 0,
				"score":   0,
				"formula": "round(30 * flagged / clauses)",
			},
		}
	}

	ratio := float64(flagged) / float64(total)
	points := int(math.Round(densityWeight * ratio))

	severity := model.SeverityInfo
	if ratio >= 0.5 {
		severity = model.SeverityCritical
	} else if ratio >= 0.2 {
		severity = model.SeverityWarning
	}

	return points, model.Signal{
		Type:        model.SignalDensity,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d clauses flagged (%.0f%%)", flagged, total, ratio*100),
		Data: map[string]interface{}{
			"clauses": total,
			"flagged": flagged,
			"ratio":   ratio,
			"score":   points,
			"formula": "round(30 * flagged / clauses)",
		},
	}
}

func categorySignal(name, description string, severity patterns.Severity, count, points int) model.Signal {
	desc := fmt.Sprintf("%s in %d clause(s)", name, count)
	if description != "" {
		desc = fmt.Sprintf("%s: %s (%d clause(s))", name, description, count)
	}
	return model.Signal{
		Type:        model.SignalCategory,
		Category:    name,
		Severity:    signalSeverity(severity),
		Description: desc,
		Data: map[string]interface{}{
			"clauses":  count,
			"severity": string(severity),
			"score":    points,
			"formula":  "high=15, medium=10, low=5 per distinct category",
		},
	}
}

func degradedSignal(stats model.AnalysisStats) (model.Signal, bool) {
	if stats.TopicFailures == 0 && stats.EntityFailures == 0 {
		return model.Signal{}, false
	}
	return model.Signal{
		Type:        model.SignalDegraded,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("Enrichment degraded: %d topic and %d entity call(s) failed", stats.TopicFailures, stats.EntityFailures),
		Data: map[string]interface{}{
			"topic_failures":  stats.TopicFailures,
			"entity_failures": stats.EntityFailures,
		},
	}, true
}

func countCategories(findings []model.RiskFinding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		seen := make(map[string]bool, len(f.Risks))
		for _, r := range f.Risks {
			if !seen[r] {
				seen[r] = true
				counts[r]++
			}
		}
	}
	return counts
}

func severityPoints(sev patterns.Severity) int {
	switch sev {
	case patterns.SeverityHigh:
		return pointsHigh
	case patterns.SeverityLow:
		return pointsLow
	default:
		return pointsMedium
	}
}

func signalSeverity(sev patterns.Severity) model.SignalSeverity {
	switch sev {
	case patterns.SeverityHigh:
		return model.SeverityCritical
	case patterns.SeverityMedium:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
