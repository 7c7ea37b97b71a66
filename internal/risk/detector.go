// Package risk evaluates clause text against the risk pattern registry.
package risk

import (
	"strings"

	"github.com/ppiankov/clausewatch/internal/patterns"
)

// Detector flags clauses that match registry patterns
type Detector struct {
	registry *patterns.Registry
}

// NewDetector creates a detector over the given registry (nil uses the built-in one)
func NewDetector(registry *patterns.Registry) *Detector {
	if registry == nil {
		registry = patterns.Default()
	}
	return &Detector{registry: registry}
}

// Registry returns the registry the detector evaluates
func (d *Detector) Registry() *patterns.Registry {
	return d.registry
}

// DetectRisks returns every category whose pattern matches text, in registry
// order. All patterns are evaluated; a clause can carry several risks.
// Matching is literal regex matching with no stemming.
func (d *Detector) DetectRisks(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	risks := []string{}
	for _, p := range d.registry.Patterns() {
		if p.Match(text) {
			risks = append(risks, p.Name)
		}
	}
	return risks
}
