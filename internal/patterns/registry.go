// Package patterns holds the table of contractual risk categories and their
// compiled matchers. A Registry is read-only after construction and safe for
// concurrent use.
package patterns

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity ranks how serious a matched category usually is
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Definition is the declarative form of a risk pattern
type Definition struct {
	Name        string   `yaml:"name" json:"name"`
	Pattern     string   `yaml:"pattern" json:"pattern"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Severity    Severity `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// RiskPattern is a compiled, case-insensitive risk category
type RiskPattern struct {
	Name        string
	Description string
	Severity    Severity
	matcher     *regexp.Regexp
}

// Match reports whether the pattern matches text
func (p RiskPattern) Match(text string) bool {
	return p.matcher.MatchString(text)
}

// Expr returns the source expression of the matcher
func (p RiskPattern) Expr() string {
	return p.matcher.String()
}

// PatternCompileError reports a defect in the pattern table
type PatternCompileError struct {
	Name   string
	Reason string
	Err    error
}

func (e *PatternCompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("risk pattern %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("risk pattern %q: %s", e.Name, e.Reason)
}

func (e *PatternCompileError) Unwrap() error {
	return e.Err
}

// Registry maps category names to compiled matchers, in table order
type Registry struct {
	patterns []RiskPattern
	index    map[string]int
}

// Compile validates and compiles a pattern table. Any defect fails the whole
// table, no pattern is ever skipped.
func Compile(defs []Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, &PatternCompileError{Reason: "pattern table is empty"}
	}

	r := &Registry{
		patterns: make([]RiskPattern, 0, len(defs)),
		index:    make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, &PatternCompileError{Name: def.Name, Reason: "name is empty"}
		}
		if _, dup := r.index[name]; dup {
			return nil, &PatternCompileError{Name: name, Reason: "duplicate name"}
		}
		if strings.TrimSpace(def.Pattern) == "" {
			return nil, &PatternCompileError{Name: name, Reason: "pattern is empty"}
		}

		re, err := regexp.Compile("(?i)" + def.Pattern)
		if err != nil {
			return nil, &PatternCompileError{Name: name, Reason: "invalid expression", Err: err}
		}

		severity := def.Severity
		switch severity {
		case "":
			severity = SeverityMedium
		case SeverityLow, SeverityMedium, SeverityHigh:
		default:
			return nil, &PatternCompileError{Name: name, Reason: fmt.Sprintf("unknown severity %q", severity)}
		}

		r.index[name] = len(r.patterns)
		r.patterns = append(r.patterns, RiskPattern{
			Name:        name,
			Description: def.Description,
			Severity:    severity,
			matcher:     re,
		})
	}

	return r, nil
}

// MustCompile is like Compile but panics on a defective table
func MustCompile(defs []Definition) *Registry {
	r, err := Compile(defs)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultRegistry = MustCompile(DefaultDefinitions())

// Default returns the built-in registry
func Default() *Registry {
	return defaultRegistry
}

type patternFile struct {
	Patterns []Definition `yaml:"patterns"`
}

// LoadFile compiles a registry from a YAML pattern file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	return Parse(data)
}

// Parse compiles a registry from YAML of the form `patterns: [{name, pattern, ...}]`
func Parse(data []byte) (*Registry, error) {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pattern file: %w", err)
	}
	return Compile(file.Patterns)
}

// Categories returns the category names in table order
func (r *Registry) Categories() []string {
	names := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		names[i] = p.Name
	}
	return names
}

// Matches reports whether the named category matches text.
// Unknown categories never match.
func (r *Registry) Matches(category, text string) bool {
	i, ok := r.index[category]
	if !ok {
		return false
	}
	return r.patterns[i].Match(text)
}

// Lookup returns the pattern for a category name
func (r *Registry) Lookup(name string) (RiskPattern, bool) {
	i, ok := r.index[name]
	if !ok {
		return RiskPattern{}, false
	}
	return r.patterns[i], true
}

// Patterns returns a copy of the compiled patterns in table order
func (r *Registry) Patterns() []RiskPattern {
	out := make([]RiskPattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Len returns the number of categories
func (r *Registry) Len() int {
	return len(r.patterns)
}

// Definitions returns the table the registry was compiled from
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, len(r.patterns))
	for i, p := range r.patterns {
		defs[i] = Definition{
			Name:        p.Name,
			Pattern:     strings.TrimPrefix(p.Expr(), "(?i)"),
			Description: p.Description,
			Severity:    p.Severity,
		}
	}
	return defs
}
