package model

import "time"

// Report represents the complete clausewatch analysis of one document
type Report struct {
	Document   DocumentMeta   `json:"document"`             // What was analyzed
	AnalyzedAt time.Time      `json:"analyzed_at"`          // When the analysis ran
	Findings   AnalysisResult `json:"findings"`             // Risk-bearing clauses in document order
	Stats      AnalysisStats  `json:"stats"`                // Clause and enrichment counters
	Score      Score          `json:"score"`                // Risk index and breakdown
	Principles Principles     `json:"principles"`           // Disclaimer principles applied
	Answer     *LLMAnswer     `json:"llm_answer,omitempty"` // Optional question answer (never affects score)
}

// DocumentMeta describes the analyzed document
type DocumentMeta struct {
	ID     string `json:"id,omitempty"`     // Store id when the document was persisted
	Source string `json:"source"`           // File path, URL, or upload name
	Title  string `json:"title,omitempty"`  // Human-readable title
	Format string `json:"format,omitempty"` // pdf, docx, markdown, html, text
	Bytes  int    `json:"bytes,omitempty"`  // Extracted text size
}

// Score represents the transparent risk scoring breakdown
type Score struct {
	Index   int      `json:"index"`   // Overall risk index (0-100)
	Level   string   `json:"level"`   // "low", "medium", "high"
	Signals []Signal `json:"signals"` // Per-category and density signals
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Category    string                 `json:"category,omitempty"` // Risk category for category signals
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formula inputs
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCategory SignalType = "risk_category" // A risk category matched one or more clauses
	SignalDensity  SignalType = "risk_density"  // Share of clauses carrying a risk
	SignalDegraded SignalType = "degraded"      // Enrichment fell back to empty
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Principles documents which principles were applied
type Principles struct {
	Heuristic      bool `json:"heuristic"`        // Pattern matching, not legal interpretation
	NotLegalAdvice bool `json:"not_legal_advice"` // Output is a triage signal only
	Transparent    bool `json:"transparent"`      // All scoring explainable
}

// DefaultPrinciples returns the standard clausewatch principles
func DefaultPrinciples() Principles {
	return Principles{
		Heuristic:      true,
		NotLegalAdvice: true,
		Transparent:    true,
	}
}

// LLMAnswer contains an optional LLM-generated answer about the document
type LLMAnswer struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
