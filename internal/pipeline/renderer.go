package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ppiankov/clausewatch/internal/model"
)

const disclaimer = "This report flags clauses by pattern matching. It is a triage aid, not legal advice; " +
	"have a qualified lawyer review any clause that matters to you."

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter bool
	out           io.Writer
	colors        map[string]*color.Color
}

// NewRenderer creates a renderer writing its summary to stdout
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{
		includeFooter: includeFooter,
		out:           os.Stdout,
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed, color.Bold),
			"cyan":   color.New(color.FgCyan),
			"dim":    color.New(color.Faint),
			"title":  color.New(color.FgWhite, color.Bold),
		},
	}
}

// SetOutput redirects the terminal summary
func (r *Renderer) SetOutput(w io.Writer) {
	r.out = w
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeOutput(path, append(data, '\n'))
}

// RenderMarkdown writes the Markdown report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeOutput(path, []byte(r.Markdown(report)))
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	title := report.Document.Title
	if title == "" {
		title = report.Document.Source
	}
	fmt.Fprintf(&b, "# Clause Risk Report: %s\n\n", escapeMarkdown(title))
	fmt.Fprintf(&b, "- **Source:** %s\n", report.Document.Source)
	if report.Document.Format != "" {
		fmt.Fprintf(&b, "- **Format:** %s\n", report.Document.Format)
	}
	fmt.Fprintf(&b, "- **Analyzed:** %s\n", report.AnalyzedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Risk index:** %d/100 (%s)\n", report.Score.Index, report.Score.Level)
	fmt.Fprintf(&b, "- **Clauses:** %d analyzed, %d flagged\n\n", report.Stats.Clauses, report.Stats.Flagged)

	if len(report.Score.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, s := range report.Score.Signals {
			fmt.Fprintf(&b, "- **%s** %s\n", s.Severity, s.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Findings\n\n")
	if len(report.Findings.Findings) == 0 {
		b.WriteString("No risk patterns were found.\n\n")
	} else {
		showTopics := report.Stats.TopicsEnabled
		showEntities := report.Stats.EntitiesEnabled

		b.WriteString("| # | Clause | Risks |")
		if showTopics {
			b.WriteString(" Topics |")
		}
		if showEntities {
			b.WriteString(" Entities |")
		}
		b.WriteString("\n|---|---|---|")
		if showTopics {
			b.WriteString("---|")
		}
		if showEntities {
			b.WriteString("---|")
		}
		b.WriteString("\n")

		for _, f := range report.Findings.Findings {
			fmt.Fprintf(&b, "| %d | %s | %s |", f.Position+1, escapeCell(f.Text), escapeCell(strings.Join(f.Risks, ", ")))
			if showTopics {
				fmt.Fprintf(&b, " %s |", escapeCell(formatTopics(f.Topics)))
			}
			if showEntities {
				fmt.Fprintf(&b, " %s |", escapeCell(formatEntities(f.Entities)))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if report.Answer != nil {
		b.WriteString("## Question\n\n")
		fmt.Fprintf(&b, "**%s**\n\n%s\n\n", escapeMarkdown(report.Answer.Question), report.Answer.Answer)
		if report.Answer.Provider != "" {
			fmt.Fprintf(&b, "_Answered by %s %s._\n\n", report.Answer.Provider, report.Answer.Model)
		}
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "_%s_\n", disclaimer)
	}

	return b.String()
}

// RenderSummary prints a short colored summary
func (r *Renderer) RenderSummary(report *model.Report) {
	w := r.out
	c := r.colors

	c["title"].Fprintf(w, "\n%s\n", summaryTitle(report))
	fmt.Fprintf(w, "Risk index: ")
	r.levelColor(report.Score.Level).Fprintf(w, "%d/100 (%s)\n", report.Score.Index, report.Score.Level)
	fmt.Fprintf(w, "Clauses: %d analyzed, %d flagged\n", report.Stats.Clauses, report.Stats.Flagged)

	for _, s := range report.Score.Signals {
		if s.Type != model.SignalCategory {
			continue
		}
		marker := c["yellow"]
		if s.Severity == model.SeverityCritical {
			marker = c["red"]
		}
		marker.Fprintf(w, "  ! ")
		fmt.Fprintf(w, "%s\n", s.Description)
	}

	if report.Stats.TopicFailures+report.Stats.EntityFailures > 0 {
		c["yellow"].Fprintf(w, "  enrichment degraded: %d topic, %d entity calls failed\n",
			report.Stats.TopicFailures, report.Stats.EntityFailures)
	}

	if report.Answer != nil {
		c["cyan"].Fprintf(w, "\nQ: %s\n", report.Answer.Question)
		fmt.Fprintf(w, "%s\n", report.Answer.Answer)
	}

	if r.includeFooter {
		c["dim"].Fprintf(w, "\n%s\n", disclaimer)
	}
}

func (r *Renderer) levelColor(level string) *color.Color {
	switch level {
	case "high":
		return r.colors["red"]
	case "medium":
		return r.colors["yellow"]
	default:
		return r.colors["green"]
	}
}

func summaryTitle(report *model.Report) string {
	if report.Document.Title != "" {
		return report.Document.Title
	}
	return report.Document.Source
}

func formatTopics(topics []model.TopicScore) string {
	parts := make([]string, 0, len(topics))
	for _, t := range topics {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", t.Label, t.Score))
	}
	return strings.Join(parts, ", ")
}

func formatEntities(entities map[string][]string) string {
	types := make([]string, 0, len(entities))
	for t := range entities {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, t+": "+strings.Join(entities[t], ", "))
	}
	return strings.Join(parts, "; ")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`").Replace(s)
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
