package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/pipeline"
	"github.com/ppiankov/clausewatch/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple documents from a list in parallel",
	Long: `Batch processes multiple documents concurrently:
- Read file paths or URLs from the input file (one per line, # comments allowed)
- Analyze documents in parallel with a configurable worker count
- Write a JSON and a Markdown report for each document

Example:
  clausewatch batch contracts.txt
  clausewatch batch contracts.txt --concurrency 8 --output-dir ./reports
  clausewatch batch contracts.txt --topics --batch-timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of documents analyzed at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./clausewatch-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 10*time.Minute, "total timeout for batch processing")
	addAnalysisFlags(batchCmd)
}

// timeoutAnalyzer bounds each document with its own deadline
type timeoutAnalyzer struct {
	inner   worker.DocumentAnalyzer
	timeout time.Duration
}

func (a timeoutAnalyzer) AnalyzePath(ctx context.Context, source string) (*model.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.inner.AnalyzePath(ctx, source)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	workers := cfg.Concurrency.DocumentWorkers

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  clausewatch Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v (per document %v)\n", batchTimeout, timeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.New(cfg, newLogger())
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(timeoutAnalyzer{inner: p, timeout: timeout}, workers)

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing documents with %d workers...\n\n", workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := p.Renderer()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			red.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		base := reportBaseName(result.Index, result.Report)
		jsonPath := filepath.Join(outputDir, base+".json")
		mdPath := filepath.Join(outputDir, base+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			failureCount++
			red.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			failureCount++
			red.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}

		successCount++
		green.Fprintf(os.Stderr, "✓ ")
		fmt.Fprintf(os.Stderr, "%s (index: %d/100, %d flagged)\n",
			result.Source, result.Report.Score.Index, result.Report.Stats.Flagged)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

// reportBaseName numbers reports by input line so equal titles cannot collide
func reportBaseName(index int, report *model.Report) string {
	name := report.Document.Title
	if name == "" {
		base := filepath.Base(report.Document.Source)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return fmt.Sprintf("%03d-%s", index+1, slugify(name))
}

// slugify reduces s to a short filename-safe slug
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 60 {
		out = strings.TrimSuffix(out[:60], "-")
	}
	if out == "" {
		return "document"
	}
	return out
}
