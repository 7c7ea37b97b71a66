package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/clausewatch/internal/model"
)

// DocumentAnalyzer analyzes one document source (file path or URL)
type DocumentAnalyzer interface {
	AnalyzePath(ctx context.Context, source string) (*model.Report, error)
}

// DocumentJob analyzes a single source
type DocumentJob struct {
	Index    int
	Source   string
	Analyzer DocumentAnalyzer
}

// Execute runs the analysis for the job's source
func (j *DocumentJob) Execute(ctx context.Context) Result {
	report, err := j.Analyzer.AnalyzePath(ctx, j.Source)
	if err != nil {
		return &DocumentResult{Index: j.Index, Source: j.Source, Error: err}
	}
	return &DocumentResult{Index: j.Index, Source: j.Source, Report: report}
}

// DocumentResult is the outcome of one DocumentJob
type DocumentResult struct {
	Index  int
	Source string
	Report *model.Report
	Error  error
}

// GetError returns the analysis error, if any
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple documents concurrently
type BatchProcessor struct {
	analyzer    DocumentAnalyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer DocumentAnalyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessSources analyzes every source and returns the results in input order.
// Sources skipped because ctx was cancelled carry ctx's error.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*DocumentResult {
	if len(sources) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, source := range sources {
		if !pool.Submit(&DocumentJob{Index: i, Source: source, Analyzer: b.analyzer}) {
			break
		}
	}

	ordered := make([]*DocumentResult, len(sources))
	for _, res := range pool.Wait() {
		dr := res.(*DocumentResult)
		ordered[dr.Index] = dr
	}

	for i, dr := range ordered {
		if dr == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			ordered[i] = &DocumentResult{Index: i, Source: sources[i], Error: err}
		}
	}

	return ordered
}

// ProcessFile reads sources from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads file paths or URLs, one per line.
// Blank lines and # comments are skipped, and duplicates are dropped.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
