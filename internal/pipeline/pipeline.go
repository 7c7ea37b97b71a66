// Package pipeline loads documents, analyzes them and renders reports.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/analyze"
	"github.com/ppiankov/clausewatch/internal/cache"
	"github.com/ppiankov/clausewatch/internal/extract"
	"github.com/ppiankov/clausewatch/internal/llm"
	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/nlp"
	"github.com/ppiankov/clausewatch/internal/patterns"
	"github.com/ppiankov/clausewatch/internal/risk"
	"github.com/ppiankov/clausewatch/internal/score"
	"github.com/ppiankov/clausewatch/internal/segment"
	"github.com/ppiankov/clausewatch/internal/util"
	"github.com/ppiankov/clausewatch/internal/worker"
)

// Pipeline orchestrates extract → analyze → score → report
type Pipeline struct {
	fetcher   *Fetcher
	analyzer  *analyze.Analyzer
	registry  *patterns.Registry
	scorer    *score.Scorer
	renderer  *Renderer
	assistant *llm.Assistant
	config    *model.Config
	log       *slog.Logger
	now       func() time.Time
}

// Components overrides parts of the pipeline, mainly for tests and embedding.
// Nil fields are built from the configuration.
type Components struct {
	Registry   *patterns.Registry
	Segmenter  segment.Segmenter
	Classifier nlp.TopicClassifier
	Extractor  nlp.EntityExtractor
	Provider   llm.Provider
}

// New builds a pipeline from configuration. An invalid pattern file is fatal;
// an unusable LLM provider only disables question answering.
func New(cfg *model.Config, log *slog.Logger) (*Pipeline, error) {
	return NewWithComponents(cfg, log, Components{})
}

// NewWithComponents builds a pipeline, using any non-nil components as given
func NewWithComponents(cfg *model.Config, log *slog.Logger, c Components) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}

	registry := c.Registry
	if registry == nil {
		var err error
		registry, err = loadRegistry(cfg.Analysis.PatternsFile)
		if err != nil {
			return nil, err
		}
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	enrichCache := cache.New(cfg.Cache)
	httpClient := &http.Client{
		Timeout:   cfg.HTTP.Timeout,
		Transport: util.NewTransport(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
	}

	classifier := c.Classifier
	if classifier == nil && cfg.Analysis.Topics {
		hf := nlp.NewHuggingFaceClassifier(serviceOptions(cfg.Classifier, cfg.HTTP.UserAgent, httpClient, limiter))
		classifier = nlp.NewCachedClassifier(hf, enrichCache, hf.Model(), cfg.Cache.DiskTTL)
	}
	extractor := c.Extractor
	if extractor == nil && cfg.Analysis.Entities {
		hf := nlp.NewHuggingFaceExtractor(serviceOptions(cfg.Entities, cfg.HTTP.UserAgent, httpClient, limiter))
		extractor = nlp.NewCachedExtractor(hf, enrichCache, hf.Model(), cfg.Cache.DiskTTL)
	}

	analyzer := analyze.New(c.Segmenter, risk.NewDetector(registry), analyze.Options{
		Topics:        classifier,
		Entities:      extractor,
		Threshold:     cfg.Analysis.TopicThreshold,
		IncludeAll:    cfg.Analysis.IncludeAll,
		EnrichTimeout: cfg.Analysis.EnrichTimeout,
		Workers:       cfg.Concurrency.ClauseWorkers,
		Logger:        log,
	})

	provider := c.Provider
	if provider == nil {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			log.Warn("failed to initialize LLM provider, question answering disabled", "error", err)
		} else {
			provider = p
		}
	}

	fetcher := NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy).
		WithLimiter(limiter)
	if cfg.HTTP.RespectRobots {
		fetcher.WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, fetcher.HTTPClient()))
	}

	return &Pipeline{
		fetcher:   fetcher,
		analyzer:  analyzer,
		registry:  registry,
		scorer:    score.NewScorer(),
		renderer:  NewRenderer(cfg.Output.IncludeFooter),
		assistant: llm.NewAssistant(provider, cfg.LLM.MaxContextChars, log),
		config:    cfg,
		log:       log,
		now:       time.Now,
	}, nil
}

func loadRegistry(path string) (*patterns.Registry, error) {
	if path == "" {
		return patterns.Default(), nil
	}
	registry, err := patterns.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	return registry, nil
}

func serviceOptions(svc model.ServiceConfig, userAgent string, client *http.Client, limiter *worker.Limiter) nlp.ServiceOptions {
	return nlp.ServiceOptions{
		BaseURL:    svc.BaseURL,
		Model:      svc.Model,
		APIToken:   svc.APIToken,
		Retries:    svc.Retries,
		UserAgent:  userAgent,
		HTTPClient: client,
		Limiter:    limiter,
	}
}

// Registry returns the pattern registry in use
func (p *Pipeline) Registry() *patterns.Registry {
	return p.registry
}

// Analyzer returns the document analyzer
func (p *Pipeline) Analyzer() *analyze.Analyzer {
	return p.analyzer
}

// Assistant returns the question-answering assistant
func (p *Pipeline) Assistant() *llm.Assistant {
	return p.assistant
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// AnalyzePath analyzes a local file or an http(s) URL
func (p *Pipeline) AnalyzePath(ctx context.Context, source string) (*model.Report, error) {
	doc, err := p.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	report := p.AnalyzeText(ctx, doc.Title, doc.Text)
	report.Document.Source = source
	report.Document.Format = doc.Format
	return report, nil
}

// Load extracts the text of a local file or an http(s) URL
func (p *Pipeline) Load(ctx context.Context, source string) (*extract.Document, error) {
	if IsURL(source) {
		return p.loadURL(ctx, source)
	}

	extractor, err := extract.ForFile(source)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc, err := extractor.Extract(f, filepath.Base(source))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", source, err)
	}
	return doc, nil
}

func (p *Pipeline) loadURL(ctx context.Context, rawURL string) (*extract.Document, error) {
	result, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	// The URL extension is more specific than a generic content type
	extractor, err := extract.ForFile(result.FinalURL)
	if err != nil {
		extractor, err = extract.ForContentType(result.ContentType)
		if err != nil {
			return nil, err
		}
	}

	doc, err := extractor.Extract(bytes.NewReader(result.Body), result.Subject)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", rawURL, err)
	}
	if doc.Title == "" {
		doc.Title = result.Subject
	}
	return doc, nil
}

// AnalyzeText analyzes already-extracted text
func (p *Pipeline) AnalyzeText(ctx context.Context, title, text string) *model.Report {
	result := p.analyzer.AnalyzeDocument(ctx, text)
	report := p.report(result)
	report.Document = model.DocumentMeta{Source: title, Title: title, Bytes: len(text)}
	return report
}

// AnalyzeClauses analyzes already-segmented clauses, such as a stored upload
func (p *Pipeline) AnalyzeClauses(ctx context.Context, source string, clauses []string) *model.Report {
	result := p.analyzer.AnalyzeClauses(ctx, clauses)
	report := p.report(result)
	report.Document = model.DocumentMeta{Source: source, Bytes: len(strings.Join(clauses, "\n"))}
	return report
}

// Segment splits text into clause strings for storage
func (p *Pipeline) Segment(ctx context.Context, text string) []string {
	clauses := p.analyzer.Segment(ctx, text)
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.Text
	}
	return out
}

func (p *Pipeline) report(result model.AnalysisResult) *model.Report {
	return &model.Report{
		AnalyzedAt: p.now().UTC(),
		Findings:   result,
		Stats:      result.Stats,
		Score:      p.scorer.Calculate(result, p.registry),
		Principles: model.DefaultPrinciples(),
	}
}

// Ask answers a question with clauses as document context. The answer is
// returned separately and never changes findings or score.
func (p *Pipeline) Ask(ctx context.Context, question string, clauses []string) (*model.LLMAnswer, error) {
	return p.assistant.Ask(ctx, question, clauses)
}

// AskAboutReport answers a question about the report's findings and attaches
// the answer. Failures are logged and leave the report unchanged.
func (p *Pipeline) AskAboutReport(ctx context.Context, report *model.Report, question string) {
	clauses := make([]string, 0, len(report.Findings.Findings))
	for _, f := range report.Findings.Findings {
		clauses = append(clauses, f.Text)
	}

	answer, err := p.assistant.Ask(ctx, question, clauses)
	if err != nil {
		p.log.Warn("question answering failed", "error", err)
		return
	}
	report.Answer = answer
}

// RenderReport renders the report to the specified outputs and prints a summary
func (p *Pipeline) RenderReport(report *model.Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}
