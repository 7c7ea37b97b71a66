// Package analyze runs segmentation, risk detection and optional enrichment
// over a whole document.
package analyze

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/nlp"
	"github.com/ppiankov/clausewatch/internal/risk"
	"github.com/ppiankov/clausewatch/internal/segment"
	"github.com/ppiankov/clausewatch/internal/worker"
)

// DefaultEnrichTimeout bounds each classifier or extractor call
const DefaultEnrichTimeout = 15 * time.Second

// Options controls enrichment and filtering. A nil Topics or Entities
// disables that enrichment.
type Options struct {
	Topics        nlp.TopicClassifier
	Entities      nlp.EntityExtractor
	Labels        []string      // nil uses nlp.CandidateLabels()
	Threshold     float64       // topics must score above this; zero keeps every positive score
	IncludeAll    bool          // keep risk-free clauses (audit mode)
	EnrichTimeout time.Duration // per call; zero uses DefaultEnrichTimeout
	Workers       int           // zero uses runtime.NumCPU()
	Logger        *slog.Logger
}

// Analyzer turns document text into ordered risk findings. It holds no
// per-call state and is safe for concurrent use.
type Analyzer struct {
	segmenter segment.Segmenter
	detector  *risk.Detector
	opts      Options
	log       *slog.Logger
}

// New creates an Analyzer. A nil segmenter uses segment.NewRuleSegmenter and a
// nil detector uses the built-in pattern registry.
func New(seg segment.Segmenter, detector *risk.Detector, opts Options) *Analyzer {
	if seg == nil {
		seg = segment.NewRuleSegmenter()
	}
	if detector == nil {
		detector = risk.NewDetector(nil)
	}
	if opts.Labels == nil {
		opts.Labels = nlp.CandidateLabels()
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = DefaultEnrichTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Analyzer{
		segmenter: seg,
		detector:  detector,
		opts:      opts,
		log:       log,
	}
}

// Detector returns the risk detector in use
func (a *Analyzer) Detector() *risk.Detector {
	return a.detector
}

// Segment splits text into positioned clauses. Failures yield no clauses.
func (a *Analyzer) Segment(ctx context.Context, fullText string) []model.Clause {
	if strings.TrimSpace(fullText) == "" {
		return []model.Clause{}
	}

	segments, err := a.segmenter.Segment(ctx, fullText)
	if err != nil {
		a.log.Warn("segmentation failed, treating document as empty", "error", err)
		return []model.Clause{}
	}
	return segment.Clauses(segments)
}

// AnalyzeDocument segments fullText and analyzes every clause.
// Empty text and segmentation failures give an empty result, never an error.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, fullText string) model.AnalysisResult {
	return a.analyze(ctx, a.Segment(ctx, fullText))
}

// AnalyzeClauses analyzes already-segmented clauses; positions are slice indexes
func (a *Analyzer) AnalyzeClauses(ctx context.Context, clauses []string) model.AnalysisResult {
	return a.analyze(ctx, segment.Clauses(clauses))
}

// clauseJob evaluates one clause
type clauseJob struct {
	analyzer *Analyzer
	clause   model.Clause
}

// clauseResult is the outcome of a clauseJob; finding is nil for a dropped clause
type clauseResult struct {
	position     int
	finding      *model.RiskFinding
	flagged      bool
	topicFailed  bool
	entityFailed bool
}

func (r *clauseResult) GetError() error { return nil }

func (j *clauseJob) Execute(ctx context.Context) worker.Result {
	return j.analyzer.evaluate(ctx, j.clause)
}

func (a *Analyzer) analyze(ctx context.Context, clauses []model.Clause) model.AnalysisResult {
	result := model.AnalysisResult{
		Findings: []model.RiskFinding{},
		Stats: model.AnalysisStats{
			Clauses:         len(clauses),
			TopicsEnabled:   a.opts.Topics != nil,
			EntitiesEnabled: a.opts.Entities != nil,
		},
	}
	if len(clauses) == 0 {
		return result
	}

	byIndex := make([]*clauseResult, len(clauses))

	// Detection alone is cheap; only fan out when something may block
	if a.opts.Topics == nil && a.opts.Entities == nil {
		for i, c := range clauses {
			byIndex[i] = a.evaluate(ctx, c)
		}
	} else {
		byIndex = a.fanOut(ctx, clauses)
	}

	for _, r := range byIndex {
		if r.flagged {
			result.Stats.Flagged++
		}
		if r.topicFailed {
			result.Stats.TopicFailures++
		}
		if r.entityFailed {
			result.Stats.EntityFailures++
		}
		if r.finding != nil {
			result.Findings = append(result.Findings, *r.finding)
		}
	}

	return result
}

// fanOut evaluates clauses on a worker pool and reassembles them by position.
// Clauses the pool never ran (parent cancelled) are evaluated inline, so
// cancellation can cost enrichment but never a finding.
func (a *Analyzer) fanOut(ctx context.Context, clauses []model.Clause) []*clauseResult {
	workers := a.opts.Workers
	if workers > len(clauses) {
		workers = len(clauses)
	}

	pool := worker.NewPool(ctx, workers)
	pool.Start()

	index := make(map[int]int, len(clauses))
	for i, c := range clauses {
		index[c.Position] = i
		if !pool.Submit(&clauseJob{analyzer: a, clause: c}) {
			break
		}
	}

	byIndex := make([]*clauseResult, len(clauses))
	for _, res := range pool.Wait() {
		cr := res.(*clauseResult)
		byIndex[index[cr.position]] = cr
	}

	for i, c := range clauses {
		if byIndex[i] == nil {
			byIndex[i] = a.evaluate(ctx, c)
		}
	}
	return byIndex
}

// evaluate detects risks for one clause and enriches it when it is flagged
func (a *Analyzer) evaluate(ctx context.Context, c model.Clause) *clauseResult {
	risks := a.detector.DetectRisks(c.Text)
	res := &clauseResult{position: c.Position, flagged: len(risks) > 0}

	if !res.flagged && !a.opts.IncludeAll {
		return res
	}

	finding := &model.RiskFinding{
		Text:     c.Text,
		Position: c.Position,
		Risks:    risks,
	}

	if res.flagged {
		if a.opts.Topics != nil {
			finding.Topics, res.topicFailed = a.classify(ctx, c)
		}
		if a.opts.Entities != nil {
			finding.Entities, res.entityFailed = a.extract(ctx, c)
		}
	}

	res.finding = finding
	return res
}

// classify returns filtered topics, or an empty slice and true when the call degraded
func (a *Analyzer) classify(ctx context.Context, c model.Clause) ([]model.TopicScore, bool) {
	scores, err := callWithTimeout(ctx, a.opts.EnrichTimeout, func(callCtx context.Context) ([]model.TopicScore, error) {
		return a.opts.Topics.Classify(callCtx, c.Text, a.opts.Labels, true)
	})
	if err != nil {
		a.log.Warn("topic classification degraded", "position", c.Position, "error", err)
		return []model.TopicScore{}, true
	}
	return nlp.FilterTopics(nlp.SanitizeTopics(scores, a.opts.Labels), a.opts.Threshold), false
}

// extract returns grouped entities, or an empty map and true when the call degraded
func (a *Analyzer) extract(ctx context.Context, c model.Clause) (map[string][]string, bool) {
	entities, err := callWithTimeout(ctx, a.opts.EnrichTimeout, func(callCtx context.Context) (map[string][]string, error) {
		return a.opts.Entities.Extract(callCtx, c.Text)
	})
	if err != nil {
		a.log.Warn("entity extraction degraded", "position", c.Position, "error", err)
		return map[string][]string{}, true
	}
	return nlp.SanitizeEntities(entities), false
}

// callWithTimeout returns when fn does or when d elapses, whichever is first.
// A collaborator that ignores its context is abandoned; its goroutine exits on
// its own once fn returns.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-callCtx.Done():
		var zero T
		return zero, callCtx.Err()
	}
}
