package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausewatch/internal/llm"
	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/nlp"
	"github.com/ppiankov/clausewatch/internal/patterns"
)

const leaseText = "This lease is subject to automatic renewal. Rent is due on the first day of each month. " +
	"The deposit is non-refundable. The landlord is not liable for lost property."

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.HTTP.RespectRobots = false
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Concurrency.ClauseWorkers = 2
	cfg.Storage.UploadDir = t.TempDir()
	return cfg
}

func newTestPipeline(t *testing.T, c Components) *Pipeline {
	t.Helper()
	p, err := NewWithComponents(testConfig(t), nil, c)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestPipeline_AnalyzeText(t *testing.T) {
	p := newTestPipeline(t, Components{})

	report := p.AnalyzeText(context.Background(), "lease", leaseText)

	require.Equal(t, 3, report.Findings.Len())
	assert.Equal(t, 0, report.Findings.Findings[0].Position)
	assert.Equal(t, []string{patterns.AutomaticRenewal}, report.Findings.Findings[0].Risks)
	assert.Equal(t, 2, report.Findings.Findings[1].Position)
	assert.Equal(t, 3, report.Findings.Findings[2].Position)

	assert.Equal(t, 4, report.Stats.Clauses)
	assert.Equal(t, 3, report.Stats.Flagged)
	assert.Equal(t, "lease", report.Document.Title)
	assert.True(t, report.Principles.NotLegalAdvice)
	assert.Positive(t, report.Score.Index)
	assert.Nil(t, report.Answer)
}

func TestPipeline_AnalyzePath_File(t *testing.T) {
	p := newTestPipeline(t, Components{})

	path := filepath.Join(t.TempDir(), "terms.md")
	require.NoError(t, os.WriteFile(path, []byte("# Terms\n\n"+leaseText+"\n"), 0o644))

	report, err := p.AnalyzePath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, report.Document.Source)
	assert.Equal(t, "Terms", report.Document.Title)
	assert.Equal(t, "markdown", report.Document.Format)
	assert.Equal(t, 3, report.Findings.Len())
}

func TestPipeline_AnalyzePath_Errors(t *testing.T) {
	p := newTestPipeline(t, Components{})

	_, err := p.AnalyzePath(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = p.AnalyzePath(context.Background(), "contract.xlsx")
	assert.Error(t, err)
}

func TestPipeline_AnalyzePath_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<html><head><title>Service Terms</title></head><body><nav>Home</nav><main><p>%s</p></main></body></html>", leaseText)
	}))
	defer server.Close()

	p := newTestPipeline(t, Components{})

	report, err := p.AnalyzePath(context.Background(), server.URL+"/legal/terms")
	require.NoError(t, err)
	assert.Equal(t, "Service Terms", report.Document.Title)
	assert.Equal(t, "html", report.Document.Format)
	assert.Equal(t, 3, report.Findings.Len())
}

func TestPipeline_EmptyDocument(t *testing.T) {
	p := newTestPipeline(t, Components{})

	report := p.AnalyzeText(context.Background(), "empty", "   ")
	assert.Equal(t, 0, report.Findings.Len())
	assert.Equal(t, 0, report.Score.Index)
	assert.Equal(t, "low", report.Score.Level)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"findings":[]`)
}

func TestPipeline_InvalidPatternsFileIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.PatternsFile = filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(cfg.Analysis.PatternsFile, []byte("patterns:\n  - name: bad\n    pattern: '('\n"), 0o644))

	_, err := New(cfg, nil)
	var pce *patterns.PatternCompileError
	assert.ErrorAs(t, err, &pce)
}

func TestPipeline_Enrichment(t *testing.T) {
	classifier := nlp.ClassifierFunc(func(ctx context.Context, text string, labels []string, multi bool) ([]model.TopicScore, error) {
		return []model.TopicScore{{Label: "payment terms", Score: 0.9}, {Label: "termination", Score: 0.1}}, nil
	})
	extractor := nlp.ExtractorFunc(func(ctx context.Context, text string) (map[string][]string, error) {
		return nil, errors.New("service down")
	})

	p := newTestPipeline(t, Components{Classifier: classifier, Extractor: extractor})
	report := p.AnalyzeText(context.Background(), "lease", leaseText)

	require.Equal(t, 3, report.Findings.Len())
	for _, f := range report.Findings.Findings {
		assert.Equal(t, []model.TopicScore{{Label: "payment terms", Score: 0.9}}, f.Topics)
		assert.Empty(t, f.Entities)
	}
	assert.Equal(t, 3, report.Stats.EntityFailures)
}

type fakeProvider struct {
	prompt string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Answer(ctx context.Context, req llm.AskRequest) (*llm.AskResponse, error) {
	f.prompt = req.Prompt
	return &llm.AskResponse{Answer: "You cannot get the deposit back.", Model: "fake-1"}, nil
}

func TestPipeline_Ask(t *testing.T) {
	p := newTestPipeline(t, Components{})
	_, err := p.Ask(context.Background(), "Can I get my deposit back?", nil)
	assert.ErrorIs(t, err, llm.ErrAssistantDisabled)

	fake := &fakeProvider{}
	p = newTestPipeline(t, Components{Provider: fake})

	report := p.AnalyzeText(context.Background(), "lease", leaseText)
	before := report.Score

	p.AskAboutReport(context.Background(), report, "Can I get my deposit back?")
	require.NotNil(t, report.Answer)
	assert.Equal(t, "You cannot get the deposit back.", report.Answer.Answer)
	assert.Equal(t, "fake", report.Answer.Provider)
	assert.Contains(t, fake.prompt, "The deposit is non-refundable.")
	assert.Equal(t, before, report.Score)
}

func TestPipeline_RenderReport(t *testing.T) {
	color.NoColor = true
	p := newTestPipeline(t, Components{})
	var out bytes.Buffer
	p.Renderer().SetOutput(&out)

	report := p.AnalyzeText(context.Background(), "lease", leaseText)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "out", "report.md")

	require.NoError(t, p.RenderReport(report, jsonPath, mdPath, false))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded model.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.Score.Index, decoded.Score.Index)
	assert.Equal(t, 3, decoded.Findings.Len())

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Clause Risk Report: lease")
	assert.Contains(t, string(md), "| 3 | The deposit is non-refundable. | non-refundable |")
	assert.Contains(t, string(md), "not legal advice")

	assert.Contains(t, out.String(), "Risk index:")
	assert.Contains(t, out.String(), "Clauses: 4 analyzed, 3 flagged")
}

func TestRenderer_MarkdownEscapesCells(t *testing.T) {
	r := NewRenderer(false)
	report := &model.Report{
		Document: model.DocumentMeta{Source: "a.txt"},
		Findings: model.AnalysisResult{Findings: []model.RiskFinding{
			{Text: "Fees | charges\napply late fees.", Risks: []string{"late payment fees"}, Entities: map[string][]string{"ORG": {"Acme"}}},
		}},
		Stats: model.AnalysisStats{Clauses: 1, Flagged: 1, EntitiesEnabled: true},
	}

	md := r.Markdown(report)
	assert.Contains(t, md, `| 1 | Fees \| charges apply late fees. | late payment fees | ORG: Acme |`)
	assert.NotContains(t, md, "Topics")
	assert.False(t, strings.Contains(md, "not legal advice"))
}
