package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/worker"
)

const (
	// DefaultBaseURL is the hosted Hugging Face inference API
	DefaultBaseURL = "https://api-inference.huggingface.co"

	// DefaultClassifierModel is the zero-shot model used for topics
	DefaultClassifierModel = "facebook/bart-large-mnli"

	// DefaultEntityModel is the token-classification model used for entities
	DefaultEntityModel = "dslim/bert-base-NER"

	maxResponseBytes = 4 << 20
	retryBaseDelay   = 500 * time.Millisecond
)

// ServiceOptions configures a Hugging Face inference client
type ServiceOptions struct {
	BaseURL    string
	Model      string
	APIToken   string
	Retries    int
	UserAgent  string
	HTTPClient *http.Client
	Limiter    *worker.Limiter
}

type hfClient struct {
	endpoint   string
	model      string
	token      string
	userAgent  string
	retries    int
	httpClient *http.Client
	limiter    *worker.Limiter
}

func newHFClient(opts ServiceOptions, defaultModel string) *hfClient {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	modelName := opts.Model
	if modelName == "" {
		modelName = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}

	return &hfClient{
		endpoint:   base + "/models/" + modelName,
		model:      modelName,
		token:      opts.APIToken,
		userAgent:  opts.UserAgent,
		retries:    retries,
		httpClient: client,
		limiter:    opts.Limiter,
	}
}

// post sends payload to the model endpoint and returns the raw 200 body
func (c *hfClient) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out []byte
	err = withRetry(ctx, c.retries, retryBaseDelay, func() error {
		if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return &statusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
		}

		out = data
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", c.model, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrEnrichmentUnavailable, c.model, err)
	}

	return out, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// HuggingFaceClassifier calls a zero-shot classification model
type HuggingFaceClassifier struct {
	client *hfClient
}

// NewHuggingFaceClassifier creates a zero-shot classifier client
func NewHuggingFaceClassifier(opts ServiceOptions) *HuggingFaceClassifier {
	return &HuggingFaceClassifier{client: newHFClient(opts, DefaultClassifierModel)}
}

// Model returns the model identifier the classifier calls
func (c *HuggingFaceClassifier) Model() string {
	return c.client.model
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// zeroShotItem covers both the {labels, scores} object and a {label, score} pair
type zeroShotItem struct {
	Label  string    `json:"label"`
	Score  *float64  `json:"score"`
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify scores text against labels. Nil labels means CandidateLabels().
func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string, labels []string, multiLabel bool) ([]model.TopicScore, error) {
	if labels == nil {
		labels = CandidateLabels()
	}
	if strings.TrimSpace(text) == "" || len(labels) == 0 {
		return []model.TopicScore{}, nil
	}

	data, err := c.client.post(ctx, zeroShotRequest{
		Inputs: text,
		Parameters: zeroShotParameters{
			CandidateLabels: labels,
			MultiLabel:      multiLabel,
		},
	})
	if err != nil {
		return nil, err
	}

	return parseZeroShot(data, labels)
}

func parseZeroShot(data []byte, requested []string) ([]model.TopicScore, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	switch trimmed[0] {
	case '{':
		var item zeroShotItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if item.Labels == nil || item.Scores == nil {
			return nil, fmt.Errorf("%w: missing labels or scores", ErrMalformedResponse)
		}
		return sanitizeScores(item.Labels, item.Scores, requested)

	case '[':
		var items []zeroShotItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		// Batched form: a single {labels, scores} object in a list
		if len(items) == 1 && items[0].Labels != nil {
			return sanitizeScores(items[0].Labels, items[0].Scores, requested)
		}
		labels := make([]string, 0, len(items))
		scores := make([]float64, 0, len(items))
		for _, it := range items {
			if it.Label == "" || it.Score == nil {
				return nil, fmt.Errorf("%w: list entry without label or score", ErrMalformedResponse)
			}
			labels = append(labels, it.Label)
			scores = append(scores, *it.Score)
		}
		return sanitizeScores(labels, scores, requested)
	}

	return nil, fmt.Errorf("%w: unexpected body %q", ErrMalformedResponse, truncate(string(trimmed), 40))
}

// HuggingFaceExtractor calls a token-classification (NER) model
type HuggingFaceExtractor struct {
	client *hfClient
}

// NewHuggingFaceExtractor creates an NER client
func NewHuggingFaceExtractor(opts ServiceOptions) *HuggingFaceExtractor {
	return &HuggingFaceExtractor{client: newHFClient(opts, DefaultEntityModel)}
}

// Model returns the model identifier the extractor calls
func (e *HuggingFaceExtractor) Model() string {
	return e.client.model
}

type nerRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters nerParameters `json:"parameters"`
}

type nerParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type nerItem struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
	Start       *int    `json:"start"`
	End         *int    `json:"end"`
}

// Extract returns entities grouped by type in order of appearance
func (e *HuggingFaceExtractor) Extract(ctx context.Context, text string) (map[string][]string, error) {
	if strings.TrimSpace(text) == "" {
		return map[string][]string{}, nil
	}

	data, err := e.client.post(ctx, nerRequest{
		Inputs:     text,
		Parameters: nerParameters{AggregationStrategy: "simple"},
	})
	if err != nil {
		return nil, err
	}

	spans, err := parseEntities(data)
	if err != nil {
		return nil, err
	}
	return GroupEntities(spans), nil
}

func parseEntities(data []byte) ([]Span, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a list of entities", ErrMalformedResponse)
	}

	var items []nerItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		// Batched form: one list per input
		var batched [][]nerItem
		if berr := json.Unmarshal(trimmed, &batched); berr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if len(batched) > 0 {
			items = batched[0]
		}
	}

	spans := make([]Span, 0, len(items))
	for i, it := range items {
		start, end := i, i
		if it.Start != nil {
			start = *it.Start
		}
		if it.End != nil {
			end = *it.End
		}

		if it.EntityGroup != "" {
			spans = append(spans, Span{Type: it.EntityGroup, Text: it.Word, Start: start, End: end, Score: it.Score})
			continue
		}

		// Unaggregated BIO tags: B-PER, I-PER, O
		prefix, typ, found := strings.Cut(it.Entity, "-")
		if !found {
			typ, prefix = it.Entity, ""
		}
		if typ == "" || typ == "O" {
			continue
		}

		if prefix == "I" && len(spans) > 0 && spans[len(spans)-1].Type == typ {
			last := &spans[len(spans)-1]
			if piece, ok := strings.CutPrefix(it.Word, "##"); ok {
				last.Text += piece
			} else {
				last.Text += " " + it.Word
			}
			last.End = end
			continue
		}
		spans = append(spans, Span{Type: typ, Text: strings.TrimPrefix(it.Word, "##"), Start: start, End: end, Score: it.Score})
	}

	return spans, nil
}
