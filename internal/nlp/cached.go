package nlp

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/cache"
	"github.com/ppiankov/clausewatch/internal/model"
)

// CachedClassifier memoizes successful classifier responses
type CachedClassifier struct {
	inner TopicClassifier
	cache cache.Cache
	model string
	ttl   time.Duration
}

// NewCachedClassifier wraps inner. model namespaces the keys so that switching
// models never serves stale scores.
func NewCachedClassifier(inner TopicClassifier, c cache.Cache, model string, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{inner: inner, cache: c, model: model, ttl: ttl}
}

// Classify returns a cached response or calls the wrapped classifier
func (c *CachedClassifier) Classify(ctx context.Context, text string, labels []string, multiLabel bool) ([]model.TopicScore, error) {
	key := cache.CacheKey("topics", c.model, strconv.FormatBool(multiLabel), strings.Join(labels, "\x1f"), text)

	if data, ok := c.cache.Get(key); ok {
		var scores []model.TopicScore
		if err := json.Unmarshal(data, &scores); err == nil && scores != nil {
			return scores, nil
		}
	}

	scores, err := c.inner.Classify(ctx, text, labels, multiLabel)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(scores); merr == nil && scores != nil {
		_ = c.cache.Set(key, data, c.ttl)
	}
	return scores, nil
}

// CachedExtractor memoizes successful extractor responses
type CachedExtractor struct {
	inner EntityExtractor
	cache cache.Cache
	model string
	ttl   time.Duration
}

// NewCachedExtractor wraps inner with a cache namespaced by model
func NewCachedExtractor(inner EntityExtractor, c cache.Cache, model string, ttl time.Duration) *CachedExtractor {
	return &CachedExtractor{inner: inner, cache: c, model: model, ttl: ttl}
}

// Extract returns a cached response or calls the wrapped extractor
func (c *CachedExtractor) Extract(ctx context.Context, text string) (map[string][]string, error) {
	key := cache.CacheKey("entities", c.model, text)

	if data, ok := c.cache.Get(key); ok {
		var groups map[string][]string
		if err := json.Unmarshal(data, &groups); err == nil && groups != nil {
			return groups, nil
		}
	}

	groups, err := c.inner.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(groups); merr == nil && groups != nil {
		_ = c.cache.Set(key, data, c.ttl)
	}
	return groups, nil
}
