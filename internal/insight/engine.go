package insight

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/indipendencepark/sana-intraprendenza/internal/cache"
	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

type Engine struct {
	cache     cache.InsightCache
	cacheTTL  time.Duration
	generator Generator
	now       func() time.Time
}

func NewEngine(cacheStore cache.InsightCache, cacheTTL time.Duration, generator Generator) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopInsightCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if generator == nil {
		generator = NewRuleGenerator(nil)
	}
	return &Engine{
		cache:     cacheStore,
		cacheTTL:  cacheTTL,
		generator: generator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Report returns the generator's text for snapshot, served from cache while
// the same snapshot is still fresh. Cache failures never fail the report.
func (e *Engine) Report(ctx context.Context, snapshot Snapshot) (domain.InsightResponse, error) {
	key, err := buildCacheKey(snapshot)
	if err == nil {
		if cached, ok, cacheErr := e.cache.Get(ctx, key); cacheErr == nil && ok {
			cached.Cached = true
			return *cached, nil
		}
	}

	text, err := e.generator.Generate(ctx, snapshot)
	if err != nil {
		return domain.InsightResponse{}, err
	}
	resp := domain.InsightResponse{Report: text, GeneratedAt: e.now()}
	if key != "" {
		_ = e.cache.Set(ctx, key, &resp, e.cacheTTL)
	}
	return resp, nil
}

func buildCacheKey(snapshot Snapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	hash := sha1.Sum(payload)
	return hex.EncodeToString(hash[:]), nil
}
