package cache

import (
	"context"
	"time"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

type InsightCache interface {
	Get(ctx context.Context, key string) (*domain.InsightResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.InsightResponse, ttl time.Duration) error
}

type NoopInsightCache struct{}

func (NoopInsightCache) Get(_ context.Context, _ string) (*domain.InsightResponse, bool, error) {
	return nil, false, nil
}

func (NoopInsightCache) Set(_ context.Context, _ string, _ *domain.InsightResponse, _ time.Duration) error {
	return nil
}
