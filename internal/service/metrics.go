package service

import (
	"context"
	"log"

	"osrs-vault-api/internal/model"
	"osrs-vault-api/internal/repository"

	"golang.org/x/sync/errgroup"
)

// MarketSource provides token market metrics.
type MarketSource interface {
	FetchMarketMetrics(ctx context.Context) model.MarketResult
}

// MetricsSnapshot combines market metrics with the items-acquired counter.
type MetricsSnapshot struct {
	Configured    bool
	Metrics       *model.MarketMetrics
	ItemsAcquired int64
	Err           error
}

// MetricsService aggregates market metrics and the acquisition counter.
type MetricsService struct {
	market   MarketSource
	counters repository.CounterRepository
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(market MarketSource, counters repository.CounterRepository) *MetricsService {
	return &MetricsService{market: market, counters: counters}
}

// GetMetrics reads the market and the counter concurrently. A market error
// is returned in the snapshot alongside a valid counter value.
func (s *MetricsService) GetMetrics(ctx context.Context) *MetricsSnapshot {
	var (
		market model.MarketResult
		count  int64
	)

	var g errgroup.Group
	g.Go(func() error {
		market = s.market.FetchMarketMetrics(ctx)
		return nil
	})
	g.Go(func() error {
		n, err := s.counters.GetCounter(ctx, model.ItemsAcquiredKey)
		if err != nil {
			log.Printf("[MetricsService] Failed to read counter: %v", err)
			return nil
		}
		count = n
		return nil
	})
	g.Wait()

	if market.Err != nil {
		log.Printf("[MetricsService] Market metrics unavailable: %v", market.Err)
	}

	return &MetricsSnapshot{
		Configured:    market.Configured,
		Metrics:       market.Metrics,
		ItemsAcquired: count,
		Err:           market.Err,
	}
}
