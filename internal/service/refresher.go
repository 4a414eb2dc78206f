package service

import (
	"context"
	"log"
	"sync"
	"time"

	"osrs-vault-api/internal/model"
)

// PriceRefresher periodically forces a price cache refresh so requests
// rarely wait on the upstream.
type PriceRefresher struct {
	prices    PriceSource
	interval  time.Duration
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewPriceRefresher creates a refresher. A zero interval defaults to 5 minutes.
func NewPriceRefresher(prices PriceSource, interval time.Duration) *PriceRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PriceRefresher{
		prices:   prices,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the refresh loop and warms the cache immediately.
func (r *PriceRefresher) Start() {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.ticker = time.NewTicker(r.interval)
	r.mu.Unlock()

	log.Printf("[PriceRefresher] Started - Interval: %v", r.interval)

	go func() {
		r.RunNow()
		r.run()
	}()
}

func (r *PriceRefresher) run() {
	for {
		select {
		case <-r.ticker.C:
			r.RunNow()
		case <-r.stopCh:
			log.Printf("[PriceRefresher] Stopped")
			return
		}
	}
}

// RunNow forces one refresh.
func (r *PriceRefresher) RunNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, _, err := r.prices.Quotes(ctx, model.TrackedItemIDs(), true); err != nil {
		log.Printf("[PriceRefresher] Refresh failed: %v", err)
		return err
	}
	return nil
}

// Stop stops the refresh loop.
func (r *PriceRefresher) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.ticker != nil {
			r.ticker.Stop()
		}
		close(r.stopCh)
		r.isRunning = false
	})
}
