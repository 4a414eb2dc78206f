package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"osrs-vault-api/internal/cache"
	"osrs-vault-api/internal/model"

	"golang.org/x/sync/singleflight"
)

// DefaultPriceTTL is how long fetched quotes are served from cache.
const DefaultPriceTTL = 10 * time.Minute

// PriceFeed fetches raw quotes for a set of item ids.
type PriceFeed interface {
	FetchPrices(ctx context.Context, ids []int) (map[int]model.PriceQuote, error)
}

// CachedPriceFeed serves quotes from a Cache and refreshes them from an
// upstream PriceFeed when they expire or when a refresh is forced.
// Concurrent misses share one upstream call.
type CachedPriceFeed struct {
	feed  PriceFeed
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

// NewCachedPriceFeed wraps feed with cache c. A non-positive ttl uses DefaultPriceTTL.
func NewCachedPriceFeed(feed PriceFeed, c cache.Cache, ttl time.Duration) *CachedPriceFeed {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &CachedPriceFeed{feed: feed, cache: c, ttl: ttl, now: time.Now}
}

// cachedQuotes is the cache entry: the payload plus when it was fetched.
type cachedQuotes struct {
	FetchedAt time.Time                `json:"fetchedAt"`
	Quotes    map[int]model.PriceQuote `json:"quotes"`
}

// Quotes returns quotes for ids and the time they were fetched. When force is
// set the cache is bypassed and re-populated. If a forced refresh fails but
// a cached entry is still valid, the cached entry is returned.
func (f *CachedPriceFeed) Quotes(ctx context.Context, ids []int, force bool) (map[int]model.PriceQuote, time.Time, error) {
	key := cacheKey(ids)

	cached, cacheErr := f.load(ctx, key)
	if !force && cacheErr == nil {
		return cached.Quotes, cached.FetchedAt, nil
	}

	// The shared fetch outlives any single caller; each caller only stops waiting.
	fetchCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (interface{}, error) {
		quotes, err := f.feed.FetchPrices(fetchCtx, ids)
		if err != nil {
			return nil, err
		}
		entry := &cachedQuotes{FetchedAt: f.now().UTC(), Quotes: quotes}
		f.store(fetchCtx, key, entry)
		return entry, nil
	})

	var (
		v   interface{}
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		if cacheErr == nil {
			log.Printf("[CachedPriceFeed] Refresh failed, serving cached quotes: %v", err)
			return cached.Quotes, cached.FetchedAt, nil
		}
		return nil, time.Time{}, err
	}

	entry := v.(*cachedQuotes)
	return entry.Quotes, entry.FetchedAt, nil
}

func (f *CachedPriceFeed) load(ctx context.Context, key string) (*cachedQuotes, error) {
	data, err := f.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var entry cachedQuotes
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &entry, nil
}

func (f *CachedPriceFeed) store(ctx context.Context, key string, entry *cachedQuotes) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[CachedPriceFeed] Failed to encode quotes: %v", err)
		return
	}
	if err := f.cache.Set(ctx, key, data, f.ttl); err != nil {
		log.Printf("[CachedPriceFeed] Failed to cache quotes: %v", err)
	}
}

func cacheKey(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return "prices:osrs-wiki:" + strings.Join(parts, ",")
}
