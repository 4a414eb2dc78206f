package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"osrs-vault-api/internal/model"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWikiBaseURL is the OSRS wiki real-time prices API.
	DefaultWikiBaseURL = "https://prices.runescape.wiki/api/v1/osrs"

	// DefaultWikiUserAgent is sent when no user agent is configured.
	// The wiki blocks generic user agents.
	DefaultWikiUserAgent = "OSRS Vault (prices)"

	// PriceSourceName labels price reports built from wiki data.
	PriceSourceName = "osrs-wiki"
)

// WikiClient reads instant and 5-minute average prices from the OSRS wiki.
type WikiClient struct {
	baseURL string
	client  *resty.Client
}

// NewWikiClient creates a wiki price client.
func NewWikiClient(baseURL, userAgent string, timeout time.Duration) *WikiClient {
	if baseURL == "" {
		baseURL = DefaultWikiBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultWikiUserAgent
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json")

	return &WikiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type wikiLatest struct {
	Data map[string]struct {
		High     *float64 `json:"high"`
		HighTime *int64   `json:"highTime"`
		Low      *float64 `json:"low"`
		LowTime  *int64   `json:"lowTime"`
	} `json:"data"`
}

type wikiAverages struct {
	Data map[string]struct {
		AvgHighPrice *float64 `json:"avgHighPrice"`
		AvgLowPrice  *float64 `json:"avgLowPrice"`
	} `json:"data"`
}

// FetchPrices returns quotes for ids. Both the /latest and /5m calls must
// succeed, otherwise the error wraps ErrUpstreamUnavailable. Ids missing from
// the upstream data get an empty quote.
func (c *WikiClient) FetchPrices(ctx context.Context, ids []int) (map[int]model.PriceQuote, error) {
	var latest wikiLatest
	var averages wikiAverages

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.getJSON(gctx, "/latest", &latest) })
	g.Go(func() error { return c.getJSON(gctx, "/5m", &averages) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quotes := make(map[int]model.PriceQuote, len(ids))
	for _, id := range ids {
		key := strconv.Itoa(id)
		var q model.PriceQuote
		if l, ok := latest.Data[key]; ok {
			q.Low = l.Low
			q.High = l.High
		}
		if a, ok := averages.Data[key]; ok {
			q.AvgLow = a.AvgLowPrice
			q.AvgHigh = a.AvgHighPrice
		}
		quotes[id] = q
	}
	return quotes, nil
}

func (c *WikiClient) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.client.R().SetContext(ctx).Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("%w: wiki %s: %v", ErrUpstreamUnavailable, path, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: wiki %s status %d", ErrUpstreamUnavailable, path, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: wiki %s: invalid body: %v", ErrUpstreamUnavailable, path, err)
	}
	return nil
}
