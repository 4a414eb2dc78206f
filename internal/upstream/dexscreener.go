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
)

const (
	// DefaultDexScreenerBaseURL is the DexScreener public API.
	DefaultDexScreenerBaseURL = "https://api.dexscreener.com"

	// DefaultChain is the only chain whose pairs are considered by default.
	DefaultChain = "solana"

	// placeholderToken is shipped in example env files and means "not configured".
	placeholderToken = "REPLACE_WITH_REAL_SOLANA_MINT"
)

// DexScreenerClient reads trading pair metrics for one token.
type DexScreenerClient struct {
	token   string
	chain   string
	baseURL string
	client  *resty.Client
}

// DexScreenerConfig configures a DexScreenerClient.
type DexScreenerConfig struct {
	BaseURL   string
	Token     string
	Chain     string
	UserAgent string
	Timeout   time.Duration
}

// NewDexScreenerClient creates a market metrics client.
func NewDexScreenerClient(cfg DexScreenerConfig) *DexScreenerClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDexScreenerBaseURL
	}
	if cfg.Chain == "" {
		cfg.Chain = DefaultChain
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "osrs-vault/1.0"
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", cfg.UserAgent)

	return &DexScreenerClient{
		token:   strings.TrimSpace(cfg.Token),
		chain:   cfg.Chain,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

// Configured reports whether a real token identifier is set.
func (c *DexScreenerClient) Configured() bool {
	return c.token != "" && c.token != placeholderToken
}

// DexPair is one trading pair as returned by DexScreener.
type DexPair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	URL         string   `json:"url"`
	PairAddress string   `json:"pairAddress"`
	PriceUsd    string   `json:"priceUsd"`
	Fdv         *float64 `json:"fdv"`
	MarketCap   *float64 `json:"marketCap"`
	Liquidity   *struct {
		Usd *float64 `json:"usd"`
	} `json:"liquidity"`
	Volume *struct {
		H24 *float64 `json:"h24"`
	} `json:"volume"`
	PriceChange *struct {
		H24 *float64 `json:"h24"`
		M5  *float64 `json:"m5"`
	} `json:"priceChange"`
}

func (p *DexPair) liquidityUsd() float64 {
	if p.Liquidity == nil || p.Liquidity.Usd == nil {
		return 0
	}
	return *p.Liquidity.Usd
}

// FetchMarketMetrics looks up the configured token. An unconfigured token is
// a normal state and returns Configured=false without error.
func (c *DexScreenerClient) FetchMarketMetrics(ctx context.Context) model.MarketResult {
	if !c.Configured() {
		return model.MarketResult{Configured: false}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("token", c.token).
		Get(c.baseURL + "/latest/dex/tokens/{token}")
	if err != nil {
		return model.MarketResult{Configured: true, Err: fmt.Errorf("%w: dexscreener: %v", ErrUpstreamUnavailable, err)}
	}
	if !resp.IsSuccess() {
		return model.MarketResult{Configured: true, Err: fmt.Errorf("%w: dexscreener %d", ErrUpstreamUnavailable, resp.StatusCode())}
	}

	var body struct {
		Pairs []DexPair `json:"pairs"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return model.MarketResult{Configured: true, Err: fmt.Errorf("%w: dexscreener: invalid body: %v", ErrUpstreamUnavailable, err)}
	}

	best := SelectBestPair(body.Pairs, c.chain)
	if best == nil {
		return model.MarketResult{Configured: true}
	}
	return model.MarketResult{Configured: true, Metrics: metricsFromPair(best)}
}

// SelectBestPair returns the pair on chain with the greatest USD liquidity.
// Ties keep the first pair seen. Returns nil if no pair is on chain.
func SelectBestPair(pairs []DexPair, chain string) *DexPair {
	var best *DexPair
	for i := range pairs {
		p := &pairs[i]
		if p.ChainID != chain {
			continue
		}
		if best == nil || p.liquidityUsd() > best.liquidityUsd() {
			best = p
		}
	}
	return best
}

func metricsFromPair(p *DexPair) *model.MarketMetrics {
	m := &model.MarketMetrics{
		FdvUsd:  p.Fdv,
		McapUsd: p.MarketCap,
	}
	if m.McapUsd == nil {
		m.McapUsd = p.Fdv
	}
	if v, err := strconv.ParseFloat(p.PriceUsd, 64); err == nil {
		m.PriceUsd = &v
	}
	if p.Liquidity != nil {
		m.LiquidityUsd = p.Liquidity.Usd
	}
	if p.Volume != nil {
		m.Vol24 = p.Volume.H24
	}
	if p.PriceChange != nil {
		m.Ch24 = p.PriceChange.H24
		m.Ch5m = p.PriceChange.M5
	}

	switch {
	case p.URL != "":
		url := p.URL
		m.PairURL = &url
	case p.PairAddress != "":
		url := fmt.Sprintf("https://dexscreener.com/%s/%s", p.ChainID, p.PairAddress)
		m.PairURL = &url
	}
	if p.DexID != "" {
		dex := p.DexID
		m.DexID = &dex
	}
	return m
}
