package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dexServer(t *testing.T, status int, body string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/latest/dex/tokens/MINT123", r.URL.Path)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDexScreenerNotConfigured(t *testing.T) {
	for _, token := range []string{"", "  ", placeholderToken} {
		srv, calls := dexServer(t, http.StatusOK, `{}`)
		client := NewDexScreenerClient(DexScreenerConfig{BaseURL: srv.URL, Token: token, Timeout: time.Second})

		result := client.FetchMarketMetrics(context.Background())
		assert.False(t, result.Configured)
		assert.Nil(t, result.Metrics)
		assert.NoError(t, result.Err)
		assert.Zero(t, *calls)
	}
}

func TestDexScreenerSelectsDeepestPair(t *testing.T) {
	body := `{"pairs":[
		{"chainId":"solana","dexId":"orca","pairAddress":"A","priceUsd":"0.1","liquidity":{"usd":500}},
		{"chainId":"solana","dexId":"raydium","pairAddress":"B","priceUsd":"0.2","liquidity":{"usd":1500},"fdv":9000,"volume":{"h24":42},"priceChange":{"h24":-3.5,"m5":0.2}},
		{"chainId":"solana","dexId":"meteora","pairAddress":"C","priceUsd":"0.3","liquidity":{"usd":1500}},
		{"chainId":"ethereum","dexId":"uniswap","pairAddress":"D","priceUsd":"9","liquidity":{"usd":99999}}
	]}`
	srv, _ := dexServer(t, http.StatusOK, body)
	client := NewDexScreenerClient(DexScreenerConfig{BaseURL: srv.URL, Token: "MINT123", Timeout: time.Second})

	result := client.FetchMarketMetrics(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.Configured)
	require.NotNil(t, result.Metrics)

	m := result.Metrics
	require.NotNil(t, m.PriceUsd)
	assert.Equal(t, 0.2, *m.PriceUsd)
	assert.Equal(t, 1500.0, *m.LiquidityUsd)
	assert.Equal(t, 9000.0, *m.FdvUsd)
	assert.Equal(t, 9000.0, *m.McapUsd, "market cap falls back to fdv")
	assert.Equal(t, 42.0, *m.Vol24)
	assert.Equal(t, -3.5, *m.Ch24)
	assert.Equal(t, 0.2, *m.Ch5m)
	assert.Equal(t, "raydium", *m.DexID)
	assert.Equal(t, "https://dexscreener.com/solana/B", *m.PairURL)
}

func TestDexScreenerNoMatchingPair(t *testing.T) {
	srv, _ := dexServer(t, http.StatusOK, `{"pairs":[{"chainId":"base","liquidity":{"usd":10}}]}`)
	client := NewDexScreenerClient(DexScreenerConfig{BaseURL: srv.URL, Token: "MINT123", Timeout: time.Second})

	result := client.FetchMarketMetrics(context.Background())
	assert.True(t, result.Configured)
	assert.Nil(t, result.Metrics)
	assert.NoError(t, result.Err)
}

func TestDexScreenerUpstreamError(t *testing.T) {
	srv, _ := dexServer(t, http.StatusBadGateway, `oops`)
	client := NewDexScreenerClient(DexScreenerConfig{BaseURL: srv.URL, Token: "MINT123", Timeout: time.Second})

	result := client.FetchMarketMetrics(context.Background())
	assert.True(t, result.Configured)
	assert.ErrorIs(t, result.Err, ErrUpstreamUnavailable)
}

func TestSelectBestPairMissingLiquidity(t *testing.T) {
	pairs := []DexPair{
		{ChainID: "solana", PairAddress: "first"},
		{ChainID: "solana", PairAddress: "second"},
	}
	best := SelectBestPair(pairs, "solana")
	require.NotNil(t, best)
	assert.Equal(t, "first", best.PairAddress)

	assert.Nil(t, SelectBestPair(nil, "solana"))
}

func TestDexScreenerEscapesTokenAndSendsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/a%2Fb%20c%3Fx", r.URL.EscapedPath())
		assert.Equal(t, "/latest/dex/tokens/a/b c?x", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "vault-bot/2.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"pairs":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewDexScreenerClient(DexScreenerConfig{
		BaseURL:   srv.URL,
		Token:     "a/b c?x",
		UserAgent: "vault-bot/2.0",
		Timeout:   time.Second,
	})

	result := client.FetchMarketMetrics(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.Configured)
	assert.Nil(t, result.Metrics)
}
