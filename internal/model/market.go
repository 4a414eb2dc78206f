package model

// MarketMetrics are taken from the single best trading pair of the token.
type MarketMetrics struct {
	PriceUsd     *float64 `json:"priceUsd"`
	LiquidityUsd *float64 `json:"liquidityUsd"`
	FdvUsd       *float64 `json:"fdvUsd"`
	McapUsd      *float64 `json:"mcapUsd"`
	Vol24        *float64 `json:"vol24"`
	Ch24         *float64 `json:"ch24"`
	Ch5m         *float64 `json:"ch5m"`
	PairURL      *string  `json:"pairUrl"`
	DexID        *string  `json:"dexId"`
}

// MarketResult is the outcome of a market metrics lookup. Err is set when the
// token is configured but the upstream could not be read.
type MarketResult struct {
	Configured bool
	Metrics    *MarketMetrics
	Err        error
}
