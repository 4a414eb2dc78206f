package model

import "time"

// PriceQuote is the raw price data for one item. Nil fields were not reported.
type PriceQuote struct {
	Low     *float64 `json:"low"`
	High    *float64 `json:"high"`
	AvgLow  *float64 `json:"avgLow"`
	AvgHigh *float64 `json:"avgHigh"`
}

// PriceRow is one line of the vault valuation.
type PriceRow struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Qty        int64    `json:"qty"`
	PriceGp    int64    `json:"priceGp"`
	PriceLow   *float64 `json:"priceLow"`
	PriceHigh  *float64 `json:"priceHigh"`
	AvgLow     *float64 `json:"avgLow"`
	AvgHigh    *float64 `json:"avgHigh"`
	SubtotalGp int64    `json:"subtotalGp"`
}

// PriceReport is the full valuation returned by the prices endpoint.
type PriceReport struct {
	GeneratedAt time.Time  `json:"generatedAt"`
	Source      string     `json:"source"`
	Items       []PriceRow `json:"items"`
	TotalGp     int64      `json:"totalGp"`
}
