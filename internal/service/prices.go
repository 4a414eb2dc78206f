package service

import (
	"context"
	"log"
	"time"

	"osrs-vault-api/internal/model"
	"osrs-vault-api/internal/upstream"
)

// PriceSource is the subset of CachedPriceFeed used by PriceService.
type PriceSource interface {
	Quotes(ctx context.Context, ids []int, force bool) (map[int]model.PriceQuote, time.Time, error)
}

// StateReader provides the current vault holdings.
type StateReader interface {
	GetState(ctx context.Context) model.VaultState
}

// PriceService values the current vault holdings at market prices.
type PriceService struct {
	state  StateReader
	prices PriceSource
	now    func() time.Time
}

// NewPriceService creates a new price service.
func NewPriceService(state StateReader, prices PriceSource) *PriceService {
	return &PriceService{state: state, prices: prices, now: time.Now}
}

// Report builds the valuation. It never fails: when prices cannot be
// obtained every row is zero.
func (s *PriceService) Report(ctx context.Context, force bool) *model.PriceReport {
	report := &model.PriceReport{
		GeneratedAt: s.now().UTC(),
		Source:      upstream.PriceSourceName,
		Items:       make([]model.PriceRow, 0, len(model.TrackedItems)),
	}

	quotes, _, err := s.prices.Quotes(ctx, model.TrackedItemIDs(), force)
	if err != nil {
		log.Printf("[PriceService] Prices unavailable, returning zero rows: %v", err)
		for _, item := range model.TrackedItems {
			report.Items = append(report.Items, model.PriceRow{ID: item.ID, Name: item.Name})
		}
		return report
	}

	holdings := s.state.GetState(ctx).Items
	for _, item := range model.TrackedItems {
		q := quotes[item.ID]
		qty := holdings.Get(item.Key)
		price := upstream.SelectPrice(q)
		row := model.PriceRow{
			ID:         item.ID,
			Name:       item.Name,
			Qty:        qty,
			PriceGp:    price,
			PriceLow:   q.Low,
			PriceHigh:  q.High,
			AvgLow:     q.AvgLow,
			AvgHigh:    q.AvgHigh,
			SubtotalGp: qty * price,
		}
		report.Items = append(report.Items, row)
		report.TotalGp += row.SubtotalGp
	}
	return report
}
