package upstream

import (
	"math"

	"osrs-vault-api/internal/model"
)

// SelectPrice picks the display price for an item, in order of preference:
// mid of the 5m averages, whichever single average exists, mid of the
// instant low/high, otherwise 0. Zero values count as missing.
func SelectPrice(q model.PriceQuote) int64 {
	avgLow, hasAvgLow := present(q.AvgLow)
	avgHigh, hasAvgHigh := present(q.AvgHigh)
	low, hasLow := present(q.Low)
	high, hasHigh := present(q.High)

	switch {
	case hasAvgLow && hasAvgHigh:
		return round((avgLow + avgHigh) / 2)
	case hasAvgLow:
		return round(avgLow)
	case hasAvgHigh:
		return round(avgHigh)
	case hasLow && hasHigh:
		return round((low + high) / 2)
	default:
		return 0
	}
}

func present(v *float64) (float64, bool) {
	if v == nil || *v == 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// round rounds half up.
func round(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
