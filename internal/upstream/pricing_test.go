package upstream

import (
	"math"
	"testing"

	"osrs-vault-api/internal/model"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestSelectPrice(t *testing.T) {
	tests := []struct {
		name  string
		quote model.PriceQuote
		want  int64
	}{
		{"both averages", model.PriceQuote{AvgLow: f(100), AvgHigh: f(200), Low: f(1), High: f(2)}, 150},
		{"only avg high", model.PriceQuote{AvgHigh: f(201)}, 201},
		{"only avg low", model.PriceQuote{AvgLow: f(77.4)}, 77},
		{"instant mid", model.PriceQuote{Low: f(10), High: f(20)}, 15},
		{"half rounds up", model.PriceQuote{Low: f(10), High: f(11)}, 11},
		{"zero average is missing", model.PriceQuote{AvgLow: f(0), AvgHigh: f(50), Low: f(1), High: f(3)}, 50},
		{"single instant is not enough", model.PriceQuote{Low: f(10)}, 0},
		{"nothing", model.PriceQuote{}, 0},
		{"nan ignored", model.PriceQuote{AvgLow: f(math.NaN()), Low: f(4), High: f(6)}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectPrice(tt.quote))
		})
	}
}
