package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"time"
)

// Item describes one tracked in-game item.
type Item struct {
	Key  string // key used in the vault payload
	ID   int    // item id on the price feed
	Name string
}

// TrackedItems is the closed set of items held by the vault, in display order.
var TrackedItems = []Item{
	{Key: "tbow", ID: 20997, Name: "Twisted bow"},
	{Key: "scythe", ID: 22486, Name: "Scythe of Vitur (uncharged)"},
	{Key: "staff", ID: 27277, Name: "Tumeken's Shadow (uncharged)"},
}

// TrackedItemIDs returns the price feed ids of all tracked items.
func TrackedItemIDs() []int {
	ids := make([]int, len(TrackedItems))
	for i, item := range TrackedItems {
		ids[i] = item.ID
	}
	return ids
}

// InventoryCounts holds the quantity of each tracked item.
type InventoryCounts struct {
	Tbow   int64 `json:"tbow"`
	Scythe int64 `json:"scythe"`
	Staff  int64 `json:"staff"`
}

// Get returns the count stored under an item key, 0 for unknown keys.
func (c InventoryCounts) Get(key string) int64 {
	switch key {
	case "tbow":
		return c.Tbow
	case "scythe":
		return c.Scythe
	case "staff":
		return c.Staff
	}
	return 0
}

// Set stores a count under an item key. Unknown keys are ignored.
func (c *InventoryCounts) Set(key string, v int64) {
	switch key {
	case "tbow":
		c.Tbow = v
	case "scythe":
		c.Scythe = v
	case "staff":
		c.Staff = v
	}
}

// Normalized clamps every count to be non-negative.
func (c InventoryCounts) Normalized() InventoryCounts {
	var out InventoryCounts
	for _, item := range TrackedItems {
		if v := c.Get(item.Key); v > 0 {
			out.Set(item.Key, v)
		}
	}
	return out
}

// IncreaseOver sums max(0, c_i - prev_i) over all tracked items.
func (c InventoryCounts) IncreaseOver(prev InventoryCounts) int64 {
	var total int64
	for _, item := range TrackedItems {
		if d := c.Get(item.Key) - prev.Get(item.Key); d > 0 {
			total += d
		}
	}
	return total
}

// ErrMalformedCounts is returned when a request body is not a JSON object of counts.
var ErrMalformedCounts = errors.New("malformed inventory payload")

// ParseCounts decodes an inventory submission. The counts may be nested under
// "items" or be the top-level object itself. Individual fields that are not
// usable numbers become 0; only a body that is not an object is rejected.
func ParseCounts(body []byte) (InventoryCounts, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return InventoryCounts{}, ErrMalformedCounts
	}

	fields := top
	if nested, ok := top["items"]; ok && !isNull(nested) {
		fields = nil
		if err := json.Unmarshal(nested, &fields); err != nil || fields == nil {
			return InventoryCounts{}, ErrMalformedCounts
		}
	}

	var counts InventoryCounts
	for _, item := range TrackedItems {
		counts.Set(item.Key, coerceCount(fields[item.Key]))
	}
	return counts, nil
}

// coerceCount turns a raw JSON value into a non-negative integer. Anything
// other than a finite, non-negative, int64-representable number yields 0.
func coerceCount(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(math.Floor(f))
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// VaultState is the read model returned to the UI.
type VaultState struct {
	Items     InventoryCounts `json:"items"`
	UpdatedAt *time.Time      `json:"updatedAt"`
}

// DefaultVaultState is the all-zero state used when nothing has been recorded.
func DefaultVaultState() VaultState {
	return VaultState{}
}
