package model

import "time"

// ItemsAcquiredKey is the counter advanced by positive inventory deltas.
const ItemsAcquiredKey = "items_acquired"

// Counter is a cumulative named count.
type Counter struct {
	Key       string    `json:"key"`
	Count     int64     `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
