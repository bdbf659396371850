// Package model defines data structures used throughout the application.
package model

import (
	"strconv"
)

// Item is one inventory record.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// NumericID returns the id parsed as a base-10 integer, or 0 when the id
// is not a number.
func (i Item) NumericID() int {
	n, err := strconv.Atoi(i.ID)
	if err != nil {
		return 0
	}
	return n
}

// FormatID renders an id counter value the way ids are stored.
func FormatID(n int) string {
	return strconv.Itoa(n)
}

// CloneItems returns a copy of items that shares no backing array with it.
// A nil or empty input yields a non-nil empty slice so that it serializes
// as [] rather than null.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Snapshot is the full collection at one point in time. Revision grows by
// one with every mutation so that consumers can discard stale snapshots.
type Snapshot struct {
	Revision uint64
	Items    []Item
}
