// Package models defines data structures shared by the price sync run.
package models

import (
	"strconv"
	"time"
)

// ErrorMarker is written to the price column when a product could not be
// resolved within its attempt budget.
const ErrorMarker = "ERROR"

// TimestampLayout is the sheet-facing format for the last-update column.
const TimestampLayout = "2006-01-02 15:04:05"

// ProductReference identifies one product row read from the source table.
type ProductReference struct {
	URL string `json:"url"`
	SKU string `json:"sku,omitempty"`
	Row int    `json:"row"` // 1-based sheet row, for logging and screenshot naming
}

// ProductResult is the final outcome for one product in one run. Exactly one
// is produced per reference; Found=false maps to ErrorMarker downstream.
type ProductResult struct {
	Reference ProductReference `json:"reference"`
	Price     int              `json:"price"`
	Found     bool             `json:"found"`
	Error     string           `json:"error,omitempty"` // terminal error label, empty on success
	Attempts  int              `json:"attempts"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// PriceCell renders the value written to the sheet's price column.
func (r ProductResult) PriceCell() string {
	if !r.Found {
		return ErrorMarker
	}
	return strconv.Itoa(r.Price)
}

// UpdatedCell renders the value written to the last-update column.
func (r ProductResult) UpdatedCell() string {
	return r.UpdatedAt.Format(TimestampLayout)
}

// RunResult holds the overall totals of one sync run.
type RunResult struct {
	StartTime     time.Time
	EndTime       time.Time
	TotalCount    int
	SuccessCount  int
	ErrorCount    int
	AttemptCount  int
	RecoveryCount int
	CacheHits     int
	FailedURLs    []string
	ErrorsByType  map[string]int
}
