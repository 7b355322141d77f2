// Package stock holds the pure stock-level and expiry rules shared by the
// inventory and billing services. Everything here is side-effect free so the
// same rules apply whether they run in an HTTP handler, the alert sweep, or
// a report.
package stock

import (
	"sort"
	"time"
)

// Status describes how a batch's quantity compares to its reorder level.
type Status string

const (
	StatusLow    Status = "low"
	StatusMedium Status = "medium"
	StatusHigh   Status = "high"
)

// DefaultNearExpiryDays is the window used when no threshold is configured.
const DefaultNearExpiryDays = 7

// Classify returns the stock status for a quantity against a reorder level.
// A batch is low at or below half the reorder level, medium at or below the
// reorder level, and high above it. The half-level comparison stays in
// integers so a reorder level of 5 puts quantities 1 and 2 in low, 3 in
// medium.
func Classify(quantity, reorderLevel int) Status {
	switch {
	case 2*quantity <= reorderLevel:
		return StatusLow
	case quantity <= reorderLevel:
		return StatusMedium
	default:
		return StatusHigh
	}
}

// DaysUntilExpiry returns the number of days until the expiry instant,
// rounded up so a batch expiring later today still counts as 1 day left.
// Expired batches return zero or negative values.
func DaysUntilExpiry(expiry, now time.Time) int {
	diff := expiry.Sub(now)
	days := int(diff / (24 * time.Hour))
	if diff > 0 && diff%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// IsExpired reports whether the batch's expiry instant has passed.
func IsExpired(expiry, now time.Time) bool {
	return DaysUntilExpiry(expiry, now) <= 0
}

// IsNearExpiry reports whether the batch expires within thresholdDays from
// now. Expired batches are not near-expiry; they are expired.
func IsNearExpiry(expiry, now time.Time, thresholdDays int) bool {
	if thresholdDays <= 0 {
		thresholdDays = DefaultNearExpiryDays
	}
	days := DaysUntilExpiry(expiry, now)
	return days > 0 && days <= thresholdDays
}

// IsOverstocked reports whether quantity exceeds three times the reorder level.
func IsOverstocked(quantity, reorderLevel int) bool {
	return quantity > reorderLevel*3
}

// Batch is anything with an expiry instant, enough for dispensing order.
type Batch interface {
	ExpiresAt() time.Time
}

// SortFEFO returns a new slice ordered first-expiry-first-out. Ties keep
// their input order, so callers can pre-sort by a secondary key.
func SortFEFO[B Batch](batches []B) []B {
	sorted := make([]B, len(batches))
	copy(sorted, batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExpiresAt().Before(sorted[j].ExpiresAt())
	})
	return sorted
}
