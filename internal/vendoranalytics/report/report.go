// Package report holds the helpers that shape scored vendors into a
// response: truncation, tallies and the metadata timestamp.
package report

import (
	"time"

	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
)

// TimestampLayout renders UTC instants with millisecond precision, for
// example 2024-05-01T10:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Limit returns at most n leading items, preserving order. The result is
// never nil so it encodes as an empty JSON array.
func Limit[T any](items []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n > len(items) {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[:n])
	return out
}

// CountBy tallies items by the key function.
func CountBy[T any, K comparable](items []T, key func(T) K) map[K]int {
	counts := make(map[K]int)
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}

func Timestamp(now time.Time) string {
	return now.UTC().Format(TimestampLayout)
}

// Distribution counts vendors per risk category. Categories with no vendors
// report 0.
func Distribution(vendors []domain.VendorRisk) domain.RiskDistribution {
	counts := CountBy(vendors, func(v domain.VendorRisk) domain.RiskCategory { return v.RiskCategory })
	return domain.RiskDistribution{
		High:   counts[domain.RiskHigh],
		Medium: counts[domain.RiskMedium],
		Low:    counts[domain.RiskLow],
	}
}
