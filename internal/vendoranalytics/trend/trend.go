// Package trend turns monthly spend points into per-vendor series with a
// growth rate and summary.
package trend

import (
	"cmp"
	"slices"

	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/scoring"
)

// growthWindow is the number of months in each side of the growth
// comparison.
const growthWindow = 3

// RankBySpend orders vendors by total spend descending, ties by vendor id
// ascending, and keeps the first n. The input slice is not modified.
func RankBySpend(vendors []domain.VendorSpend, n int) []domain.VendorSpend {
	ranked := slices.Clone(vendors)
	slices.SortStableFunc(ranked, func(a, b domain.VendorSpend) int {
		if c := cmp.Compare(b.TotalSpend, a.TotalSpend); c != 0 {
			return c
		}
		return cmp.Compare(a.VendorID, b.VendorID)
	})
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// GroupByVendor buckets points per vendor id, each bucket in ascending month
// order.
func GroupByVendor(points []domain.TrendPoint) map[int64][]domain.TrendPoint {
	grouped := make(map[int64][]domain.TrendPoint)
	for _, p := range points {
		grouped[p.VendorID] = append(grouped[p.VendorID], p)
	}
	for id := range grouped {
		slices.SortStableFunc(grouped[id], func(a, b domain.TrendPoint) int {
			return cmp.Compare(a.Month, b.Month)
		})
	}
	return grouped
}

// GrowthRate compares the mean spend of the last three months with the
// three months before them, as a percentage rounded to two decimals. With
// fewer than four points the earlier side is empty and growth is 0.
func GrowthRate(points []domain.TrendPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	split := max(len(points)-growthWindow, 0)
	recent := points[split:]
	previous := points[max(split-growthWindow, 0):split]

	recentAvg := meanSpend(recent)
	previousAvg := recentAvg
	if len(previous) > 0 {
		previousAvg = meanSpend(previous)
	}
	if previousAvg <= 0 {
		return 0
	}
	return scoring.Round2((recentAvg - previousAvg) / previousAvg * 100)
}

// Summarize totals a vendor's series. points must be one vendor's
// month-ordered series.
func Summarize(points []domain.TrendPoint) domain.TrendSummary {
	var (
		total    float64
		invoices int64
	)
	for _, p := range points {
		total += p.MonthlySpend
		invoices += p.InvoiceCount
	}

	summary := domain.TrendSummary{
		TotalSpend:    scoring.Round2(total),
		GrowthRate:    GrowthRate(points),
		ActiveMonths:  len(points),
		TotalInvoices: invoices,
	}
	if len(points) > 0 {
		summary.AvgMonthlySpend = scoring.Round2(total / float64(len(points)))
	}
	return summary
}

// Build assembles one VendorTrend per ranked vendor, in ranking order.
// Points of vendors outside the ranking are ignored.
func Build(ranked []domain.VendorSpend, points []domain.TrendPoint) []domain.VendorTrend {
	grouped := GroupByVendor(points)
	out := make([]domain.VendorTrend, 0, len(ranked))
	for _, v := range ranked {
		series := grouped[v.VendorID]
		trends := make([]domain.MonthlyTrend, 0, len(series))
		for _, p := range series {
			trends = append(trends, domain.MonthlyTrend{
				Month:           p.Month,
				InvoiceCount:    p.InvoiceCount,
				MonthlySpend:    p.MonthlySpend,
				AvgInvoiceValue: p.AvgInvoiceValue,
			})
		}
		out = append(out, domain.VendorTrend{
			VendorID:   v.VendorID,
			VendorName: v.VendorName,
			Trends:     trends,
			Summary:    Summarize(series),
		})
	}
	return out
}

func meanSpend(points []domain.TrendPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.MonthlySpend
	}
	return sum / float64(len(points))
}
