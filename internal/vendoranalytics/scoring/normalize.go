// Package scoring turns vendor aggregates into bounded 0-100 scores. Every
// function is pure: equal inputs always produce equal scores.
package scoring

import "math"

const (
	// VolumeReferenceInvoices is the invoice count that earns a full
	// volume score.
	VolumeReferenceInvoices = 50
	// ExposureReferenceAmount is the spend that earns a full exposure risk.
	ExposureReferenceAmount = 1_000_000

	neutralReliability   = 50
	standardPaymentTerms = 30
)

// Normalize maps raw onto 0-100 relative to scale. Non-positive scales and
// values that are not finite score 0.
func Normalize(raw, scale float64) float64 {
	if scale <= 0 || !finite(raw) || !finite(scale) {
		return 0
	}
	ratio := raw / scale * 100
	if !finite(ratio) {
		return 0
	}
	return clamp(ratio, 0, 100)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return math.Round(v*100) / 100
}

func roundInt(v float64) int {
	if !finite(v) {
		return 0
	}
	return int(math.Round(v))
}

// rate returns part/total as a percentage, or 0 for an empty total.
func rate(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
