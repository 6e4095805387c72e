package scoring

import (
	"math"

	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
)

// ScorePerformance rates a vendor on how steadily, how much and on what
// payment terms it invoiced during a window of windowMonths months.
//
// Sub-scores are rounded before they are averaged. The reliability
// sub-score has no upper bound: terms shorter than 30 days score above 100.
func ScorePerformance(agg domain.VendorAggregate, windowMonths int) domain.PerformanceScore {
	consistency := roundInt(Normalize(float64(agg.ActiveMonths), float64(windowMonths)))
	volume := roundInt(Normalize(float64(agg.InvoiceCount), VolumeReferenceInvoices))
	reliability := termsReliability(agg.AvgPaymentTerms)

	return domain.PerformanceScore{
		Overall:     roundInt(float64(consistency+volume+reliability) / 3),
		Consistency: consistency,
		Volume:      volume,
		Reliability: reliability,
	}
}

func termsReliability(avgTerms float64) int {
	if !finite(avgTerms) || avgTerms <= 0 {
		return neutralReliability
	}
	return roundInt(math.Max(0, 100-(avgTerms-standardPaymentTerms)))
}
