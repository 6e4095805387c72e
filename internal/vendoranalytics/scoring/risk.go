package scoring

import (
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
)

const (
	exposureWeight    = 0.30
	variabilityWeight = 0.20
	timelinessWeight  = 0.25
	paymentWeight     = 0.25

	highRiskAbove   = 70
	mediumRiskAbove = 40
)

// ScoreRisk combines exposure, spend volatility, late deliveries and overdue
// payments into one weighted risk score. The overall score is computed from
// the unrounded sub-risks; the reported sub-risks are rounded.
func ScoreRisk(agg domain.RiskAggregate) domain.RiskAssessment {
	lateRate := rate(agg.LateInvoices, agg.TotalInvoices)
	overdueRate := rate(agg.OverduePayments, agg.TotalInvoices)

	exposure := Normalize(agg.TotalExposure, ExposureReferenceAmount)
	variability := 0.0
	if agg.AvgInvoiceValue > 0 && finite(agg.InvoiceVariability) {
		variability = clamp(agg.InvoiceVariability/agg.AvgInvoiceValue*100, 0, 100)
	}
	timeliness := clamp(lateRate*2, 0, 100)
	payment := clamp(overdueRate*3, 0, 100)

	overall := roundInt(exposure*exposureWeight +
		variability*variabilityWeight +
		timeliness*timelinessWeight +
		payment*paymentWeight)

	return domain.RiskAssessment{
		Scores: domain.RiskScores{
			Overall:     overall,
			Exposure:    roundInt(exposure),
			Variability: roundInt(variability),
			Timeliness:  roundInt(timeliness),
			Payment:     roundInt(payment),
		},
		Category:        RiskCategoryFor(overall),
		LateInvoiceRate: Round2(lateRate),
		OverdueRate:     Round2(overdueRate),
	}
}

// RiskCategoryFor buckets an overall risk score. Both thresholds are
// exclusive: 70 is Medium and 40 is Low.
func RiskCategoryFor(overall int) domain.RiskCategory {
	switch {
	case overall > highRiskAbove:
		return domain.RiskHigh
	case overall > mediumRiskAbove:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
