package scoring

import (
	"math"

	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
)

// ScorePaymentReliability derives overdue and discount rates from a
// vendor's payment records. Every overdue percentage point costs two
// points of reliability.
func ScorePaymentReliability(agg domain.PaymentAggregate) domain.PaymentReliabilityScore {
	overdueRate := rate(agg.OverdueCount, agg.PaymentRecords)
	discountUtilization := rate(agg.DiscountEligible, agg.PaymentRecords)

	return domain.PaymentReliabilityScore{
		OverdueRate:         Round2(overdueRate),
		DiscountUtilization: Round2(discountUtilization),
		ReliabilityScore:    roundInt(math.Max(0, 100-overdueRate*2)),
	}
}
