package domain

import "time"

// VendorAggregate is one vendor's invoice activity inside the performance
// window. Nullable columns are already coalesced to zero.
type VendorAggregate struct {
	VendorID        int64
	VendorName      string
	VendorTaxID     string
	InvoiceCount    int64
	TotalSpend      float64
	AvgInvoiceValue float64
	FirstInvoice    *time.Time
	LastInvoice     *time.Time
	ActiveMonths    int64
	// AvgPaymentTerms is the mean number of days between invoice date and
	// the linked payment due date. Zero when no invoice has a payment.
	AvgPaymentTerms float64
}

// PaymentAggregate summarizes the payment records of one vendor.
type PaymentAggregate struct {
	VendorID         int64
	VendorName       string
	PaymentRecords   int64
	AvgPaymentTerms  float64
	AvgDiscountRate  float64
	OverdueCount     int64
	DiscountEligible int64
	PotentialSavings float64
	EarliestDueDate  *time.Time
	LatestDueDate    *time.Time
}

// RiskAggregate carries the exposure and timeliness signals of one vendor.
type RiskAggregate struct {
	VendorID           int64
	VendorName         string
	VendorTaxID        string
	TotalInvoices      int64
	TotalExposure      float64
	AvgInvoiceValue    float64
	InvoiceVariability float64
	LateInvoices       int64
	OverduePayments    int64
	AvgPaymentWindow   float64
	RelationshipStart  *time.Time
	LastActivity       *time.Time
	ActiveMonths       int64
}

// TrendPoint is one vendor-month of spend.
type TrendPoint struct {
	VendorID        int64
	VendorName      string
	Month           string // YYYY-MM
	InvoiceCount    int64
	MonthlySpend    float64
	AvgInvoiceValue float64
}

// VendorSpend ranks vendors for the trend report.
type VendorSpend struct {
	VendorID   int64
	VendorName string
	TotalSpend float64
}

// AggregateQuery bounds an aggregate fetch. Since is inclusive. AsOf is the
// reference instant for overdue and discount checks. Limit <= 0 fetches
// every matching vendor.
type AggregateQuery struct {
	Since time.Time
	AsOf  time.Time
	Limit int
}

type PerformanceScore struct {
	Overall     int `json:"overall"`
	Consistency int `json:"consistency"`
	Volume      int `json:"volume"`
	Reliability int `json:"reliability"`
}

type PaymentReliabilityScore struct {
	OverdueRate         float64
	DiscountUtilization float64
	ReliabilityScore    int
}

type RiskCategory string

const (
	RiskHigh   RiskCategory = "High"
	RiskMedium RiskCategory = "Medium"
	RiskLow    RiskCategory = "Low"
)

type RiskScores struct {
	Overall     int `json:"overall"`
	Exposure    int `json:"exposure"`
	Variability int `json:"variability"`
	Timeliness  int `json:"timeliness"`
	Payment     int `json:"payment"`
}

type RiskAssessment struct {
	Scores          RiskScores
	Category        RiskCategory
	LateInvoiceRate float64
	OverdueRate     float64
}
