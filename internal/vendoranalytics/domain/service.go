package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	GetPerformanceScorecard(ctx context.Context, req PerformanceRequest) (PerformanceScorecardResponse, error)
	GetPaymentReliability(ctx context.Context, req PaymentReliabilityRequest) (PaymentReliabilityResponse, error)
	GetSpendingTrends(ctx context.Context, req SpendingTrendsRequest) (SpendingTrendsResponse, error)
	GetRiskAssessment(ctx context.Context, req RiskAssessmentRequest) (RiskAssessmentResponse, error)
}

// Request values of zero take the configured defaults.
type PerformanceRequest struct {
	Limit     int
	Timeframe int
}

type PaymentReliabilityRequest struct {
	Limit int
}

type SpendingTrendsRequest struct {
	Months     int
	TopVendors int
}

type RiskAssessmentRequest struct {
	Limit int
}

type VendorPerformance struct {
	VendorID         int64            `json:"vendorId"`
	VendorName       string           `json:"vendorName"`
	VendorTaxID      string           `json:"vendorTaxId"`
	TotalSpend       float64          `json:"totalSpend"`
	InvoiceCount     int64            `json:"invoiceCount"`
	AvgInvoiceValue  float64          `json:"avgInvoiceValue"`
	FirstInvoice     *time.Time       `json:"firstInvoice"`
	LastInvoice      *time.Time       `json:"lastInvoice"`
	ActiveMonths     int64            `json:"activeMonths"`
	AvgPaymentTerms  float64          `json:"avgPaymentTerms"`
	PerformanceScore PerformanceScore `json:"performanceScore"`
}

type PerformanceMetadata struct {
	Timeframe    int    `json:"timeframe"`
	TotalVendors int    `json:"totalVendors"`
	Timestamp    string `json:"timestamp"`
}

type PerformanceScorecardResponse struct {
	Data     []VendorPerformance `json:"data"`
	Metadata PerformanceMetadata `json:"metadata"`
}

type PaymentWindow struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

type VendorPaymentReliability struct {
	VendorID            int64         `json:"vendorId"`
	VendorName          string        `json:"vendorName"`
	PaymentRecords      int64         `json:"paymentRecords"`
	AvgPaymentTerms     float64       `json:"avgPaymentTerms"`
	AvgDiscountRate     float64       `json:"avgDiscountRate"`
	OverdueCount        int64         `json:"overdueCount"`
	OverdueRate         float64       `json:"overdueRate"`
	DiscountEligible    int64         `json:"discountEligible"`
	DiscountUtilization float64       `json:"discountUtilization"`
	PotentialSavings    float64       `json:"potentialSavings"`
	ReliabilityScore    int           `json:"reliabilityScore"`
	PaymentWindow       PaymentWindow `json:"paymentWindow"`
}

type PaymentReliabilityMetadata struct {
	WindowMonths int    `json:"windowMonths"`
	TotalVendors int    `json:"totalVendors"`
	Timestamp    string `json:"timestamp"`
}

type PaymentReliabilityResponse struct {
	Data     []VendorPaymentReliability `json:"data"`
	Metadata PaymentReliabilityMetadata `json:"metadata"`
}

type MonthlyTrend struct {
	Month           string  `json:"month"`
	InvoiceCount    int64   `json:"invoiceCount"`
	MonthlySpend    float64 `json:"monthlySpend"`
	AvgInvoiceValue float64 `json:"avgInvoiceValue"`
}

type TrendSummary struct {
	TotalSpend      float64 `json:"totalSpend"`
	AvgMonthlySpend float64 `json:"avgMonthlySpend"`
	GrowthRate      float64 `json:"growthRate"`
	ActiveMonths    int     `json:"activeMonths"`
	TotalInvoices   int64   `json:"totalInvoices"`
}

type VendorTrend struct {
	VendorID   int64          `json:"vendorId"`
	VendorName string         `json:"vendorName"`
	Trends     []MonthlyTrend `json:"trends"`
	Summary    TrendSummary   `json:"summary"`
}

type SpendingTrendsMetadata struct {
	Months       int    `json:"months"`
	TopVendors   int    `json:"topVendors"`
	TotalVendors int    `json:"totalVendors"`
	Timestamp    string `json:"timestamp"`
}

type SpendingTrendsResponse struct {
	Data     []VendorTrend          `json:"data"`
	Metadata SpendingTrendsMetadata `json:"metadata"`
}

type VendorRisk struct {
	VendorID           int64        `json:"vendorId"`
	VendorName         string       `json:"vendorName"`
	VendorTaxID        string       `json:"vendorTaxId"`
	TotalInvoices      int64        `json:"totalInvoices"`
	TotalExposure      float64      `json:"totalExposure"`
	AvgInvoiceValue    float64      `json:"avgInvoiceValue"`
	InvoiceVariability float64      `json:"invoiceVariability"`
	LateInvoices       int64        `json:"lateInvoices"`
	LateInvoiceRate    float64      `json:"lateInvoiceRate"`
	OverduePayments    int64        `json:"overduePayments"`
	OverdueRate        float64      `json:"overdueRate"`
	AvgPaymentWindow   float64      `json:"avgPaymentWindow"`
	RelationshipStart  *time.Time   `json:"relationshipStart"`
	LastActivity       *time.Time   `json:"lastActivity"`
	ActiveMonths       int64        `json:"activeMonths"`
	RiskScores         RiskScores   `json:"riskScores"`
	RiskCategory       RiskCategory `json:"riskCategory"`
}

type RiskDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type RiskAssessmentMetadata struct {
	WindowMonths     int              `json:"windowMonths"`
	TotalVendors     int              `json:"totalVendors"`
	RiskDistribution RiskDistribution `json:"riskDistribution"`
	Timestamp        string           `json:"timestamp"`
}

type RiskAssessmentResponse struct {
	Data     []VendorRisk           `json:"data"`
	Metadata RiskAssessmentMetadata `json:"metadata"`
}

var (
	ErrInvalidLimit      = errors.New("invalid_limit")
	ErrInvalidTimeframe  = errors.New("invalid_timeframe")
	ErrInvalidMonths     = errors.New("invalid_months")
	ErrInvalidTopVendors = errors.New("invalid_top_vendors")

	// ErrDataSourceUnavailable matches every failed aggregate fetch.
	ErrDataSourceUnavailable = errors.New("data_source_unavailable")
)

// DataSourceError wraps a failed fetch. Its message is the underlying
// error so callers can surface it unchanged.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	if e.Err == nil {
		return ErrDataSourceUnavailable.Error()
	}
	return e.Err.Error()
}

func (e *DataSourceError) Unwrap() error { return e.Err }

func (e *DataSourceError) Is(target error) bool {
	return target == ErrDataSourceUnavailable
}

const (
	MaxLimit      = 100
	MaxWindow     = 60
	MaxTopVendors = 50
)

func (r PerformanceRequest) Validate() error {
	if r.Limit < 0 || r.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	if r.Timeframe < 0 || r.Timeframe > MaxWindow {
		return ErrInvalidTimeframe
	}
	return nil
}

func (r PaymentReliabilityRequest) Validate() error {
	if r.Limit < 0 || r.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	return nil
}

func (r SpendingTrendsRequest) Validate() error {
	if r.Months < 0 || r.Months > MaxWindow {
		return ErrInvalidMonths
	}
	if r.TopVendors < 0 || r.TopVendors > MaxTopVendors {
		return ErrInvalidTopVendors
	}
	return nil
}

func (r RiskAssessmentRequest) Validate() error {
	if r.Limit < 0 || r.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	return nil
}
