package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/vendorscope/internal/clock"
	"github.com/smallbiznis/vendorscope/internal/config"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 6, 30, 9, 30, 0, 0, time.UTC)

type fakeRepo struct {
	vendors  []domain.VendorAggregate
	payments []domain.PaymentAggregate
	risks    []domain.RiskAggregate
	spend    []domain.VendorSpend
	points   []domain.TrendPoint
	err      error

	queries     []domain.AggregateQuery
	trendIDs    []int64
	trendQuery  domain.AggregateQuery
	trendCalled bool
}

func (f *fakeRepo) ListVendorAggregates(_ context.Context, _ *gorm.DB, q domain.AggregateQuery) ([]domain.VendorAggregate, error) {
	f.queries = append(f.queries, q)
	return f.vendors, f.err
}

func (f *fakeRepo) ListPaymentAggregates(_ context.Context, _ *gorm.DB, q domain.AggregateQuery) ([]domain.PaymentAggregate, error) {
	f.queries = append(f.queries, q)
	return f.payments, f.err
}

func (f *fakeRepo) ListRiskAggregates(_ context.Context, _ *gorm.DB, q domain.AggregateQuery) ([]domain.RiskAggregate, error) {
	f.queries = append(f.queries, q)
	return f.risks, f.err
}

func (f *fakeRepo) ListTopVendorsBySpend(_ context.Context, _ *gorm.DB, q domain.AggregateQuery) ([]domain.VendorSpend, error) {
	f.queries = append(f.queries, q)
	return f.spend, f.err
}

func (f *fakeRepo) ListTrendPoints(_ context.Context, _ *gorm.DB, ids []int64, q domain.AggregateQuery) ([]domain.TrendPoint, error) {
	f.trendCalled = true
	f.trendIDs = ids
	f.trendQuery = q
	return f.points, nil
}

func newTestService(repo domain.Repository) *Service {
	return NewService(Params{
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(testNow),
		Repo:   repo,
		Config: config.NewStaticAnalyticsConfigHolder(config.DefaultAnalyticsConfig()),
	}).(*Service)
}

func TestGetPerformanceScorecard(t *testing.T) {
	repo := &fakeRepo{vendors: []domain.VendorAggregate{
		{VendorID: 2, VendorName: "Small Co", InvoiceCount: 2, TotalSpend: 300, ActiveMonths: 2},
		{VendorID: 1, VendorName: "Acme", VendorTaxID: "TX-1", InvoiceCount: 45, TotalSpend: 90_000.456, ActiveMonths: 8, AvgPaymentTerms: 30.5},
		{VendorID: 3, VendorName: "Ghost", InvoiceCount: 0},
	}}
	svc := newTestService(repo)

	resp, err := svc.GetPerformanceScorecard(context.Background(), domain.PerformanceRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Data, 2)
	acme := resp.Data[0]
	assert.Equal(t, "Acme", acme.VendorName)
	assert.Equal(t, 90_000.46, acme.TotalSpend)
	assert.Equal(t, domain.PerformanceScore{Overall: 86, Consistency: 67, Volume: 90, Reliability: 100}, acme.PerformanceScore)
	assert.Equal(t, "Small Co", resp.Data[1].VendorName)
	assert.Equal(t, 50, resp.Data[1].PerformanceScore.Reliability)

	assert.Equal(t, 12, resp.Metadata.Timeframe)
	assert.Equal(t, 2, resp.Metadata.TotalVendors)
	assert.Equal(t, "2024-06-30T09:30:00.000Z", resp.Metadata.Timestamp)

	require.Len(t, repo.queries, 1)
	assert.Equal(t, 20, repo.queries[0].Limit)
	assert.Equal(t, testNow, repo.queries[0].AsOf)
	assert.Equal(t, time.Date(2023, 6, 30, 9, 30, 0, 0, time.UTC), repo.queries[0].Since)
}

func TestGetPerformanceScorecardHonorsRequest(t *testing.T) {
	repo := &fakeRepo{vendors: []domain.VendorAggregate{
		{VendorID: 1, InvoiceCount: 1, TotalSpend: 10, ActiveMonths: 3},
		{VendorID: 2, InvoiceCount: 1, TotalSpend: 20, ActiveMonths: 3},
		{VendorID: 3, InvoiceCount: 1, TotalSpend: 30, ActiveMonths: 3},
	}}
	svc := newTestService(repo)

	resp, err := svc.GetPerformanceScorecard(context.Background(), domain.PerformanceRequest{Limit: 2, Timeframe: 3})
	require.NoError(t, err)

	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(3), resp.Data[0].VendorID)
	assert.Equal(t, int64(2), resp.Data[1].VendorID)
	assert.Equal(t, 100, resp.Data[0].PerformanceScore.Consistency)
	assert.Equal(t, 3, resp.Metadata.Timeframe)
	assert.Equal(t, 2, resp.Metadata.TotalVendors)
}

func TestGetPerformanceScorecardEmpty(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	resp, err := svc.GetPerformanceScorecard(context.Background(), domain.PerformanceRequest{})
	require.NoError(t, err)

	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
	assert.Zero(t, resp.Metadata.TotalVendors)
}

func TestGetPerformanceScorecardRejectsInvalidRequest(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	_, err := svc.GetPerformanceScorecard(context.Background(), domain.PerformanceRequest{Limit: 500})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
	_, err = svc.GetPerformanceScorecard(context.Background(), domain.PerformanceRequest{Timeframe: 61})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeframe)
	assert.Empty(t, repo.queries)
}

func TestDataSourceFailureAbortsScorecard(t *testing.T) {
	failure := &domain.DataSourceError{Op: "vendor_aggregates", Err: errors.New("connection refused")}
	svc := newTestService(&fakeRepo{err: failure})

	resp, err := svc.GetPerformanceScorecard(context.Background(), domain.PerformanceRequest{})

	assert.ErrorIs(t, err, domain.ErrDataSourceUnavailable)
	assert.Equal(t, "connection refused", err.Error())
	assert.Nil(t, resp.Data)
}

func TestGetPaymentReliability(t *testing.T) {
	repo := &fakeRepo{payments: []domain.PaymentAggregate{
		{VendorID: 5, VendorName: "Late Ltd", PaymentRecords: 10, OverdueCount: 5, AvgPaymentTerms: 45.556},
		{VendorID: 4, VendorName: "Prompt Inc", PaymentRecords: 10, DiscountEligible: 3, PotentialSavings: 120.005},
		{VendorID: 6, VendorName: "Tiny", PaymentRecords: 1},
	}}
	svc := newTestService(repo)

	resp, err := svc.GetPaymentReliability(context.Background(), domain.PaymentReliabilityRequest{Limit: 2})
	require.NoError(t, err)

	require.Len(t, resp.Data, 2)
	prompt := resp.Data[0]
	assert.Equal(t, "Prompt Inc", prompt.VendorName)
	assert.Equal(t, 100, prompt.ReliabilityScore)
	assert.Equal(t, 30.0, prompt.DiscountUtilization)

	late := resp.Data[1]
	assert.Equal(t, 50.0, late.OverdueRate)
	assert.Equal(t, 0, late.ReliabilityScore)
	assert.Equal(t, 45.56, late.AvgPaymentTerms)

	assert.Equal(t, 2, resp.Metadata.TotalVendors)
	assert.Equal(t, 12, resp.Metadata.WindowMonths)
	assert.Equal(t, 2, repo.queries[0].Limit)
}

func TestGetSpendingTrends(t *testing.T) {
	repo := &fakeRepo{
		spend: []domain.VendorSpend{
			{VendorID: 9, VendorName: "Beta", TotalSpend: 400},
			{VendorID: 2, VendorName: "Alpha", TotalSpend: 700},
			{VendorID: 1, VendorName: "Alpha", TotalSpend: 400},
		},
		points: []domain.TrendPoint{
			{VendorID: 2, Month: "2024-02", InvoiceCount: 1, MonthlySpend: 400},
			{VendorID: 2, Month: "2024-01", InvoiceCount: 2, MonthlySpend: 300},
			{VendorID: 1, Month: "2024-03", InvoiceCount: 1, MonthlySpend: 400},
			{VendorID: 9, Month: "2024-03", InvoiceCount: 4, MonthlySpend: 400},
		},
	}
	svc := newTestService(repo)

	resp, err := svc.GetSpendingTrends(context.Background(), domain.SpendingTrendsRequest{Months: 6, TopVendors: 2})
	require.NoError(t, err)

	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(2), resp.Data[0].VendorID)
	assert.Equal(t, int64(1), resp.Data[1].VendorID, "ties on spend break by vendor id")
	assert.Equal(t, []int64{2, 1}, repo.trendIDs)

	first := resp.Data[0]
	require.Len(t, first.Trends, 2)
	assert.Equal(t, "2024-01", first.Trends[0].Month)
	assert.Equal(t, 700.0, first.Summary.TotalSpend)
	assert.Equal(t, 350.0, first.Summary.AvgMonthlySpend)
	assert.Equal(t, int64(3), first.Summary.TotalInvoices)
	assert.Zero(t, first.Summary.GrowthRate)

	assert.Equal(t, 6, resp.Metadata.Months)
	assert.Equal(t, 2, resp.Metadata.TopVendors)
	assert.Equal(t, 2, resp.Metadata.TotalVendors)
	assert.Equal(t, time.Date(2023, 12, 30, 9, 30, 0, 0, time.UTC), repo.queries[0].Since)

	assert.Equal(t, repo.queries[0].Since, repo.trendQuery.Since)
	assert.Equal(t, testNow, repo.trendQuery.AsOf, "trend points stop at the same as-of date as the ranking")
	assert.Zero(t, repo.trendQuery.Limit)
}

func TestGetSpendingTrendsWithoutVendorsSkipsPoints(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	resp, err := svc.GetSpendingTrends(context.Background(), domain.SpendingTrendsRequest{})
	require.NoError(t, err)

	assert.False(t, repo.trendCalled)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
	assert.Equal(t, 12, resp.Metadata.Months)
	assert.Equal(t, 10, resp.Metadata.TopVendors)
}

func TestGetRiskAssessment(t *testing.T) {
	repo := &fakeRepo{risks: []domain.RiskAggregate{
		{VendorID: 1, VendorName: "Calm", TotalInvoices: 10, TotalExposure: 10_000, AvgInvoiceValue: 1_000},
		{VendorID: 2, VendorName: "Shaky", TotalInvoices: 10, TotalExposure: 900_000, AvgInvoiceValue: 90_000, InvoiceVariability: 90_000, LateInvoices: 5, OverduePayments: 4},
		{VendorID: 3, VendorName: "Middling", TotalInvoices: 10, TotalExposure: 500_000, AvgInvoiceValue: 1_000, InvoiceVariability: 500, LateInvoices: 2, OverduePayments: 2},
	}}
	svc := newTestService(repo)

	resp, err := svc.GetRiskAssessment(context.Background(), domain.RiskAssessmentRequest{Limit: 2})
	require.NoError(t, err)

	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Shaky", resp.Data[0].VendorName)
	assert.Equal(t, domain.RiskHigh, resp.Data[0].RiskCategory)
	assert.Equal(t, "Middling", resp.Data[1].VendorName)
	assert.Equal(t, domain.RiskMedium, resp.Data[1].RiskCategory)
	assert.Equal(t, 50, resp.Data[1].RiskScores.Overall)

	assert.Equal(t, domain.RiskDistribution{High: 1, Medium: 1, Low: 0}, resp.Metadata.RiskDistribution)
	assert.Equal(t, 2, resp.Metadata.TotalVendors)

	require.Len(t, repo.queries, 1)
	assert.Zero(t, repo.queries[0].Limit, "risk fetch is not truncated before scoring")
}
