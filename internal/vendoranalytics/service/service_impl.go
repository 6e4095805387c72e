package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/smallbiznis/vendorscope/internal/clock"
	"github.com/smallbiznis/vendorscope/internal/config"
	obsmetrics "github.com/smallbiznis/vendorscope/internal/observability/metrics"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/report"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/scoring"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/trend"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("vendorscope/vendoranalytics")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Config  *config.AnalyticsConfigHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	cfg     *config.AnalyticsConfigHolder
	metrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("vendoranalytics.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		cfg:     p.Config,
		metrics: p.Metrics,
	}
}

func (s *Service) GetPerformanceScorecard(ctx context.Context, req domain.PerformanceRequest) (domain.PerformanceScorecardResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.PerformanceScorecardResponse{}, err
	}
	defaults := s.cfg.Get().Performance
	limit := orDefault(req.Limit, defaults.Limit)
	timeframe := orDefault(req.Timeframe, defaults.Timeframe)

	ctx, span := s.startSpan(ctx, "performance-scorecard", limit, timeframe)
	defer span.End()

	now := s.clock.Now()
	rows, err := s.repo.ListVendorAggregates(ctx, s.db, domain.AggregateQuery{
		Since: windowStart(now, timeframe),
		AsOf:  now,
		Limit: limit,
	})
	if err != nil {
		return domain.PerformanceScorecardResponse{}, failSpan(span, err)
	}

	vendors := make([]domain.VendorPerformance, 0, len(rows))
	for _, row := range rows {
		if row.InvoiceCount <= 0 {
			continue
		}
		vendors = append(vendors, domain.VendorPerformance{
			VendorID:         row.VendorID,
			VendorName:       row.VendorName,
			VendorTaxID:      row.VendorTaxID,
			TotalSpend:       scoring.Round2(row.TotalSpend),
			InvoiceCount:     row.InvoiceCount,
			AvgInvoiceValue:  scoring.Round2(row.AvgInvoiceValue),
			FirstInvoice:     row.FirstInvoice,
			LastInvoice:      row.LastInvoice,
			ActiveMonths:     row.ActiveMonths,
			AvgPaymentTerms:  scoring.Round2(row.AvgPaymentTerms),
			PerformanceScore: scoring.ScorePerformance(row, timeframe),
		})
	}
	slices.SortStableFunc(vendors, func(a, b domain.VendorPerformance) int {
		if c := cmp.Compare(b.TotalSpend, a.TotalSpend); c != 0 {
			return c
		}
		return cmp.Compare(a.VendorID, b.VendorID)
	})

	data := report.Limit(vendors, limit)
	s.metrics.RecordScorecard(ctx, "performance-scorecard", len(data))

	return domain.PerformanceScorecardResponse{
		Data: data,
		Metadata: domain.PerformanceMetadata{
			Timeframe:    timeframe,
			TotalVendors: len(data),
			Timestamp:    report.Timestamp(s.clock.Now()),
		},
	}, nil
}

func (s *Service) GetPaymentReliability(ctx context.Context, req domain.PaymentReliabilityRequest) (domain.PaymentReliabilityResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.PaymentReliabilityResponse{}, err
	}
	defaults := s.cfg.Get().Reliability
	limit := orDefault(req.Limit, defaults.Limit)
	window := defaults.WindowMonths

	ctx, span := s.startSpan(ctx, "payment-reliability", limit, window)
	defer span.End()

	now := s.clock.Now()
	rows, err := s.repo.ListPaymentAggregates(ctx, s.db, domain.AggregateQuery{
		Since: windowStart(now, window),
		AsOf:  now,
		Limit: limit,
	})
	if err != nil {
		return domain.PaymentReliabilityResponse{}, failSpan(span, err)
	}

	vendors := make([]domain.VendorPaymentReliability, 0, len(rows))
	for _, row := range rows {
		score := scoring.ScorePaymentReliability(row)
		vendors = append(vendors, domain.VendorPaymentReliability{
			VendorID:            row.VendorID,
			VendorName:          row.VendorName,
			PaymentRecords:      row.PaymentRecords,
			AvgPaymentTerms:     scoring.Round2(row.AvgPaymentTerms),
			AvgDiscountRate:     scoring.Round2(row.AvgDiscountRate),
			OverdueCount:        row.OverdueCount,
			OverdueRate:         score.OverdueRate,
			DiscountEligible:    row.DiscountEligible,
			DiscountUtilization: score.DiscountUtilization,
			PotentialSavings:    scoring.Round2(row.PotentialSavings),
			ReliabilityScore:    score.ReliabilityScore,
			PaymentWindow: domain.PaymentWindow{
				Earliest: row.EarliestDueDate,
				Latest:   row.LatestDueDate,
			},
		})
	}
	slices.SortStableFunc(vendors, func(a, b domain.VendorPaymentReliability) int {
		if c := cmp.Compare(b.PaymentRecords, a.PaymentRecords); c != 0 {
			return c
		}
		return cmp.Compare(a.VendorID, b.VendorID)
	})

	data := report.Limit(vendors, limit)
	s.metrics.RecordScorecard(ctx, "payment-reliability", len(data))

	return domain.PaymentReliabilityResponse{
		Data: data,
		Metadata: domain.PaymentReliabilityMetadata{
			WindowMonths: window,
			TotalVendors: len(data),
			Timestamp:    report.Timestamp(s.clock.Now()),
		},
	}, nil
}

func (s *Service) GetSpendingTrends(ctx context.Context, req domain.SpendingTrendsRequest) (domain.SpendingTrendsResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.SpendingTrendsResponse{}, err
	}
	defaults := s.cfg.Get().Trends
	months := orDefault(req.Months, defaults.Months)
	topVendors := orDefault(req.TopVendors, defaults.TopVendors)

	ctx, span := s.startSpan(ctx, "spending-trends", topVendors, months)
	defer span.End()

	now := s.clock.Now()
	since := windowStart(now, months)
	window := domain.AggregateQuery{Since: since, AsOf: now}
	top := window
	top.Limit = topVendors
	candidates, err := s.repo.ListTopVendorsBySpend(ctx, s.db, top)
	if err != nil {
		return domain.SpendingTrendsResponse{}, failSpan(span, err)
	}
	ranked := trend.RankBySpend(candidates, topVendors)

	var points []domain.TrendPoint
	if len(ranked) > 0 {
		ids := make([]int64, 0, len(ranked))
		for _, v := range ranked {
			ids = append(ids, v.VendorID)
		}
		points, err = s.repo.ListTrendPoints(ctx, s.db, ids, window)
		if err != nil {
			return domain.SpendingTrendsResponse{}, failSpan(span, err)
		}
	}

	data := report.Limit(trend.Build(ranked, points), topVendors)
	s.metrics.RecordScorecard(ctx, "spending-trends", len(data))

	return domain.SpendingTrendsResponse{
		Data: data,
		Metadata: domain.SpendingTrendsMetadata{
			Months:       months,
			TopVendors:   topVendors,
			TotalVendors: len(data),
			Timestamp:    report.Timestamp(s.clock.Now()),
		},
	}, nil
}

// GetRiskAssessment scores every vendor active in the risk window and keeps
// the riskiest. Truncation happens after scoring because the SQL layer
// cannot order by the weighted score.
func (s *Service) GetRiskAssessment(ctx context.Context, req domain.RiskAssessmentRequest) (domain.RiskAssessmentResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.RiskAssessmentResponse{}, err
	}
	defaults := s.cfg.Get().Risk
	limit := orDefault(req.Limit, defaults.Limit)
	window := defaults.WindowMonths

	ctx, span := s.startSpan(ctx, "risk-assessment", limit, window)
	defer span.End()

	now := s.clock.Now()
	rows, err := s.repo.ListRiskAggregates(ctx, s.db, domain.AggregateQuery{
		Since: windowStart(now, window),
		AsOf:  now,
	})
	if err != nil {
		return domain.RiskAssessmentResponse{}, failSpan(span, err)
	}

	vendors := make([]domain.VendorRisk, 0, len(rows))
	for _, row := range rows {
		assessment := scoring.ScoreRisk(row)
		vendors = append(vendors, domain.VendorRisk{
			VendorID:           row.VendorID,
			VendorName:         row.VendorName,
			VendorTaxID:        row.VendorTaxID,
			TotalInvoices:      row.TotalInvoices,
			TotalExposure:      scoring.Round2(row.TotalExposure),
			AvgInvoiceValue:    scoring.Round2(row.AvgInvoiceValue),
			InvoiceVariability: scoring.Round2(row.InvoiceVariability),
			LateInvoices:       row.LateInvoices,
			LateInvoiceRate:    assessment.LateInvoiceRate,
			OverduePayments:    row.OverduePayments,
			OverdueRate:        assessment.OverdueRate,
			AvgPaymentWindow:   scoring.Round2(row.AvgPaymentWindow),
			RelationshipStart:  row.RelationshipStart,
			LastActivity:       row.LastActivity,
			ActiveMonths:       row.ActiveMonths,
			RiskScores:         assessment.Scores,
			RiskCategory:       assessment.Category,
		})
	}
	slices.SortStableFunc(vendors, func(a, b domain.VendorRisk) int {
		if c := cmp.Compare(b.RiskScores.Overall, a.RiskScores.Overall); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalExposure, a.TotalExposure); c != 0 {
			return c
		}
		return cmp.Compare(a.VendorID, b.VendorID)
	})

	data := report.Limit(vendors, limit)
	distribution := report.Distribution(data)
	s.metrics.RecordScorecard(ctx, "risk-assessment", len(data))
	s.metrics.RecordRiskCategory(ctx, string(domain.RiskHigh), distribution.High)
	s.metrics.RecordRiskCategory(ctx, string(domain.RiskMedium), distribution.Medium)
	s.metrics.RecordRiskCategory(ctx, string(domain.RiskLow), distribution.Low)

	if distribution.High > 0 {
		s.log.Debug("high risk vendors in assessment", zap.Int("count", distribution.High))
	}

	return domain.RiskAssessmentResponse{
		Data: data,
		Metadata: domain.RiskAssessmentMetadata{
			WindowMonths:     window,
			TotalVendors:     len(data),
			RiskDistribution: distribution,
			Timestamp:        report.Timestamp(s.clock.Now()),
		},
	}, nil
}

func (s *Service) startSpan(ctx context.Context, endpoint string, limit, months int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "vendoranalytics."+endpoint, trace.WithAttributes(
		attribute.Int("vendoranalytics.limit", limit),
		attribute.Int("vendoranalytics.window_months", months),
	))
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "aggregate fetch failed")
	return err
}

// windowStart is the first instant of a window of the given number of
// calendar months ending at now.
func windowStart(now time.Time, months int) time.Time {
	return now.AddDate(0, -months, 0)
}

func orDefault(value, def int) int {
	if value <= 0 {
		return def
	}
	return value
}
