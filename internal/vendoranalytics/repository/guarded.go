package repository

import (
	"context"

	"github.com/smallbiznis/vendorscope/internal/config"
	obsmetrics "github.com/smallbiznis/vendorscope/internal/observability/metrics"
	"github.com/smallbiznis/vendorscope/internal/retry"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	pkgdb "github.com/smallbiznis/vendorscope/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GuardedParams struct {
	fx.In

	Log     *zap.Logger
	Config  *config.AnalyticsConfigHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// guarded bounds every fetch with the configured query timeout and retries
// connection failures. Failures leave as *domain.DataSourceError.
type guarded struct {
	next    domain.Repository
	log     *zap.Logger
	cfg     *config.AnalyticsConfigHolder
	metrics *obsmetrics.Metrics
}

// ProvideGuarded wraps the SQL repository for production use.
func ProvideGuarded(p GuardedParams) domain.Repository {
	return NewGuarded(Provide(), p.Config, p.Log, p.Metrics)
}

func NewGuarded(next domain.Repository, cfg *config.AnalyticsConfigHolder, log *zap.Logger, metrics *obsmetrics.Metrics) domain.Repository {
	return &guarded{
		next:    next,
		log:     log.Named("vendoranalytics.repository"),
		cfg:     cfg,
		metrics: metrics,
	}
}

func (g *guarded) ListVendorAggregates(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.VendorAggregate, error) {
	return call(ctx, g, "vendor_aggregates", func(ctx context.Context) ([]domain.VendorAggregate, error) {
		return g.next.ListVendorAggregates(ctx, db, q)
	})
}

func (g *guarded) ListPaymentAggregates(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.PaymentAggregate, error) {
	return call(ctx, g, "payment_aggregates", func(ctx context.Context) ([]domain.PaymentAggregate, error) {
		return g.next.ListPaymentAggregates(ctx, db, q)
	})
}

func (g *guarded) ListRiskAggregates(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.RiskAggregate, error) {
	return call(ctx, g, "risk_aggregates", func(ctx context.Context) ([]domain.RiskAggregate, error) {
		return g.next.ListRiskAggregates(ctx, db, q)
	})
}

func (g *guarded) ListTopVendorsBySpend(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.VendorSpend, error) {
	return call(ctx, g, "top_vendors", func(ctx context.Context) ([]domain.VendorSpend, error) {
		return g.next.ListTopVendorsBySpend(ctx, db, q)
	})
}

func (g *guarded) ListTrendPoints(ctx context.Context, db *gorm.DB, vendorIDs []int64, q domain.AggregateQuery) ([]domain.TrendPoint, error) {
	return call(ctx, g, "trend_points", func(ctx context.Context) ([]domain.TrendPoint, error) {
		return g.next.ListTrendPoints(ctx, db, vendorIDs, q)
	})
}

func call[T any](ctx context.Context, g *guarded, op string, fetch func(context.Context) (T, error)) (T, error) {
	settings := g.cfg.Get().DataSource

	policy := retry.Config{
		Attempts:  settings.RetryAttempts,
		Delay:     settings.RetryDelay,
		Retryable: pkgdb.IsUnavailableErr,
		OnRetry: func(attempt int, err error) {
			g.log.Warn("aggregate fetch failed, retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			g.metrics.RecordDataSourceRetry(ctx, op)
		},
	}

	out, err := retry.DoValue(ctx, policy, func(ctx context.Context) (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, settings.QueryTimeout)
		defer cancel()
		return fetch(attemptCtx)
	})
	if err != nil {
		g.log.Error("aggregate fetch failed", zap.String("operation", op), zap.Error(err))
		g.metrics.RecordDataSourceFailure(ctx, op)
		var zero T
		return zero, &domain.DataSourceError{Op: op, Err: err}
	}
	return out, nil
}
