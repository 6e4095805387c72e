package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/vendorscope/internal/config"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type scriptedRepo struct {
	domain.Repository
	errs  []error
	calls int
	block bool
}

func (r *scriptedRepo) ListVendorAggregates(ctx context.Context, _ *gorm.DB, _ domain.AggregateQuery) ([]domain.VendorAggregate, error) {
	r.calls++
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []domain.VendorAggregate{{VendorID: 1, VendorName: "Acme"}}, nil
}

func testHolder(attempts int, timeout time.Duration) *config.AnalyticsConfigHolder {
	cfg := config.DefaultAnalyticsConfig()
	cfg.DataSource.RetryAttempts = attempts
	cfg.DataSource.RetryDelay = time.Millisecond
	cfg.DataSource.QueryTimeout = timeout
	return config.NewStaticAnalyticsConfigHolder(cfg)
}

func TestGuardedRetriesConnectionFailures(t *testing.T) {
	inner := &scriptedRepo{errs: []error{driver.ErrBadConn}}
	repo := NewGuarded(inner, testHolder(2, time.Second), zap.NewNop(), nil)

	rows, err := repo.ListVendorAggregates(context.Background(), nil, domain.AggregateQuery{})

	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedDoesNotRetryQueryErrors(t *testing.T) {
	syntax := &pgconn.PgError{Code: "42601", Message: "syntax error at or near \"FROM\""}
	inner := &scriptedRepo{errs: []error{syntax}}
	repo := NewGuarded(inner, testHolder(3, time.Second), zap.NewNop(), nil)

	_, err := repo.ListVendorAggregates(context.Background(), nil, domain.AggregateQuery{})

	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.ErrorIs(t, err, domain.ErrDataSourceUnavailable)
	assert.ErrorIs(t, err, syntax)
	assert.Contains(t, err.Error(), "syntax error")

	var dsErr *domain.DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, "vendor_aggregates", dsErr.Op)
}

func TestGuardedGivesUpAfterAttempts(t *testing.T) {
	inner := &scriptedRepo{errs: []error{driver.ErrBadConn, driver.ErrBadConn, driver.ErrBadConn}}
	repo := NewGuarded(inner, testHolder(2, time.Second), zap.NewNop(), nil)

	_, err := repo.ListVendorAggregates(context.Background(), nil, domain.AggregateQuery{})

	assert.ErrorIs(t, err, domain.ErrDataSourceUnavailable)
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedAppliesQueryTimeout(t *testing.T) {
	inner := &scriptedRepo{block: true}
	repo := NewGuarded(inner, testHolder(2, 10*time.Millisecond), zap.NewNop(), nil)

	start := time.Now()
	_, err := repo.ListVendorAggregates(context.Background(), nil, domain.AggregateQuery{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrDataSourceUnavailable)
	assert.Equal(t, 2, inner.calls)
	assert.Less(t, time.Since(start), 5*time.Second)
}
