package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListVendorAggregates(ctx context.Context, db *gorm.DB, q AggregateQuery) ([]VendorAggregate, error)
	ListPaymentAggregates(ctx context.Context, db *gorm.DB, q AggregateQuery) ([]PaymentAggregate, error)
	ListRiskAggregates(ctx context.Context, db *gorm.DB, q AggregateQuery) ([]RiskAggregate, error)
	ListTopVendorsBySpend(ctx context.Context, db *gorm.DB, q AggregateQuery) ([]VendorSpend, error)
	ListTrendPoints(ctx context.Context, db *gorm.DB, vendorIDs []int64, q AggregateQuery) ([]TrendPoint, error)
}
