package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"gorm.io/gorm"
)

// LateDeliveryDays is how many days after delivery an invoice may be
// issued before it counts as late.
const LateDeliveryDays = 30

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type vendorAggregateRow struct {
	VendorID        int64           `gorm:"column:vendor_id"`
	VendorName      string          `gorm:"column:vendor_name"`
	VendorTaxID     sql.NullString  `gorm:"column:vendor_tax_id"`
	InvoiceCount    int64           `gorm:"column:invoice_count"`
	TotalSpend      sql.NullFloat64 `gorm:"column:total_spend"`
	AvgInvoiceValue sql.NullFloat64 `gorm:"column:avg_invoice_value"`
	FirstInvoice    sql.NullTime    `gorm:"column:first_invoice"`
	LastInvoice     sql.NullTime    `gorm:"column:last_invoice"`
	ActiveMonths    int64           `gorm:"column:active_months"`
	AvgPaymentTerms sql.NullFloat64 `gorm:"column:avg_payment_terms"`
}

func (r *repo) ListVendorAggregates(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.VendorAggregate, error) {
	query := `WITH invoice_terms AS (
			SELECT invoice_id, MIN(due_date) AS due_date
			FROM payments
			GROUP BY invoice_id
		)
		SELECT v.id AS vendor_id,
			v.name AS vendor_name,
			v.tax_id AS vendor_tax_id,
			COUNT(i.id) AS invoice_count,
			SUM(i.total_amount)::float8 AS total_spend,
			AVG(i.total_amount)::float8 AS avg_invoice_value,
			MIN(i.invoice_date)::timestamptz AS first_invoice,
			MAX(i.invoice_date)::timestamptz AS last_invoice,
			COUNT(DISTINCT DATE_TRUNC('month', i.invoice_date)) AS active_months,
			AVG(t.due_date - i.invoice_date)::float8 AS avg_payment_terms
		FROM vendors v
		JOIN invoices i ON i.vendor_id = v.id
		LEFT JOIN invoice_terms t ON t.invoice_id = i.id
		WHERE i.invoice_date >= ? AND i.invoice_date <= ?
		GROUP BY v.id, v.name, v.tax_id
		HAVING COUNT(i.id) > 0
		ORDER BY total_spend DESC, v.id ASC`
	args := []any{dateOf(q.Since), dateOf(q.AsOf)}
	query, args = withLimit(query, args, q.Limit)

	var rows []vendorAggregateRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.VendorAggregate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.VendorAggregate{
			VendorID:        row.VendorID,
			VendorName:      row.VendorName,
			VendorTaxID:     row.VendorTaxID.String,
			InvoiceCount:    row.InvoiceCount,
			TotalSpend:      row.TotalSpend.Float64,
			AvgInvoiceValue: row.AvgInvoiceValue.Float64,
			FirstInvoice:    timePtr(row.FirstInvoice),
			LastInvoice:     timePtr(row.LastInvoice),
			ActiveMonths:    row.ActiveMonths,
			AvgPaymentTerms: row.AvgPaymentTerms.Float64,
		})
	}
	return out, nil
}

type paymentAggregateRow struct {
	VendorID         int64           `gorm:"column:vendor_id"`
	VendorName       string          `gorm:"column:vendor_name"`
	PaymentRecords   int64           `gorm:"column:payment_records"`
	AvgPaymentTerms  sql.NullFloat64 `gorm:"column:avg_payment_terms"`
	AvgDiscountRate  sql.NullFloat64 `gorm:"column:avg_discount_rate"`
	OverdueCount     int64           `gorm:"column:overdue_count"`
	DiscountEligible int64           `gorm:"column:discount_eligible"`
	PotentialSavings sql.NullFloat64 `gorm:"column:potential_savings"`
	EarliestDueDate  sql.NullTime    `gorm:"column:earliest_due_date"`
	LatestDueDate    sql.NullTime    `gorm:"column:latest_due_date"`
}

func (r *repo) ListPaymentAggregates(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.PaymentAggregate, error) {
	asOf := dateOf(q.AsOf)
	query := `SELECT v.id AS vendor_id,
			v.name AS vendor_name,
			COUNT(p.id) AS payment_records,
			AVG(p.net_days)::float8 AS avg_payment_terms,
			AVG(p.discount_percentage)::float8 AS avg_discount_rate,
			COUNT(p.id) FILTER (WHERE p.due_date < ?) AS overdue_count,
			COUNT(p.id) FILTER (WHERE p.discount_due_date >= ?) AS discount_eligible,
			(SUM(p.discount_amount) FILTER (WHERE p.discount_due_date >= ?))::float8 AS potential_savings,
			MIN(p.due_date)::timestamptz AS earliest_due_date,
			MAX(p.due_date)::timestamptz AS latest_due_date
		FROM vendors v
		JOIN invoices i ON i.vendor_id = v.id
		JOIN payments p ON p.invoice_id = i.id
		WHERE i.invoice_date >= ? AND i.invoice_date <= ?
		GROUP BY v.id, v.name
		HAVING COUNT(p.id) > 0
		ORDER BY payment_records DESC, v.id ASC`
	args := []any{asOf, asOf, asOf, dateOf(q.Since), asOf}
	query, args = withLimit(query, args, q.Limit)

	var rows []paymentAggregateRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.PaymentAggregate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.PaymentAggregate{
			VendorID:         row.VendorID,
			VendorName:       row.VendorName,
			PaymentRecords:   row.PaymentRecords,
			AvgPaymentTerms:  row.AvgPaymentTerms.Float64,
			AvgDiscountRate:  row.AvgDiscountRate.Float64,
			OverdueCount:     row.OverdueCount,
			DiscountEligible: row.DiscountEligible,
			PotentialSavings: row.PotentialSavings.Float64,
			EarliestDueDate:  timePtr(row.EarliestDueDate),
			LatestDueDate:    timePtr(row.LatestDueDate),
		})
	}
	return out, nil
}

type riskAggregateRow struct {
	VendorID           int64           `gorm:"column:vendor_id"`
	VendorName         string          `gorm:"column:vendor_name"`
	VendorTaxID        sql.NullString  `gorm:"column:vendor_tax_id"`
	TotalInvoices      int64           `gorm:"column:total_invoices"`
	TotalExposure      sql.NullFloat64 `gorm:"column:total_exposure"`
	AvgInvoiceValue    sql.NullFloat64 `gorm:"column:avg_invoice_value"`
	InvoiceVariability sql.NullFloat64 `gorm:"column:invoice_variability"`
	LateInvoices       int64           `gorm:"column:late_invoices"`
	OverduePayments    int64           `gorm:"column:overdue_payments"`
	AvgPaymentWindow   sql.NullFloat64 `gorm:"column:avg_payment_window"`
	RelationshipStart  sql.NullTime    `gorm:"column:relationship_start"`
	LastActivity       sql.NullTime    `gorm:"column:last_activity"`
	ActiveMonths       int64           `gorm:"column:active_months"`
}

// ListRiskAggregates returns every vendor with invoices in the window.
// Payments are pre-aggregated per invoice so the invoice statistics are not
// skewed by invoices with several payment rows.
func (r *repo) ListRiskAggregates(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.RiskAggregate, error) {
	asOf := dateOf(q.AsOf)
	query := `WITH invoice_payments AS (
			SELECT invoice_id,
				MIN(due_date) AS due_date,
				BOOL_OR(due_date < ?) AS overdue
			FROM payments
			GROUP BY invoice_id
		)
		SELECT v.id AS vendor_id,
			v.name AS vendor_name,
			v.tax_id AS vendor_tax_id,
			COUNT(i.id) AS total_invoices,
			SUM(i.total_amount)::float8 AS total_exposure,
			AVG(i.total_amount)::float8 AS avg_invoice_value,
			STDDEV(i.total_amount)::float8 AS invoice_variability,
			COUNT(i.id) FILTER (WHERE i.delivery_date IS NOT NULL AND i.invoice_date - i.delivery_date > ?) AS late_invoices,
			COUNT(i.id) FILTER (WHERE ip.overdue) AS overdue_payments,
			AVG(ip.due_date - i.invoice_date)::float8 AS avg_payment_window,
			MIN(i.invoice_date)::timestamptz AS relationship_start,
			MAX(i.invoice_date)::timestamptz AS last_activity,
			COUNT(DISTINCT DATE_TRUNC('month', i.invoice_date)) AS active_months
		FROM vendors v
		JOIN invoices i ON i.vendor_id = v.id
		LEFT JOIN invoice_payments ip ON ip.invoice_id = i.id
		WHERE i.invoice_date >= ? AND i.invoice_date <= ?
		GROUP BY v.id, v.name, v.tax_id
		HAVING COUNT(i.id) > 0
		ORDER BY total_exposure DESC, v.id ASC`
	args := []any{asOf, LateDeliveryDays, dateOf(q.Since), asOf}
	query, args = withLimit(query, args, q.Limit)

	var rows []riskAggregateRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.RiskAggregate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RiskAggregate{
			VendorID:           row.VendorID,
			VendorName:         row.VendorName,
			VendorTaxID:        row.VendorTaxID.String,
			TotalInvoices:      row.TotalInvoices,
			TotalExposure:      row.TotalExposure.Float64,
			AvgInvoiceValue:    row.AvgInvoiceValue.Float64,
			InvoiceVariability: row.InvoiceVariability.Float64,
			LateInvoices:       row.LateInvoices,
			OverduePayments:    row.OverduePayments,
			AvgPaymentWindow:   row.AvgPaymentWindow.Float64,
			RelationshipStart:  timePtr(row.RelationshipStart),
			LastActivity:       timePtr(row.LastActivity),
			ActiveMonths:       row.ActiveMonths,
		})
	}
	return out, nil
}

func (r *repo) ListTopVendorsBySpend(ctx context.Context, db *gorm.DB, q domain.AggregateQuery) ([]domain.VendorSpend, error) {
	query := `SELECT v.id AS vendor_id,
			v.name AS vendor_name,
			COALESCE(SUM(i.total_amount), 0)::float8 AS total_spend
		FROM vendors v
		JOIN invoices i ON i.vendor_id = v.id
		WHERE i.invoice_date >= ? AND i.invoice_date <= ?
		GROUP BY v.id, v.name
		ORDER BY total_spend DESC, v.id ASC`
	args := []any{dateOf(q.Since), dateOf(q.AsOf)}
	query, args = withLimit(query, args, q.Limit)

	var rows []domain.VendorSpend
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTrendPoints uses the same invoice date window as ListTopVendorsBySpend.
func (r *repo) ListTrendPoints(ctx context.Context, db *gorm.DB, vendorIDs []int64, q domain.AggregateQuery) ([]domain.TrendPoint, error) {
	if len(vendorIDs) == 0 {
		return []domain.TrendPoint{}, nil
	}

	var rows []domain.TrendPoint
	err := db.WithContext(ctx).Raw(
		`SELECT v.id AS vendor_id,
			v.name AS vendor_name,
			TO_CHAR(DATE_TRUNC('month', i.invoice_date), 'YYYY-MM') AS month,
			COUNT(i.id) AS invoice_count,
			COALESCE(SUM(i.total_amount), 0)::float8 AS monthly_spend,
			COALESCE(AVG(i.total_amount), 0)::float8 AS avg_invoice_value
		FROM vendors v
		JOIN invoices i ON i.vendor_id = v.id
		WHERE i.invoice_date >= ? AND i.invoice_date <= ? AND v.id IN ?
		GROUP BY v.id, v.name, DATE_TRUNC('month', i.invoice_date)
		ORDER BY v.id ASC, month ASC`,
		dateOf(q.Since),
		dateOf(q.AsOf),
		vendorIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func withLimit(query string, args []any, limit int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	return query + "\n\t\tLIMIT ?", append(args, limit)
}

// dateOf truncates t to its UTC calendar day so comparisons against DATE
// columns do not depend on the session time zone.
func dateOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
