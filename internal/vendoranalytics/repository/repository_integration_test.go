//go:build database

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/vendorscope/internal/migration"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable TimeZone=UTC", host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, migration.RunMigrations(sqlDB))

	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO vendors (id, name, tax_id) VALUES (1, 'Acme', 'TX-1'), (2, 'Globex', NULL), (3, 'Dormant', 'TX-3')`,
		`INSERT INTO invoices (id, vendor_id, invoice_number, invoice_date, delivery_date, total_amount) VALUES
			(10, 1, 'A-1', '2024-01-10', '2024-01-05', 1000),
			(11, 1, 'A-2', '2024-02-10', '2023-12-20', 3000),
			(12, 1, 'A-3', '2024-03-15', NULL, 2000),
			(20, 2, 'G-1', '2024-05-01', '2024-04-30', 500),
			(30, 3, 'D-1', '2022-01-01', NULL, 9000)`,
		`INSERT INTO payments (invoice_id, due_date, net_days, discount_percentage, discount_amount, discount_due_date) VALUES
			(10, '2024-02-09', 30, 2, 20, '2024-07-15'),
			(11, '2024-03-11', 30, 0, 0, NULL),
			(20, '2024-07-31', 91, NULL, NULL, NULL),
			(30, '2022-02-01', 31, NULL, NULL, NULL)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
}

func TestRepositoryAgainstPostgres(t *testing.T) {
	db := startPostgres(t)
	seed(t, db)

	repo := Provide()
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	q := domain.AggregateQuery{Since: asOf.AddDate(0, -12, 0), AsOf: asOf}

	t.Run("vendor aggregates", func(t *testing.T) {
		rows, err := repo.ListVendorAggregates(ctx, db, q)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		acme := rows[0]
		assert.Equal(t, int64(1), acme.VendorID)
		assert.Equal(t, "TX-1", acme.VendorTaxID)
		assert.Equal(t, int64(3), acme.InvoiceCount)
		assert.InDelta(t, 6000, acme.TotalSpend, 0.001)
		assert.InDelta(t, 2000, acme.AvgInvoiceValue, 0.001)
		assert.Equal(t, int64(3), acme.ActiveMonths)
		assert.InDelta(t, 30, acme.AvgPaymentTerms, 0.001)
		require.NotNil(t, acme.FirstInvoice)
		assert.Equal(t, "2024-01-10", acme.FirstInvoice.Format(time.DateOnly))

		globex := rows[1]
		assert.Equal(t, "", globex.VendorTaxID)
		assert.InDelta(t, 91, globex.AvgPaymentTerms, 0.001)
	})

	t.Run("vendor aggregates limit", func(t *testing.T) {
		limited := q
		limited.Limit = 1
		rows, err := repo.ListVendorAggregates(ctx, db, limited)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Acme", rows[0].VendorName)
	})

	t.Run("payment aggregates", func(t *testing.T) {
		rows, err := repo.ListPaymentAggregates(ctx, db, q)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		acme := rows[0]
		assert.Equal(t, int64(2), acme.PaymentRecords)
		assert.Equal(t, int64(2), acme.OverdueCount)
		assert.Equal(t, int64(1), acme.DiscountEligible)
		assert.InDelta(t, 20, acme.PotentialSavings, 0.001)
		assert.InDelta(t, 1, acme.AvgDiscountRate, 0.001)

		globex := rows[1]
		assert.Equal(t, int64(0), globex.OverdueCount)
		assert.Zero(t, globex.PotentialSavings)
		assert.Zero(t, globex.AvgDiscountRate)
	})

	t.Run("risk aggregates", func(t *testing.T) {
		rows, err := repo.ListRiskAggregates(ctx, db, q)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		acme := rows[0]
		assert.Equal(t, int64(3), acme.TotalInvoices)
		assert.InDelta(t, 1000, acme.InvoiceVariability, 0.001)
		assert.Equal(t, int64(1), acme.LateInvoices)
		assert.Equal(t, int64(2), acme.OverduePayments)
		assert.InDelta(t, 30, acme.AvgPaymentWindow, 0.001)

		globex := rows[1]
		assert.Zero(t, globex.InvoiceVariability)
		assert.Zero(t, globex.LateInvoices)
	})

	t.Run("trend points", func(t *testing.T) {
		require.NoError(t, db.Exec(
			`INSERT INTO invoices (id, vendor_id, invoice_number, invoice_date, total_amount) VALUES (13, 1, 'A-4', '2024-08-01', 5000)`,
		).Error)

		top := q
		top.Limit = 1
		ranked, err := repo.ListTopVendorsBySpend(ctx, db, top)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, int64(1), ranked[0].VendorID)

		points, err := repo.ListTrendPoints(ctx, db, []int64{ranked[0].VendorID}, q)
		require.NoError(t, err)
		require.Len(t, points, 3)
		assert.Equal(t, "2024-01", points[0].Month)
		assert.Equal(t, "2024-03", points[2].Month)
		assert.InDelta(t, 3000, points[1].MonthlySpend, 0.001)
		for _, p := range points {
			assert.NotEqual(t, "2024-08", p.Month, "invoices after the as-of date are excluded")
		}
	})
}
