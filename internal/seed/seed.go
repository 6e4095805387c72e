// Package seed loads a small deterministic vendor history so the scorecards
// have something to rank on a fresh database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"
)

type demoVendor struct {
	name        string
	taxID       string
	perMonth    int
	baseAmount  float64
	spread      float64
	netDays     int
	lateDays    int
	discountPct float64
	activeFrom  int
}

// History starts activeFrom months before the seed date.
var demoVendors = []demoVendor{
	{name: "Acme Industrial Supply", taxID: "US-11-1000001", perMonth: 6, baseAmount: 8200, spread: 0.10, netDays: 30, discountPct: 2, activeFrom: 14},
	{name: "Globex Logistics", taxID: "US-11-1000002", perMonth: 4, baseAmount: 21500, spread: 0.45, netDays: 45, lateDays: 40, activeFrom: 12},
	{name: "Initech Software", taxID: "US-11-1000003", perMonth: 1, baseAmount: 64000, spread: 0.05, netDays: 60, activeFrom: 18},
	{name: "Umbrella Facilities", taxID: "US-11-1000004", perMonth: 3, baseAmount: 3100, spread: 0.80, netDays: 15, lateDays: 35, discountPct: 1.5, activeFrom: 7},
	{name: "Stark Components", taxID: "US-11-1000005", perMonth: 8, baseAmount: 1250, spread: 0.20, netDays: 30, activeFrom: 4},
	{name: "Wayne Office Products", taxID: "", perMonth: 2, baseAmount: 640, spread: 0.30, netDays: 10, discountPct: 3, activeFrom: 24},
}

// EnsureDemoData inserts the demo history when the vendors table is empty.
// It reports whether anything was written.
func EnsureDemoData(ctx context.Context, db *gorm.DB, now time.Time) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}

	var existing int64
	if err := db.WithContext(ctx).Table("vendors").Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	rng := rand.New(rand.NewPCG(42, 7))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range demoVendors {
			if err := insertVendorTx(ctx, tx, rng, v, today); err != nil {
				return fmt.Errorf("seed vendor %s: %w", v.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func insertVendorTx(ctx context.Context, tx *gorm.DB, rng *rand.Rand, v demoVendor, today time.Time) error {
	var taxID *string
	if v.taxID != "" {
		taxID = &v.taxID
	}

	var vendorID int64
	if err := tx.WithContext(ctx).Raw(
		`INSERT INTO vendors (name, tax_id, created_at) VALUES (?, ?, ?) RETURNING id`,
		v.name, taxID, today.AddDate(0, -v.activeFrom, 0),
	).Scan(&vendorID).Error; err != nil {
		return err
	}

	seq := 0
	for m := v.activeFrom; m >= 0; m-- {
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -m, 0)
		for i := 0; i < v.perMonth; i++ {
			invoiceDate := monthStart.AddDate(0, 0, rng.IntN(28))
			if invoiceDate.After(today) {
				continue
			}
			seq++
			amount := roundCents(v.baseAmount * (1 + v.spread*(rng.Float64()*2-1)))

			delivery := invoiceDate.AddDate(0, 0, -rng.IntN(5))
			if v.lateDays > 0 && rng.IntN(4) == 0 {
				delivery = invoiceDate.AddDate(0, 0, -(v.lateDays + rng.IntN(10)))
			}

			var invoiceID int64
			if err := tx.WithContext(ctx).Raw(
				`INSERT INTO invoices (vendor_id, invoice_number, invoice_date, delivery_date, total_amount, created_at)
				VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
				vendorID, fmt.Sprintf("INV-%d-%04d", vendorID, seq), invoiceDate, delivery, amount, invoiceDate,
			).Scan(&invoiceID).Error; err != nil {
				return err
			}

			if err := tx.WithContext(ctx).Exec(
				`INSERT INTO line_items (invoice_id, description, quantity, unit_price, amount) VALUES (?, ?, ?, ?, ?)`,
				invoiceID, "Services rendered", 1, amount, amount,
			).Error; err != nil {
				return err
			}

			if err := insertPaymentTx(ctx, tx, invoiceID, invoiceDate, amount, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertPaymentTx(ctx context.Context, tx *gorm.DB, invoiceID int64, invoiceDate time.Time, amount float64, v demoVendor) error {
	var (
		discountPct  *float64
		discountAmt  *float64
		discountDate *time.Time
	)
	if v.discountPct > 0 {
		pct := v.discountPct
		amt := roundCents(amount * pct / 100)
		due := invoiceDate.AddDate(0, 0, 10)
		discountPct, discountAmt, discountDate = &pct, &amt, &due
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO payments (invoice_id, due_date, net_days, discount_percentage, discount_amount, discount_due_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		invoiceID, invoiceDate.AddDate(0, 0, v.netDays), v.netDays, discountPct, discountAmt, discountDate,
	).Error
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
