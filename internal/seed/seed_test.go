package seed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var sqliteSchema = []string{
	`CREATE TABLE vendors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, tax_id TEXT, created_at DATETIME NOT NULL)`,
	`CREATE TABLE invoices (id INTEGER PRIMARY KEY AUTOINCREMENT, vendor_id INTEGER NOT NULL, invoice_number TEXT NOT NULL,
		invoice_date DATE NOT NULL, delivery_date DATE, total_amount NUMERIC NOT NULL DEFAULT 0, created_at DATETIME NOT NULL)`,
	`CREATE TABLE payments (id INTEGER PRIMARY KEY AUTOINCREMENT, invoice_id INTEGER NOT NULL, due_date DATE, net_days INTEGER,
		discount_percentage NUMERIC, discount_amount NUMERIC, discount_due_date DATE)`,
	`CREATE TABLE line_items (id INTEGER PRIMARY KEY AUTOINCREMENT, invoice_id INTEGER NOT NULL, description TEXT NOT NULL DEFAULT '',
		quantity NUMERIC NOT NULL DEFAULT 1, unit_price NUMERIC NOT NULL DEFAULT 0, amount NUMERIC NOT NULL DEFAULT 0)`,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range sqliteSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestEnsureDemoDataSeedsOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 30, 9, 30, 0, 0, time.UTC)

	seeded, err := EnsureDemoData(ctx, db, now)
	require.NoError(t, err)
	assert.True(t, seeded)

	var vendors, invoices, payments, lineItems int64
	require.NoError(t, db.Table("vendors").Count(&vendors).Error)
	require.NoError(t, db.Table("invoices").Count(&invoices).Error)
	require.NoError(t, db.Table("payments").Count(&payments).Error)
	require.NoError(t, db.Table("line_items").Count(&lineItems).Error)

	assert.Equal(t, int64(len(demoVendors)), vendors)
	assert.Positive(t, invoices)
	assert.Equal(t, invoices, payments)
	assert.Equal(t, invoices, lineItems)

	seeded, err = EnsureDemoData(ctx, db, now)
	require.NoError(t, err)
	assert.False(t, seeded)

	var again int64
	require.NoError(t, db.Table("vendors").Count(&again).Error)
	assert.Equal(t, vendors, again)
}

func TestEnsureDemoDataRequiresHandle(t *testing.T) {
	_, err := EnsureDemoData(context.Background(), nil, time.Now())
	assert.Error(t, err)
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 12.35, roundCents(12.345001))
	assert.Equal(t, 0.0, roundCents(0.004))
}
