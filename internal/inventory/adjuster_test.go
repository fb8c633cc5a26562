package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/novashop/novashop-backend/pkg/db/models"
	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// gen_random_uuid defaults in the model tags are postgres-only; the
	// table is created by hand and tests assign ids explicitly.
	if err := db.Exec(`
		CREATE TABLE products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			price NUMERIC NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			rating_avg NUMERIC NOT NULL DEFAULT 0,
			rating_count INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		t.Fatalf("create products table: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:    uuid.New(),
		Name:  "Test Product",
		Stock: stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func productStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func TestDecrementGuardsFloor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	adj := NewAdjuster()
	productID := seedProduct(t, db, 5)

	require.NoError(t, adj.Decrement(ctx, db, productID, 3))
	assert.Equal(t, 2, productStock(t, db, productID))

	err := adj.Decrement(ctx, db, productID, 3)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	assert.Equal(t, 2, productStock(t, db, productID))
}

func TestDecrementMissingProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	adj := NewAdjuster()

	err := adj.Decrement(context.Background(), db, uuid.New(), 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestIncrementRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	adj := NewAdjuster()
	productID := seedProduct(t, db, 1)

	require.NoError(t, adj.Increment(ctx, db, productID, 4))
	assert.Equal(t, 5, productStock(t, db, productID))

	err := adj.Increment(ctx, db, uuid.New(), 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReserveLinesBestEffort(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	adj := NewAdjuster()

	productA := seedProduct(t, db, 5)
	productB := seedProduct(t, db, 1)
	missing := uuid.New()

	report := adj.ReserveLines(ctx, db, []Line{
		{ProductID: productA, Quantity: 3},
		{ProductID: productB, Quantity: 2},
		{ProductID: missing, Quantity: 1},
	})

	require.Len(t, report.Applied, 1)
	assert.Equal(t, productA, report.Applied[0].ProductID)
	require.Len(t, report.Skipped, 2)
	require.Error(t, report.Err())

	assert.Equal(t, 2, productStock(t, db, productA))
	assert.Equal(t, 1, productStock(t, db, productB))
}

func TestRestoreLinesToleratesMissingProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	adj := NewAdjuster()

	productA := seedProduct(t, db, 0)
	missing := uuid.New()

	report := adj.RestoreLines(ctx, db, []Line{
		{ProductID: productA, Quantity: 2},
		{ProductID: missing, Quantity: 3},
	})

	require.Len(t, report.Applied, 1)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, missing, report.Skipped[0].ProductID)
	assert.Equal(t, 2, productStock(t, db, productA))
}

func TestZeroQuantityIsNoOp(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	adj := NewAdjuster()
	productID := seedProduct(t, db, 5)

	require.NoError(t, adj.Decrement(ctx, db, productID, 0))
	require.NoError(t, adj.Increment(ctx, db, productID, 0))
	assert.Equal(t, 5, productStock(t, db, productID))
}
