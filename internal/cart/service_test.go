package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/novashop/novashop-backend/internal/products"
	"github.com/novashop/novashop-backend/pkg/db/models"
	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
)

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE products (
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
		)`,
		`CREATE TABLE carts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE cart_items (
			id TEXT PRIMARY KEY,
			cart_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			size TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), products.NewRepository(db), dbTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, active bool) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		Name:     "Test Product",
		Price:    decimal.RequireFromString("25.00"),
		Stock:    stock,
		IsActive: active,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func TestGetCreatesCartLazily(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, first.Items)

	second, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAddItemMergesSameProductAndSize(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, db, 10, true)
	size := "M"

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 2, Size: &size})
	require.NoError(t, err)

	view, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 3, Size: &size})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
}

func TestAddItemKeepsDistinctSizesApart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, db, 10, true)
	small, large := "S", "L"

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 1, Size: &small})
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 1, Size: &large})
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestAddItemRejectsOverStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, db, 3, true)

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 2})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	view, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestAddItemUnknownOrInactiveProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	inactive := seedProduct(t, db, 5, false)
	_, err = svc.AddItem(ctx, userID, AddItemInput{ProductID: inactive, Quantity: 1})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateItemZeroRemovesLine(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, db, 10, true)

	view, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	view, err = svc.UpdateItem(ctx, userID, view.Items[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestUpdateItemRejectsOverStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, db, 3, true)

	view, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, userID, view.Items[0].ID, 4)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
}

func TestUpdateItemUnknownLine(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.UpdateItem(ctx, uuid.New(), uuid.New(), 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	productID := seedProduct(t, db, 10, true)

	_, err := svc.AddItem(ctx, userID, AddItemInput{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, userID))
	require.NoError(t, svc.Clear(ctx, userID))

	view, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}
