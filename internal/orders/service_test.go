package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/novashop/novashop-backend/internal/inventory"
	"github.com/novashop/novashop-backend/internal/payments"
	"github.com/novashop/novashop-backend/pkg/config"
	"github.com/novashop/novashop-backend/pkg/db/models"
	"github.com/novashop/novashop-backend/pkg/enums"
	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
	"github.com/novashop/novashop-backend/pkg/pagination"
	"github.com/novashop/novashop-backend/pkg/types"
)

type stubOrdersRepo struct {
	orders  map[uuid.UUID]*models.Order
	created []*models.Order
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	s.created = append(s.created, order)
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *string, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			rows = append(rows, *order)
		}
	}
	return rows, nil, nil
}

func (s *stubOrdersRepo) FindAll(ctx context.Context, params pagination.Params) ([]models.Order, *string, error) {
	var rows []models.Order
	for _, order := range s.orders {
		rows = append(rows, *order)
	}
	return rows, nil, nil
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, trackingNumber *string) error {
	order, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	if trackingNumber != nil {
		order.TrackingNumber = trackingNumber
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCartStore struct {
	record     *models.CartRecord
	clearCount int
}

func (s *stubCartStore) LoadForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.CartRecord, error) {
	if s.record != nil {
		return s.record, nil
	}
	return &models.CartRecord{ID: uuid.New(), UserID: userID, Items: []models.CartItem{}}, nil
}

func (s *stubCartStore) Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	s.clearCount++
	if s.record != nil {
		s.record.Items = nil
	}
	return nil
}

type stubProductReader struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *product
	return &clone, nil
}

type stubGateway struct {
	result payments.Result
	err    error
	called bool
}

func (s *stubGateway) Authorize(ctx context.Context, details payments.Details) (payments.Result, error) {
	s.called = true
	if s.err != nil {
		return payments.Result{}, s.err
	}
	return s.result, nil
}

type stubStockAdjuster struct {
	reserved [][]inventory.Line
	restored [][]inventory.Line
}

func (s *stubStockAdjuster) ReserveLines(ctx context.Context, tx *gorm.DB, lines []inventory.Line) inventory.Report {
	s.reserved = append(s.reserved, lines)
	return inventory.Report{Applied: lines}
}

func (s *stubStockAdjuster) RestoreLines(ctx context.Context, tx *gorm.DB, lines []inventory.Line) inventory.Report {
	s.restored = append(s.restored, lines)
	return inventory.Report{Applied: lines}
}

type fixture struct {
	repo    *stubOrdersRepo
	carts   *stubCartStore
	reader  *stubProductReader
	gateway *stubGateway
	stock   *stubStockAdjuster
	now     time.Time
}

func newFixture() *fixture {
	return &fixture{
		repo:    newStubOrdersRepo(),
		carts:   &stubCartStore{},
		reader:  &stubProductReader{products: map[uuid.UUID]*models.Product{}},
		gateway: &stubGateway{result: payments.Result{Success: true, Status: enums.PaymentStatusPending, TransactionID: "COD-1-0001", Message: "authorized"}},
		stock:   &stubStockAdjuster{},
		now:     time.UnixMilli(1700000000000),
	}
}

func (f *fixture) service(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(
		f.repo,
		stubTxRunner{},
		f.carts,
		f.reader,
		f.gateway,
		f.stock,
		config.CheckoutConfig{ShippingFlatFee: "15.00", TaxRate: "0.08"},
		config.PaymentConfig{Timeout: time.Second},
		nil,
		WithClock(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	return svc
}

func (f *fixture) seedProduct(price string, stock int) uuid.UUID {
	id := uuid.New()
	f.reader.products[id] = &models.Product{
		ID:       id,
		Name:     "Product " + id.String()[:8],
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	return id
}

func (f *fixture) seedCart(userID uuid.UUID, items ...models.CartItem) {
	f.carts.record = &models.CartRecord{ID: uuid.New(), UserID: userID, Items: items}
}

func validAddress() types.ShippingAddress {
	return types.ShippingAddress{
		Street:  "42 Main St",
		City:    "Springfield",
		State:   "IL",
		Zip:     "62704",
		Country: "US",
	}
}

func TestCreateHappyPathCashOnDelivery(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	productID := f.seedProduct("50.00", 10)
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: 2})
	svc := f.service(t)

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment:         payments.Details{Method: "cashOnDelivery"},
	})
	require.NoError(t, err)

	assert.Equal(t, "100.00", result.Order.Subtotal)
	assert.Equal(t, "8.00", result.Order.Tax)
	assert.Equal(t, "15.00", result.Order.ShippingCost)
	assert.Equal(t, "123.00", result.Order.Total)
	assert.Equal(t, enums.OrderStatusProcessing, result.Order.Status)
	assert.Equal(t, enums.PaymentStatusPending, result.PaymentStatus)
	assert.Equal(t, "COD-1-0001", result.TransactionID)

	require.Len(t, f.stock.reserved, 1)
	require.Len(t, f.stock.reserved[0], 1)
	assert.Equal(t, productID, f.stock.reserved[0][0].ProductID)
	assert.Equal(t, 2, f.stock.reserved[0][0].Quantity)
	assert.Equal(t, 1, f.carts.clearCount)
}

func TestCreateCapturesUnitPriceAtOrderTime(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	productID := f.seedProduct("19.99", 10)
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: 1})
	svc := f.service(t)

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment:         payments.Details{Method: "cashOnDelivery"},
	})
	require.NoError(t, err)

	// catalog price changes after checkout must not leak into the order
	f.reader.products[productID].Price = decimal.RequireFromString("99.99")

	view, err := svc.GetByID(context.Background(), Actor{UserID: userID}, result.Order.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "19.99", view.Items[0].UnitPrice)
}

func TestCreateEmptyCart(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	f.seedCart(userID)
	svc := f.service(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment:         payments.Details{Method: "card"},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "cart is empty", typed.Message())
	assert.Empty(t, f.stock.reserved)
	assert.Zero(t, f.carts.clearCount)
	assert.False(t, f.gateway.called)
}

func TestCreateMissingPaymentMethod(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	productID := f.seedProduct("10.00", 5)
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: 1})
	svc := f.service(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment:         payments.Details{},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.False(t, f.gateway.called)
}

func TestCreateIncompleteAddress(t *testing.T) {
	f := newFixture()
	svc := f.service(t)

	address := validAddress()
	address.Zip = ""
	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          uuid.New(),
		ShippingAddress: address,
		Payment:         payments.Details{Method: "card"},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreatePaymentDeclinedLeavesNoTrace(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	productID := f.seedProduct("50.00", 10)
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: 2})
	f.gateway.result = payments.Result{
		Success: false,
		Status:  enums.PaymentStatusFailed,
		Message: "Card payments require cardNumber, cvv, expiry and cardName",
	}
	svc := f.service(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment:         payments.Details{Method: "card", CardNumber: "4242424242424242"},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePaymentDeclined, typed.Code())
	assert.Equal(t, "Card payments require cardNumber, cvv, expiry and cardName", typed.Message())

	assert.Empty(t, f.repo.created)
	assert.Empty(t, f.stock.reserved)
	assert.Zero(t, f.carts.clearCount)
	require.NotNil(t, f.carts.record)
	assert.NotEmpty(t, f.carts.record.Items)
}

func TestCreatePaymentTimeout(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	productID := f.seedProduct("50.00", 10)
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: 1})
	f.gateway.err = context.DeadlineExceeded
	svc := f.service(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment:         payments.Details{Method: "cashOnDelivery"},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePaymentDeclined, typed.Code())
	assert.Empty(t, f.repo.created)
}

func TestCreateRedactsCardDetails(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	productID := f.seedProduct("50.00", 10)
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: 1})
	f.gateway.result = payments.Result{Success: true, Status: enums.PaymentStatusCompleted, TransactionID: "CARD-1-0001"}
	svc := f.service(t)

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment: payments.Details{
			Method:     "card",
			CardNumber: "4242424242424242",
			CVV:        "123",
			Expiry:     "12/30",
			CardName:   "Ada Lovelace",
		},
	})
	require.NoError(t, err)

	payment := result.Order.Payment
	assert.Equal(t, "4242", payment.CardLast4)
	assert.Equal(t, "Ada Lovelace", payment.CardName)
	assert.Equal(t, "CARD-1-0001", payment.TransactionID)
	assert.Empty(t, payment.WalletEmail)

	stored := f.repo.created[0].Payment
	assert.Equal(t, "4242", stored.CardLast4)
}

func TestCreateRedactsBankDetails(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	productID := f.seedProduct("50.00", 10)
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: productID, Quantity: 1})
	f.gateway.result = payments.Result{Success: true, Status: enums.PaymentStatusPending, TransactionID: "BANK-1-0001"}
	svc := f.service(t)

	result, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment: payments.Details{
			Method:        "bankTransfer",
			BankName:      "First National",
			AccountNumber: "000123456789",
			RoutingNumber: "110000000",
		},
	})
	require.NoError(t, err)

	payment := result.Order.Payment
	assert.Equal(t, "First National", payment.BankName)
	assert.Equal(t, "6789", payment.AccountLast4)
	assert.Equal(t, "110000000", payment.RoutingNumber)
}

func TestGetByIDOwnership(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	order := &models.Order{ID: uuid.New(), UserID: owner, Status: enums.OrderStatusProcessing}
	f.repo.orders[order.ID] = order
	svc := f.service(t)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, Actor{UserID: owner}, order.ID)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, Actor{UserID: uuid.New(), IsAdmin: true}, order.ID)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, Actor{UserID: uuid.New()}, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	_, err = svc.GetByID(ctx, Actor{UserID: owner}, uuid.New())
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	productID := uuid.New()
	order := &models.Order{
		ID:     uuid.New(),
		UserID: owner,
		Status: enums.OrderStatusProcessing,
		Items: []models.OrderLineItem{
			{ID: uuid.New(), ProductID: productID, Quantity: 2},
		},
	}
	f.repo.orders[order.ID] = order
	svc := f.service(t)

	view, err := svc.Cancel(context.Background(), Actor{UserID: owner}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, view.Status)

	require.Len(t, f.stock.restored, 1)
	require.Len(t, f.stock.restored[0], 1)
	assert.Equal(t, productID, f.stock.restored[0][0].ProductID)
	assert.Equal(t, 2, f.stock.restored[0][0].Quantity)

	// second attempt hits the terminal state
	_, err = svc.Cancel(context.Background(), Actor{UserID: owner}, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Len(t, f.stock.restored, 1)
}

func TestCancelRejectedStatuses(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			owner := uuid.New()
			order := &models.Order{
				ID:     uuid.New(),
				UserID: owner,
				Status: status,
				Items:  []models.OrderLineItem{{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1}},
			}
			f.repo.orders[order.ID] = order
			svc := f.service(t)

			_, err := svc.Cancel(context.Background(), Actor{UserID: owner}, order.ID)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
			assert.Empty(t, f.stock.restored)
		})
	}
}

func TestCancelStatusCaseInsensitive(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	order := &models.Order{
		ID:     uuid.New(),
		UserID: owner,
		Status: enums.OrderStatus("Shipped"),
	}
	f.repo.orders[order.ID] = order
	svc := f.service(t)

	_, err := svc.Cancel(context.Background(), Actor{UserID: owner}, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancelForbiddenForStranger(t *testing.T) {
	f := newFixture()
	order := &models.Order{ID: uuid.New(), UserID: uuid.New(), Status: enums.OrderStatusProcessing}
	f.repo.orders[order.ID] = order
	svc := f.service(t)

	_, err := svc.Cancel(context.Background(), Actor{UserID: uuid.New()}, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	// admins may cancel on behalf of the owner
	_, err = svc.Cancel(context.Background(), Actor{UserID: uuid.New(), IsAdmin: true}, order.ID)
	require.NoError(t, err)
}

func TestUpdateStatusShippedAssignsTracking(t *testing.T) {
	f := newFixture()
	order := &models.Order{ID: uuid.New(), UserID: uuid.New(), Status: enums.OrderStatusProcessing}
	f.repo.orders[order.ID] = order
	svc := f.service(t)

	view, err := svc.UpdateStatus(context.Background(), order.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, view.Status)
	require.NotNil(t, view.TrackingNumber)
	assert.Equal(t, fmt.Sprintf("NS%d", f.now.UnixMilli()), *view.TrackingNumber)
}

func TestUpdateStatusEnforcesTransitionTable(t *testing.T) {
	cases := []struct {
		from    enums.OrderStatus
		to      string
		allowed bool
	}{
		{enums.OrderStatusProcessing, "shipped", true},
		{enums.OrderStatusProcessing, "cancelled", true},
		{enums.OrderStatusProcessing, "delivered", false},
		{enums.OrderStatusShipped, "delivered", true},
		{enums.OrderStatusShipped, "processing", false},
		{enums.OrderStatusShipped, "cancelled", false},
		{enums.OrderStatusDelivered, "processing", false},
		{enums.OrderStatusCancelled, "processing", false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			f := newFixture()
			order := &models.Order{ID: uuid.New(), UserID: uuid.New(), Status: tc.from}
			f.repo.orders[order.ID] = order
			svc := f.service(t)

			_, err := svc.UpdateStatus(context.Background(), order.ID, tc.to)
			if tc.allowed {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				typed := pkgerrors.As(err)
				require.NotNil(t, typed)
				assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
			}
		})
	}
}

func TestUpdateStatusCancelledCompensatesStock(t *testing.T) {
	f := newFixture()
	productID := uuid.New()
	order := &models.Order{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: enums.OrderStatusProcessing,
		Items:  []models.OrderLineItem{{ID: uuid.New(), ProductID: productID, Quantity: 3}},
	}
	f.repo.orders[order.ID] = order
	svc := f.service(t)

	view, err := svc.UpdateStatus(context.Background(), order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, view.Status)
	require.Len(t, f.stock.restored, 1)
	assert.Equal(t, 3, f.stock.restored[0][0].Quantity)
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	f := newFixture()
	order := &models.Order{ID: uuid.New(), UserID: uuid.New(), Status: enums.OrderStatusProcessing}
	f.repo.orders[order.ID] = order
	svc := f.service(t)

	view, err := svc.UpdateStatus(context.Background(), order.ID, "processing")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, view.Status)
}

func TestUpdateStatusTerminalRepeatConflicts(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			order := &models.Order{ID: uuid.New(), UserID: uuid.New(), Status: status}
			f.repo.orders[order.ID] = order
			svc := f.service(t)

			_, err := svc.UpdateStatus(context.Background(), order.ID, string(status))
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
			assert.Empty(t, f.stock.restored)
		})
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	f := newFixture()
	order := &models.Order{ID: uuid.New(), UserID: uuid.New(), Status: enums.OrderStatusProcessing}
	f.repo.orders[order.ID] = order
	svc := f.service(t)

	_, err := svc.UpdateStatus(context.Background(), order.ID, "misplaced")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateMissingProductFailsBeforePayment(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	f.seedCart(userID, models.CartItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1})
	svc := f.service(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:          userID,
		ShippingAddress: validAddress(),
		Payment:         payments.Details{Method: "cashOnDelivery"},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.False(t, f.gateway.called)
	assert.Empty(t, f.repo.created)
}
