package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/novashop/novashop-backend/internal/inventory"
	"github.com/novashop/novashop-backend/internal/payments"
	"github.com/novashop/novashop-backend/pkg/config"
	"github.com/novashop/novashop-backend/pkg/db/models"
	"github.com/novashop/novashop-backend/pkg/enums"
	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
	"github.com/novashop/novashop-backend/pkg/logger"
	"github.com/novashop/novashop-backend/pkg/metrics"
	"github.com/novashop/novashop-backend/pkg/pagination"
	"github.com/novashop/novashop-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// cartStore is the checkout-facing cart surface.
type cartStore interface {
	LoadForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.CartRecord, error)
	Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

// productReader resolves catalog prices and names at order time.
type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// paymentAuthorizer is the simulated gateway.
type paymentAuthorizer interface {
	Authorize(ctx context.Context, details payments.Details) (payments.Result, error)
}

// stockAdjuster applies best-effort batch stock mutations.
type stockAdjuster interface {
	ReserveLines(ctx context.Context, tx *gorm.DB, lines []inventory.Line) inventory.Report
	RestoreLines(ctx context.Context, tx *gorm.DB, lines []inventory.Line) inventory.Report
}

// Service is the order lifecycle: checkout, reads, the status state
// machine, and cancellation compensation. All order mutations flow
// through it.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CheckoutResult, error)
	GetByID(ctx context.Context, actor Actor, orderID uuid.UUID) (*View, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*List, error)
	ListAll(ctx context.Context, params pagination.Params) (*List, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*View, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) (*View, error)
}

type service struct {
	repo           Repository
	tx             txRunner
	carts          cartStore
	products       productReader
	gateway        paymentAuthorizer
	stock          stockAdjuster
	logg           *logger.Logger
	checkout       *metrics.CheckoutMetrics
	shippingFee    decimal.Decimal
	taxRate        decimal.Decimal
	paymentTimeout time.Duration
	now            func() time.Time
}

// Option overrides a service dependency.
type Option func(*service)

// WithClock replaces the wall clock used for tracking numbers.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithMetrics attaches checkout metrics.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *service) { s.checkout = m }
}

// NewService builds the order lifecycle service.
func NewService(
	repo Repository,
	tx txRunner,
	carts cartStore,
	productsRepo productReader,
	gateway paymentAuthorizer,
	stock stockAdjuster,
	checkoutCfg config.CheckoutConfig,
	paymentCfg config.PaymentConfig,
	logg *logger.Logger,
	opts ...Option,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products reader required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment authorizer required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}

	shippingFee, err := decimal.NewFromString(checkoutCfg.ShippingFlatFee)
	if err != nil {
		return nil, fmt.Errorf("invalid shipping fee %q: %w", checkoutCfg.ShippingFlatFee, err)
	}
	taxRate, err := decimal.NewFromString(checkoutCfg.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid tax rate %q: %w", checkoutCfg.TaxRate, err)
	}

	s := &service{
		repo:           repo,
		tx:             tx,
		carts:          carts,
		products:       productsRepo,
		gateway:        gateway,
		stock:          stock,
		logg:           logg,
		shippingFee:    shippingFee,
		taxRate:        taxRate,
		paymentTimeout: paymentCfg.Timeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type pricedLine struct {
	item    models.CartItem
	product *models.Product
	total   decimal.Decimal
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CheckoutResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if field, ok := input.ShippingAddress.Validate(); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"field": field})
	}
	if strings.TrimSpace(input.Payment.Method) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	record, err := s.carts.LoadForUser(ctx, nil, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// Prices are captured now; later catalog changes never alter this order.
	lines, subtotal, err := s.priceCart(ctx, record.Items)
	if err != nil {
		return nil, err
	}

	result, err := s.authorizePayment(ctx, input.Payment)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		if s.checkout != nil {
			s.checkout.IncPaymentDeclined(input.Payment.Method)
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, result.Message)
	}

	tax := subtotal.Mul(s.taxRate).Round(2)
	total := subtotal.Add(s.shippingFee).Add(tax)

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          input.UserID,
		ShippingAddress: input.ShippingAddress,
		Payment:         redactPayment(input.Payment, result),
		Subtotal:        subtotal,
		Tax:             tax,
		ShippingCost:    s.shippingFee,
		Total:           total,
		Status:          enums.OrderStatusProcessing,
	}
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderLineItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.item.ProductID,
			Name:      line.product.Name,
			Quantity:  line.item.Quantity,
			UnitPrice: line.product.Price,
			Size:      line.item.Size,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}

		report := s.stock.ReserveLines(ctx, tx, stockLines(order.Items))
		if reportErr := report.Err(); reportErr != nil {
			s.logReport(ctx, order.ID, "stock decrement incomplete", reportErr)
		}

		if err := s.carts.Clear(ctx, tx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.checkout != nil {
		s.checkout.IncOrderPlaced(input.Payment.Method)
	}

	return &CheckoutResult{
		Order:         viewFromModel(order),
		PaymentStatus: result.Status,
		TransactionID: result.TransactionID,
	}, nil
}

func (s *service) GetByID(ctx context.Context, actor Actor, orderID uuid.UUID) (*View, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != actor.UserID && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to requester")
	}
	return viewFromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*List, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, next, err := s.repo.FindByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildList(rows, next), nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*List, error) {
	rows, next, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildList(rows, next), nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*View, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var view *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != actor.UserID && !actor.IsAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to requester")
		}

		// Stored statuses from older records vary in case.
		current, err := enums.ParseOrderStatus(string(order.Status))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order status corrupt")
		}
		if current != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": current})
		}

		report := s.stock.RestoreLines(ctx, tx, stockLines(order.Items))
		if reportErr := report.Err(); reportErr != nil {
			s.logReport(ctx, order.ID, "stock restore incomplete", reportErr)
		}

		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		order.Status = enums.OrderStatusCancelled
		view = viewFromModel(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, rawStatus string) (*View, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	target, err := enums.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": rawStatus})
	}

	var view *View
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		current, err := enums.ParseOrderStatus(string(order.Status))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order status corrupt")
		}
		if current == target {
			// Repeating a terminal write is a conflict, matching the
			// customer cancel path; in-flight repeats are no-ops.
			if current.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
					WithDetails(map[string]any{"from": current, "to": target})
			}
			view = viewFromModel(order)
			return nil
		}
		if !current.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
				WithDetails(map[string]any{"from": current, "to": target})
		}

		var trackingNumber *string
		if target == enums.OrderStatusShipped {
			tracking := fmt.Sprintf("NS%d", s.now().UnixMilli())
			trackingNumber = &tracking
		}

		// Cancellation through this entry point compensates exactly like
		// the customer-facing cancel.
		if target == enums.OrderStatusCancelled {
			report := s.stock.RestoreLines(ctx, tx, stockLines(order.Items))
			if reportErr := report.Err(); reportErr != nil {
				s.logReport(ctx, order.ID, "stock restore incomplete", reportErr)
			}
		}

		if err := repo.UpdateStatus(ctx, order.ID, target, trackingNumber); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		order.Status = target
		if trackingNumber != nil {
			order.TrackingNumber = trackingNumber
		}
		view = viewFromModel(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) priceCart(ctx context.Context, items []models.CartItem) ([]pricedLine, decimal.Decimal, error) {
	lines := make([]pricedLine, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available").
					WithDetails(map[string]any{"productId": item.ProductID})
			}
			return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, pricedLine{item: item, product: product, total: lineTotal})
		subtotal = subtotal.Add(lineTotal)
	}
	return lines, subtotal, nil
}

func (s *service) authorizePayment(ctx context.Context, details payments.Details) (payments.Result, error) {
	authCtx := ctx
	if s.paymentTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, s.paymentTimeout)
		defer cancel()
	}

	started := s.now()
	result, err := s.gateway.Authorize(authCtx, details)
	if s.checkout != nil {
		s.checkout.ObservePaymentDuration(details.Method, s.now().Sub(started))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return payments.Result{}, pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, "payment authorization timed out")
		}
		return payments.Result{}, pkgerrors.Wrap(pkgerrors.CodePaymentDeclined, err, "payment authorization failed")
	}
	return result, nil
}

func stockLines(items []models.OrderLineItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func buildList(rows []models.Order, next *string) *List {
	list := &List{Orders: make([]View, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Orders = append(list.Orders, *viewFromModel(&rows[i]))
	}
	return list
}

func (s *service) logReport(ctx context.Context, orderID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithField(ctx, "error", err.Error())
	s.logg.Warn(ctx, msg)
}

func redactPayment(details payments.Details, result payments.Result) types.PaymentRecord {
	record := types.PaymentRecord{
		Method:        enums.PaymentMethod(details.Method),
		Status:        result.Status,
		TransactionID: result.TransactionID,
	}
	switch enums.PaymentMethod(details.Method) {
	case enums.PaymentMethodCard:
		record.CardLast4 = lastFour(details.CardNumber)
		record.CardName = details.CardName
	case enums.PaymentMethodDigitalWallet:
		record.WalletType = details.WalletType
		record.WalletEmail = details.WalletEmail
	case enums.PaymentMethodBankTransfer:
		record.BankName = details.BankName
		record.AccountLast4 = lastFour(details.AccountNumber)
		record.RoutingNumber = details.RoutingNumber
	}
	return record
}

func lastFour(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) <= 4 {
		return trimmed
	}
	return trimmed[len(trimmed)-4:]
}
