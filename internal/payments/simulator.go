package payments

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/novashop/novashop-backend/pkg/config"
	"github.com/novashop/novashop-backend/pkg/enums"
)

// Details carries the raw payment input from checkout. Sensitive fields
// stay in memory only; redaction happens before anything is persisted.
type Details struct {
	Method string `json:"method" validate:"required"`

	CardNumber string `json:"cardNumber,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CardName   string `json:"cardName,omitempty"`

	WalletType  string `json:"walletType,omitempty"`
	WalletEmail string `json:"walletEmail,omitempty"`

	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	RoutingNumber string `json:"routingNumber,omitempty"`
}

// Result is the advisory outcome of a simulated authorization. It carries a
// transaction id only when the authorization succeeded.
type Result struct {
	Success       bool
	Status        enums.PaymentStatus
	TransactionID string
	Message       string
}

// Simulator performs a bounded-latency fake authorization. It never touches
// orders or inventory.
type Simulator interface {
	Authorize(ctx context.Context, details Details) (Result, error)
}

type simulator struct {
	minLatency time.Duration
	maxLatency time.Duration
	now        func() time.Time
	intn       func(n int) int
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option overrides a simulator dependency, used by tests to pin time and
// randomness and to skip the latency delay.
type Option func(*simulator)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *simulator) { s.now = now }
}

// WithRand replaces the random source.
func WithRand(intn func(n int) int) Option {
	return func(s *simulator) { s.intn = intn }
}

// WithSleep replaces the latency delay.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *simulator) { s.sleep = sleep }
}

// NewSimulator builds a Simulator from gateway config.
func NewSimulator(cfg config.PaymentConfig, opts ...Option) Simulator {
	s := &simulator{
		minLatency: cfg.MinLatency,
		maxLatency: cfg.MaxLatency,
		now:        time.Now,
		intn:       rand.Intn,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *simulator) Authorize(ctx context.Context, details Details) (Result, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return Result{}, err
	}

	method := enums.PaymentMethod(strings.TrimSpace(details.Method))
	if !method.IsValid() {
		return Result{
			Success: false,
			Status:  enums.PaymentStatusFailed,
			Message: "Unknown payment method",
		}, nil
	}

	if msg, ok := validateDetails(method, details); !ok {
		return Result{
			Success: false,
			Status:  enums.PaymentStatusFailed,
			Message: msg,
		}, nil
	}

	status := enums.PaymentStatusCompleted
	if method == enums.PaymentMethodBankTransfer || method == enums.PaymentMethodCashOnDelivery {
		status = enums.PaymentStatusPending
	}

	return Result{
		Success:       true,
		Status:        status,
		TransactionID: s.mintTransactionID(method),
		Message:       "authorized",
	}, nil
}

func validateDetails(method enums.PaymentMethod, details Details) (string, bool) {
	switch method {
	case enums.PaymentMethodCard:
		if anyBlank(details.CardNumber, details.CVV, details.Expiry, details.CardName) {
			return "Card payments require cardNumber, cvv, expiry and cardName", false
		}
	case enums.PaymentMethodDigitalWallet:
		if anyBlank(details.WalletType, details.WalletEmail) {
			return "Digital wallet payments require walletType and walletEmail", false
		}
	case enums.PaymentMethodBankTransfer:
		if anyBlank(details.BankName, details.AccountNumber, details.RoutingNumber) {
			return "Bank transfers require bankName, accountNumber and routingNumber", false
		}
	case enums.PaymentMethodCashOnDelivery:
		// nothing beyond the method itself
	}
	return "", true
}

func anyBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func (s *simulator) mintTransactionID(method enums.PaymentMethod) string {
	return fmt.Sprintf("%s-%d-%04d", method.TransactionPrefix(), s.now().UnixMilli(), s.intn(10000))
}

func (s *simulator) simulateLatency(ctx context.Context) error {
	if s.maxLatency <= 0 {
		return nil
	}
	delay := s.minLatency
	if spread := s.maxLatency - s.minLatency; spread > 0 {
		delay += time.Duration(s.intn(int(spread)))
	}
	return s.sleep(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
