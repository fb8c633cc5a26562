package enums

import "fmt"

// PaymentMethod describes how a customer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodDigitalWallet  PaymentMethod = "digitalWallet"
	PaymentMethodBankTransfer   PaymentMethod = "bankTransfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cashOnDelivery"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodDigitalWallet,
	PaymentMethodBankTransfer,
	PaymentMethodCashOnDelivery,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// TransactionPrefix returns the prefix used when minting transaction ids.
func (p PaymentMethod) TransactionPrefix() string {
	switch p {
	case PaymentMethodCard:
		return "CARD"
	case PaymentMethodDigitalWallet:
		return "WALLET"
	case PaymentMethodBankTransfer:
		return "BANK"
	case PaymentMethodCashOnDelivery:
		return "COD"
	default:
		return ""
	}
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
