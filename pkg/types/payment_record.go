package types

import "github.com/novashop/novashop-backend/pkg/enums"

// PaymentRecord is the redacted payment snapshot persisted on an order.
// Raw card numbers, CVVs and expiries never reach storage; only
// non-sensitive derivatives (last four digits, holder name) survive.
type PaymentRecord struct {
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID string              `json:"transactionId,omitempty"`

	CardLast4 string `json:"cardLast4,omitempty"`
	CardName  string `json:"cardName,omitempty"`

	WalletType  string `json:"walletType,omitempty"`
	WalletEmail string `json:"walletEmail,omitempty"`

	BankName     string `json:"bankName,omitempty"`
	AccountLast4 string `json:"accountLast4,omitempty"`
	// Routing numbers are public bank identifiers, stored in full.
	RoutingNumber string `json:"routingNumber,omitempty"`
}
