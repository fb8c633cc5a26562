package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/novashop/novashop-backend/internal/payments"
	"github.com/novashop/novashop-backend/pkg/db/models"
	"github.com/novashop/novashop-backend/pkg/enums"
	"github.com/novashop/novashop-backend/pkg/types"
)

// Actor identifies the caller for ownership and privilege checks. Identity
// is resolved upstream; it is never re-derived here.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CreateInput carries everything checkout needs.
type CreateInput struct {
	UserID          uuid.UUID
	ShippingAddress types.ShippingAddress
	Payment         payments.Details
}

// LineItemView is one order line in API responses.
type LineItemView struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unitPrice"`
	Size      *string   `json:"size,omitempty"`
}

// View is the order read model.
type View struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"userId"`
	Items           []LineItemView        `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	Payment         types.PaymentRecord   `json:"payment"`
	Subtotal        string                `json:"subtotal"`
	Tax             string                `json:"tax"`
	ShippingCost    string                `json:"shippingCost"`
	Total           string                `json:"total"`
	Status          enums.OrderStatus     `json:"status"`
	TrackingNumber  *string               `json:"trackingNumber,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// CheckoutResult is the creation response; payment status and transaction
// id are surfaced alongside the order for the storefront.
type CheckoutResult struct {
	Order         *View               `json:"order"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	TransactionID string              `json:"transactionId,omitempty"`
}

// List is a cursor-paginated page of orders, newest first.
type List struct {
	Orders     []View  `json:"orders"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

func viewFromModel(order *models.Order) *View {
	items := make([]LineItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Size:      item.Size,
		})
	}
	return &View{
		ID:              order.ID,
		UserID:          order.UserID,
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		Payment:         order.Payment,
		Subtotal:        order.Subtotal.StringFixed(2),
		Tax:             order.Tax.StringFixed(2),
		ShippingCost:    order.ShippingCost.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		Status:          order.Status,
		TrackingNumber:  order.TrackingNumber,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
