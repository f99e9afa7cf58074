package cart

import (
	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/enums"
	"github.com/serranodev/quickcart-backend/pkg/types"
)

// AddItemInput carries a product reference plus a positive quantity.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// UpdateItemInput sets the absolute quantity for an existing line item.
type UpdateItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// UpdateMetaInput patches the checkout metadata kept on the cart.
type UpdateMetaInput struct {
	ShippingAddress *types.Address
	PaymentMethod   *enums.PaymentMethod
}

// ItemView is one resolved cart line returned to clients.
type ItemView struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	PriceCents  int       `json:"price_cents"`
	Quantity    int       `json:"quantity"`
}

// View is the cart projection returned by reads.
type View struct {
	ID              uuid.UUID            `json:"id"`
	OwnerID         uuid.UUID            `json:"owner_id"`
	Items           []ItemView           `json:"items"`
	SubtotalCents   int                  `json:"subtotal_cents"`
	ShippingAddress *types.Address       `json:"shipping_address,omitempty"`
	PaymentMethod   *enums.PaymentMethod `json:"payment_method,omitempty"`
}
