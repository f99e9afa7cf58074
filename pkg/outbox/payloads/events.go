package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/enums"
)

// OrderPlacedEvent signals a cart successfully converted into an order.
type OrderPlacedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	TotalCents int       `json:"total_cents"`
	ItemCount  int       `json:"item_count"`
	PlacedAt   time.Time `json:"placed_at"`
}

// OrderStateChangedEvent is emitted on every legal status transition.
type OrderStateChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	OwnerID uuid.UUID         `json:"owner_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

// OrderCancelledEvent is emitted when the owner cancels a pending order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}
