package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/enums"
	"github.com/serranodev/quickcart-backend/pkg/types"
)

// Actor carries the authenticated identity and role threaded into every
// order operation. The service trusts this context; it never re-authenticates.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// TransitionInput requests one status change on one order.
type TransitionInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Target  enums.OrderStatus
}

// AssignAgentInput attaches a delivery agent to an order.
type AssignAgentInput struct {
	OrderID uuid.UUID
	AgentID uuid.UUID
	Actor   Actor
}

// TrackingInput sets the delivery tracking reference on an order.
type TrackingInput struct {
	OrderID  uuid.UUID
	Tracking string
	Actor    Actor
}

// ItemView is one frozen order line, with its display price repaired when
// the stored snapshot is absent.
type ItemView struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
	PriceRepaired  bool      `json:"price_repaired,omitempty"`
}

// View is the read-side order projection. TotalCents may differ from the
// stored aggregate when read-repair recomputed it; the stored row is never
// rewritten.
type View struct {
	ID               uuid.UUID            `json:"id"`
	OwnerID          uuid.UUID            `json:"owner_id"`
	Status           enums.OrderStatus    `json:"status"`
	TotalCents       int                  `json:"total_cents"`
	TotalRepaired    bool                 `json:"total_repaired,omitempty"`
	PlacedAt         time.Time            `json:"placed_at"`
	AssignedAgentID  *uuid.UUID           `json:"assigned_agent_id,omitempty"`
	ShippingAddress  *types.Address       `json:"shipping_address,omitempty"`
	PaymentMethod    *enums.PaymentMethod `json:"payment_method,omitempty"`
	DeliveryTracking *string              `json:"delivery_tracking,omitempty"`
	CancelledAt      *time.Time           `json:"cancelled_at,omitempty"`
	DeliveredAt      *time.Time           `json:"delivered_at,omitempty"`
	Items            []ItemView           `json:"items"`
}

// TrackingView is the delivery status slice served to the order owner.
type TrackingView struct {
	OrderID          uuid.UUID         `json:"order_id"`
	Status           enums.OrderStatus `json:"status"`
	DeliveryTracking *string           `json:"delivery_tracking,omitempty"`
	DeliveredAt      *time.Time        `json:"delivered_at,omitempty"`
}

// List wraps paginated orders plus the next page cursor.
type List struct {
	Orders     []View `json:"orders"`
	NextCursor string `json:"next_cursor,omitempty"`
}
