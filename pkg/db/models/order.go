package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/enums"
	"github.com/serranodev/quickcart-backend/pkg/types"
)

// Order is the immutable record produced by checkout. After creation only
// Status and DeliveryTracking may change, and only through the orders
// service transition path.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID          uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index"`
	Status           enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalCents       int                  `gorm:"column:total_cents;not null"`
	PlacedAt         time.Time            `gorm:"column:placed_at;not null"`
	AssignedAgentID  *uuid.UUID           `gorm:"column:assigned_agent_id;type:uuid;index"`
	ShippingAddress  *types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod    *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	DeliveryTracking *string              `gorm:"column:delivery_tracking"`
	CancelledAt      *time.Time           `gorm:"column:cancelled_at"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
