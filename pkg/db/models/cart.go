package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/enums"
	"github.com/serranodev/quickcart-backend/pkg/types"
)

// Cart is the single mutable line-item collection owned by one user. The
// unique index on owner_id enforces the one-cart-per-user invariant; the
// checkout coordinator deletes the whole record inside its transaction.
type Cart struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID         uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	ShippingAddress *types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod   *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	Items           []CartItem           `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
