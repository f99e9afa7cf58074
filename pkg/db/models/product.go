package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry. Its price is authoritative only until checkout
// snapshots it into an order line item.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	Category    string     `gorm:"column:category;not null;default:''"`
	PriceCents  int        `gorm:"column:price_cents;not null;default:0"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
