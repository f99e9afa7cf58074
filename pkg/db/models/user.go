package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/enums"
)

// User is an authenticated account: customer, delivery agent, or admin.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FullName     string           `gorm:"column:full_name;not null"`
	Role         enums.MemberRole `gorm:"column:role;type:text;not null;default:'customer'"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
