package products

import (
	"time"

	"github.com/google/uuid"
)

// ListFilters describe the inputs supported by the catalog list.
type ListFilters struct {
	Category   string
	ActiveOnly bool
}

// CreateProductInput carries the fields accepted when adding a catalog entry.
type CreateProductInput struct {
	Name        string
	Description *string
	Category    string
	PriceCents  int
	Active      *bool
}

// UpdateProductInput carries the patchable catalog fields.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	PriceCents  *int
	Active      *bool
}

// ProductView is the catalog projection returned by list/detail reads.
type ProductView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Category    string    `json:"category"`
	PriceCents  int       `json:"price_cents"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductList wraps the paginated catalog plus the next page cursor.
type ProductList struct {
	Products   []ProductView `json:"products"`
	NextCursor string        `json:"next_cursor,omitempty"`
}
