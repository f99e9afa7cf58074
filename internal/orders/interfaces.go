package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serranodev/quickcart-backend/pkg/db/models"
	"github.com/serranodev/quickcart-backend/pkg/pagination"
)

// Repository defines persistence operations for the order tables. Status is
// never written through generic updates; UpdateStatus is the only writer and
// is reachable only through the service transition path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListUnassigned(ctx context.Context, params pagination.Params) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AssignAgent(ctx context.Context, id, agentID uuid.UUID) error
	UpdateTracking(ctx context.Context, id uuid.UUID, tracking string) error
}
