package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serranodev/quickcart-backend/internal/cart"
	"github.com/serranodev/quickcart-backend/internal/orders"
	"github.com/serranodev/quickcart-backend/internal/products"
	"github.com/serranodev/quickcart-backend/pkg/config"
	"github.com/serranodev/quickcart-backend/pkg/db/models"
	"github.com/serranodev/quickcart-backend/pkg/enums"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
	"github.com/serranodev/quickcart-backend/pkg/logger"
	"github.com/serranodev/quickcart-backend/pkg/outbox"
	"github.com/serranodev/quickcart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service converts a cart into an order atomically. The cart read, the order
// insert, and the cart delete share one transaction: no error branch leaves a
// partial order behind or a half-consumed cart.
type Service interface {
	PlaceOrder(ctx context.Context, ownerID uuid.UUID) (*orders.View, error)
}

type service struct {
	tx          txRunner
	cartRepo    cart.Repository
	ordersRepo  orders.Repository
	productRepo products.Repository
	outbox      outboxPublisher
	logg        *logger.Logger
	cfg         config.CheckoutConfig
}

// NewService builds the checkout coordinator.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	productRepo products.Repository,
	publisher outboxPublisher,
	logg *logger.Logger,
	cfg config.CheckoutConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		productRepo: productRepo,
		outbox:      publisher,
		logg:        logg,
		cfg:         cfg,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, ownerID uuid.UUID) (*orders.View, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	// Cheap pre-check so an empty or missing cart never opens a transaction.
	record, err := s.cartRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, emptyCartError()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(record.Items) == 0 {
		return nil, emptyCartError()
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		// Reload inside the transaction: a concurrent checkout may have
		// consumed the cart between the pre-check and here.
		record, err := cartRepo.FindByOwner(ctx, ownerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeConflict, "cart was consumed by a concurrent checkout")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return emptyCartError()
		}

		items, total, err := s.buildOrderItems(ctx, productRepo, record.Items)
		if err != nil {
			return err
		}

		order := &models.Order{
			OwnerID:         ownerID,
			Status:          enums.OrderStatusPending,
			TotalCents:      total,
			PlacedAt:        time.Now().UTC(),
			ShippingAddress: record.ShippingAddress,
			PaymentMethod:   record.PaymentMethod,
			Items:           items,
		}
		created, err = ordersRepo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		affected, err := cartRepo.DeleteByOwner(ctx, ownerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart was consumed by a concurrent checkout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The order-placed signal rides outside the checkout transaction: its
	// failure must never roll back a committed order.
	s.emitOrderPlaced(ctx, created)

	view := orders.Materialize(*created, orders.CatalogSnapshot{})
	return &view, nil
}

func (s *service) buildOrderItems(ctx context.Context, productRepo products.Repository, cartItems []models.CartItem) ([]models.OrderItem, int, error) {
	ids := make([]uuid.UUID, 0, len(cartItems))
	for _, item := range cartItems {
		ids = append(ids, item.ProductID)
	}
	resolved, err := productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart products")
	}
	byID := make(map[uuid.UUID]models.Product, len(resolved))
	for _, product := range resolved {
		byID[product.ID] = product
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	total := 0
	for _, item := range cartItems {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "cart references a product that no longer exists").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}

		line := models.OrderItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		}
		if product.PriceCents <= 0 {
			if s.cfg.RequirePrice {
				return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product has no catalog price").
					WithDetails(map[string]any{"product_id": product.ID.String()})
			}
			// Priceless items contribute zero and are flagged so the read
			// side can repair the displayed total later.
			note := "missing catalog price at checkout"
			line.Notes = &note
		}
		total += line.UnitPriceCents * line.Quantity
		items = append(items, line)
	}
	return items, total, nil
}

func (s *service) emitOrderPlaced(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: order.OwnerID, Role: enums.MemberRoleCustomer.String()},
		OccurredAt:    order.PlacedAt,
		Data: payloads.OrderPlacedEvent{
			OrderID:    order.ID,
			OwnerID:    order.OwnerID,
			TotalCents: order.TotalCents,
			ItemCount:  len(order.Items),
			PlacedAt:   order.PlacedAt,
		},
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String()})
		s.logg.Error(logCtx, "queue order placed event", err)
	}
}

func emptyCartError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
}
