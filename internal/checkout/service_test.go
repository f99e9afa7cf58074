package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	"github.com/serranodev/quickcart-backend/pkg/pagination"
)

func TestPlaceOrderFreezesCatalogPrices(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	cartRepo := &stubCartRepo{
		cart: &models.Cart{
			ID:      uuid.New(),
			OwnerID: ownerID,
			Items: []models.CartItem{
				{ProductID: productA, Quantity: 2},
				{ProductID: productB, Quantity: 1},
			},
		},
	}
	productRepo := &stubProductRepo{
		products: map[uuid.UUID]models.Product{
			productA: {ID: productA, Name: "Mug", PriceCents: 500},
			productB: {ID: productB, Name: "Kettle", PriceCents: 2000},
		},
	}
	ordersRepo := &stubOrdersRepo{}
	publisher := &stubOutboxPublisher{}

	svc := newCheckoutService(t, cartRepo, ordersRepo, productRepo, publisher, config.CheckoutConfig{})

	view, err := svc.PlaceOrder(context.Background(), ownerID)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, enums.OrderStatusPending, view.Status)
	assert.Equal(t, 3000, view.TotalCents)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 500, view.Items[0].UnitPriceCents)
	assert.Equal(t, 1000, view.Items[0].LineTotalCents)
	assert.Equal(t, "Mug", view.Items[0].ProductName)

	require.NotNil(t, ordersRepo.created)
	assert.Equal(t, ownerID, ordersRepo.created.OwnerID)
	assert.Equal(t, 1, cartRepo.deletes, "cart must be consumed")

	require.Len(t, publisher.events, 1)
	assert.Equal(t, enums.EventOrderPlaced, publisher.events[0].EventType)
}

func TestPlaceOrderEmptyCartOpensNoTransaction(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	cartRepo := &stubCartRepo{cart: &models.Cart{ID: uuid.New(), OwnerID: ownerID}}
	ordersRepo := &stubOrdersRepo{}
	tx := &countingTxRunner{}

	svc, err := NewService(tx, cartRepo, ordersRepo, &stubProductRepo{}, &stubOutboxPublisher{}, testLogger(), config.CheckoutConfig{})
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), ownerID)
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Zero(t, tx.calls, "empty cart must not open a transaction")
	assert.Nil(t, ordersRepo.created)
}

func TestPlaceOrderMissingCart(t *testing.T) {
	t.Parallel()

	svc := newCheckoutService(t, &stubCartRepo{}, &stubOrdersRepo{}, &stubProductRepo{}, &stubOutboxPublisher{}, config.CheckoutConfig{})

	_, err := svc.PlaceOrder(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestPlaceOrderAbortsWhenProductVanished(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	gone := uuid.New()
	cartRepo := &stubCartRepo{
		cart: &models.Cart{
			ID:      uuid.New(),
			OwnerID: ownerID,
			Items:   []models.CartItem{{ProductID: gone, Quantity: 1}},
		},
	}
	ordersRepo := &stubOrdersRepo{}

	svc := newCheckoutService(t, cartRepo, ordersRepo, &stubProductRepo{}, &stubOutboxPublisher{}, config.CheckoutConfig{})

	_, err := svc.PlaceOrder(context.Background(), ownerID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	details, ok := coded.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, gone.String(), details["product_id"])

	assert.Nil(t, ordersRepo.created, "no partial order may survive")
	assert.Zero(t, cartRepo.deletes, "cart must stay intact")
}

func TestPlaceOrderConcurrentConsumptionIsRetryable(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	productID := uuid.New()
	cartRepo := &stubCartRepo{
		cart: &models.Cart{
			ID:      uuid.New(),
			OwnerID: ownerID,
			Items:   []models.CartItem{{ProductID: productID, Quantity: 1}},
		},
		deleteAffects: new(int64),
	}
	productRepo := &stubProductRepo{
		products: map[uuid.UUID]models.Product{
			productID: {ID: productID, Name: "Mug", PriceCents: 500},
		},
	}

	svc := newCheckoutService(t, cartRepo, &stubOrdersRepo{}, productRepo, &stubOutboxPublisher{}, config.CheckoutConfig{})

	_, err := svc.PlaceOrder(context.Background(), ownerID)
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestPlaceOrderRequirePricePolicy(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	productID := uuid.New()
	buildRepos := func() (*stubCartRepo, *stubProductRepo) {
		cartRepo := &stubCartRepo{
			cart: &models.Cart{
				ID:      uuid.New(),
				OwnerID: ownerID,
				Items:   []models.CartItem{{ProductID: productID, Quantity: 3}},
			},
		}
		productRepo := &stubProductRepo{
			products: map[uuid.UUID]models.Product{
				productID: {ID: productID, Name: "Sticker", PriceCents: 0},
			},
		}
		return cartRepo, productRepo
	}

	t.Run("strict mode rejects priceless products", func(t *testing.T) {
		t.Parallel()
		cartRepo, productRepo := buildRepos()
		svc := newCheckoutService(t, cartRepo, &stubOrdersRepo{}, productRepo, &stubOutboxPublisher{}, config.CheckoutConfig{RequirePrice: true})

		_, err := svc.PlaceOrder(context.Background(), ownerID)
		requireCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("lenient mode records a zero price line", func(t *testing.T) {
		t.Parallel()
		cartRepo, productRepo := buildRepos()
		ordersRepo := &stubOrdersRepo{}
		svc := newCheckoutService(t, cartRepo, ordersRepo, productRepo, &stubOutboxPublisher{}, config.CheckoutConfig{})

		view, err := svc.PlaceOrder(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, 0, view.TotalCents)

		require.NotNil(t, ordersRepo.created)
		require.Len(t, ordersRepo.created.Items, 1)
		require.NotNil(t, ordersRepo.created.Items[0].Notes)
	})
}

func TestPlaceOrderSurvivesOutboxFailure(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	productID := uuid.New()
	cartRepo := &stubCartRepo{
		cart: &models.Cart{
			ID:      uuid.New(),
			OwnerID: ownerID,
			Items:   []models.CartItem{{ProductID: productID, Quantity: 1}},
		},
	}
	productRepo := &stubProductRepo{
		products: map[uuid.UUID]models.Product{
			productID: {ID: productID, Name: "Mug", PriceCents: 500},
		},
	}
	publisher := &stubOutboxPublisher{err: errors.New("broker down")}

	svc := newCheckoutService(t, cartRepo, &stubOrdersRepo{}, productRepo, publisher, config.CheckoutConfig{})

	view, err := svc.PlaceOrder(context.Background(), ownerID)
	require.NoError(t, err, "outbox failure must not roll back the order")
	assert.Equal(t, 500, view.TotalCents)
}

func newCheckoutService(t *testing.T, cartRepo cart.Repository, ordersRepo orders.Repository, productRepo products.Repository, publisher outboxPublisher, cfg config.CheckoutConfig) Service {
	t.Helper()
	svc, err := NewService(stubTxRunner{}, cartRepo, ordersRepo, productRepo, publisher, testLogger(), cfg)
	require.NoError(t, err)
	return svc
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, code, coded.Code())
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type countingTxRunner struct {
	calls int
}

func (c *countingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	c.calls++
	return fn(nil)
}

type stubCartRepo struct {
	cart          *models.Cart
	deletes       int
	deleteAffects *int64
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCartRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	if s.cart == nil || s.cart.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCartRepo) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	s.cart = record
	return record, nil
}

func (s *stubCartRepo) UpsertItem(ctx context.Context, item *models.CartItem) error { return nil }

func (s *stubCartRepo) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (int64, error) {
	return 1, nil
}

func (s *stubCartRepo) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (int64, error) {
	return 1, nil
}

func (s *stubCartRepo) UpdateMeta(ctx context.Context, cartID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubCartRepo) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	s.deletes++
	if s.deleteAffects != nil {
		return *s.deleteAffects, nil
	}
	s.cart = nil
	return 1, nil
}

type stubProductRepo struct {
	products map[uuid.UUID]models.Product
}

func (s *stubProductRepo) WithTx(tx *gorm.DB) products.Repository { return s }

func (s *stubProductRepo) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	return product, nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubProductRepo) List(ctx context.Context, params pagination.Params, filters products.ListFilters) ([]models.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubProductRepo) SoftDelete(ctx context.Context, id uuid.UUID) error { return nil }

type stubOrdersRepo struct {
	created *models.Order
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.created != nil && s.created.ID == id {
		return s.created, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) ListByAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) ListUnassigned(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubOrdersRepo) AssignAgent(ctx context.Context, id, agentID uuid.UUID) error { return nil }

func (s *stubOrdersRepo) UpdateTracking(ctx context.Context, id uuid.UUID, tracking string) error {
	return nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}
