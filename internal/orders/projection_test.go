package orders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serranodev/quickcart-backend/pkg/db/models"
	"github.com/serranodev/quickcart-backend/pkg/enums"
)

func TestMaterializeRepairsMissingPrices(t *testing.T) {
	t.Parallel()

	legacyProduct := uuid.New()
	pricedProduct := uuid.New()
	order := models.Order{
		ID:         uuid.New(),
		OwnerID:    uuid.New(),
		Status:     enums.OrderStatusDelivered,
		TotalCents: 0,
		PlacedAt:   time.Now().UTC(),
		Items: []models.OrderItem{
			{ProductID: legacyProduct, ProductName: "Lamp", Quantity: 2, UnitPriceCents: 0},
			{ProductID: pricedProduct, ProductName: "Desk", Quantity: 1, UnitPriceCents: 4000},
		},
	}

	view := Materialize(order, CatalogSnapshot{legacyProduct: 1500})

	require.Len(t, view.Items, 2)
	assert.Equal(t, 1500, view.Items[0].UnitPriceCents)
	assert.True(t, view.Items[0].PriceRepaired)
	assert.Equal(t, 3000, view.Items[0].LineTotalCents)
	assert.False(t, view.Items[1].PriceRepaired)

	assert.Equal(t, 7000, view.TotalCents)
	assert.True(t, view.TotalRepaired)

	// Repair is presentation only.
	assert.Equal(t, 0, order.TotalCents)
	assert.Equal(t, 0, order.Items[0].UnitPriceCents)
}

func TestMaterializeLeavesHealthyOrdersAlone(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	order := models.Order{
		ID:         uuid.New(),
		Status:     enums.OrderStatusPending,
		TotalCents: 1000,
		Items: []models.OrderItem{
			{ProductID: productID, ProductName: "Mug", Quantity: 2, UnitPriceCents: 500},
		},
	}

	view := Materialize(order, CatalogSnapshot{})

	assert.Equal(t, 1000, view.TotalCents)
	assert.False(t, view.TotalRepaired)
	assert.False(t, view.Items[0].PriceRepaired)
}

func TestMaterializeWithoutCatalogMatch(t *testing.T) {
	t.Parallel()

	order := models.Order{
		ID:         uuid.New(),
		TotalCents: 0,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), ProductName: "Ghost", Quantity: 1, UnitPriceCents: 0},
		},
	}

	view := Materialize(order, CatalogSnapshot{})

	assert.Equal(t, 0, view.Items[0].UnitPriceCents)
	assert.False(t, view.Items[0].PriceRepaired)
	assert.Equal(t, 0, view.TotalCents)
	assert.False(t, view.TotalRepaired)
}

func TestMissingPriceProductIDs(t *testing.T) {
	t.Parallel()

	legacy := uuid.New()
	order := models.Order{
		Items: []models.OrderItem{
			{ProductID: legacy, UnitPriceCents: 0},
			{ProductID: uuid.New(), UnitPriceCents: 900},
		},
	}

	ids := MissingPriceProductIDs(order)
	require.Len(t, ids, 1)
	assert.Equal(t, legacy, ids[0])

	assert.Empty(t, MissingPriceProductIDs(models.Order{}))
}
