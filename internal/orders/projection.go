package orders

import (
	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/db/models"
)

// CatalogSnapshot maps product IDs to their current catalog price. It is
// gathered by the read path before materialization so the projection itself
// stays pure.
type CatalogSnapshot map[uuid.UUID]int

// Materialize builds the display projection for one stored order. Legacy
// rows may carry line items without a price snapshot or a zero aggregate
// total; both are repaired here for presentation only. The input order is
// never mutated and nothing is written back.
func Materialize(order models.Order, catalog CatalogSnapshot) View {
	view := View{
		ID:               order.ID,
		OwnerID:          order.OwnerID,
		Status:           order.Status,
		TotalCents:       order.TotalCents,
		PlacedAt:         order.PlacedAt,
		AssignedAgentID:  order.AssignedAgentID,
		ShippingAddress:  order.ShippingAddress,
		PaymentMethod:    order.PaymentMethod,
		DeliveryTracking: order.DeliveryTracking,
		CancelledAt:      order.CancelledAt,
		DeliveredAt:      order.DeliveredAt,
		Items:            make([]ItemView, 0, len(order.Items)),
	}

	computed := 0
	for _, item := range order.Items {
		line := ItemView{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
		if line.UnitPriceCents == 0 {
			if price, ok := catalog[item.ProductID]; ok && price > 0 {
				line.UnitPriceCents = price
				line.PriceRepaired = true
			}
		}
		line.LineTotalCents = line.UnitPriceCents * line.Quantity
		computed += line.LineTotalCents
		view.Items = append(view.Items, line)
	}

	if view.TotalCents == 0 && computed > 0 {
		view.TotalCents = computed
		view.TotalRepaired = true
	}
	return view
}

// MissingPriceProductIDs returns the product references whose stored order
// lines lack a price snapshot, so the read path knows which catalog prices
// to fetch before materializing.
func MissingPriceProductIDs(order models.Order) []uuid.UUID {
	var ids []uuid.UUID
	for _, item := range order.Items {
		if item.UnitPriceCents == 0 {
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}
