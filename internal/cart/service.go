package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serranodev/quickcart-backend/internal/products"
	dbpkg "github.com/serranodev/quickcart-backend/pkg/db"
	"github.com/serranodev/quickcart-backend/pkg/db/models"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns all cart mutations. Checkout never goes through here; it
// consumes the cart through its own repository handle.
type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, ownerID uuid.UUID, input AddItemInput) (*View, error)
	UpdateItem(ctx context.Context, ownerID uuid.UUID, input UpdateItemInput) (*View, error)
	RemoveItem(ctx context.Context, ownerID, productID uuid.UUID) (*View, error)
	UpdateMeta(ctx context.Context, ownerID uuid.UUID, input UpdateMetaInput) (*View, error)
	Clear(ctx context.Context, ownerID uuid.UUID) error
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productsRepo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*View, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.buildView(ctx, cart)
}

func (s *service) AddItem(ctx context.Context, ownerID uuid.UUID, input AddItemInput) (*View, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": input.ProductID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product")
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByOwner(ctx, ownerID)
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
			}
			cart, err = repo.Create(ctx, &models.Cart{OwnerID: ownerID})
			if err != nil {
				if dbpkg.IsUniqueViolation(err, "ux_carts_owner") {
					cart, err = repo.FindByOwner(ctx, ownerID)
				}
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
				}
			}
		}
		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
		}
		if err := repo.UpsertItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID)
}

func (s *service) UpdateItem(ctx context.Context, ownerID uuid.UUID, input UpdateItemInput) (*View, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	affected, err := s.repo.UpdateItemQuantity(ctx, cart.ID, input.ProductID, input.Quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").
			WithDetails(map[string]any{"product_id": input.ProductID.String()})
	}
	return s.Get(ctx, ownerID)
}

func (s *service) RemoveItem(ctx context.Context, ownerID, productID uuid.UUID) (*View, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	cart, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	affected, err := s.repo.RemoveItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return s.Get(ctx, ownerID)
}

func (s *service) UpdateMeta(ctx context.Context, ownerID uuid.UUID, input UpdateMetaInput) (*View, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	cart, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	updates := map[string]any{}
	if input.ShippingAddress != nil {
		updates["shipping_address"] = input.ShippingAddress
	}
	if input.PaymentMethod != nil {
		updates["payment_method"] = *input.PaymentMethod
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateMeta(ctx, cart.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
		}
	}
	return s.Get(ctx, ownerID)
}

func (s *service) Clear(ctx context.Context, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	affected, err := s.repo.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return nil
}

func (s *service) buildView(ctx context.Context, cart *models.Cart) (*View, error) {
	view := &View{
		ID:              cart.ID,
		OwnerID:         cart.OwnerID,
		Items:           []ItemView{},
		ShippingAddress: cart.ShippingAddress,
		PaymentMethod:   cart.PaymentMethod,
	}
	if len(cart.Items) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	resolved, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart products")
	}
	byID := make(map[uuid.UUID]models.Product, len(resolved))
	for _, product := range resolved {
		byID[product.ID] = product
	}

	for _, item := range cart.Items {
		line := ItemView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if product, ok := byID[item.ProductID]; ok {
			line.ProductName = product.Name
			line.PriceCents = product.PriceCents
		}
		view.SubtotalCents += line.PriceCents * item.Quantity
		view.Items = append(view.Items, line)
	}
	return view, nil
}
