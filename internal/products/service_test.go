package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/serranodev/quickcart-backend/pkg/db/models"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
	"github.com/serranodev/quickcart-backend/pkg/pagination"
)

func TestCreateAppliesDefaultsAndTrims(t *testing.T) {
	t.Parallel()

	repo := newCatalogRepo()
	svc := newCatalogService(t, repo)

	view, err := svc.Create(context.Background(), CreateProductInput{
		Name:       "  Espresso Beans  ",
		Category:   " coffee ",
		PriceCents: 1850,
	})
	require.NoError(t, err)
	require.Equal(t, "Espresso Beans", view.Name)
	require.Equal(t, "coffee", view.Category)
	require.True(t, view.Active)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := newCatalogService(t, newCatalogRepo())

	_, err := svc.Create(context.Background(), CreateProductInput{Name: "   ", PriceCents: 100})
	requireCatalogCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), CreateProductInput{Name: "Beans", PriceCents: -1})
	requireCatalogCode(t, err, pkgerrors.CodeValidation)
}

func TestGetMissingProduct(t *testing.T) {
	t.Parallel()

	svc := newCatalogService(t, newCatalogRepo())

	_, err := svc.Get(context.Background(), uuid.New())
	requireCatalogCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Get(context.Background(), uuid.Nil)
	requireCatalogCode(t, err, pkgerrors.CodeValidation)
}

func TestListPaginatesWithCursor(t *testing.T) {
	t.Parallel()

	repo := newCatalogRepo()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		repo.rows = append(repo.rows, models.Product{
			ID:         uuid.New(),
			Name:       "Item",
			Category:   "pantry",
			PriceCents: 100 * (i + 1),
			Active:     true,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := newCatalogService(t, repo)

	list, err := svc.List(context.Background(), pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Products, 2)
	require.NotEmpty(t, list.NextCursor)

	cursor, err := pagination.ParseCursor(list.NextCursor)
	require.NoError(t, err)
	require.Equal(t, list.Products[1].ID, cursor.ID)
}

func TestListWithoutOverflowHasNoCursor(t *testing.T) {
	t.Parallel()

	repo := newCatalogRepo()
	repo.rows = []models.Product{{ID: uuid.New(), Name: "Only", Active: true}}
	svc := newCatalogService(t, repo)

	list, err := svc.List(context.Background(), pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	require.Empty(t, list.NextCursor)
}

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	t.Parallel()

	repo := newCatalogRepo()
	svc := newCatalogService(t, repo)

	view, err := svc.Create(context.Background(), CreateProductInput{Name: "Beans", Category: "coffee", PriceCents: 1000})
	require.NoError(t, err)

	price := 1200
	updated, err := svc.Update(context.Background(), view.ID, UpdateProductInput{PriceCents: &price})
	require.NoError(t, err)
	require.Equal(t, 1200, updated.PriceCents)
	require.Equal(t, "Beans", updated.Name)
	require.Equal(t, map[string]any{"price_cents": 1200}, repo.lastUpdates)

	empty := "  "
	_, err = svc.Update(context.Background(), view.ID, UpdateProductInput{Name: &empty})
	requireCatalogCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateMissingProduct(t *testing.T) {
	t.Parallel()

	svc := newCatalogService(t, newCatalogRepo())

	name := "Ghost"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateProductInput{Name: &name})
	requireCatalogCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeleteSoftDeletes(t *testing.T) {
	t.Parallel()

	repo := newCatalogRepo()
	svc := newCatalogService(t, repo)

	view, err := svc.Create(context.Background(), CreateProductInput{Name: "Beans", PriceCents: 500})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), view.ID))
	require.Equal(t, []uuid.UUID{view.ID}, repo.softDeleted)

	err = svc.Delete(context.Background(), uuid.New())
	requireCatalogCode(t, err, pkgerrors.CodeNotFound)
}

func newCatalogService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func requireCatalogCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, code, coded.Code())
}

type catalogRepo struct {
	rows        []models.Product
	lastUpdates map[string]any
	softDeleted []uuid.UUID
}

func newCatalogRepo() *catalogRepo {
	return &catalogRepo{}
}

func (r *catalogRepo) WithTx(_ *gorm.DB) Repository { return r }

func (r *catalogRepo) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.rows = append(r.rows, *product)
	return product, nil
}

func (r *catalogRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	for i := range r.rows {
		if r.rows[i].ID == id {
			row := r.rows[i]
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *catalogRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		for i := range r.rows {
			if r.rows[i].ID == id {
				out = append(out, r.rows[i])
			}
		}
	}
	return out, nil
}

func (r *catalogRepo) List(_ context.Context, params pagination.Params, _ ListFilters) ([]models.Product, error) {
	buffer := pagination.LimitWithBuffer(params.Limit)
	if len(r.rows) <= buffer {
		return r.rows, nil
	}
	return r.rows[:buffer], nil
}

func (r *catalogRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	r.lastUpdates = updates
	for i := range r.rows {
		if r.rows[i].ID != id {
			continue
		}
		if price, ok := updates["price_cents"].(int); ok {
			r.rows[i].PriceCents = price
		}
		if name, ok := updates["name"].(string); ok {
			r.rows[i].Name = name
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *catalogRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.softDeleted = append(r.softDeleted, id)
	return nil
}
