package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serranodev/quickcart-backend/internal/products"
	"github.com/serranodev/quickcart-backend/internal/users"
	"github.com/serranodev/quickcart-backend/pkg/db/models"
	"github.com/serranodev/quickcart-backend/pkg/enums"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
	"github.com/serranodev/quickcart-backend/pkg/outbox"
	"github.com/serranodev/quickcart-backend/pkg/outbox/payloads"
	"github.com/serranodev/quickcart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order reads and the only legal status writer.
type Service interface {
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*View, error)
	ListByOwner(ctx context.Context, actor Actor, params pagination.Params) (*List, error)
	ListForAgent(ctx context.Context, actor Actor, params pagination.Params) (*List, error)
	ListUnassigned(ctx context.Context, actor Actor, params pagination.Params) (*List, error)
	Transition(ctx context.Context, input TransitionInput) (*View, error)
	AssignAgent(ctx context.Context, input AssignAgentInput) (*View, error)
	SetTracking(ctx context.Context, input TrackingInput) (*View, error)
}

type service struct {
	repo     Repository
	products products.Repository
	users    users.Repository
	tx       txRunner
	outbox   outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, usersRepo users.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		products: productsRepo,
		users:    usersRepo,
		tx:       tx,
		outbox:   outboxSvc,
	}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*View, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, order.OwnerID, order.AssignedAgentID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	view, err := s.materialize(ctx, *order)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) ListByOwner(ctx context.Context, actor Actor, params pagination.Params) (*List, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByOwner(ctx, actor.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return s.buildList(ctx, rows, params)
}

func (s *service) ListForAgent(ctx context.Context, actor Actor, params pagination.Params) (*List, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.MemberRoleAgent {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "agent role required")
	}
	rows, err := s.repo.ListByAgent(ctx, actor.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assigned orders")
	}
	return s.buildList(ctx, rows, params)
}

func (s *service) ListUnassigned(ctx context.Context, actor Actor, params pagination.Params) (*List, error) {
	if actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	rows, err := s.repo.ListUnassigned(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned orders")
	}
	return s.buildList(ctx, rows, params)
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*View, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"to": input.Target.String()})
	}
	if input.Target == enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders cannot transition back to pending")
	}

	var updated *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		// Terminal orders reject every transition attempt, any target,
		// any actor, before authorization is even considered.
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal status transition").
				WithDetails(map[string]any{
					"from": order.Status.String(),
					"to":   input.Target.String(),
				})
		}
		if err := authorizeTransition(input.Actor, order, input.Target); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal status transition").
				WithDetails(map[string]any{
					"from": order.Status.String(),
					"to":   input.Target.String(),
				})
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": input.Target}
		switch input.Target {
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}
		if err := repo.UpdateStatus(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := transitionEvent(order.ID, order.OwnerID, order.Status, input.Target, input.Actor, now)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
		}

		order.Status = input.Target
		switch input.Target {
		case enums.OrderStatusCancelled:
			order.CancelledAt = &now
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		}
		view, err := s.materializeWithTx(ctx, tx, *order)
		if err != nil {
			return err
		}
		updated = &view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) AssignAgent(ctx context.Context, input AssignAgentInput) (*View, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.Actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	agent, err := s.users.FindByID(ctx, input.AgentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.Role != enums.MemberRoleAgent {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not a delivery agent")
	}

	order, err := s.loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already settled").
			WithDetails(map[string]any{"from": order.Status.String()})
	}
	if err := s.repo.AssignAgent(ctx, order.ID, input.AgentID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign agent")
	}

	order.AssignedAgentID = &input.AgentID
	view, err := s.materialize(ctx, *order)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) SetTracking(ctx context.Context, input TrackingInput) (*View, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	tracking := strings.TrimSpace(input.Tracking)
	if tracking == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking reference required")
	}

	order, err := s.loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !isAssignedAgent(input.Actor, order.AssignedAgentID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to agent")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already settled").
			WithDetails(map[string]any{"from": order.Status.String()})
	}
	if err := s.repo.UpdateTracking(ctx, order.ID, tracking); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking")
	}

	order.DeliveryTracking = &tracking
	view, err := s.materialize(ctx, *order)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func authorizeTransition(actor Actor, order *models.Order, target enums.OrderStatus) error {
	if target == enums.OrderStatusCancelled {
		if order.OwnerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the order owner may cancel")
		}
		return nil
	}
	// Forward transitions are agent work on orders assigned to that agent.
	if actor.Role != enums.MemberRoleAgent {
		return pkgerrors.New(pkgerrors.CodeForbidden, "agent role required")
	}
	if !isAssignedAgent(actor, order.AssignedAgentID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to agent")
	}
	return nil
}

func isAssignedAgent(actor Actor, assigned *uuid.UUID) bool {
	return actor.Role == enums.MemberRoleAgent && assigned != nil && *assigned == actor.UserID
}

func canRead(actor Actor, ownerID uuid.UUID, assigned *uuid.UUID) bool {
	if actor.Role == enums.MemberRoleAdmin {
		return true
	}
	if actor.UserID == ownerID {
		return true
	}
	return isAssignedAgent(actor, assigned)
}

func transitionEvent(orderID, ownerID uuid.UUID, from, to enums.OrderStatus, actor Actor, at time.Time) outbox.DomainEvent {
	actorRef := &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
	if to == enums.OrderStatusCancelled {
		return outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Version:       1,
			Actor:         actorRef,
			OccurredAt:    at,
			Data: payloads.OrderCancelledEvent{
				OrderID:     orderID,
				OwnerID:     ownerID,
				CancelledAt: at,
			},
		}
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Version:       1,
		Actor:         actorRef,
		OccurredAt:    at,
		Data: payloads.OrderStateChangedEvent{
			OrderID: orderID,
			OwnerID: ownerID,
			From:    from,
			To:      to,
		},
	}
}

func (s *service) buildList(ctx context.Context, rows []models.Order, params pagination.Params) (*List, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	list := &List{Orders: []View{}}
	for i, row := range rows {
		if i == limit {
			last := rows[limit-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				SortedAt: last.PlacedAt,
				ID:       last.ID,
			})
			break
		}
		view, err := s.materialize(ctx, row)
		if err != nil {
			return nil, err
		}
		list.Orders = append(list.Orders, view)
	}
	return list, nil
}

// materialize gathers any catalog prices needed for legacy rows, then runs
// the pure projection.
func (s *service) materialize(ctx context.Context, order models.Order) (View, error) {
	return s.materializeWith(ctx, s.products, order)
}

func (s *service) materializeWithTx(ctx context.Context, tx *gorm.DB, order models.Order) (View, error) {
	return s.materializeWith(ctx, s.products.WithTx(tx), order)
}

func (s *service) materializeWith(ctx context.Context, productsRepo products.Repository, order models.Order) (View, error) {
	snapshot := CatalogSnapshot{}
	if missing := MissingPriceProductIDs(order); len(missing) > 0 {
		resolved, err := productsRepo.FindByIDs(ctx, missing)
		if err != nil {
			return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve catalog prices")
		}
		for _, product := range resolved {
			snapshot[product.ID] = product.PriceCents
		}
	}
	return Materialize(order, snapshot), nil
}
