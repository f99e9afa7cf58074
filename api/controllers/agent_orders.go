package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/serranodev/quickcart-backend/api/responses"
	"github.com/serranodev/quickcart-backend/api/validators"
	ordersvc "github.com/serranodev/quickcart-backend/internal/orders"
	"github.com/serranodev/quickcart-backend/pkg/enums"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
	"github.com/serranodev/quickcart-backend/pkg/logger"
)

// AgentAssignedOrders lists orders assigned to the calling agent.
func AgentAssignedOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForAgent(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func agentTransition(svc ordersvc.Service, logg *logger.Logger, target enums.OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Transition(r.Context(), ordersvc.TransitionInput{
			OrderID: orderID,
			Actor:   actor,
			Target:  target,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// AgentConfirmOrder moves a pending order into fulfillment.
func AgentConfirmOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return agentTransition(svc, logg, enums.OrderStatusConfirmed)
}

// AgentShipOrder marks a confirmed order as handed to delivery.
func AgentShipOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return agentTransition(svc, logg, enums.OrderStatusShipped)
}

// AgentDeliverOrder closes out a shipped order.
func AgentDeliverOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return agentTransition(svc, logg, enums.OrderStatusDelivered)
}

type trackingRequest struct {
	Tracking string `json:"tracking" validate:"required"`
}

// AgentSetTracking records the delivery tracking reference on an order.
func AgentSetTracking(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body trackingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SetTracking(r.Context(), ordersvc.TrackingInput{
			OrderID:  orderID,
			Tracking: body.Tracking,
			Actor:    actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}
