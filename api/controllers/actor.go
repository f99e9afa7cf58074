package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/api/middleware"
	"github.com/serranodev/quickcart-backend/internal/orders"
	"github.com/serranodev/quickcart-backend/pkg/enums"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return userID, nil
}

func currentActor(r *http.Request) (orders.Actor, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return orders.Actor{}, err
	}
	role, err := enums.ParseMemberRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role context")
	}
	return orders.Actor{UserID: userID, Role: role}, nil
}
