package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/novashop/novashop-backend/api/middleware"
	internalorders "github.com/novashop/novashop-backend/internal/orders"
	"github.com/novashop/novashop-backend/pkg/auth"
	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
)

// requestUserID resolves the authenticated user id seeded by the auth
// middleware.
func requestUserID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return userID, nil
}

func requestActor(ctx context.Context) (internalorders.Actor, error) {
	userID, err := requestUserID(ctx)
	if err != nil {
		return internalorders.Actor{}, err
	}
	return internalorders.Actor{
		UserID:  userID,
		IsAdmin: middleware.RoleFromContext(ctx) == auth.RoleAdmin,
	}, nil
}
