package utils

import (
	"context"

	"sundey-crm/internal/dto"
	"sundey-crm/pkg/contextkeys"
	apperrors "sundey-crm/pkg/errors"
)

func ContextWithActor(ctx context.Context, actor dto.Actor) context.Context {
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, actor.UserID)
	ctx = context.WithValue(ctx, contextkeys.CompanyIDKey, actor.CompanyID)
	return context.WithValue(ctx, contextkeys.RoleKey, actor.Role)
}

func GetActorFromContext(ctx context.Context) (dto.Actor, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(string)
	if !ok || userID == "" {
		return dto.Actor{}, apperrors.ErrUnauthorized
	}
	companyID, ok := ctx.Value(contextkeys.CompanyIDKey).(string)
	if !ok || companyID == "" {
		return dto.Actor{}, apperrors.ErrUnauthorized
	}
	role, _ := ctx.Value(contextkeys.RoleKey).(string)
	return dto.Actor{UserID: userID, CompanyID: companyID, Role: role}, nil
}
