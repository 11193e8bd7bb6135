package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ActorIDKey   contextKey = "actor_id"
	ActorRoleKey contextKey = "actor_role"
)

func GetActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	actorVal := ctx.Value(ActorIDKey)
	if actorVal == nil {
		return uuid.Nil, false
	}

	actorStr, ok := actorVal.(string)
	if !ok {
		return uuid.Nil, false
	}

	actorID, err := uuid.Parse(actorStr)
	if err != nil {
		return uuid.Nil, false
	}

	return actorID, true
}

func GetActorRoleFromContext(ctx context.Context) (string, bool) {
	roleVal := ctx.Value(ActorRoleKey)
	if roleVal == nil {
		return "", false
	}

	role, ok := roleVal.(string)
	return role, ok
}

func SetActorContext(ctx context.Context, actorID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, ActorIDKey, actorID.String())
	ctx = context.WithValue(ctx, ActorRoleKey, role)
	return ctx
}
