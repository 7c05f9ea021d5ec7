package httpapi

import (
	"context"

	"github.com/djsadd/inventory-audit-service/pkg/collaborators"
)

type ctxKey int

const (
	userCtxKey ctxKey = iota
	tokenCtxKey
)

func withUser(ctx context.Context, u *collaborators.User, token string) context.Context {
	ctx = context.WithValue(ctx, userCtxKey, u)
	return context.WithValue(ctx, tokenCtxKey, token)
}

func userFromContext(ctx context.Context) *collaborators.User {
	u, _ := ctx.Value(userCtxKey).(*collaborators.User)
	return u
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenCtxKey).(string)
	return t
}
