package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceDataKey struct{}
type identityKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// Identity is the caller resolved by the auth layer. UserID is nil when authentication is
// disabled.
type Identity struct {
	UserID       *uuid.UUID
	Username     string
	AuthDisabled bool
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// OwnerID returns the identity's user id, if any.
func OwnerID(ctx context.Context) *uuid.UUID {
	if id := GetIdentity(ctx); id != nil {
		return id.UserID
	}
	return nil
}
