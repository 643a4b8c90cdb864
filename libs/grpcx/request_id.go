package grpcx

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hawosalon/salon/libs/httpx"
)

// RequestIDMetadataKey carries the request id in gRPC metadata.
const RequestIDMetadataKey = "x-request-id"

const maxRequestIDLen = 128

// The id is stored under the httpx key so code shared by both transports
// reads it through one accessor.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxRequestIDLen {
		return ctx
	}
	return httpx.ContextWithRequestID(ctx, id)
}

func NewRequestID() string {
	return uuid.NewString()
}
