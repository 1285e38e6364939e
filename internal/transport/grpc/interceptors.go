package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"salonbook/backend/internal/auth"
)

type tokenParser interface {
	Parse(raw string) (auth.Identity, error)
}

// AuthInterceptor resolves the bearer token in the "authorization" metadata
// into an auth.Identity on the request context.
func AuthInterceptor(tokens tokenParser) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var raw string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				raw = auth.BearerToken(values[0])
			}
		}
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
		}
		id, err := tokens.Parse(raw)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
		}
		return handler(auth.WithIdentity(ctx, id), req)
	}
}

// RequestTimeoutInterceptor applies timeout to calls that arrive without a deadline.
func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}
