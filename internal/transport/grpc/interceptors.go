package grpc

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"slotbook/backend/internal/auth"
)

type callerKey struct{}

func WithCaller(ctx context.Context, caller auth.Status) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns a guest when no caller was attached.
func CallerFromContext(ctx context.Context) auth.Status {
	if s, ok := ctx.Value(callerKey{}).(auth.Status); ok {
		return s
	}
	return auth.Guest()
}

// RequestTimeoutInterceptor bounds calls that arrive without a deadline.
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

// AuthInterceptor resolves the authorization metadata into a caller. No
// metadata means a guest; anything that does not resolve is Unauthenticated.
func AuthInterceptor(resolver *auth.Resolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		header := authorizationFromMetadata(ctx)
		if header == "" {
			return handler(WithCaller(ctx, auth.Guest()), req)
		}
		token, ok := auth.BearerToken(header)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "invalid_token")
		}
		caller, err := resolver.ResolveAuth(ctx, token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid_token")
		}
		return handler(WithCaller(ctx, caller), req)
	}
}

func authorizationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
