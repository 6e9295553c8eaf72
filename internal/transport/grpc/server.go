package grpc

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"slotbook/backend/internal/auth"
)

// NewServer wires the interceptors, the booking service and the standard
// health service. The health server starts out SERVING.
func NewServer(resolver *auth.Resolver, requestTimeout time.Duration, bookings *BookingServer) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RequestTimeoutInterceptor(requestTimeout),
			AuthInterceptor(resolver),
		),
	)
	RegisterBookingServer(s, bookings)

	hs := health.NewServer()
	hs.SetServingStatus(BookingServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
