package grpc

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/domain"
	"slotbook/backend/internal/metrics"
	"slotbook/backend/internal/service"
	"slotbook/backend/internal/service/events"
	"slotbook/backend/internal/store"
)

const BookingServiceName = "slotbook.v1.BookingService"

// BookingService is the RPC surface. Requests and responses are
// google.protobuf.Struct messages keyed like the HTTP JSON bodies.
type BookingService interface {
	ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AllocatedTimeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckOverlap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type bookingService interface {
	ListEvents(ctx context.Context, caller auth.Status, opts events.ListOptions) ([]domain.Event, error)
	CreateEvent(ctx context.Context, caller auth.Status, in events.CreateInput) (domain.Event, error)
	AllocatedTimeSlots(ctx context.Context, categoryID int64, startAt time.Time, excludeID uuid.UUID) ([]events.Slot, error)
	HasOverlap(ctx context.Context, categoryID int64, start time.Time, durationMinutes int, excludeID uuid.UUID) (bool, error)
}

type BookingServer struct {
	svc     bookingService
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewBookingServer(svc bookingService, m *metrics.Metrics, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc:     svc,
		metrics: m,
		log:     log.With(slog.String("component", "grpc.bookings")),
	}
}

func (s *BookingServer) ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListEvents"))
	caller := CallerFromContext(ctx)
	if caller.IsGuest() {
		return nil, status.Error(codes.Unauthenticated, "sign in to list events")
	}
	if req == nil {
		req = &structpb.Struct{}
	}

	categoryIDs, err := int64ListField(req, "categoryIds")
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "category_ids"), slog.Any("err", err))
		return nil, status.Error(codes.InvalidArgument, "categoryIds must be a list of integers")
	}
	startAt, err := optionalTimeField(req, "startAt")
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "start_at"), slog.Any("err", err))
		return nil, status.Error(codes.InvalidArgument, "startAt must be an RFC3339 timestamp")
	}

	rows, err := s.svc.ListEvents(ctx, caller, events.ListOptions{
		CategoryIDs: categoryIDs,
		Mode:        domain.ParseWindowMode(stringField(req, "type")),
		StartAt:     startAt,
	})
	if err != nil {
		return nil, s.statusFromError(log, err)
	}

	list := make([]any, 0, len(rows))
	for _, e := range rows {
		list = append(list, eventFields(e))
	}
	return newStruct(log, map[string]any{"events": list})
}

func (s *BookingServer) CreateEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CreateEvent"))
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	categoryID, ok := int64Field(req, "categoryId")
	if !ok {
		log.Warn("invalid request", slog.String("reason", "missing_category"))
		return nil, status.Error(codes.InvalidArgument, "categoryId is required")
	}
	start, err := optionalTimeField(req, "startTime")
	if err != nil || start == nil {
		log.Warn("invalid request", slog.String("reason", "start_time"))
		return nil, status.Error(codes.InvalidArgument, "startTime must be an RFC3339 timestamp")
	}

	e, err := s.svc.CreateEvent(ctx, CallerFromContext(ctx), events.CreateInput{
		CategoryID:   categoryID,
		BookingName:  stringField(req, "bookingName"),
		BookingEmail: stringField(req, "bookingEmail"),
		StartTime:    *start,
		Notes:        stringField(req, "notes"),
	})
	if err != nil {
		return nil, s.statusFromError(log, err)
	}

	if s.metrics != nil {
		s.metrics.EventsCreated.Inc()
	}
	log.Info(
		"event booked",
		slog.String("event_id", e.ID.String()),
		slog.Int64("category_id", e.CategoryID),
		slog.Time("start_time", e.StartTime),
	)
	return newStruct(log, map[string]any{"event": eventFields(e)})
}

func (s *BookingServer) AllocatedTimeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "AllocatedTimeSlots"))
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	categoryID, ok := int64Field(req, "categoryId")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "categoryId is required")
	}
	startAt, err := optionalTimeField(req, "startAt")
	if err != nil || startAt == nil {
		return nil, status.Error(codes.InvalidArgument, "startAt must be an RFC3339 timestamp")
	}
	excludeID, err := optionalUUIDField(req, "excludeEventId")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "excludeEventId must be a UUID")
	}

	slots, err := s.svc.AllocatedTimeSlots(ctx, categoryID, *startAt, excludeID)
	if err != nil {
		return nil, s.statusFromError(log, err)
	}
	list := make([]any, 0, len(slots))
	for _, slot := range slots {
		list = append(list, map[string]any{
			"startTime":       formatTime(slot.StartTime),
			"durationMinutes": slot.DurationMinutes,
			"endTime":         formatTime(slot.EndTime),
		})
	}
	return newStruct(log, map[string]any{"slots": list})
}

func (s *BookingServer) CheckOverlap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CheckOverlap"))
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	categoryID, ok := int64Field(req, "categoryId")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "categoryId is required")
	}
	duration, ok := int64Field(req, "durationMinutes")
	if !ok || duration < domain.MinCategoryDurationMinutes || duration > domain.MaxCategoryDurationMinutes {
		return nil, status.Error(codes.InvalidArgument, "durationMinutes must be between 1 and 480")
	}
	start, err := optionalTimeField(req, "startTime")
	if err != nil || start == nil {
		return nil, status.Error(codes.InvalidArgument, "startTime must be an RFC3339 timestamp")
	}
	excludeID, err := optionalUUIDField(req, "excludeEventId")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "excludeEventId must be a UUID")
	}

	overlap, err := s.svc.HasOverlap(ctx, categoryID, *start, int(duration), excludeID)
	if err != nil {
		return nil, s.statusFromError(log, err)
	}
	return newStruct(log, map[string]any{"overlap": overlap})
}

// statusFromError maps service and store failures onto gRPC codes.
func (s *BookingServer) statusFromError(log *slog.Logger, err error) error {
	var (
		validation *service.ValidationError
		forbidden  *service.ForbiddenError
		notFound   *service.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		log.Warn("invalid request", slog.Any("err", err), slog.String("field", validation.Field))
		return status.Error(codes.InvalidArgument, validation.Error())
	case errors.As(err, &forbidden):
		log.Info("forbidden", slog.Any("err", err))
		return status.Error(codes.PermissionDenied, forbidden.Error())
	case errors.As(err, &notFound):
		return status.Error(codes.NotFound, notFound.Error())
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		if s.metrics != nil {
			s.metrics.EventOverlaps.Inc()
		}
		log.Info("event overlap", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	default:
		log.Error("request failed", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}

func eventFields(e domain.Event) map[string]any {
	return map[string]any{
		"id":              e.ID.String(),
		"categoryId":      e.CategoryID,
		"bookingName":     e.BookingName,
		"bookingEmail":    e.BookingEmail,
		"startTime":       formatTime(e.StartTime),
		"durationMinutes": e.DurationMinutes,
		"endTime":         formatTime(e.EndTime()),
		"notes":           e.Notes,
	}
}

func newStruct(log *slog.Logger, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		log.Error("response encoding failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func stringField(s *structpb.Struct, name string) string {
	return strings.TrimSpace(s.GetFields()[name].GetStringValue())
}

// int64Field accepts whole numbers only.
func int64Field(s *structpb.Struct, name string) (int64, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, false
	}
	return int64(n.NumberValue), true
}

// int64ListField returns nil when the field is absent.
func int64ListField(s *structpb.Struct, name string) ([]int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, errors.New(name + " is not a list")
	}
	out := make([]int64, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		n, ok := item.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
			return nil, errors.New(name + " holds a non-integer")
		}
		out = append(out, int64(n.NumberValue))
	}
	return out, nil
}

func optionalTimeField(s *structpb.Struct, name string) (*time.Time, error) {
	raw := stringField(s, name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalUUIDField(s *structpb.Struct, name string) (uuid.UUID, error) {
	raw := stringField(s, name)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

// Service descriptor

func RegisterBookingServer(s grpc.ServiceRegistrar, srv BookingService) {
	s.RegisterService(&bookingServiceDesc, srv)
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*BookingService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListEvents", Handler: unaryHandler("ListEvents", BookingService.ListEvents)},
		{MethodName: "CreateEvent", Handler: unaryHandler("CreateEvent", BookingService.CreateEvent)},
		{MethodName: "AllocatedTimeSlots", Handler: unaryHandler("AllocatedTimeSlots", BookingService.AllocatedTimeSlots)},
		{MethodName: "CheckOverlap", Handler: unaryHandler("CheckOverlap", BookingService.CheckOverlap)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "slotbook/v1/bookings.proto",
}

type bookingMethod func(BookingService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, method bookingMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + BookingServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(BookingService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(BookingService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
