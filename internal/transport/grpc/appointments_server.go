package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/service/appointments"
)

type AppointmentsServer struct {
	svc appointmentsService
	log *slog.Logger
}

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	Cancel(ctx context.Context, requester auth.Identity, appointmentID uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, requester auth.Identity) ([]domain.AppointmentView, error)
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
	}
}

func (s *AppointmentsServer) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateAppointment"))

	who, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	log = log.With(slog.String("user_id", who.UserID.String()))

	appt, err := s.svc.Create(ctx, appointments.CreateInput{
		Requester:      who,
		ServiceID:      req.ServiceID,
		DateTime:       req.DateTime,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, toStatus(log, "appointment create", err)
	}

	log.Info(
		"appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("date_time", domain.FormatSlot(appt.DateTime)),
	)
	return &AppointmentResponse{Appointment: toAppointment(appt)}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *AppointmentsServer) ListAppointments(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAppointments"))

	who, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
	}
	log = log.With(slog.String("user_id", who.UserID.String()), slog.Bool("admin", who.IsAdmin))

	views, err := s.svc.List(ctx, who)
	if err != nil {
		return nil, toStatus(log, "appointments list", err)
	}

	out := make([]AppointmentListing, 0, len(views))
	for _, v := range views {
		out = append(out, AppointmentListing{
			ID:       v.ID.String(),
			User:     v.Username,
			Service:  v.ServiceName,
			DateTime: domain.FormatSlot(v.DateTime),
			Status:   string(v.Status),
		})
	}

	log.Debug("appointments listed", slog.Int("count", len(out)))
	return &ListAppointmentsResponse{Appointments: out}, nil
}

func (s *AppointmentsServer) RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "RescheduleAppointment"))

	who, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	log = log.With(slog.String("user_id", who.UserID.String()))

	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, status.Error(codes.InvalidArgument, "appointment_id must be a UUID")
	}

	appt, err := s.svc.Reschedule(ctx, appointments.RescheduleInput{
		Requester:     who,
		AppointmentID: id,
		DateTime:      req.DateTime,
	})
	if err != nil {
		return nil, toStatus(log.With(slog.String("appointment_id", id.String())), "appointment reschedule", err)
	}

	log.Info(
		"appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("date_time", domain.FormatSlot(appt.DateTime)),
	)
	return &AppointmentResponse{Appointment: toAppointment(appt)}, nil
}

func (s *AppointmentsServer) CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	who, ok := auth.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	log = log.With(slog.String("user_id", who.UserID.String()))

	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, status.Error(codes.InvalidArgument, "appointment_id must be a UUID")
	}

	appt, err := s.svc.Cancel(ctx, who, id)
	if err != nil {
		return nil, toStatus(log.With(slog.String("appointment_id", id.String())), "appointment cancel", err)
	}

	log.Info("appointment cancelled", slog.String("appointment_id", id.String()))
	return &AppointmentResponse{Appointment: toAppointment(appt)}, nil
}

func toStatus(log *slog.Logger, op string, err error) error {
	var vErr *appointments.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, appointments.ErrInvalidReference):
		log.Info(op+" rejected", slog.String("reason", "unknown_service"))
		return status.Error(codes.InvalidArgument, "Invalid service")
	case errors.Is(err, appointments.ErrNotFound):
		log.Info("appointment not found")
		return status.Error(codes.NotFound, "appointment not found")
	case errors.Is(err, appointments.ErrUnauthorized):
		log.Info(op+" rejected", slog.String("reason", "not_owner"))
		return status.Error(codes.PermissionDenied, "Unauthorized")
	case errors.Is(err, appointments.ErrSlotUnavailable):
		log.Info(op+" conflict")
		return status.Error(codes.FailedPrecondition, "Time slot unavailable. Pick a different slot.")
	case errors.Is(err, appointments.ErrAlreadyCancelled):
		log.Info(op+" rejected", slog.String("reason", "cancelled"))
		return status.Error(codes.FailedPrecondition, "Appointment already cancelled")
	case errors.Is(err, appointments.ErrIdempotencyConflict):
		log.Info(op+" idempotency conflict")
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.")
	}
	log.Error(op+" failed", slog.Any("err", err))
	return status.Error(codes.Internal, "internal error")
}

func toAppointment(a domain.Appointment) Appointment {
	return Appointment{
		ID:        a.ID.String(),
		ServiceID: a.ServiceID,
		DateTime:  domain.FormatSlot(a.DateTime),
		Status:    string(a.Status),
	}
}
