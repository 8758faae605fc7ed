package service

import (
	"context"
	"fmt"

	"skyline/internal/domain"
	"skyline/internal/events"
	"skyline/internal/metrics"
	"skyline/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo               domain.BookingRepository
	eventBus           domain.EventPublisher
	sheetsWorker       domain.SyncWorker
	enforceTransitions bool
	logger             *zerolog.Logger
}

// NewBookingService wires the booking store to its side effects. eventBus and
// sheetsWorker may be nil.
func NewBookingService(
	repo domain.BookingRepository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	enforceTransitions bool,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:               repo,
		eventBus:           eventBus,
		sheetsWorker:       sheetsWorker,
		enforceTransitions: enforceTransitions,
		logger:             logger,
	}
}

func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.ListBookings(ctx)
}

// CreateBooking stores the submission as a pending booking. Field contents
// are taken as given.
func (s *BookingService) CreateBooking(ctx context.Context, in models.NewBooking) (*models.Booking, error) {
	booking := &models.Booking{
		Name:    in.Name,
		Email:   in.Email,
		Service: in.Service,
		Date:    in.Date,
		Notes:   in.Notes,
		Status:  models.StatusPending,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().Int64("booking_id", booking.ID).Str("service", booking.Service).Msg("Booking created")

	s.publishEvent(events.EventBookingCreated, booking, "")
	s.enqueueSync(ctx, booking, models.TaskUpsert)

	return booking, nil
}

// UpdateStatus moves a booking to a new status. Setting the current status
// again is accepted and changes nothing.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	status, ok := models.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := booking.Status
	if previous == status {
		return booking, nil
	}

	if s.enforceTransitions {
		if !models.CanTransition(previous, status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, status)
		}
		err = s.repo.UpdateBookingStatusFrom(ctx, id, previous, status)
	} else {
		err = s.repo.UpdateBookingStatus(ctx, id, status)
	}
	if err != nil {
		return nil, err
	}
	booking.Status = status

	metrics.IncStatusUpdate(status)
	s.logger.Info().
		Int64("booking_id", id).
		Str("from", previous).
		Str("to", status).
		Msg("Booking status updated")

	s.publishEvent(events.EventBookingStatusChanged, booking, previous)
	s.enqueueSync(ctx, booking, models.TaskUpdateStatus)

	return booking, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, previous string) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.PublishJSON(eventType, events.NewBookingPayload(booking, previous)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == models.TaskUpdateStatus {
		status = booking.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
