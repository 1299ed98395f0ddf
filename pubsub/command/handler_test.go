package command_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/booking"
	"travel/entity"
	"travel/mocks"
	"travel/pubsub/command"
)

type bookingServiceStub struct {
	createErr  error
	cancelErr  error
	confirmErr error

	stored map[string]entity.Booking
	getErr error

	created   []booking.CreateBookingRequest
	cancelled []string
	confirmed []string
}

func (s *bookingServiceStub) CreateBooking(_ context.Context, req booking.CreateBookingRequest) (entity.Booking, error) {
	s.created = append(s.created, req)
	return entity.Booking{BookingID: req.BookingID}, s.createErr
}

func (s *bookingServiceStub) CancelBooking(_ context.Context, bookingID, _ string) (entity.Booking, error) {
	s.cancelled = append(s.cancelled, bookingID)
	return entity.Booking{BookingID: bookingID}, s.cancelErr
}

func (s *bookingServiceStub) ConfirmPayment(_ context.Context, bookingID string) (entity.Booking, error) {
	s.confirmed = append(s.confirmed, bookingID)
	return entity.Booking{BookingID: bookingID}, s.confirmErr
}

func (s *bookingServiceStub) GetBooking(_ context.Context, bookingID string) (entity.Booking, error) {
	if s.getErr != nil {
		return entity.Booking{}, s.getErr
	}
	b, ok := s.stored[bookingID]
	if !ok {
		return entity.Booking{}, entity.NotFoundError{Resource: "booking", ID: bookingID, Err: entity.ErrBookingNotFound}
	}
	return b, nil
}

func createBookingCommand() *entity.CreateBooking_v1 {
	return &entity.CreateBooking_v1{
		Header:             entity.NewEventHeader(),
		BookingID:          "booking-1",
		UserID:             "user-1",
		DepartureID:        "dep-1",
		Seats:              []string{"1A", "1B"},
		PaymentMethod:      entity.PaymentQRIS,
		LoyaltyPointsToUse: 100,
		ClaimedOfferID:     "offer-1",
	}
}

func TestCreateBookingHandler(t *testing.T) {
	svc := &bookingServiceStub{}
	publisher := mocks.NewMockEventPublisher(t)
	h := command.NewHandler(publisher, svc)

	err := h.CreateBookingHandler().Handle(context.Background(), createBookingCommand())
	require.NoError(t, err)

	require.Len(t, svc.created, 1)
	assert.Equal(t, booking.CreateBookingRequest{
		BookingID:          "booking-1",
		UserID:             "user-1",
		DepartureID:        "dep-1",
		Seats:              []string{"1A", "1B"},
		PaymentMethod:      entity.PaymentQRIS,
		LoyaltyPointsToUse: 100,
		ClaimedOfferID:     "offer-1",
	}, svc.created[0])
	assert.Empty(t, publisher.Events())
}

func TestCreateBookingHandler_domainErrorIsReported(t *testing.T) {
	svc := &bookingServiceStub{
		createErr: entity.ConflictError{
			Resource: "seats",
			Err:      entity.SeatsAlreadyBooked("dep-1", []string{"1A"}),
		},
	}
	publisher := mocks.NewMockEventPublisher(t)
	h := command.NewHandler(publisher, svc)

	err := h.CreateBookingHandler().Handle(context.Background(), createBookingCommand())
	require.NoError(t, err, "a rejected booking must be acked")

	events := publisher.Events()
	require.Len(t, events, 1)
	failed, ok := events[0].(entity.BookingFailed_v1)
	require.True(t, ok)
	assert.Equal(t, "booking-1", failed.BookingID)
	assert.Equal(t, "booking-1", failed.Header.IdempotencyKey)
	assert.Equal(t, []string{"1A", "1B"}, failed.Seats)
	assert.Contains(t, failed.Reason, "seats already booked")
}

func TestCreateBookingHandler_seatsTakenByConcurrentDelivery(t *testing.T) {
	seatsTaken := entity.ConflictError{
		Resource: "seats",
		Err:      fmt.Errorf("%w: %w", entity.ErrSeatsUnavailable, entity.SeatsAlreadyBooked("dep-1", []string{"1A"})),
	}

	testCases := []struct {
		Name         string
		Stored       map[string]entity.Booking
		GetErr       error
		ExpectFailed bool
		ExpectErr    bool
	}{
		{
			Name:   "booking_exists",
			Stored: map[string]entity.Booking{"booking-1": {BookingID: "booking-1"}},
		},
		{
			Name:         "booking_missing",
			ExpectFailed: true,
		},
		{
			Name:      "lookup_fails",
			GetErr:    errors.New("connection refused"),
			ExpectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			svc := &bookingServiceStub{createErr: seatsTaken, stored: tc.Stored, getErr: tc.GetErr}
			publisher := mocks.NewMockEventPublisher(t)
			h := command.NewHandler(publisher, svc)

			err := h.CreateBookingHandler().Handle(context.Background(), createBookingCommand())
			if tc.ExpectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			failed := lo.Filter(publisher.Events(), func(e any, _ int) bool {
				_, ok := e.(entity.BookingFailed_v1)
				return ok
			})
			if tc.ExpectFailed {
				assert.Len(t, failed, 1)
			} else {
				assert.Empty(t, failed)
			}
		})
	}
}

func TestCreateBookingHandler_reservationInProgressIsRetried(t *testing.T) {
	svc := &bookingServiceStub{createErr: entity.ReservationInProgress("dep-1", []string{"1A", "1B"})}
	publisher := mocks.NewMockEventPublisher(t)
	h := command.NewHandler(publisher, svc)

	err := h.CreateBookingHandler().Handle(context.Background(), createBookingCommand())
	require.ErrorIs(t, err, entity.ErrReservationInProgress)
	assert.Empty(t, publisher.Events())
}

func TestCreateBookingHandler_infrastructureErrorIsRetried(t *testing.T) {
	svc := &bookingServiceStub{createErr: errors.New("connection refused")}
	publisher := mocks.NewMockEventPublisher(t)
	h := command.NewHandler(publisher, svc)

	err := h.CreateBookingHandler().Handle(context.Background(), createBookingCommand())
	require.Error(t, err)
	assert.Empty(t, publisher.Events())
}

func TestCreateBookingHandler_failedReportIsRetried(t *testing.T) {
	svc := &bookingServiceStub{createErr: entity.ValidationError{Field: "user_id", Msg: "required"}}
	publisher := mocks.NewMockEventPublisher(t)
	publisher.PublishFunc = func(context.Context, any) error { return errors.New("redis down") }
	h := command.NewHandler(publisher, svc)

	err := h.CreateBookingHandler().Handle(context.Background(), createBookingCommand())
	assert.ErrorContains(t, err, "redis down")
}

func TestCancelBookingHandler(t *testing.T) {
	testCases := []struct {
		Name    string
		Err     error
		WantErr bool
	}{
		{Name: "cancelled"},
		{
			Name: "unknown_booking_is_skipped",
			Err:  entity.NotFoundError{Resource: "booking", ID: "booking-1", Err: entity.ErrBookingNotFound},
		},
		{Name: "storage_failure", Err: errors.New("timeout"), WantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			svc := &bookingServiceStub{cancelErr: tc.Err}
			h := command.NewHandler(mocks.NewMockEventPublisher(t), svc)

			err := h.CancelBookingHandler().Handle(context.Background(), &entity.CancelBooking_v1{
				Header:    entity.NewEventHeader(),
				BookingID: "booking-1",
				Reason:    "changed plans",
			})
			if tc.WantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"booking-1"}, svc.cancelled)
		})
	}
}

func TestConfirmBookingPaymentHandler(t *testing.T) {
	testCases := []struct {
		Name    string
		Err     error
		WantErr bool
	}{
		{Name: "confirmed"},
		{
			Name: "cancelled_booking_is_skipped",
			Err:  entity.ConflictError{Resource: "booking", Err: entity.ErrBookingCancelled},
		},
		{Name: "storage_failure", Err: errors.New("timeout"), WantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			svc := &bookingServiceStub{confirmErr: tc.Err}
			h := command.NewHandler(mocks.NewMockEventPublisher(t), svc)

			err := h.ConfirmBookingPaymentHandler().Handle(context.Background(), &entity.ConfirmBookingPayment_v1{
				Header:    entity.NewEventHeader(),
				BookingID: "booking-1",
			})
			if tc.WantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"booking-1"}, svc.confirmed)
		})
	}
}
