package mocks

import (
	"context"
	"errors"
	"sync"

	"travel/entity"
)

type MockBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]entity.Booking

	AddFunc func(ctx context.Context, booking entity.Booking) error
}

func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{bookings: make(map[string]entity.Booking)}
}

func (r *MockBookingRepository) Add(ctx context.Context, booking entity.Booking) error {
	if r.AddFunc != nil {
		if err := r.AddFunc(ctx, booking); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[booking.BookingID]; ok {
		return entity.ConflictError{Resource: "booking", Msg: booking.BookingID, Err: entity.ErrBookingAlreadyExists}
	}
	r.bookings[booking.BookingID] = booking
	return nil
}

func (r *MockBookingRepository) Get(_ context.Context, bookingID string) (entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[bookingID]
	if !ok {
		return entity.Booking{}, entity.NotFoundError{Resource: "booking", ID: bookingID, Err: entity.ErrBookingNotFound}
	}
	return b, nil
}

func (r *MockBookingRepository) Update(
	_ context.Context,
	bookingID string,
	updateFn func(booking *entity.Booking) error,
) (entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[bookingID]
	if !ok {
		return entity.Booking{}, entity.NotFoundError{Resource: "booking", ID: bookingID, Err: entity.ErrBookingNotFound}
	}
	if updateFn == nil {
		return entity.Booking{}, errors.New("missing update function")
	}
	if err := updateFn(&b); err != nil {
		return entity.Booking{}, err
	}
	r.bookings[bookingID] = b
	return b, nil
}

func (r *MockBookingRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}
