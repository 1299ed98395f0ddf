package mocks

import (
	"context"
	"sort"
	"sync"

	"travel/entity"
)

// MockSeatRepository is an in-memory SeatRepository with the same
// all-or-nothing semantics as the Postgres one. Errors can be injected
// through the *Func fields.
type MockSeatRepository struct {
	mu         sync.Mutex
	departures *MockDepartureRepository
	seats      map[string]map[string]entity.Seat

	MarkBookedFunc func(ctx context.Context, departureID, bookingID string, seatNames []string) error

	CreateSeatsCalls int
}

func NewMockSeatRepository(departures *MockDepartureRepository) *MockSeatRepository {
	if departures == nil {
		panic("missing departures")
	}
	return &MockSeatRepository{
		departures: departures,
		seats:      make(map[string]map[string]entity.Seat),
	}
}

func (r *MockSeatRepository) ListSeats(_ context.Context, departureID string) ([]entity.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seats := make([]entity.Seat, 0, len(r.seats[departureID]))
	for _, s := range r.seats[departureID] {
		seats = append(seats, s)
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Column < seats[j].Column
	})
	return seats, nil
}

func (r *MockSeatRepository) CreateSeats(_ context.Context, departureID string, seats []entity.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CreateSeatsCalls++
	if r.seats[departureID] == nil {
		r.seats[departureID] = make(map[string]entity.Seat, len(seats))
	}
	for _, s := range seats {
		if _, ok := r.seats[departureID][s.Name]; ok {
			continue
		}
		s.DepartureID = departureID
		r.seats[departureID][s.Name] = s
	}
	return nil
}

func (r *MockSeatRepository) MarkBooked(ctx context.Context, departureID, bookingID string, seatNames []string) error {
	if r.MarkBookedFunc != nil {
		if err := r.MarkBookedFunc(ctx, departureID, bookingID, seatNames); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range seatNames {
		s, ok := r.seats[departureID][name]
		if !ok || !s.Available() {
			return entity.ErrSeatsAlreadyBooked
		}
	}
	for _, name := range seatNames {
		s := r.seats[departureID][name]
		s.Booked = true
		s.HeldBy = bookingID
		r.seats[departureID][name] = s
	}
	r.departures.adjustAvailable(departureID, -len(seatNames))

	return nil
}

func (r *MockSeatRepository) MarkAvailable(_ context.Context, departureID, bookingID string, seatNames []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for _, name := range seatNames {
		s, ok := r.seats[departureID][name]
		if !ok || !s.Booked || s.HeldBy != bookingID {
			continue
		}
		s.Booked = false
		s.HeldBy = ""
		r.seats[departureID][name] = s
		released++
	}
	r.departures.adjustAvailable(departureID, released)

	return released, nil
}

// HeldBy returns the booking holding a seat, or "" when it is free.
func (r *MockSeatRepository) HeldBy(departureID, seatName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.seats[departureID][seatName].HeldBy
}

// BookedCount returns how many seats of a departure are booked.
func (r *MockSeatRepository) BookedCount(departureID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, s := range r.seats[departureID] {
		if s.Booked {
			count++
		}
	}
	return count
}
