package mocks

import (
	"context"
	"sync"

	"travel/entity"
)

// MockDepartureRepository keeps departures in memory. Seat counters are moved
// by MockSeatRepository so both stay consistent like the Postgres repositories.
type MockDepartureRepository struct {
	mu         sync.Mutex
	departures map[string]entity.Departure
}

func NewMockDepartureRepository(departures ...entity.Departure) *MockDepartureRepository {
	r := &MockDepartureRepository{departures: make(map[string]entity.Departure)}
	for _, d := range departures {
		r.departures[d.DepartureID] = d
	}
	return r
}

func (r *MockDepartureRepository) Add(departure entity.Departure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.departures[departure.DepartureID] = departure
}

func (r *MockDepartureRepository) Get(_ context.Context, departureID string) (entity.Departure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.departures[departureID]
	if !ok {
		return entity.Departure{}, entity.NotFoundError{Resource: "departure", ID: departureID, Err: entity.ErrDepartureNotFound}
	}
	return d, nil
}

func (r *MockDepartureRepository) adjustAvailable(departureID string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.departures[departureID]
	d.AvailableSeats += delta
	r.departures[departureID] = d
}
