package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/entity"
	"travel/inventory"
	"travel/mocks"
)

type fixture struct {
	departures *mocks.MockDepartureRepository
	seats      *mocks.MockSeatRepository
	inventory  *inventory.Inventory
}

func newFixture(t *testing.T, departures ...entity.Departure) fixture {
	t.Helper()

	departureRepo := mocks.NewMockDepartureRepository(departures...)
	seatRepo := mocks.NewMockSeatRepository(departureRepo)

	return fixture{
		departures: departureRepo,
		seats:      seatRepo,
		inventory:  inventory.NewInventory(seatRepo, departureRepo, inventory.NewLocalLocker()),
	}
}

func departure(id string, capacity int, hasToilet bool) entity.Departure {
	return entity.Departure{
		DepartureID:     id,
		RouteID:         "route-1",
		VehicleCapacity: capacity,
		HasToilet:       hasToilet,
		BaseFare:        decimal.NewFromInt(1000),
		Currency:        "IDR",
		Status:          entity.DepartureScheduled,
		AvailableSeats:  capacity,
	}
}

func availableSeats(t *testing.T, f fixture, departureID string) int {
	t.Helper()
	d, err := f.departures.Get(context.Background(), departureID)
	require.NoError(t, err)
	return d.AvailableSeats
}

func TestInventory_Reserve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 10, false))

	err := f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{"1a", " 1B "})
	require.NoError(t, err)

	seats, err := f.inventory.Seats(ctx, "dep-1")
	require.NoError(t, err)

	booked := lo.FilterMap(seats, func(s entity.Seat, _ int) (string, bool) { return s.Name, s.Booked })
	assert.ElementsMatch(t, []string{"1A", "1B"}, booked)
	assert.Equal(t, 8, availableSeats(t, f, "dep-1"))
}

func TestInventory_Reserve_isAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 10, false))

	require.NoError(t, f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{"1B"}))

	err := f.inventory.Reserve(ctx, "dep-1", "booking-2", []string{"1A", "1B", "1C"})
	require.ErrorIs(t, err, entity.ErrSeatsAlreadyBooked)
	assert.True(t, entity.IsConflict(err))

	var seatErr entity.SeatError
	require.ErrorAs(t, err, &seatErr)
	assert.Equal(t, []string{"1B"}, seatErr.Seats)

	assert.Equal(t, 1, f.seats.BookedCount("dep-1"))
	assert.Equal(t, 9, availableSeats(t, f, "dep-1"))
}

func TestInventory_Reserve_errors(t *testing.T) {
	testCases := []struct {
		Name          string
		Seats         []string
		ExpectedErr   error
		ExpectedCheck func(error) bool
	}{
		{
			Name:          "unknown_seat",
			Seats:         []string{"1A", "9Z"},
			ExpectedErr:   entity.ErrSeatsNotFound,
			ExpectedCheck: entity.IsNotFound,
		},
		{
			Name:          "toilet",
			Seats:         []string{"1D"},
			ExpectedErr:   entity.ErrInvalidToiletSeat,
			ExpectedCheck: entity.IsValidation,
		},
		{
			Name:          "duplicates",
			Seats:         []string{"1A", "1a"},
			ExpectedErr:   entity.ErrInvalidSeatSelection,
			ExpectedCheck: entity.IsValidation,
		},
		{
			Name:          "empty",
			Seats:         nil,
			ExpectedErr:   entity.ErrInvalidSeatSelection,
			ExpectedCheck: entity.IsValidation,
		},
		{
			Name:          "blank_name",
			Seats:         []string{" "},
			ExpectedErr:   entity.ErrInvalidSeatSelection,
			ExpectedCheck: entity.IsValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			f := newFixture(t, departure("dep-1", 12, true))

			err := f.inventory.Reserve(context.Background(), "dep-1", "booking-1", tc.Seats)
			require.ErrorIs(t, err, tc.ExpectedErr)
			assert.True(t, tc.ExpectedCheck(err))

			assert.Zero(t, f.seats.BookedCount("dep-1"))
			assert.Equal(t, 12, availableSeats(t, f, "dep-1"))
		})
	}
}

func TestInventory_Reserve_unknownDeparture(t *testing.T) {
	f := newFixture(t)

	err := f.inventory.Reserve(context.Background(), "missing", "booking-1", []string{"1A"})
	require.ErrorIs(t, err, entity.ErrDepartureNotFound)
	assert.True(t, entity.IsNotFound(err))
}

func TestInventory_Reserve_lostRaceSurfacesConflict(t *testing.T) {
	f := newFixture(t, departure("dep-1", 10, false))
	f.seats.MarkBookedFunc = func(context.Context, string, string, []string) error {
		return entity.ErrSeatsAlreadyBooked
	}

	err := f.inventory.Reserve(context.Background(), "dep-1", "booking-1", []string{"1A"})
	require.ErrorIs(t, err, entity.ErrSeatsAlreadyBooked)
	assert.True(t, entity.IsConflict(err))
}

func TestInventory_Reserve_storageFailureIsNotDomainError(t *testing.T) {
	f := newFixture(t, departure("dep-1", 10, false))
	f.seats.MarkBookedFunc = func(context.Context, string, string, []string) error {
		return errors.New("connection reset")
	}

	err := f.inventory.Reserve(context.Background(), "dep-1", "booking-1", []string{"1A"})
	require.Error(t, err)
	assert.False(t, entity.IsDomainError(err))
}

func TestInventory_concurrentReservationsNeverOverSell(t *testing.T) {
	const workers = 50

	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 20, false))

	// every worker wants 1A plus one seat that only it and its neighbour want
	requests := make([][]string, workers)
	for i := range requests {
		requests[i] = []string{"1A", fmt.Sprintf("%d%s", i%2+2, []string{"A", "B", "C", "D"}[i%4])}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i, seats := range requests {
		bookingID, seats := fmt.Sprintf("booking-%d", i), seats
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := f.inventory.Reserve(ctx, "dep-1", bookingID, seats)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, entity.ErrSeatsAlreadyBooked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "1A can only be sold once")
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 2, f.seats.BookedCount("dep-1"))
	assert.Equal(t, 18, availableSeats(t, f, "dep-1"))
}

func TestInventory_concurrentDisjointReservations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 40, true))

	seats, err := f.inventory.Seats(ctx, "dep-1")
	require.NoError(t, err)
	bookable := lo.FilterMap(seats, func(s entity.Seat, _ int) (string, bool) { return s.Name, s.Bookable() })
	require.Len(t, bookable, 40)

	var wg sync.WaitGroup
	for _, name := range bookable {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{name}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, f.seats.BookedCount("dep-1"))
	assert.Zero(t, availableSeats(t, f, "dep-1"))

	err = f.inventory.Reserve(ctx, "dep-1", "booking-2", []string{"1A"})
	assert.ErrorIs(t, err, entity.ErrSeatsAlreadyBooked)
}

func TestInventory_Release_isIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 10, false))

	require.NoError(t, f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{"1A", "1B", "2A"}))

	released, err := f.inventory.Release(ctx, "dep-1", "booking-1", []string{"1A", "1B"})
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	afterFirst, err := f.inventory.Seats(ctx, "dep-1")
	require.NoError(t, err)
	counterAfterFirst := availableSeats(t, f, "dep-1")

	released, err = f.inventory.Release(ctx, "dep-1", "booking-1", []string{"1A", "1B"})
	require.NoError(t, err)
	assert.Zero(t, released)

	afterSecond, err := f.inventory.Seats(ctx, "dep-1")
	require.NoError(t, err)

	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, counterAfterFirst, availableSeats(t, f, "dep-1"))
	assert.Equal(t, 9, counterAfterFirst)
}

func TestInventory_Release_leavesSeatsOfOtherBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 10, false))

	require.NoError(t, f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{"1A", "1B"}))
	released, err := f.inventory.Release(ctx, "dep-1", "booking-1", []string{"1A", "1B"})
	require.NoError(t, err)
	require.Equal(t, 2, released)

	// the seats are sold again, then the first booking is released once more
	require.NoError(t, f.inventory.Reserve(ctx, "dep-1", "booking-2", []string{"1A", "1B"}))
	released, err = f.inventory.Release(ctx, "dep-1", "booking-1", []string{"1A", "1B"})
	require.NoError(t, err)
	assert.Zero(t, released)

	assert.Equal(t, "booking-2", f.seats.HeldBy("dep-1", "1A"))
	assert.Equal(t, "booking-2", f.seats.HeldBy("dep-1", "1B"))
	assert.Equal(t, 8, availableSeats(t, f, "dep-1"))

	err = f.inventory.Reserve(ctx, "dep-1", "booking-3", []string{"1A"})
	assert.ErrorIs(t, err, entity.ErrSeatsAlreadyBooked)
}

func TestInventory_Reserve_seatsHeldBySameBookingAreRetryable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 10, false))

	require.NoError(t, f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{"1A", "1B"}))

	err := f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{"1A", "1B"})
	require.ErrorIs(t, err, entity.ErrReservationInProgress)
	assert.False(t, entity.IsDomainError(err))

	// a seat held by someone else makes it a plain conflict
	require.NoError(t, f.inventory.Reserve(ctx, "dep-1", "booking-2", []string{"1C"}))
	err = f.inventory.Reserve(ctx, "dep-1", "booking-1", []string{"1B", "1C"})
	require.ErrorIs(t, err, entity.ErrSeatsAlreadyBooked)
	assert.True(t, entity.IsConflict(err))

	assert.Equal(t, 7, availableSeats(t, f, "dep-1"))
}

func TestInventory_Release_toiletIsNoop(t *testing.T) {
	f := newFixture(t, departure("dep-1", 10, true))

	released, err := f.inventory.Release(context.Background(), "dep-1", "booking-1", []string{"1D"})
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, 10, availableSeats(t, f, "dep-1"))
}

func TestInventory_Release_unknownSeat(t *testing.T) {
	f := newFixture(t, departure("dep-1", 10, false))

	_, err := f.inventory.Release(context.Background(), "dep-1", "booking-1", []string{"7F"})
	require.ErrorIs(t, err, entity.ErrSeatsNotFound)
}

func TestInventory_seatMapIsMaterializedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, departure("dep-1", 24, false))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seats, err := f.inventory.Seats(ctx, "dep-1")
			assert.NoError(t, err)
			assert.Len(t, seats, 24)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.seats.CreateSeatsCalls)

	seats, err := f.inventory.Seats(ctx, "dep-1")
	require.NoError(t, err)
	assert.True(t, lo.EveryBy(seats, func(s entity.Seat) bool { return s.DepartureID == "dep-1" }))
}

func TestInventory_releaseMaterializesSeatMap(t *testing.T) {
	f := newFixture(t, departure("dep-1", 10, false))

	released, err := f.inventory.Release(context.Background(), "dep-1", "booking-1", []string{"B1"})
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, 1, f.seats.CreateSeatsCalls)
}

func TestNormalizeSeatNames(t *testing.T) {
	names, err := inventory.NormalizeSeatNames([]string{" 2c", "b3", "1A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2C", "B3", "1A"}, names)
}
