package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"travel/entity"
	"travel/metrics"
	"travel/seatmap"
)

// SeatRepository persists seat maps. MarkBooked and MarkAvailable must be
// atomic over the whole set and must move the departure's available-seat
// counter in the same transaction.
type SeatRepository interface {
	ListSeats(ctx context.Context, departureID string) ([]entity.Seat, error)
	// CreateSeats stores a generated seat map. Seats that already exist are kept.
	CreateSeats(ctx context.Context, departureID string, seats []entity.Seat) error
	// MarkBooked flips every seat from available to booked by bookingID, or
	// none of them. It returns entity.ErrSeatsAlreadyBooked if any seat was
	// not available.
	MarkBooked(ctx context.Context, departureID, bookingID string, seatNames []string) error
	// MarkAvailable returns the seats held by bookingID to the pool and reports
	// how many actually changed. Free seats and seats held by another booking
	// are skipped.
	MarkAvailable(ctx context.Context, departureID, bookingID string, seatNames []string) (int, error)
}

type DepartureRepository interface {
	Get(ctx context.Context, departureID string) (entity.Departure, error)
}

// Inventory owns seat availability. Every operation on a departure runs under
// that departure's lock; different departures never wait for each other.
type Inventory struct {
	seats      SeatRepository
	departures DepartureRepository
	locker     Locker
}

func NewInventory(seats SeatRepository, departures DepartureRepository, locker Locker) *Inventory {
	if seats == nil {
		panic("missing seats repository")
	}
	if departures == nil {
		panic("missing departures repository")
	}
	if locker == nil {
		panic("missing locker")
	}

	return &Inventory{
		seats:      seats,
		departures: departures,
		locker:     locker,
	}
}

// Reserve books all seatNames on the departure for bookingID, or none of them.
func (i *Inventory) Reserve(ctx context.Context, departureID, bookingID string, seatNames []string) error {
	names, err := NormalizeSeatNames(seatNames)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"departure_id": departureID,
		"booking_id":   bookingID,
		"seats":        names,
	})

	unlock, err := i.lock(ctx, departureID)
	if err != nil {
		return err
	}
	defer unlock()

	seats, err := i.seatMap(ctx, departureID)
	if err != nil {
		metrics.SeatReservations.WithLabelValues("error").Inc()
		return err
	}

	if err := checkReservable(departureID, bookingID, seats, names); err != nil {
		metrics.SeatReservations.WithLabelValues(outcomeOf(err)).Inc()
		logger.WithError(err).Info("Seats cannot be reserved")
		return err
	}

	if err := i.seats.MarkBooked(ctx, departureID, bookingID, names); err != nil {
		if errors.Is(err, entity.ErrSeatsAlreadyBooked) {
			// another writer got there between our read and the guarded update
			metrics.SeatReservations.WithLabelValues("already_booked").Inc()
			return entity.SeatsAlreadyBooked(departureID, names)
		}
		metrics.SeatReservations.WithLabelValues("error").Inc()
		return fmt.Errorf("could not mark seats as booked: %w", err)
	}

	metrics.SeatReservations.WithLabelValues("reserved").Inc()
	logger.Debug("Seats reserved")

	return nil
}

// Release returns the seats held by bookingID to the pool. Seats that are
// already available, or were sold again to another booking, are left alone, so
// releasing the same set twice is the same as releasing it once.
func (i *Inventory) Release(ctx context.Context, departureID, bookingID string, seatNames []string) (int, error) {
	names, err := NormalizeSeatNames(seatNames)
	if err != nil {
		return 0, err
	}

	unlock, err := i.lock(ctx, departureID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	seats, err := i.seatMap(ctx, departureID)
	if err != nil {
		return 0, err
	}

	known := lo.SliceToMap(seats, func(s entity.Seat) (string, struct{}) { return s.Name, struct{}{} })
	if unknown := lo.Filter(names, func(n string, _ int) bool { _, ok := known[n]; return !ok }); len(unknown) > 0 {
		return 0, entity.SeatsNotFound(departureID, unknown)
	}

	released, err := i.seats.MarkAvailable(ctx, departureID, bookingID, names)
	if err != nil {
		return 0, fmt.Errorf("could not mark seats as available: %w", err)
	}

	metrics.SeatsReleased.Add(float64(released))
	log.FromContext(ctx).WithFields(logrus.Fields{
		"departure_id": departureID,
		"booking_id":   bookingID,
		"seats":        names,
		"released":     released,
	}).Debug("Seats released")

	return released, nil
}

// Seats lists the seat map of a departure, generating it on first use.
func (i *Inventory) Seats(ctx context.Context, departureID string) ([]entity.Seat, error) {
	unlock, err := i.lock(ctx, departureID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return i.seatMap(ctx, departureID)
}

func (i *Inventory) lock(ctx context.Context, departureID string) (func(), error) {
	start := time.Now()
	unlock, err := i.locker.Lock(ctx, "departure:"+departureID)
	if err != nil {
		return nil, fmt.Errorf("could not lock departure %s: %w", departureID, err)
	}
	metrics.DepartureLockWait.Observe(time.Since(start).Seconds())

	return unlock, nil
}

// seatMap must be called with the departure lock held.
func (i *Inventory) seatMap(ctx context.Context, departureID string) ([]entity.Seat, error) {
	seats, err := i.seats.ListSeats(ctx, departureID)
	if err != nil {
		return nil, fmt.Errorf("could not list seats: %w", err)
	}
	if len(seats) > 0 {
		return seats, nil
	}

	departure, err := i.departures.Get(ctx, departureID)
	if err != nil {
		return nil, err
	}

	generated, err := seatmap.ForDeparture(departure)
	if err != nil {
		return nil, err
	}

	if err := i.seats.CreateSeats(ctx, departureID, generated); err != nil {
		return nil, fmt.Errorf("could not store seat map: %w", err)
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"departure_id": departureID,
		"seats":        len(generated),
	}).Info("Seat map materialized")

	seats, err = i.seats.ListSeats(ctx, departureID)
	if err != nil {
		return nil, fmt.Errorf("could not list seats: %w", err)
	}
	return seats, nil
}

func checkReservable(departureID, bookingID string, seats []entity.Seat, names []string) error {
	byName := lo.KeyBy(seats, func(s entity.Seat) string { return s.Name })

	var missing, toilets, booked []string
	heldBySameBooking := true
	for _, name := range names {
		seat, ok := byName[name]
		switch {
		case !ok:
			missing = append(missing, name)
		case !seat.Bookable():
			toilets = append(toilets, name)
		case seat.Booked:
			booked = append(booked, name)
			heldBySameBooking = heldBySameBooking && seat.HeldBy == bookingID
		}
	}

	switch {
	case len(missing) > 0:
		return entity.SeatsNotFound(departureID, missing)
	case len(toilets) > 0:
		return entity.InvalidToiletSeat(departureID, toilets)
	case len(booked) > 0 && heldBySameBooking:
		// another delivery of the same booking request holds them
		return entity.ReservationInProgress(departureID, booked)
	case len(booked) > 0:
		return entity.SeatsAlreadyBooked(departureID, booked)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, entity.ErrSeatsNotFound):
		return "not_found"
	case errors.Is(err, entity.ErrInvalidToiletSeat):
		return "toilet"
	case errors.Is(err, entity.ErrSeatsAlreadyBooked):
		return "already_booked"
	case errors.Is(err, entity.ErrReservationInProgress):
		return "in_progress"
	default:
		return "error"
	}
}

// NormalizeSeatNames trims and upper-cases seat names and rejects empty or
// repeated selections. Order is preserved.
func NormalizeSeatNames(seatNames []string) ([]string, error) {
	names := lo.Map(seatNames, func(n string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(n))
	})

	if len(names) == 0 {
		return nil, entity.ValidationError{Field: "seats", Msg: "at least one seat is required", Err: entity.ErrInvalidSeatSelection}
	}
	if lo.Contains(names, "") {
		return nil, entity.ValidationError{Field: "seats", Msg: "seat name must not be empty", Err: entity.ErrInvalidSeatSelection}
	}
	if dup := lo.FindDuplicates(names); len(dup) > 0 {
		return nil, entity.ValidationError{
			Field: "seats",
			Msg:   "duplicated seats: " + strings.Join(dup, ", "),
			Err:   entity.ErrInvalidSeatSelection,
		}
	}

	return names, nil
}
