package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCapacity      = errors.New("vehicle capacity must be positive")
	ErrInvalidDiscountInput = errors.New("invalid discount input")
	ErrInvalidSeatSelection = errors.New("invalid seat selection")
	ErrDepartureNotBookable = errors.New("departure is not open for booking")

	ErrSeatsAlreadyBooked = errors.New("seats already booked")
	ErrSeatsUnavailable   = errors.New("seats unavailable")
	ErrSeatsNotFound      = errors.New("seats not found")
	ErrInvalidToiletSeat  = errors.New("toilet seat cannot be booked")

	// ErrReservationInProgress is not a domain error: the seats are held under
	// the same booking ID, so the outcome depends on the other delivery.
	ErrReservationInProgress = errors.New("seats are held by the same booking")

	ErrDepartureNotFound = errors.New("departure not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrOfferNotFound     = errors.New("claimed offer not found")

	ErrBookingAlreadyExists = errors.New("booking already exists")
	ErrBookingCancelled     = errors.New("booking is cancelled")
	ErrInsufficientPoints   = errors.New("insufficient loyalty points")
)

// SeatError reports which seats of a departure caused a reservation to fail.
type SeatError struct {
	DepartureID string
	Seats       []string
	Err         error
}

func (e SeatError) Error() string {
	return fmt.Sprintf("%s (departure %s): %s", e.Err, e.DepartureID, strings.Join(e.Seats, ", "))
}

func (e SeatError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	default:
		return "validation error"
	}
}

func (e ValidationError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.ID == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	if e.Msg == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s conflict", e.Resource)
	}
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
}

func (e ConflictError) Unwrap() error { return e.Err }

func SeatsAlreadyBooked(departureID string, seats []string) error {
	return ConflictError{
		Resource: "seats",
		Err:      SeatError{DepartureID: departureID, Seats: seats, Err: ErrSeatsAlreadyBooked},
	}
}

func ReservationInProgress(departureID string, seats []string) error {
	return SeatError{DepartureID: departureID, Seats: seats, Err: ErrReservationInProgress}
}

func SeatsNotFound(departureID string, seats []string) error {
	return NotFoundError{
		Resource: "seats",
		Err:      SeatError{DepartureID: departureID, Seats: seats, Err: ErrSeatsNotFound},
	}
}

func InvalidToiletSeat(departureID string, seats []string) error {
	return ValidationError{
		Field: "seats",
		Err:   SeatError{DepartureID: departureID, Seats: seats, Err: ErrInvalidToiletSeat},
	}
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// IsDomainError tells apart failures caused by the request itself from
// infrastructure failures that are worth retrying.
func IsDomainError(err error) bool {
	return IsValidation(err) || IsNotFound(err) || IsConflict(err)
}
