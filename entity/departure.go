package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type DepartureStatus string

const (
	DepartureScheduled  DepartureStatus = "scheduled"
	DepartureInProgress DepartureStatus = "in_progress"
	DepartureCompleted  DepartureStatus = "completed"
	DepartureCancelled  DepartureStatus = "cancelled"
)

// Departure is one scheduled occurrence of a route. It is owned by scheduling;
// the engine only moves AvailableSeats, in lockstep with seat transitions.
type Departure struct {
	DepartureID     string          `json:"departure_id" db:"departure_id"`
	RouteID         string          `json:"route_id" db:"route_id"`
	DriverID        string          `json:"driver_id" db:"driver_id"`
	VehicleCapacity int             `json:"vehicle_capacity" db:"vehicle_capacity"`
	HasToilet       bool            `json:"has_toilet" db:"has_toilet"`
	BaseFare        decimal.Decimal `json:"base_fare" db:"base_fare"`
	Currency        string          `json:"currency" db:"currency"`
	DepartsAt       time.Time       `json:"departs_at" db:"departs_at"`
	Status          DepartureStatus `json:"status" db:"status"`
	AvailableSeats  int             `json:"available_seats" db:"available_seats"`
}

func (d Departure) Bookable() bool {
	return d.Status == DepartureScheduled
}
