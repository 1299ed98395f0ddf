package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type BookingCreated_v1 struct {
	Header EventHeader `json:"header"`

	BookingID      string          `json:"booking_id"`
	UserID         string          `json:"user_id"`
	DepartureID    string          `json:"departure_id"`
	RouteID        string          `json:"route_id"`
	Seats          []string        `json:"seats"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Status         BookingStatus   `json:"status"`
	PointsRedeemed int             `json:"points_redeemed"`
}

type NewBookingForDriver_v1 struct {
	Header EventHeader `json:"header"`

	BookingID   string    `json:"booking_id"`
	DriverID    string    `json:"driver_id"`
	DepartureID string    `json:"departure_id"`
	RouteID     string    `json:"route_id"`
	Seats       []string  `json:"seats"`
	DepartsAt   time.Time `json:"departs_at"`
}

type BookingCancelled_v1 struct {
	Header EventHeader `json:"header"`

	BookingID      string          `json:"booking_id"`
	UserID         string          `json:"user_id"`
	DepartureID    string          `json:"departure_id"`
	RouteID        string          `json:"route_id"`
	Seats          []string        `json:"seats"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	PointsRedeemed int             `json:"points_redeemed"`
}

type BookingPaymentConfirmed_v1 struct {
	Header EventHeader `json:"header"`

	BookingID   string          `json:"booking_id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

type BookingFailed_v1 struct {
	Header EventHeader `json:"header"`

	BookingID   string   `json:"booking_id"`
	UserID      string   `json:"user_id"`
	DepartureID string   `json:"departure_id"`
	Seats       []string `json:"seats"`
	Reason      string   `json:"reason"`
}
