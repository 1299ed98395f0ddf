package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentQRIS     PaymentMethod = "qris"
	PaymentEWallet  PaymentMethod = "ewallet"
)

// InitialBookingStatus returns the status a freshly reserved booking starts in.
// Cash is settled on board; every other method waits for the payment gateway.
func InitialBookingStatus(method PaymentMethod) BookingStatus {
	if method == PaymentCash {
		return BookingConfirmed
	}
	return BookingPending
}

// DiscountBreakdown records every discount applied to a booking total, in the
// order they were applied.
type DiscountBreakdown struct {
	TierDiscountPct  int             `json:"tier_discount_pct"`
	TierDiscount     decimal.Decimal `json:"tier_discount"`
	OfferDiscountPct int             `json:"offer_discount_pct"`
	OfferDiscount    decimal.Decimal `json:"offer_discount"`
	PointsRedeemed   int             `json:"points_redeemed"`
	PointsDiscount   decimal.Decimal `json:"points_discount"`
}

func (b DiscountBreakdown) Total() decimal.Decimal {
	return b.TierDiscount.Add(b.OfferDiscount).Add(b.PointsDiscount)
}

type Booking struct {
	BookingID      string            `json:"booking_id"`
	UserID         string            `json:"user_id"`
	DepartureID    string            `json:"departure_id"`
	RouteID        string            `json:"route_id"`
	Seats          []string          `json:"seats"`
	Fare           decimal.Decimal   `json:"fare"`
	BaseTotal      decimal.Decimal   `json:"base_total"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Currency       string            `json:"currency"`
	Discounts      DiscountBreakdown `json:"discounts"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	ClaimedOfferID string            `json:"claimed_offer_id,omitempty"`
	Status         BookingStatus     `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
}
