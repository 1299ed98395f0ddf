package entity

type CreateBooking_v1 struct {
	Header EventHeader `json:"header"`

	// BookingID is chosen by the caller so redelivered commands stay idempotent.
	BookingID          string        `json:"booking_id"`
	UserID             string        `json:"user_id"`
	DepartureID        string        `json:"departure_id"`
	Seats              []string      `json:"seats"`
	PaymentMethod      PaymentMethod `json:"payment_method"`
	LoyaltyPointsToUse int           `json:"loyalty_points_to_use"`
	ClaimedOfferID     string        `json:"claimed_offer_id"`
}

type CancelBooking_v1 struct {
	Header EventHeader `json:"header"`

	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

type ConfirmBookingPayment_v1 struct {
	Header EventHeader `json:"header"`

	BookingID string `json:"booking_id"`
}
