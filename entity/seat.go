package entity

type SeatPosition string

const (
	SeatRegular SeatPosition = "regular"
	SeatBack    SeatPosition = "back"
	SeatToilet  SeatPosition = "toilet"
)

type Seat struct {
	DepartureID string       `json:"departure_id" db:"departure_id"`
	Name        string       `json:"name" db:"seat_name"`
	Row         int          `json:"row" db:"seat_row"`
	Column      int          `json:"column" db:"seat_column"`
	Position    SeatPosition `json:"position" db:"position"`
	Booked      bool         `json:"booked" db:"booked"`
	// HeldBy is the booking holding a booked seat.
	HeldBy string `json:"held_by,omitempty" db:"booking_id"`
}

func (s Seat) Bookable() bool {
	return s.Position != SeatToilet
}

func (s Seat) Available() bool {
	return s.Bookable() && !s.Booked
}
