package seatmap

import (
	"fmt"
	"strconv"

	"travel/entity"
)

const (
	rowWidth = 4

	smallBackRow = 4
	largeBackRow = 5

	// vehicles with at least this many seats get the wider back bench
	largeVehicleCapacity = 25
)

var columns = [rowWidth]string{"A", "B", "C", "D"}

// Generate lays out capacity bookable seats for a vehicle. The result is fully
// determined by the arguments: front rows are 4 across (A-D), the last row is a
// bench named B1..Bn, and a toilet, when present, takes the D slot of row 1.
// The toilet slot is not counted in capacity. When the bench absorbs every
// seat (capacity <= 4), row 1 holds only the toilet and the bench is row 2.
func Generate(capacity int, hasToilet bool) ([]entity.Seat, error) {
	if capacity <= 0 {
		return nil, entity.ValidationError{
			Field: "capacity",
			Msg:   fmt.Sprintf("must be positive, got %d", capacity),
			Err:   entity.ErrInvalidCapacity,
		}
	}

	backRow := BackRowSize(capacity)
	front := capacity - backRow

	seats := make([]entity.Seat, 0, capacity+1)
	row := 1

	if hasToilet {
		n := min(front, rowWidth-1)
		for col := 0; col < n; col++ {
			seats = append(seats, regularSeat(row, col))
		}
		seats = append(seats, entity.Seat{
			Name:     strconv.Itoa(row) + columns[rowWidth-1],
			Row:      row,
			Column:   rowWidth,
			Position: entity.SeatToilet,
		})
		front -= n
		row++
	}

	for front > 0 {
		n := min(front, rowWidth)
		for col := 0; col < n; col++ {
			seats = append(seats, regularSeat(row, col))
		}
		front -= n
		row++
	}

	for i := 1; i <= backRow; i++ {
		seats = append(seats, entity.Seat{
			Name:     "B" + strconv.Itoa(i),
			Row:      row,
			Column:   i,
			Position: entity.SeatBack,
		})
	}

	return seats, nil
}

// BackRowSize returns how many seats the back bench has for a vehicle.
func BackRowSize(capacity int) int {
	size := smallBackRow
	if capacity >= largeVehicleCapacity {
		size = largeBackRow
	}
	return min(size, capacity)
}

// ForDeparture generates the seat map of a departure's vehicle and binds every
// seat to it.
func ForDeparture(departure entity.Departure) ([]entity.Seat, error) {
	seats, err := Generate(departure.VehicleCapacity, departure.HasToilet)
	if err != nil {
		return nil, fmt.Errorf("could not generate seat map for departure %s: %w", departure.DepartureID, err)
	}
	for i := range seats {
		seats[i].DepartureID = departure.DepartureID
	}
	return seats, nil
}

func regularSeat(row, col int) entity.Seat {
	return entity.Seat{
		Name:     strconv.Itoa(row) + columns[col],
		Row:      row,
		Column:   col + 1,
		Position: entity.SeatRegular,
	}
}
