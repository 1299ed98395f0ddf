package seats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"travel/db"
	"travel/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db must be set")
	}

	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListSeats(ctx context.Context, departureID string) ([]entity.Seat, error) {
	var seats []entity.Seat
	err := r.db.SelectContext(ctx, &seats, `
		SELECT departure_id, seat_name, seat_row, seat_column, position, booked, COALESCE(booking_id, '') AS booking_id
		FROM seats
		WHERE departure_id = $1
		ORDER BY seat_row, seat_column
	`, departureID)
	if err != nil {
		return nil, fmt.Errorf("could not list seats: %w", err)
	}

	return seats, nil
}

// CreateSeats stores a generated seat map. Seats that already exist keep
// their state, so a map materialized twice is stored once.
func (r *PostgresRepository) CreateSeats(ctx context.Context, departureID string, seats []entity.Seat) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, seat := range seats {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO seats (departure_id, seat_name, seat_row, seat_column, position, booked)
				VALUES ($1, $2, $3, $4, $5, FALSE)
				ON CONFLICT (departure_id, seat_name) DO NOTHING
			`, departureID, seat.Name, seat.Row, seat.Column, seat.Position)
			if err != nil {
				return fmt.Errorf("could not insert seat %s: %w", seat.Name, err)
			}
		}
		return nil
	})
}

// MarkBooked books every seat or none for bookingID. The update only touches
// seats that are still free, so a writer that lost a race sees fewer affected
// rows than seats requested and rolls back, even without holding the departure lock.
func (r *PostgresRepository) MarkBooked(ctx context.Context, departureID, bookingID string, seatNames []string) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE seats
			SET booked = TRUE, booking_id = $3
			WHERE departure_id = $1
				AND seat_name = ANY($2)
				AND booked = FALSE
				AND position <> 'toilet'
		`, departureID, pq.Array(seatNames), bookingID)
		if err != nil {
			return fmt.Errorf("could not book seats: %w", err)
		}

		booked, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(booked) != len(seatNames) {
			return entity.ErrSeatsAlreadyBooked
		}

		return adjustAvailableSeats(ctx, tx, departureID, -len(seatNames))
	})
}

// MarkAvailable frees the seats bookingID holds. Seats that are free or held
// by another booking are not touched.
func (r *PostgresRepository) MarkAvailable(ctx context.Context, departureID, bookingID string, seatNames []string) (int, error) {
	var released int

	err := db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE seats
			SET booked = FALSE, booking_id = NULL
			WHERE departure_id = $1
				AND seat_name = ANY($2)
				AND booked = TRUE
				AND booking_id = $3
		`, departureID, pq.Array(seatNames), bookingID)
		if err != nil {
			return fmt.Errorf("could not release seats: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		released = int(affected)
		if released == 0 {
			return nil
		}

		return adjustAvailableSeats(ctx, tx, departureID, released)
	})
	if err != nil {
		return 0, err
	}

	return released, nil
}

func adjustAvailableSeats(ctx context.Context, tx *sqlx.Tx, departureID string, delta int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE departures
		SET available_seats = available_seats + $2
		WHERE departure_id = $1
	`, departureID, delta)
	if err != nil {
		return fmt.Errorf("could not update available seats: %w", err)
	}
	return nil
}
