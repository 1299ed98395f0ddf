package departures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

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

// Store adds a departure. Idempotent, existing departures are left untouched.
func (r *PostgresRepository) Store(ctx context.Context, departure entity.Departure) error {
	if departure.Status == "" {
		departure.Status = entity.DepartureScheduled
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO departures (
			departure_id, route_id, driver_id, vehicle_capacity, has_toilet,
			base_fare, currency, departs_at, status, available_seats
		)
		VALUES (
			:departure_id, :route_id, :driver_id, :vehicle_capacity, :has_toilet,
			:base_fare, :currency, :departs_at, :status, :available_seats
		)
		ON CONFLICT (departure_id) DO NOTHING
	`, departure)
	if err != nil {
		return fmt.Errorf("could not store departure: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, departureID string) (entity.Departure, error) {
	var departure entity.Departure
	err := r.db.GetContext(ctx, &departure, `
		SELECT
			departure_id, route_id, driver_id, vehicle_capacity, has_toilet,
			base_fare, currency, departs_at, status, available_seats
		FROM departures
		WHERE departure_id = $1
	`, departureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Departure{}, entity.NotFoundError{
				Resource: "departure",
				ID:       departureID,
				Err:      entity.ErrDepartureNotFound,
			}
		}
		return entity.Departure{}, fmt.Errorf("could not get departure: %w", err)
	}

	return departure, nil
}
