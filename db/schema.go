package db

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const postgresUniqueValueViolationErrorCode = "23505"

// The loyalty tables belong to the loyalty subsystem. They are created here so
// the service can run on its own database in development and tests.
const schema = `
CREATE TABLE IF NOT EXISTS departures (
	departure_id VARCHAR(255) PRIMARY KEY,
	route_id VARCHAR(255) NOT NULL,
	driver_id VARCHAR(255) NOT NULL DEFAULT '',
	vehicle_capacity INT NOT NULL CHECK (vehicle_capacity > 0),
	has_toilet BOOLEAN NOT NULL DEFAULT FALSE,
	base_fare NUMERIC(14, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	departs_at TIMESTAMPTZ NOT NULL,
	status VARCHAR(32) NOT NULL DEFAULT 'scheduled',
	available_seats INT NOT NULL CHECK (available_seats >= 0)
);

CREATE TABLE IF NOT EXISTS pricing_rules (
	rule_id VARCHAR(255) PRIMARY KEY,
	route_id VARCHAR(255),
	rule_type VARCHAR(32) NOT NULL,
	multiplier NUMERIC(8, 4) NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	min_hours_before INT,
	min_days_before INT,
	valid_from TIMESTAMPTZ,
	valid_until TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS pricing_rules_route_idx ON pricing_rules (route_id) WHERE active;

CREATE TABLE IF NOT EXISTS seats (
	departure_id VARCHAR(255) NOT NULL REFERENCES departures (departure_id),
	seat_name VARCHAR(8) NOT NULL,
	seat_row INT NOT NULL,
	seat_column INT NOT NULL,
	position VARCHAR(16) NOT NULL,
	booked BOOLEAN NOT NULL DEFAULT FALSE,
	booking_id VARCHAR(255),
	PRIMARY KEY (departure_id, seat_name)
);

CREATE TABLE IF NOT EXISTS bookings (
	booking_id VARCHAR(255) PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	departure_id VARCHAR(255) NOT NULL REFERENCES departures (departure_id),
	route_id VARCHAR(255) NOT NULL,
	seats TEXT[] NOT NULL,
	fare NUMERIC(14, 2) NOT NULL,
	base_total NUMERIC(14, 2) NOT NULL,
	total_amount NUMERIC(14, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	discounts JSONB NOT NULL,
	payment_method VARCHAR(32) NOT NULL,
	claimed_offer_id VARCHAR(255) NOT NULL DEFAULT '',
	status VARCHAR(32) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	cancelled_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS loyalty_accounts (
	user_id VARCHAR(255) PRIMARY KEY,
	tier VARCHAR(32) NOT NULL DEFAULT 'bronze',
	points_balance INT NOT NULL DEFAULT 0 CHECK (points_balance >= 0)
);

CREATE TABLE IF NOT EXISTS claimed_offers (
	offer_id VARCHAR(255) PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	discount_pct INT NOT NULL CHECK (discount_pct BETWEEN 0 AND 100)
);

CREATE TABLE IF NOT EXISTS loyalty_point_transactions (
	transaction_id BIGSERIAL PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	booking_id VARCHAR(255) NOT NULL,
	kind VARCHAR(16) NOT NULL,
	points INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS loyalty_point_transactions_booking_idx ON loyalty_point_transactions (booking_id, transaction_id);
`

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}

func IsErrorUniqueViolation(err error) bool {
	var psqlErr *pq.Error
	return errors.As(err, &psqlErr) && psqlErr.Code == postgresUniqueValueViolationErrorCode
}
