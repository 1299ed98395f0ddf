package bookings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

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

type bookingRow struct {
	BookingID      string          `db:"booking_id"`
	UserID         string          `db:"user_id"`
	DepartureID    string          `db:"departure_id"`
	RouteID        string          `db:"route_id"`
	Seats          pq.StringArray  `db:"seats"`
	Fare           decimal.Decimal `db:"fare"`
	BaseTotal      decimal.Decimal `db:"base_total"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Currency       string          `db:"currency"`
	Discounts      string          `db:"discounts"`
	PaymentMethod  string          `db:"payment_method"`
	ClaimedOfferID string          `db:"claimed_offer_id"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	CancelledAt    sql.NullTime    `db:"cancelled_at"`
}

const selectBooking = `
	SELECT
		booking_id, user_id, departure_id, route_id, seats, fare, base_total,
		total_amount, currency, discounts, payment_method, claimed_offer_id,
		status, created_at, updated_at, cancelled_at
	FROM bookings
	WHERE booking_id = $1
`

// Add stores a new booking. It returns a conflict error if a booking with the
// same ID already exists.
func (r *PostgresRepository) Add(ctx context.Context, booking entity.Booking) error {
	row, err := toRow(booking)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO bookings (
			booking_id, user_id, departure_id, route_id, seats, fare, base_total,
			total_amount, currency, discounts, payment_method, claimed_offer_id,
			status, created_at, updated_at, cancelled_at
		)
		VALUES (
			:booking_id, :user_id, :departure_id, :route_id, :seats, :fare, :base_total,
			:total_amount, :currency, :discounts, :payment_method, :claimed_offer_id,
			:status, :created_at, :updated_at, :cancelled_at
		)
	`, row)
	if err != nil {
		if db.IsErrorUniqueViolation(err) {
			return entity.ConflictError{Resource: "booking", Msg: booking.BookingID, Err: entity.ErrBookingAlreadyExists}
		}
		return fmt.Errorf("could not add booking: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, bookingID string) (entity.Booking, error) {
	return r.get(ctx, r.db, selectBooking, bookingID)
}

// Update loads the booking with a row lock, applies updateFn and stores the
// status fields it changed.
func (r *PostgresRepository) Update(
	ctx context.Context,
	bookingID string,
	updateFn func(booking *entity.Booking) error,
) (entity.Booking, error) {
	var booking entity.Booking

	err := db.UpdateInTx(ctx, r.db, sql.LevelRepeatableRead, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		booking, err = r.get(ctx, tx, selectBooking+" FOR UPDATE", bookingID)
		if err != nil {
			return err
		}

		if err := updateFn(&booking); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE bookings
			SET status = $2, updated_at = $3, cancelled_at = $4
			WHERE booking_id = $1
		`, booking.BookingID, booking.Status, booking.UpdatedAt, booking.CancelledAt)
		if err != nil {
			return fmt.Errorf("could not update booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return entity.Booking{}, err
	}

	return booking, nil
}

func (r *PostgresRepository) get(ctx context.Context, q sqlx.QueryerContext, query, bookingID string) (entity.Booking, error) {
	var row bookingRow
	if err := sqlx.GetContext(ctx, q, &row, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Booking{}, entity.NotFoundError{Resource: "booking", ID: bookingID, Err: entity.ErrBookingNotFound}
		}
		return entity.Booking{}, fmt.Errorf("could not get booking: %w", err)
	}

	return row.toEntity()
}

func toRow(b entity.Booking) (bookingRow, error) {
	discounts, err := json.Marshal(b.Discounts)
	if err != nil {
		return bookingRow{}, fmt.Errorf("could not marshal discounts: %w", err)
	}

	row := bookingRow{
		BookingID:      b.BookingID,
		UserID:         b.UserID,
		DepartureID:    b.DepartureID,
		RouteID:        b.RouteID,
		Seats:          b.Seats,
		Fare:           b.Fare,
		BaseTotal:      b.BaseTotal,
		TotalAmount:    b.TotalAmount,
		Currency:       b.Currency,
		Discounts:      string(discounts),
		PaymentMethod:  string(b.PaymentMethod),
		ClaimedOfferID: b.ClaimedOfferID,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if b.CancelledAt != nil {
		row.CancelledAt = sql.NullTime{Time: *b.CancelledAt, Valid: true}
	}

	return row, nil
}

func (row bookingRow) toEntity() (entity.Booking, error) {
	b := entity.Booking{
		BookingID:      row.BookingID,
		UserID:         row.UserID,
		DepartureID:    row.DepartureID,
		RouteID:        row.RouteID,
		Seats:          row.Seats,
		Fare:           row.Fare,
		BaseTotal:      row.BaseTotal,
		TotalAmount:    row.TotalAmount,
		Currency:       row.Currency,
		PaymentMethod:  entity.PaymentMethod(row.PaymentMethod),
		ClaimedOfferID: row.ClaimedOfferID,
		Status:         entity.BookingStatus(row.Status),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.CancelledAt.Valid {
		cancelledAt := row.CancelledAt.Time
		b.CancelledAt = &cancelledAt
	}
	if err := json.Unmarshal([]byte(row.Discounts), &b.Discounts); err != nil {
		return entity.Booking{}, fmt.Errorf("could not unmarshal discounts: %w", err)
	}

	return b, nil
}
