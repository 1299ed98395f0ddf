package loyalty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"travel/db"
	"travel/entity"
)

const (
	kindRedeem = "redeem"
	kindRefund = "refund"
)

// PostgresRepository reads and moves loyalty points. Point movements are
// recorded per booking, and a booking holds a redemption while its latest
// movement is one, so redeliveries do not move points twice.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db must be set")
	}

	return &PostgresRepository{db: db}
}

// StoreAccount creates or replaces a loyalty account.
func (r *PostgresRepository) StoreAccount(ctx context.Context, userID string, tier entity.LoyaltyTier, points int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loyalty_accounts (user_id, tier, points_balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET tier = EXCLUDED.tier, points_balance = EXCLUDED.points_balance
	`, userID, tier, points)
	if err != nil {
		return fmt.Errorf("could not store loyalty account: %w", err)
	}
	return nil
}

func (r *PostgresRepository) StoreClaimedOffer(ctx context.Context, offer entity.ClaimedOffer) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO claimed_offers (offer_id, user_id, discount_pct)
		VALUES (:offer_id, :user_id, :discount_pct)
		ON CONFLICT (offer_id) DO NOTHING
	`, offer)
	if err != nil {
		return fmt.Errorf("could not store claimed offer: %w", err)
	}
	return nil
}

// TierDiscountPct returns 0 for users without a loyalty account.
func (r *PostgresRepository) TierDiscountPct(ctx context.Context, userID string) (int, error) {
	var tier entity.LoyaltyTier
	err := r.db.GetContext(ctx, &tier, `SELECT tier FROM loyalty_accounts WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("could not get loyalty tier: %w", err)
	}

	return tier.DiscountPct(), nil
}

func (r *PostgresRepository) ClaimedOfferPct(ctx context.Context, userID, offerID string) (int, error) {
	var pct int
	err := r.db.GetContext(ctx, &pct, `
		SELECT discount_pct FROM claimed_offers WHERE offer_id = $1 AND user_id = $2
	`, offerID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, entity.NotFoundError{Resource: "claimed offer", ID: offerID, Err: entity.ErrOfferNotFound}
		}
		return 0, fmt.Errorf("could not get claimed offer: %w", err)
	}

	return pct, nil
}

func (r *PostgresRepository) PointsBalance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := r.db.GetContext(ctx, &balance, `SELECT points_balance FROM loyalty_accounts WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("could not get points balance: %w", err)
	}

	return balance, nil
}

// RedeemPoints deducts points for a booking unless the booking already holds a
// redemption. A redemption that was refunded no longer counts, so a booking
// retried after compensation is charged again.
func (r *PostgresRepository) RedeemPoints(ctx context.Context, userID, bookingID string, points int) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		held, err := pointsHeld(ctx, tx, userID, bookingID)
		if err != nil || held {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE loyalty_accounts
			SET points_balance = points_balance - $2
			WHERE user_id = $1 AND points_balance >= $2
		`, userID, points)
		if err != nil {
			return fmt.Errorf("could not redeem points: %w", err)
		}

		updated, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if updated == 0 {
			return entity.ErrInsufficientPoints
		}

		return recordTransaction(ctx, tx, userID, bookingID, kindRedeem, points)
	})
}

// RefundPoints gives back the points a booking holds. It does nothing when the
// booking holds no redemption.
func (r *PostgresRepository) RefundPoints(ctx context.Context, userID, bookingID string, points int) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		held, err := pointsHeld(ctx, tx, userID, bookingID)
		if err != nil || !held {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE loyalty_accounts
			SET points_balance = points_balance + $2
			WHERE user_id = $1
		`, userID, points)
		if err != nil {
			return fmt.Errorf("could not refund points: %w", err)
		}

		return recordTransaction(ctx, tx, userID, bookingID, kindRefund, points)
	})
}

// pointsHeld locks the user's account and reports whether the latest movement
// recorded for the booking is a redemption.
func pointsHeld(ctx context.Context, tx *sqlx.Tx, userID, bookingID string) (bool, error) {
	_, err := tx.ExecContext(ctx, `SELECT 1 FROM loyalty_accounts WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return false, fmt.Errorf("could not lock loyalty account: %w", err)
	}

	var kind string
	err = tx.GetContext(ctx, &kind, `
		SELECT kind FROM loyalty_point_transactions
		WHERE booking_id = $1
		ORDER BY transaction_id DESC
		LIMIT 1
	`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("could not get points transactions: %w", err)
	}

	return kind == kindRedeem, nil
}

func recordTransaction(ctx context.Context, tx *sqlx.Tx, userID, bookingID, kind string, points int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loyalty_point_transactions (user_id, booking_id, kind, points)
		VALUES ($1, $2, $3, $4)
	`, userID, bookingID, kind, points)
	if err != nil {
		return fmt.Errorf("could not record points transaction: %w", err)
	}
	return nil
}
