package mocks

import (
	"context"
	"sync"
	"testing"

	"travel/entity"
)

type PointsTransaction struct {
	UserID    string
	BookingID string
	Points    int
}

// MockLoyaltyService implements the loyalty collaborator for testing purposes
type MockLoyaltyService struct {
	mu sync.Mutex
	t  *testing.T

	Tiers    map[string]entity.LoyaltyTier
	Offers   map[string]entity.ClaimedOffer
	Balances map[string]int

	TierDiscountPctFunc func(ctx context.Context, userID string) (int, error)
	RedeemPointsFunc    func(ctx context.Context, userID, bookingID string, points int) error

	Redeemed []PointsTransaction
	Refunded []PointsTransaction

	// bookings currently holding a redemption
	held map[string]bool
}

// NewMockLoyaltyService creates a new mock for the loyalty collaborator
func NewMockLoyaltyService(t *testing.T) *MockLoyaltyService {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &MockLoyaltyService{
		t:        t,
		Tiers:    make(map[string]entity.LoyaltyTier),
		Offers:   make(map[string]entity.ClaimedOffer),
		Balances: make(map[string]int),
		held:     make(map[string]bool),
	}
}

func (m *MockLoyaltyService) TierDiscountPct(ctx context.Context, userID string) (int, error) {
	if m.TierDiscountPctFunc != nil {
		return m.TierDiscountPctFunc(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tiers[userID].DiscountPct(), nil
}

func (m *MockLoyaltyService) ClaimedOfferPct(_ context.Context, userID, offerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offer, ok := m.Offers[offerID]
	if !ok || offer.UserID != userID {
		return 0, entity.NotFoundError{Resource: "claimed offer", ID: offerID, Err: entity.ErrOfferNotFound}
	}
	return offer.DiscountPct, nil
}

func (m *MockLoyaltyService) PointsBalance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Balances[userID], nil
}

func (m *MockLoyaltyService) RedeemPoints(ctx context.Context, userID, bookingID string, points int) error {
	if m.RedeemPointsFunc != nil {
		if err := m.RedeemPointsFunc(ctx, userID, bookingID, points); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held[bookingID] {
		return nil
	}
	if m.Balances[userID] < points {
		return entity.ErrInsufficientPoints
	}
	m.Balances[userID] -= points
	m.held[bookingID] = true
	m.Redeemed = append(m.Redeemed, PointsTransaction{UserID: userID, BookingID: bookingID, Points: points})
	return nil
}

// RefundPoints follows the same rules as the ledger: only a booking holding a
// redemption gets points back, and a refunded booking can redeem again.
func (m *MockLoyaltyService) RefundPoints(_ context.Context, userID, bookingID string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held[bookingID] {
		return nil
	}
	m.Balances[userID] += points
	delete(m.held, bookingID)
	m.Refunded = append(m.Refunded, PointsTransaction{UserID: userID, BookingID: bookingID, Points: points})
	return nil
}
