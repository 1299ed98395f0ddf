package entity

type LoyaltyTier string

const (
	TierBronze LoyaltyTier = "bronze"
	TierSilver LoyaltyTier = "silver"
	TierGold   LoyaltyTier = "gold"
)

// DiscountPct is the percentage the loyalty programme grants to a tier.
// Unknown tiers get no discount.
func (t LoyaltyTier) DiscountPct() int {
	switch t {
	case TierSilver:
		return 5
	case TierGold:
		return 10
	default:
		return 0
	}
}

// ClaimedOffer is a redemption the user already holds. Whether it is still
// usable is decided by the loyalty subsystem, never by the engine.
type ClaimedOffer struct {
	OfferID     string `db:"offer_id"`
	UserID      string `db:"user_id"`
	DiscountPct int    `db:"discount_pct"`
}
