package discount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"travel/entity"
)

const (
	// PointsPerUnit is how many loyalty points buy one currency unit.
	PointsPerUnit = 10

	maxPct = 100
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Apply stacks the booking discounts on baseTotal in a fixed order: loyalty
// tier, claimed offer, then points. Every step works on what is left after the
// previous one, so percentages compound instead of adding up. Points can pay
// for at most half of what is left after the percentage discounts.
func Apply(
	baseTotal decimal.Decimal,
	tierDiscountPct int,
	claimedOfferPct *int,
	loyaltyPointsRequested int,
	maxPointsRedeemable int,
) (decimal.Decimal, entity.DiscountBreakdown, error) {
	var breakdown entity.DiscountBreakdown

	if err := validate(baseTotal, tierDiscountPct, claimedOfferPct, loyaltyPointsRequested); err != nil {
		return decimal.Zero, breakdown, err
	}

	remainder := baseTotal

	breakdown.TierDiscountPct = tierDiscountPct
	breakdown.TierDiscount = percentOf(remainder, tierDiscountPct)
	remainder = remainder.Sub(breakdown.TierDiscount)

	if claimedOfferPct != nil {
		breakdown.OfferDiscountPct = *claimedOfferPct
		breakdown.OfferDiscount = percentOf(remainder, *claimedOfferPct)
		remainder = remainder.Sub(breakdown.OfferDiscount)
	}

	if loyaltyPointsRequested > 0 {
		usable := min(loyaltyPointsRequested, max(maxPointsRedeemable, 0))
		worth := decimal.NewFromInt(int64(usable / PointsPerUnit))
		ceiling := decimal.Max(remainder.Div(two).Floor(), decimal.Zero)

		redeemed := decimal.Min(worth, ceiling)
		breakdown.PointsDiscount = redeemed
		breakdown.PointsRedeemed = int(redeemed.IntPart()) * PointsPerUnit
		remainder = remainder.Sub(redeemed)
	}

	return decimal.Max(remainder.Round(0), decimal.Zero), breakdown, nil
}

// WithoutPoints recomputes the total as if no points had been requested. It is
// the degraded path taken when the loyalty ledger refuses a redemption.
func WithoutPoints(baseTotal decimal.Decimal, tierDiscountPct int, claimedOfferPct *int) (decimal.Decimal, entity.DiscountBreakdown, error) {
	return Apply(baseTotal, tierDiscountPct, claimedOfferPct, 0, 0)
}

func percentOf(amount decimal.Decimal, pct int) decimal.Decimal {
	if pct == 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(0)
}

func validate(baseTotal decimal.Decimal, tierPct int, offerPct *int, points int) error {
	invalid := func(field, msg string) error {
		return entity.ValidationError{Field: field, Msg: msg, Err: entity.ErrInvalidDiscountInput}
	}

	if baseTotal.IsNegative() {
		return invalid("base_total", fmt.Sprintf("must not be negative, got %s", baseTotal))
	}
	if tierPct < 0 || tierPct > maxPct {
		return invalid("tier_discount_pct", fmt.Sprintf("must be between 0 and %d, got %d", maxPct, tierPct))
	}
	if offerPct != nil && (*offerPct < 0 || *offerPct > maxPct) {
		return invalid("claimed_offer_pct", fmt.Sprintf("must be between 0 and %d, got %d", maxPct, *offerPct))
	}
	if points < 0 {
		return invalid("loyalty_points", fmt.Sprintf("must not be negative, got %d", points))
	}
	return nil
}
