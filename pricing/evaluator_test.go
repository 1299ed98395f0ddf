package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"travel/entity"
	"travel/pricing"
)

var now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func evaluator() pricing.Evaluator {
	return pricing.Evaluator{Now: func() time.Time { return now }}
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func surge(id string, hours int, multiplier string) entity.PricingRule {
	return entity.PricingRule{RuleID: id, Active: true, Multiplier: d(multiplier), Terms: entity.SurgeTerms{MinHoursBefore: hours}}
}

func earlyBird(id string, days int, multiplier string) entity.PricingRule {
	return entity.PricingRule{RuleID: id, Active: true, Multiplier: d(multiplier), Terms: entity.EarlyBirdTerms{MinDaysBefore: days}}
}

func seasonal(id string, from, until time.Time, multiplier string) entity.PricingRule {
	return entity.PricingRule{RuleID: id, Active: true, Multiplier: d(multiplier), Terms: entity.SeasonalTerms{ValidFrom: from, ValidUntil: until}}
}

func discount(id string, multiplier string) entity.PricingRule {
	return entity.PricingRule{RuleID: id, Active: true, Multiplier: d(multiplier), Terms: entity.DiscountTerms{}}
}

func TestEvaluate_noRules(t *testing.T) {
	fare := evaluator().Evaluate(d("150000"), now.Add(48*time.Hour), "route-1", nil)
	assert.True(t, d("150000").Equal(fare), fare.String())
}

func TestEvaluate_surgeExcludesEarlyBird(t *testing.T) {
	rules := []entity.PricingRule{
		earlyBird("eb", 3, "0.9"),
		surge("surge", 24, "1.5"),
	}

	fare := evaluator().Evaluate(d("1000"), now.Add(10*time.Hour), "route-1", rules)
	assert.Equal(t, "1500", fare.String())
}

func TestEvaluate_earlyBirdWhenNoSurge(t *testing.T) {
	rules := []entity.PricingRule{
		earlyBird("eb", 3, "0.9"),
		surge("surge", 24, "1.5"),
	}

	fare := evaluator().Evaluate(d("1000"), now.Add(5*24*time.Hour), "route-1", rules)
	assert.Equal(t, "900", fare.String())
}

func TestEvaluate_neitherTimingRule(t *testing.T) {
	rules := []entity.PricingRule{
		earlyBird("eb", 3, "0.9"),
		surge("surge", 24, "1.5"),
	}

	// 2 days away: too far for surge, too close for early bird
	fare := evaluator().Evaluate(d("1000"), now.Add(48*time.Hour), "route-1", rules)
	assert.Equal(t, "1000", fare.String())
}

func TestEvaluate_mostUrgentSurgeWins(t *testing.T) {
	rules := []entity.PricingRule{
		surge("day", 24, "1.2"),
		surge("hours", 6, "1.5"),
		surge("week", 168, "1.1"),
	}

	quote := evaluator().Quote(d("1000"), now.Add(3*time.Hour), "route-1", rules)
	assert.Equal(t, "1500", quote.Fare.String())
	assert.Equal(t, []string{"hours"}, quote.AppliedRuleIDs())

	// reversing the input does not change the winner
	reversed := []entity.PricingRule{rules[2], rules[1], rules[0]}
	assert.Equal(t, "1500", evaluator().Evaluate(d("1000"), now.Add(3*time.Hour), "route-1", reversed).String())
}

func TestEvaluate_largestEarlyBirdTierWins(t *testing.T) {
	rules := []entity.PricingRule{
		earlyBird("week", 7, "0.85"),
		earlyBird("three", 3, "0.95"),
		earlyBird("month", 30, "0.7"),
	}

	quote := evaluator().Quote(d("1000"), now.Add(10*24*time.Hour), "route-1", rules)
	assert.Equal(t, "850", quote.Fare.String())
	assert.Equal(t, []string{"week"}, quote.AppliedRuleIDs())
}

func TestEvaluate_hoursAreFloored(t *testing.T) {
	rules := []entity.PricingRule{surge("surge", 24, "1.5")}

	// 24h59m away floors to 24 hours which is still inside the window
	fare := evaluator().Evaluate(d("1000"), now.Add(24*time.Hour+59*time.Minute), "route-1", rules)
	assert.Equal(t, "1500", fare.String())

	fare = evaluator().Evaluate(d("1000"), now.Add(25*time.Hour), "route-1", rules)
	assert.Equal(t, "1000", fare.String())
}

func TestEvaluate_pastDepartureClampsToZero(t *testing.T) {
	rules := []entity.PricingRule{
		surge("surge", 0, "2"),
		earlyBird("eb", 0, "0.5"),
	}

	fare := evaluator().Evaluate(d("1000"), now.Add(-5*time.Hour), "route-1", rules)
	assert.Equal(t, "2000", fare.String())
}

func TestEvaluate_seasonalTakesMaximum(t *testing.T) {
	rules := []entity.PricingRule{
		seasonal("lebaran", now.Add(-24*time.Hour), now.Add(24*time.Hour), "1.3"),
		seasonal("holiday", now.Add(-time.Hour), now.Add(time.Hour), "1.1"),
		seasonal("expired", now.Add(-48*time.Hour), now.Add(-24*time.Hour), "2"),
	}

	quote := evaluator().Quote(d("1000"), now.Add(48*time.Hour), "route-1", rules)
	assert.Equal(t, "1300", quote.Fare.String())
	assert.Equal(t, []string{"lebaran"}, quote.AppliedRuleIDs())
}

func TestEvaluate_seasonalWindowIsInclusive(t *testing.T) {
	rules := []entity.PricingRule{seasonal("edge", now, now, "1.2")}

	fare := evaluator().Evaluate(d("1000"), now.Add(48*time.Hour), "route-1", rules)
	assert.Equal(t, "1200", fare.String())
}

func TestEvaluate_deepestDiscountWins(t *testing.T) {
	rules := []entity.PricingRule{
		discount("ten", "0.9"),
		discount("twenty", "0.8"),
	}

	fare := evaluator().Evaluate(d("1000"), now.Add(48*time.Hour), "route-1", rules)
	assert.Equal(t, "800", fare.String())
}

func TestEvaluate_allConcernsMultiply(t *testing.T) {
	rules := []entity.PricingRule{
		surge("surge", 24, "1.5"),
		seasonal("season", now.Add(-time.Hour), now.Add(time.Hour), "1.2"),
		discount("promo", "0.9"),
	}

	// 1000 × 1.5 × 1.2 × 0.9 = 1620
	quote := evaluator().Quote(d("1000"), now.Add(2*time.Hour), "route-1", rules)
	assert.Equal(t, "1620", quote.Fare.String())
	assert.Equal(t, []string{"surge", "season", "promo"}, quote.AppliedRuleIDs())
}

func TestEvaluate_roundsHalfUp(t *testing.T) {
	rules := []entity.PricingRule{discount("promo", "0.5")}

	assert.Equal(t, "8", evaluator().Evaluate(d("15"), now, "route-1", rules).String())
	assert.Equal(t, "7", evaluator().Evaluate(d("13"), now, "route-1", []entity.PricingRule{discount("promo", "0.55")}).String())
}

func TestEvaluate_inapplicableRulesAreIgnored(t *testing.T) {
	inactive := surge("inactive", 24, "3")
	inactive.Active = false

	otherRoute := surge("other", 24, "3")
	otherRoute.RouteID = "route-2"

	sameRoute := discount("same", "0.5")
	sameRoute.RouteID = "route-1"

	rules := []entity.PricingRule{
		inactive,
		otherRoute,
		sameRoute,
		{RuleID: "no-terms", Active: true, Multiplier: d("3")},
		surge("negative-threshold", -1, "3"),
		surge("zero-multiplier", 24, "0"),
		seasonal("inverted", now.Add(time.Hour), now.Add(-time.Hour), "3"),
	}

	fare := evaluator().Evaluate(d("1000"), now.Add(2*time.Hour), "route-1", rules)
	assert.Equal(t, "500", fare.String())
}

func TestEvaluate_equalThresholdTieBreak(t *testing.T) {
	rules := []entity.PricingRule{
		surge("b", 12, "1.3"),
		surge("a", 12, "1.5"),
	}

	quote := evaluator().Quote(d("1000"), now.Add(time.Hour), "route-1", rules)
	assert.Equal(t, []string{"a"}, quote.AppliedRuleIDs())
}

func TestEvaluate_packageFunctionUsesWallClock(t *testing.T) {
	rules := []entity.PricingRule{surge("surge", 24, "1.5")}

	fare := pricing.Evaluate(d("1000"), time.Now().Add(time.Hour), "route-1", rules)
	assert.Equal(t, "1500", fare.String())
}
