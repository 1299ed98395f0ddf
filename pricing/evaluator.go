package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"travel/entity"
)

var one = decimal.NewFromInt(1)

// Evaluator applies dynamic pricing rules to a base fare. It holds no state
// besides the clock, so one value can be shared by any number of goroutines.
type Evaluator struct {
	Now func() time.Time
}

func NewEvaluator() Evaluator {
	return Evaluator{Now: time.Now}
}

// Quote is a priced fare together with the rules that produced it.
type Quote struct {
	BaseFare decimal.Decimal
	Fare     decimal.Decimal

	// Timing is the winning surge or early-bird rule, if any.
	Timing   *entity.PricingRule
	Seasonal *entity.PricingRule
	Discount *entity.PricingRule
}

// AppliedRuleIDs lists the rules reflected in the fare, timing rule first.
func (q Quote) AppliedRuleIDs() []string {
	var ids []string
	for _, r := range []*entity.PricingRule{q.Timing, q.Seasonal, q.Discount} {
		if r != nil {
			ids = append(ids, r.RuleID)
		}
	}
	return ids
}

// Evaluate returns the fare for a departure on routeID leaving at departsAt.
func Evaluate(baseFare decimal.Decimal, departsAt time.Time, routeID string, rules []entity.PricingRule) decimal.Decimal {
	return NewEvaluator().Evaluate(baseFare, departsAt, routeID, rules)
}

func (e Evaluator) Evaluate(baseFare decimal.Decimal, departsAt time.Time, routeID string, rules []entity.PricingRule) decimal.Decimal {
	return e.Quote(baseFare, departsAt, routeID, rules).Fare
}

// Quote selects at most one rule per concern and multiplies them into the
// base fare:
//
//	fare = round(base × (surge | early bird) × seasonal × discount)
//
// Surge beats early bird. Rules that are inactive, scoped to another route or
// malformed are ignored; Quote never fails.
func (e Evaluator) Quote(baseFare decimal.Decimal, departsAt time.Time, routeID string, rules []entity.PricingRule) Quote {
	now := e.now()
	until := departsAt.Sub(now)
	hoursBefore := wholeUnitsBefore(until, time.Hour)
	daysBefore := wholeUnitsBefore(until, 24*time.Hour)

	var (
		surge     *entity.PricingRule
		earlyBird *entity.PricingRule
		seasonal  *entity.PricingRule
		discount  *entity.PricingRule
	)

	for i := range rules {
		rule := &rules[i]
		if !rule.AppliesTo(routeID) || !rule.Multiplier.IsPositive() {
			continue
		}

		switch terms := rule.Terms.(type) {
		case entity.SurgeTerms:
			if terms.MinHoursBefore < 0 || hoursBefore > terms.MinHoursBefore {
				continue
			}
			if surge == nil || moreUrgent(rule, surge) {
				surge = rule
			}
		case entity.EarlyBirdTerms:
			if terms.MinDaysBefore < 0 || daysBefore < terms.MinDaysBefore {
				continue
			}
			if earlyBird == nil || furtherAhead(rule, earlyBird) {
				earlyBird = rule
			}
		case entity.SeasonalTerms:
			if terms.ValidUntil.Before(terms.ValidFrom) || now.Before(terms.ValidFrom) || now.After(terms.ValidUntil) {
				continue
			}
			if seasonal == nil || preferHigher(rule, seasonal) {
				seasonal = rule
			}
		case entity.DiscountTerms:
			if discount == nil || preferLower(rule, discount) {
				discount = rule
			}
		}
	}

	timing := surge
	if timing == nil {
		timing = earlyBird
	}

	fare := baseFare.
		Mul(multiplierOf(timing)).
		Mul(multiplierOf(seasonal)).
		Mul(multiplierOf(discount)).
		Round(0)

	return Quote{
		BaseFare: baseFare,
		Fare:     fare,
		Timing:   timing,
		Seasonal: seasonal,
		Discount: discount,
	}
}

func (e Evaluator) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// wholeUnitsBefore floors d to whole units; departures in the past count as 0.
func wholeUnitsBefore(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / unit)
}

func multiplierOf(rule *entity.PricingRule) decimal.Decimal {
	if rule == nil {
		return one
	}
	return rule.Multiplier
}

// moreUrgent prefers the surge tier with the tightest window.
func moreUrgent(candidate, current *entity.PricingRule) bool {
	c := candidate.Terms.(entity.SurgeTerms).MinHoursBefore
	w := current.Terms.(entity.SurgeTerms).MinHoursBefore
	if c != w {
		return c < w
	}
	return preferHigher(candidate, current)
}

// furtherAhead prefers the early-bird tier that requires the most notice.
func furtherAhead(candidate, current *entity.PricingRule) bool {
	c := candidate.Terms.(entity.EarlyBirdTerms).MinDaysBefore
	w := current.Terms.(entity.EarlyBirdTerms).MinDaysBefore
	if c != w {
		return c > w
	}
	return preferLower(candidate, current)
}

func preferHigher(candidate, current *entity.PricingRule) bool {
	if cmp := candidate.Multiplier.Cmp(current.Multiplier); cmp != 0 {
		return cmp > 0
	}
	return candidate.RuleID < current.RuleID
}

func preferLower(candidate, current *entity.PricingRule) bool {
	if cmp := candidate.Multiplier.Cmp(current.Multiplier); cmp != 0 {
		return cmp < 0
	}
	return candidate.RuleID < current.RuleID
}
