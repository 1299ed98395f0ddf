package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type RuleKind string

const (
	RuleKindSurge     RuleKind = "surge"
	RuleKindEarlyBird RuleKind = "early_bird"
	RuleKindSeasonal  RuleKind = "seasonal"
	RuleKindDiscount  RuleKind = "discount"
)

// RuleTerms is the kind-specific payload of a pricing rule. The set of
// implementations is closed: SurgeTerms, EarlyBirdTerms, SeasonalTerms and
// DiscountTerms.
type RuleTerms interface {
	Kind() RuleKind
	isRuleTerms()
}

// SurgeTerms applies when the departure is at most MinHoursBefore hours away.
type SurgeTerms struct {
	MinHoursBefore int
}

// EarlyBirdTerms applies when the departure is at least MinDaysBefore days away.
type EarlyBirdTerms struct {
	MinDaysBefore int
}

// SeasonalTerms applies while the current time is inside [ValidFrom, ValidUntil].
type SeasonalTerms struct {
	ValidFrom  time.Time
	ValidUntil time.Time
}

type DiscountTerms struct{}

func (SurgeTerms) Kind() RuleKind     { return RuleKindSurge }
func (EarlyBirdTerms) Kind() RuleKind { return RuleKindEarlyBird }
func (SeasonalTerms) Kind() RuleKind  { return RuleKindSeasonal }
func (DiscountTerms) Kind() RuleKind  { return RuleKindDiscount }

func (SurgeTerms) isRuleTerms()     {}
func (EarlyBirdTerms) isRuleTerms() {}
func (SeasonalTerms) isRuleTerms()  {}
func (DiscountTerms) isRuleTerms()  {}

// PricingRule is an immutable snapshot read from the rule repository for a
// single fare computation. An empty RouteID means the rule is global.
type PricingRule struct {
	RuleID     string
	RouteID    string
	Multiplier decimal.Decimal
	Active     bool
	Terms      RuleTerms
}

func (r PricingRule) Kind() RuleKind {
	if r.Terms == nil {
		return ""
	}
	return r.Terms.Kind()
}

func (r PricingRule) Global() bool {
	return r.RouteID == ""
}

// AppliesTo reports whether the rule is active and scoped to routeID.
func (r PricingRule) AppliesTo(routeID string) bool {
	return r.Active && (r.Global() || r.RouteID == routeID)
}
