package mocks

import (
	"context"
	"sync"

	"travel/entity"
)

type MockRuleRepository struct {
	mu    sync.Mutex
	rules []entity.PricingRule

	ActiveRulesFunc func(ctx context.Context, routeID string) ([]entity.PricingRule, error)
}

func NewMockRuleRepository(rules ...entity.PricingRule) *MockRuleRepository {
	return &MockRuleRepository{rules: rules}
}

// ActiveRules returns active rules that are global or scoped to routeID.
func (r *MockRuleRepository) ActiveRules(ctx context.Context, routeID string) ([]entity.PricingRule, error) {
	if r.ActiveRulesFunc != nil {
		return r.ActiveRulesFunc(ctx, routeID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var rules []entity.PricingRule
	for _, rule := range r.rules {
		if rule.Active && rule.AppliesTo(routeID) {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}
