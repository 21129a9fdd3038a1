package models

import (
	"github.com/shopspring/decimal"
)

// Plan is the static configuration for one subscription tier: monthly ceilings
// for rate-limited features, boolean grants for paid-gated features, and the
// monthly price. The table is compiled in; billing owns the source of truth
// for which tier a workspace is on, not for what a tier contains.
type Plan struct {
	Tier          SubscriptionTier
	MonthlyLimits map[Feature]int
	Features      map[Feature]bool
	Price         decimal.Decimal
}

var plans = map[SubscriptionTier]Plan{
	SubscriptionTierFree: {
		Tier: SubscriptionTierFree,
		MonthlyLimits: map[Feature]int{
			FeatureAutoCoaching:   20,
			FeatureManualRephrase: 5,
		},
		Features: map[Feature]bool{
			FeatureReports:                 true,
			FeaturePersonalFeedback:        false,
			FeatureCustomFlags:             false,
			FeatureAdvancedReportAnalytics: false,
		},
		Price: decimal.Zero,
	},
	SubscriptionTierPro: {
		Tier: SubscriptionTierPro,
		MonthlyLimits: map[Feature]int{
			FeatureAutoCoaching:   1000,
			FeatureManualRephrase: 300,
		},
		Features: map[Feature]bool{
			FeatureReports:                 true,
			FeaturePersonalFeedback:        true,
			FeatureCustomFlags:             true,
			FeatureAdvancedReportAnalytics: true,
		},
		Price: decimal.NewFromInt(12),
	},
}

// PlanForTier returns the plan configuration for a tier. Unknown tiers fall
// back to FREE so a bad tier value in storage can only under-grant, never
// over-grant.
func PlanForTier(tier SubscriptionTier) Plan {
	if plan, ok := plans[tier]; ok {
		return plan
	}
	return plans[SubscriptionTierFree]
}

// MonthlyLimit returns the ceiling for a rate-limited feature, or
// (0, false) when the feature is not rate-limited on this tier.
func (p Plan) MonthlyLimit(feature Feature) (int, bool) {
	limit, ok := p.MonthlyLimits[feature]
	return limit, ok
}

// Grants reports whether a paid-gated feature is included in this tier.
// Features absent from the table are not paid-gated.
func (p Plan) Grants(feature Feature) bool {
	granted, ok := p.Features[feature]
	if !ok {
		return true
	}
	return granted
}

// IsPaidGated reports whether the feature appears in any tier's feature table.
func IsPaidGated(feature Feature) bool {
	for _, plan := range plans {
		if _, ok := plan.Features[feature]; ok {
			return true
		}
	}
	return false
}
