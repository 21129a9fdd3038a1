package models

import (
	"time"
)

type SubscriptionTier string

const (
	SubscriptionTierFree SubscriptionTier = "FREE"
	SubscriptionTierPro  SubscriptionTier = "PRO"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is embedded in the workspace row. Usage counters are mutated
// only through the entitlements service: a conditional increment on success
// and a period-guarded reset at rollover. Counters never go negative and a
// reset is always all-or-nothing.
type Subscription struct {
	Tier               SubscriptionTier   `db:"subscription_tier"    json:"tier"`
	Status             SubscriptionStatus `db:"subscription_status"  json:"status"`
	CurrentPeriodStart *time.Time         `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `db:"current_period_end"   json:"current_period_end"`
	UsageAutoCoaching  int                `db:"usage_auto_coaching"  json:"usage_auto_coaching"`
	UsageManualRephrase int               `db:"usage_manual_rephrase" json:"usage_manual_rephrase"`
}

// HasSubscription reports whether the workspace has been through subscription
// initialization. Workspaces installed before billing existed have no tier set;
// the entitlements service lazily synthesizes a FREE subscription for them.
func (s Subscription) HasSubscription() bool {
	return s.Tier != "" && s.CurrentPeriodEnd != nil
}

// EntitledTier is the tier entitlements are actually granted against. A
// past-due or canceled subscription keeps its recorded tier for billing
// purposes but is entitled only to FREE features until the billing system
// flips it back to active.
func (s Subscription) EntitledTier() SubscriptionTier {
	if s.Status != SubscriptionStatusActive {
		return SubscriptionTierFree
	}
	return s.Tier
}

// UsageFor returns the current counter for a rate-limited feature.
func (s Subscription) UsageFor(feature Feature) int {
	switch feature {
	case FeatureAutoCoaching:
		return s.UsageAutoCoaching
	case FeatureManualRephrase:
		return s.UsageManualRephrase
	default:
		return 0
	}
}

type Workspace struct {
	ID             string `db:"id"               json:"id"`
	SlackTeamID    string `db:"slack_team_id"    json:"slack_team_id"`
	SlackTeamName  string `db:"slack_team_name"  json:"slack_team_name"`
	SlackAuthToken string `db:"slack_auth_token" json:"-"`
	Active         bool   `db:"active"           json:"active"`
	Subscription
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
