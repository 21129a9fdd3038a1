package models

import (
	"time"
)

// Feature identifies one gateable product capability. Features fall into two
// non-exclusive categories: paid-gated (a tier either grants it or not) and
// rate-limited (a monthly counter with a tier-specific ceiling). A feature in
// neither category is unlimited.
type Feature string

const (
	FeatureAutoCoaching            Feature = "autoCoaching"
	FeatureManualRephrase          Feature = "manualRephrase"
	FeaturePersonalFeedback        Feature = "personalFeedback"
	FeatureReports                 Feature = "reports"
	FeatureAdvancedReportAnalytics Feature = "advancedReportAnalytics"
	FeatureCustomFlags             Feature = "customFlags"
)

// AccessResult is the outcome of an entitlement check. A denial is a normal
// negative result, never an error.
type AccessResult struct {
	Allowed         bool       `json:"allowed"`
	Reason          string     `json:"reason,omitempty"`
	UpgradeRequired bool       `json:"upgrade_required,omitempty"`
	RemainingUsage  int        `json:"remaining_usage"`
	ResetDate       *time.Time `json:"reset_date,omitempty"`
}

// UnlimitedUsage is the RemainingUsage value for features with no ceiling.
const UnlimitedUsage = -1
