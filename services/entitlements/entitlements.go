package entitlements

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"claritybackend/models"
)

// WorkspacesRepository is the slice of the workspace store the quota engine
// needs. Satisfied by *db.PostgresWorkspacesRepository.
type WorkspacesRepository interface {
	GetWorkspaceByID(ctx context.Context, id string) (mo.Option[*models.Workspace], error)
	InitSubscription(ctx context.Context, workspaceID string, sub models.Subscription) (bool, error)
	IncrementUsage(ctx context.Context, workspaceID string, feature models.Feature, ceiling int) (bool, error)
	ResetExpiredBillingPeriods(ctx context.Context, now time.Time) (int64, error)
	UpdateSubscription(ctx context.Context, workspaceID string, sub models.Subscription) error
}

// EntitlementsService gates feature use against the owning workspace's
// subscription. Check and record are deliberately separate operations: the
// gated action (an LLM call) runs between them, and a failed action must not
// consume quota. The increment enforces the ceiling atomically at the storage
// layer, so concurrent requests cannot push a counter past its limit - the
// race between parallel checks only decides which request gets the last slot.
type EntitlementsService struct {
	workspacesRepo WorkspacesRepository
	now            func() time.Time
}

func NewEntitlementsService(repo WorkspacesRepository) *EntitlementsService {
	return &EntitlementsService{workspacesRepo: repo, now: time.Now}
}

// NewEntitlementsServiceWithClock is used by tests to pin time.
func NewEntitlementsServiceWithClock(repo WorkspacesRepository, now func() time.Time) *EntitlementsService {
	return &EntitlementsService{workspacesRepo: repo, now: now}
}

// DefaultSubscription is the subscription synthesized for workspaces created
// before billing existed: FREE, active, one calendar month starting now.
func DefaultSubscription(now time.Time) models.Subscription {
	periodStart := now
	periodEnd := now.AddDate(0, 1, 0)
	return models.Subscription{
		Tier:               models.SubscriptionTierFree,
		Status:             models.SubscriptionStatusActive,
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
	}
}

func denyValidationFailed() models.AccessResult {
	return models.AccessResult{Allowed: false, Reason: "validation failed"}
}


// CheckAccess decides whether the workspace may use the feature right now.
// It has no side effect on usage counters; the lazy subscription init is the
// only write. Storage errors fail closed - a denial, never an error.
func (s *EntitlementsService) CheckAccess(
	ctx context.Context,
	workspaceID string,
	feature models.Feature,
) models.AccessResult {
	log.Printf("📋 Starting access check for workspace %s, feature %s", workspaceID, feature)

	workspace, ok := s.loadWorkspaceWithSubscription(ctx, workspaceID)
	if !ok {
		return denyValidationFailed()
	}

	tier := workspace.EntitledTier()
	plan := models.PlanForTier(tier)

	if models.IsPaidGated(feature) && !plan.Grants(feature) {
		log.Printf("📋 Access denied for workspace %s: feature %s requires Pro", workspaceID, feature)
		return models.AccessResult{
			Allowed:         false,
			Reason:          "requires Pro",
			UpgradeRequired: true,
		}
	}

	limit, rateLimited := plan.MonthlyLimit(feature)
	if !rateLimited {
		log.Printf("📋 Access granted for workspace %s: feature %s is unlimited", workspaceID, feature)
		return models.AccessResult{Allowed: true, RemainingUsage: models.UnlimitedUsage}
	}

	current := workspace.UsageFor(feature)
	if current >= limit {
		log.Printf("📋 Access denied for workspace %s: feature %s at %d/%d", workspaceID, feature, current, limit)
		return models.AccessResult{
			Allowed:         false,
			Reason:          fmt.Sprintf("monthly limit reached (%d/%d)", current, limit),
			UpgradeRequired: tier == models.SubscriptionTierFree,
			RemainingUsage:  0,
			ResetDate:       workspace.CurrentPeriodEnd,
		}
	}

	log.Printf("📋 Access granted for workspace %s: feature %s at %d/%d", workspaceID, feature, current, limit)
	return models.AccessResult{
		Allowed:        true,
		RemainingUsage: limit - current,
		ResetDate:      workspace.CurrentPeriodEnd,
	}
}

// RecordUsage increments a rate-limited feature's monthly counter by one.
// Called only after the gated action actually succeeded. The storage-layer
// ceiling means a concurrent loser of the check race saturates at the limit
// instead of overshooting; the action already ran, so saturation is logged
// and tolerated rather than surfaced as an error.
func (s *EntitlementsService) RecordUsage(
	ctx context.Context,
	workspaceID string,
	feature models.Feature,
) error {
	log.Printf("📋 Starting to record usage for workspace %s, feature %s", workspaceID, feature)

	workspace, ok := s.loadWorkspaceWithSubscription(ctx, workspaceID)
	if !ok {
		return fmt.Errorf("failed to load workspace %s for usage recording", workspaceID)
	}

	plan := models.PlanForTier(workspace.EntitledTier())
	limit, rateLimited := plan.MonthlyLimit(feature)
	if !rateLimited {
		return fmt.Errorf("feature %s is not rate-limited", feature)
	}

	incremented, err := s.workspacesRepo.IncrementUsage(ctx, workspaceID, feature, limit)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	if !incremented {
		log.Printf("⚠️ Usage counter for workspace %s, feature %s already at ceiling %d", workspaceID, feature, limit)
		return nil
	}

	log.Printf("📋 Completed successfully - recorded usage for workspace %s, feature %s", workspaceID, feature)
	return nil
}

// ApplySubscriptionChange applies tier/status/period state pushed by the
// billing system. The new billing period starts fresh, so usage counters
// reset along with it.
func (s *EntitlementsService) ApplySubscriptionChange(
	ctx context.Context,
	workspaceID string,
	sub models.Subscription,
) error {
	log.Printf("📋 Starting to apply subscription change for workspace %s: tier %s, status %s", workspaceID, sub.Tier, sub.Status)

	if sub.Tier != models.SubscriptionTierFree && sub.Tier != models.SubscriptionTierPro {
		return fmt.Errorf("unknown subscription tier: %s", sub.Tier)
	}
	if sub.CurrentPeriodStart == nil || sub.CurrentPeriodEnd == nil {
		return fmt.Errorf("subscription period bounds are required")
	}
	if !sub.CurrentPeriodEnd.After(*sub.CurrentPeriodStart) {
		return fmt.Errorf("subscription period end must be after period start")
	}

	if err := s.workspacesRepo.UpdateSubscription(ctx, workspaceID, sub); err != nil {
		return fmt.Errorf("failed to apply subscription change: %w", err)
	}

	log.Printf("📋 Completed successfully - applied subscription change for workspace %s", workspaceID)
	return nil
}

// ResetExpiredBillingPeriods rolls over every workspace whose billing period
// has ended: counters to zero, period advanced one calendar month. Keyed off
// now >= currentPeriodEnd at the storage layer, so running it twice in the
// same rollover window is a no-op for already-rolled workspaces.
func (s *EntitlementsService) ResetExpiredBillingPeriods(ctx context.Context) (int64, error) {
	log.Printf("📋 Starting billing period rollover sweep")

	reset, err := s.workspacesRepo.ResetExpiredBillingPeriods(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to reset expired billing periods: %w", err)
	}

	log.Printf("📋 Completed successfully - rolled over %d billing periods", reset)
	return reset, nil
}

// loadWorkspaceWithSubscription fetches the workspace, lazily initializing a
// default FREE subscription for workspaces created before billing existed.
// Returns false (fail closed) on any storage error or missing workspace.
func (s *EntitlementsService) loadWorkspaceWithSubscription(
	ctx context.Context,
	workspaceID string,
) (*models.Workspace, bool) {
	maybeWorkspace, err := s.workspacesRepo.GetWorkspaceByID(ctx, workspaceID)
	if err != nil {
		log.Printf("❌ Failed to load workspace %s: %v", workspaceID, err)
		return nil, false
	}
	if !maybeWorkspace.IsPresent() {
		log.Printf("⚠️ Workspace %s not found during entitlement check", workspaceID)
		return nil, false
	}

	workspace := maybeWorkspace.MustGet()
	if workspace.HasSubscription() {
		return workspace, true
	}

	// Lazy-migration path: persist the default before continuing so the
	// counters have a row to land on.
	sub := DefaultSubscription(s.now())
	initialized, err := s.workspacesRepo.InitSubscription(ctx, workspaceID, sub)
	if err != nil {
		log.Printf("❌ Failed to init subscription for workspace %s: %v", workspaceID, err)
		return nil, false
	}

	if initialized {
		workspace.Subscription = sub
		return workspace, true
	}

	// A concurrent caller initialized first; re-read their state.
	maybeWorkspace, err = s.workspacesRepo.GetWorkspaceByID(ctx, workspaceID)
	if err != nil || !maybeWorkspace.IsPresent() {
		log.Printf("❌ Failed to re-read workspace %s after concurrent subscription init: %v", workspaceID, err)
		return nil, false
	}
	return maybeWorkspace.MustGet(), true
}
