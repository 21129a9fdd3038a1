package entitlements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"claritybackend/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func workspaceWithUsage(tier models.SubscriptionTier, autoCoaching, manualRephrase int) *models.Workspace {
	periodStart := testNow.AddDate(0, 0, -10)
	periodEnd := testNow.AddDate(0, 0, 20)
	return &models.Workspace{
		ID:            "ws_01J5TESTWORKSPACE0000000001",
		SlackTeamID:   "T0123456789",
		SlackTeamName: "Test Team",
		Active:        true,
		Subscription: models.Subscription{
			Tier:                tier,
			Status:              models.SubscriptionStatusActive,
			CurrentPeriodStart:  &periodStart,
			CurrentPeriodEnd:    &periodEnd,
			UsageAutoCoaching:   autoCoaching,
			UsageManualRephrase: manualRephrase,
		},
	}
}

func TestCheckAccess_RateLimitedBoundaries(t *testing.T) {
	tests := []struct {
		name          string
		usage         int
		wantAllowed   bool
		wantRemaining int
	}{
		{"well under limit", 0, true, 20},
		{"one below limit", 19, true, 1},
		{"at limit", 20, false, 0},
		{"above limit", 25, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockWorkspacesRepository)
			ws := workspaceWithUsage(models.SubscriptionTierFree, tt.usage, 0)
			repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)

			service := NewEntitlementsServiceWithClock(repo, fixedClock)
			result := service.CheckAccess(context.Background(), ws.ID, models.FeatureAutoCoaching)

			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantRemaining, result.RemainingUsage)
			if !tt.wantAllowed {
				assert.True(t, result.UpgradeRequired, "FREE tier denial should suggest upgrade")
				require.NotNil(t, result.ResetDate)
				assert.Equal(t, *ws.CurrentPeriodEnd, *result.ResetDate)
			}
		})
	}
}

func TestCheckAccess_LimitReachedMentionsUsage(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := workspaceWithUsage(models.SubscriptionTierFree, 20, 0)
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), ws.ID, models.FeatureAutoCoaching)

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "20/20")
	assert.True(t, result.UpgradeRequired)
}

func TestCheckAccess_ProDenialDoesNotRequireUpgrade(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := workspaceWithUsage(models.SubscriptionTierPro, 1000, 0)
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), ws.ID, models.FeatureAutoCoaching)

	assert.False(t, result.Allowed)
	assert.False(t, result.UpgradeRequired, "PRO has nothing to upgrade to")
}

func TestCheckAccess_PaidGatedFeatures(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	freeWs := workspaceWithUsage(models.SubscriptionTierFree, 0, 0)
	repo.On("GetWorkspaceByID", mock.Anything, freeWs.ID).Return(mo.Some(freeWs), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)

	result := service.CheckAccess(context.Background(), freeWs.ID, models.FeatureCustomFlags)
	assert.False(t, result.Allowed)
	assert.Equal(t, "requires Pro", result.Reason)
	assert.True(t, result.UpgradeRequired)

	result = service.CheckAccess(context.Background(), freeWs.ID, models.FeatureAdvancedReportAnalytics)
	assert.False(t, result.Allowed)
	assert.True(t, result.UpgradeRequired)
}

func TestCheckAccess_PaidGatedFeatureAllowedOnPro(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	proWs := workspaceWithUsage(models.SubscriptionTierPro, 0, 0)
	repo.On("GetWorkspaceByID", mock.Anything, proWs.ID).Return(mo.Some(proWs), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), proWs.ID, models.FeatureCustomFlags)

	assert.True(t, result.Allowed)
	assert.Equal(t, models.UnlimitedUsage, result.RemainingUsage)
}

func TestCheckAccess_LapsedSubscriptionDropsToFree(t *testing.T) {
	for _, status := range []models.SubscriptionStatus{
		models.SubscriptionStatusPastDue,
		models.SubscriptionStatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			repo := new(MockWorkspacesRepository)
			ws := workspaceWithUsage(models.SubscriptionTierPro, 25, 0)
			ws.Status = status
			repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)

			service := NewEntitlementsServiceWithClock(repo, fixedClock)

			// Paid-gated features are gone until billing reactivates.
			result := service.CheckAccess(context.Background(), ws.ID, models.FeatureCustomFlags)
			assert.False(t, result.Allowed)
			assert.Equal(t, "requires Pro", result.Reason)
			assert.True(t, result.UpgradeRequired)

			// Rate-limited features fall back to FREE ceilings: 25 used is
			// over the FREE autoCoaching limit of 20.
			result = service.CheckAccess(context.Background(), ws.ID, models.FeatureAutoCoaching)
			assert.False(t, result.Allowed)
			assert.Contains(t, result.Reason, "25/20")
			assert.True(t, result.UpgradeRequired)
		})
	}
}

func TestRecordUsage_LapsedSubscriptionUsesFreeCeiling(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := workspaceWithUsage(models.SubscriptionTierPro, 5, 0)
	ws.Status = models.SubscriptionStatusPastDue
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)
	repo.On("IncrementUsage", mock.Anything, ws.ID, models.FeatureAutoCoaching, 20).Return(true, nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	require.NoError(t, service.RecordUsage(context.Background(), ws.ID, models.FeatureAutoCoaching))
	repo.AssertExpectations(t)
}

func TestCheckAccess_UnlimitedFeature(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := workspaceWithUsage(models.SubscriptionTierFree, 20, 5)
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), ws.ID, models.FeatureReports)

	assert.True(t, result.Allowed, "reports are unlimited even with all counters maxed")
	assert.Equal(t, models.UnlimitedUsage, result.RemainingUsage)
}

func TestCheckAccess_LazySubscriptionInit(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := &models.Workspace{
		ID:          "ws_01J5TESTWORKSPACE0000000002",
		SlackTeamID: "T0999999999",
		Active:      true,
	}
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)
	repo.On("InitSubscription", mock.Anything, ws.ID, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.Tier == models.SubscriptionTierFree &&
			sub.Status == models.SubscriptionStatusActive &&
			sub.CurrentPeriodStart.Equal(testNow) &&
			sub.CurrentPeriodEnd.Equal(testNow.AddDate(0, 1, 0))
	})).Return(true, nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), ws.ID, models.FeatureAutoCoaching)

	assert.True(t, result.Allowed)
	assert.Equal(t, 20, result.RemainingUsage, "fresh FREE subscription has full quota")
	repo.AssertCalled(t, "InitSubscription", mock.Anything, ws.ID, mock.Anything)
}

func TestCheckAccess_LazyInitLostRace(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	bare := &models.Workspace{ID: "ws_01J5TESTWORKSPACE0000000003", Active: true}
	initialized := workspaceWithUsage(models.SubscriptionTierFree, 3, 0)
	initialized.ID = bare.ID

	repo.On("GetWorkspaceByID", mock.Anything, bare.ID).Return(mo.Some(bare), nil).Once()
	repo.On("InitSubscription", mock.Anything, bare.ID, mock.Anything).Return(false, nil)
	repo.On("GetWorkspaceByID", mock.Anything, bare.ID).Return(mo.Some(initialized), nil).Once()

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), bare.ID, models.FeatureAutoCoaching)

	assert.True(t, result.Allowed)
	assert.Equal(t, 17, result.RemainingUsage, "usage from the concurrent initializer must be honored")
}

func TestCheckAccess_FailsClosedOnStorageError(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	repo.On("GetWorkspaceByID", mock.Anything, mock.Anything).
		Return(mo.None[*models.Workspace](), errors.New("connection refused"))

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), "ws_01J5TESTWORKSPACE0000000004", models.FeatureAutoCoaching)

	assert.False(t, result.Allowed)
	assert.Equal(t, "validation failed", result.Reason)
}

func TestCheckAccess_FailsClosedOnInitError(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	bare := &models.Workspace{ID: "ws_01J5TESTWORKSPACE0000000005", Active: true}
	repo.On("GetWorkspaceByID", mock.Anything, bare.ID).Return(mo.Some(bare), nil)
	repo.On("InitSubscription", mock.Anything, bare.ID, mock.Anything).
		Return(false, errors.New("write conflict"))

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), bare.ID, models.FeatureAutoCoaching)

	assert.False(t, result.Allowed)
	assert.Equal(t, "validation failed", result.Reason)
}

func TestCheckAccess_MissingWorkspaceFailsClosed(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	repo.On("GetWorkspaceByID", mock.Anything, mock.Anything).
		Return(mo.None[*models.Workspace](), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	result := service.CheckAccess(context.Background(), "ws_01J5TESTWORKSPACE0000000006", models.FeatureAutoCoaching)

	assert.False(t, result.Allowed)
}

func TestRecordUsage_IncrementsWithCeiling(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := workspaceWithUsage(models.SubscriptionTierFree, 5, 0)
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)
	repo.On("IncrementUsage", mock.Anything, ws.ID, models.FeatureAutoCoaching, 20).Return(true, nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	err := service.RecordUsage(context.Background(), ws.ID, models.FeatureAutoCoaching)

	require.NoError(t, err)
	repo.AssertCalled(t, "IncrementUsage", mock.Anything, ws.ID, models.FeatureAutoCoaching, 20)
}

func TestRecordUsage_SaturationIsTolerated(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := workspaceWithUsage(models.SubscriptionTierFree, 19, 0)
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)
	// A concurrent request took the last slot between our check and increment.
	repo.On("IncrementUsage", mock.Anything, ws.ID, models.FeatureAutoCoaching, 20).Return(false, nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	err := service.RecordUsage(context.Background(), ws.ID, models.FeatureAutoCoaching)

	assert.NoError(t, err, "saturated counter is tolerated, the action already ran")
}

func TestRecordUsage_RejectsNonRateLimitedFeature(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	ws := workspaceWithUsage(models.SubscriptionTierFree, 0, 0)
	repo.On("GetWorkspaceByID", mock.Anything, ws.ID).Return(mo.Some(ws), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	err := service.RecordUsage(context.Background(), ws.ID, models.FeatureReports)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not rate-limited")
}

func TestEndToEnd_FreeTierQuotaExhaustion(t *testing.T) {
	// Scenario: FREE workspace at 19/20 autoCoaching. Check passes with one
	// slot left, usage is recorded, and the next check is denied.
	repo := new(MockWorkspacesRepository)
	at19 := workspaceWithUsage(models.SubscriptionTierFree, 19, 0)
	at20 := workspaceWithUsage(models.SubscriptionTierFree, 20, 0)

	repo.On("GetWorkspaceByID", mock.Anything, at19.ID).Return(mo.Some(at19), nil).Times(2)
	repo.On("IncrementUsage", mock.Anything, at19.ID, models.FeatureAutoCoaching, 20).Return(true, nil)
	repo.On("GetWorkspaceByID", mock.Anything, at19.ID).Return(mo.Some(at20), nil).Once()

	service := NewEntitlementsServiceWithClock(repo, fixedClock)

	first := service.CheckAccess(context.Background(), at19.ID, models.FeatureAutoCoaching)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.RemainingUsage)

	require.NoError(t, service.RecordUsage(context.Background(), at19.ID, models.FeatureAutoCoaching))

	second := service.CheckAccess(context.Background(), at19.ID, models.FeatureAutoCoaching)
	assert.False(t, second.Allowed)
	assert.Contains(t, second.Reason, "20/20")
	assert.True(t, second.UpgradeRequired)
}

func TestResetExpiredBillingPeriods(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	repo.On("ResetExpiredBillingPeriods", mock.Anything, testNow).Return(int64(3), nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	reset, err := service.ResetExpiredBillingPeriods(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), reset)
}

func TestApplySubscriptionChange_Validation(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	service := NewEntitlementsServiceWithClock(repo, fixedClock)

	start := testNow
	end := testNow.AddDate(0, 1, 0)

	err := service.ApplySubscriptionChange(context.Background(), "ws_x", models.Subscription{
		Tier:               "ENTERPRISE",
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown subscription tier")

	err = service.ApplySubscriptionChange(context.Background(), "ws_x", models.Subscription{
		Tier: models.SubscriptionTierPro,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "period bounds")

	err = service.ApplySubscriptionChange(context.Background(), "ws_x", models.Subscription{
		Tier:               models.SubscriptionTierPro,
		CurrentPeriodStart: &end,
		CurrentPeriodEnd:   &start,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after period start")
}

func TestApplySubscriptionChange_Success(t *testing.T) {
	repo := new(MockWorkspacesRepository)
	start := testNow
	end := testNow.AddDate(0, 1, 0)
	sub := models.Subscription{
		Tier:               models.SubscriptionTierPro,
		Status:             models.SubscriptionStatusActive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
	repo.On("UpdateSubscription", mock.Anything, "ws_x", sub).Return(nil)

	service := NewEntitlementsServiceWithClock(repo, fixedClock)
	require.NoError(t, service.ApplySubscriptionChange(context.Background(), "ws_x", sub))
	repo.AssertExpectations(t)
}
