package entitlements

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"claritybackend/models"
)

// MockWorkspacesRepository is a mock implementation of WorkspacesRepository
type MockWorkspacesRepository struct {
	mock.Mock
}

func (m *MockWorkspacesRepository) GetWorkspaceByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.Workspace], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[*models.Workspace]), args.Error(1)
}

func (m *MockWorkspacesRepository) InitSubscription(
	ctx context.Context,
	workspaceID string,
	sub models.Subscription,
) (bool, error) {
	args := m.Called(ctx, workspaceID, sub)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkspacesRepository) IncrementUsage(
	ctx context.Context,
	workspaceID string,
	feature models.Feature,
	ceiling int,
) (bool, error) {
	args := m.Called(ctx, workspaceID, feature, ceiling)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkspacesRepository) ResetExpiredBillingPeriods(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWorkspacesRepository) UpdateSubscription(
	ctx context.Context,
	workspaceID string,
	sub models.Subscription,
) error {
	args := m.Called(ctx, workspaceID, sub)
	return args.Error(0)
}
