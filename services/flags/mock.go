package flags

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"claritybackend/models"
)

// MockCoachingFlagsRepository is a mock implementation of CoachingFlagsRepository
type MockCoachingFlagsRepository struct {
	mock.Mock
}

func (m *MockCoachingFlagsRepository) CreateCoachingFlag(ctx context.Context, flag *models.CoachingFlag) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}

func (m *MockCoachingFlagsRepository) GetCoachingFlags(
	ctx context.Context,
	workspaceID, slackUserID string,
) ([]*models.CoachingFlag, error) {
	args := m.Called(ctx, workspaceID, slackUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CoachingFlag), args.Error(1)
}

func (m *MockCoachingFlagsRepository) GetCoachingFlagByPosition(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
) (mo.Option[*models.CoachingFlag], error) {
	args := m.Called(ctx, workspaceID, slackUserID, position)
	return args.Get(0).(mo.Option[*models.CoachingFlag]), args.Error(1)
}

func (m *MockCoachingFlagsRepository) CountCoachingFlags(
	ctx context.Context,
	workspaceID, slackUserID string,
) (int, error) {
	args := m.Called(ctx, workspaceID, slackUserID)
	return args.Int(0), args.Error(1)
}

func (m *MockCoachingFlagsRepository) SetCoachingFlagEnabled(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
	enabled bool,
) error {
	args := m.Called(ctx, workspaceID, slackUserID, position, enabled)
	return args.Error(0)
}

func (m *MockCoachingFlagsRepository) DeleteCoachingFlag(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
) error {
	args := m.Called(ctx, workspaceID, slackUserID, position)
	return args.Error(0)
}
