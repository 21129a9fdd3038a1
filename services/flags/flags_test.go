package flags

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"claritybackend/models"
	"claritybackend/services"
)

const (
	testWorkspaceID = "ws_01ARZ3NDEKTSV4RRFFQ69G5FAV"
	testUserID      = "U111111"
)

func setupFlagsService() (*CoachingFlagsService, *MockCoachingFlagsRepository) {
	mockRepo := new(MockCoachingFlagsRepository)
	service := NewCoachingFlagsService(mockRepo, new(services.MockTransactionManager))
	return service, mockRepo
}

func TestListFlagDefinitions(t *testing.T) {
	t.Run("NoCustomFlags_Defaults", func(t *testing.T) {
		service, mockRepo := setupFlagsService()

		mockRepo.On("GetCoachingFlags", mock.Anything, testWorkspaceID, testUserID).
			Return([]*models.CoachingFlag{}, nil)

		definitions, err := service.ListFlagDefinitions(context.Background(), testWorkspaceID, testUserID)

		require.NoError(t, err)
		require.Len(t, definitions, 8)
		assert.Equal(t, "Harsh tone", definitions[0].Name)
		assert.Equal(t, 1, definitions[0].ID)
		for _, definition := range definitions {
			assert.True(t, definition.Enabled)
			assert.Greater(t, definition.Weight, 0.0)
		}
	})

	t.Run("CustomFlags_PositionsBecomeIDs", func(t *testing.T) {
		service, mockRepo := setupFlagsService()

		custom := []*models.CoachingFlag{
			{ID: "flag_1", Position: 1, Name: "Interrupting", Enabled: true},
			{ID: "flag_2", Position: 2, Name: "Wall of text", Enabled: false},
		}
		mockRepo.On("GetCoachingFlags", mock.Anything, testWorkspaceID, testUserID).
			Return(custom, nil)

		definitions, err := service.ListFlagDefinitions(context.Background(), testWorkspaceID, testUserID)

		require.NoError(t, err)
		require.Len(t, definitions, 2)
		assert.Equal(t, 1, definitions[0].ID)
		assert.Equal(t, "Interrupting", definitions[0].Name)
		assert.Equal(t, models.DefaultFlagWeight, definitions[0].Weight)
		assert.False(t, definitions[1].Enabled)
	})
}

func TestCreateFlag(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		service, mockRepo := setupFlagsService()

		mockRepo.On("CountCoachingFlags", mock.Anything, testWorkspaceID, testUserID).Return(3, nil)
		mockRepo.On("CreateCoachingFlag", mock.Anything, mock.MatchedBy(func(flag *models.CoachingFlag) bool {
			return flag.WorkspaceID == testWorkspaceID &&
				flag.SlackUserID == testUserID &&
				flag.Name == "Interrupting" &&
				flag.Enabled
		})).Run(func(args mock.Arguments) {
			// The insert assigns the next position and returns it.
			args.Get(1).(*models.CoachingFlag).Position = 4
		}).Return(nil)

		flag, err := service.CreateFlag(context.Background(), testWorkspaceID, testUserID, "  Interrupting  ", "Cutting people off mid-thread")

		require.NoError(t, err)
		assert.Equal(t, "Interrupting", flag.Name)
		// The returned position is the 1-based flag id shown to the user, so
		// it must carry the repo's assignment, never a zero value.
		assert.GreaterOrEqual(t, flag.Position, 1)
		assert.Equal(t, 4, flag.Position)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptyName", func(t *testing.T) {
		service, _ := setupFlagsService()
		_, err := service.CreateFlag(context.Background(), testWorkspaceID, testUserID, "   ", "desc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("NameTooLong", func(t *testing.T) {
		service, _ := setupFlagsService()
		_, err := service.CreateFlag(context.Background(), testWorkspaceID, testUserID, strings.Repeat("x", models.MaxFlagNameLength+1), "desc")
		require.Error(t, err)
	})

	t.Run("DescriptionTooLong", func(t *testing.T) {
		service, _ := setupFlagsService()
		_, err := service.CreateFlag(context.Background(), testWorkspaceID, testUserID, "name", strings.Repeat("x", models.MaxFlagDescriptionLength+1))
		require.Error(t, err)
	})

	t.Run("LimitReached", func(t *testing.T) {
		service, mockRepo := setupFlagsService()

		mockRepo.On("CountCoachingFlags", mock.Anything, testWorkspaceID, testUserID).
			Return(models.MaxCoachingFlags, nil)

		_, err := service.CreateFlag(context.Background(), testWorkspaceID, testUserID, "One more", "desc")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "flag limit reached")
		mockRepo.AssertNotCalled(t, "CreateCoachingFlag", mock.Anything, mock.Anything)
	})
}

func TestSetFlagEnabled(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		service, mockRepo := setupFlagsService()

		mockRepo.On("SetCoachingFlagEnabled", mock.Anything, testWorkspaceID, testUserID, 2, false).Return(nil)

		err := service.SetFlagEnabled(context.Background(), testWorkspaceID, testUserID, 2, false)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("InvalidPosition", func(t *testing.T) {
		service, _ := setupFlagsService()
		err := service.SetFlagEnabled(context.Background(), testWorkspaceID, testUserID, 0, true)
		require.Error(t, err)
	})
}

func TestDeleteFlag(t *testing.T) {
	t.Run("Success_RunsInTransaction", func(t *testing.T) {
		service, mockRepo := setupFlagsService()

		mockRepo.On("DeleteCoachingFlag", mock.Anything, testWorkspaceID, testUserID, 3).Return(nil)

		err := service.DeleteFlag(context.Background(), testWorkspaceID, testUserID, 3)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("InvalidPosition", func(t *testing.T) {
		service, _ := setupFlagsService()
		err := service.DeleteFlag(context.Background(), testWorkspaceID, testUserID, 0)
		require.Error(t, err)
	})
}
