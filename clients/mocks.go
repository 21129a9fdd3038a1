package clients

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// MockSlackClient is a mock implementation of SlackClient
type MockSlackClient struct {
	mock.Mock
}

func (m *MockSlackClient) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	args := m.Called(ctx, channelID, userID, text)
	return args.Error(0)
}

func (m *MockSlackClient) PostMessage(ctx context.Context, channelID, text string) error {
	args := m.Called(ctx, channelID, text)
	return args.Error(0)
}

func (m *MockSlackClient) GetPermalink(channelID, messageTS string) (string, error) {
	args := m.Called(channelID, messageTS)
	return args.String(0), args.Error(1)
}

func (m *MockSlackClient) GetUserInfo(ctx context.Context, userID string) (*SlackUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SlackUser), args.Error(1)
}

// MockCoachClient is a mock implementation of CoachClient
type MockCoachClient struct {
	mock.Mock
}

func (m *MockCoachClient) AnalyzeMessage(ctx context.Context, req AnalyzeMessageRequest) (*AnalyzeMessageResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AnalyzeMessageResult), args.Error(1)
}

func (m *MockCoachClient) RephraseMessage(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockCoachClient) GenerateReportInsights(ctx context.Context, req ReportInsightsRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
