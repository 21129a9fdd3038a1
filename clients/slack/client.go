package slack

import (
	"context"

	"github.com/slack-go/slack"

	"claritybackend/clients"
)

// SlackClient implements the clients.SlackClient interface using the
// slack-go/slack SDK.
type SlackClient struct {
	*slack.Client
}

// NewSlackClient creates a new Slack client with the provided bot token.
// One client per workspace.
func NewSlackClient(authToken string) clients.SlackClient {
	return &SlackClient{
		Client: slack.New(authToken),
	}
}

// PostEphemeral sends a message visible only to the given user in the channel.
func (c *SlackClient) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	_, err := c.Client.PostEphemeralContext(
		ctx,
		channelID,
		userID,
		slack.MsgOptionText(text, false),
	)
	return err
}

// PostMessage sends a message to a Slack channel.
func (c *SlackClient) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := c.Client.PostMessageContext(
		ctx,
		channelID,
		slack.MsgOptionText(text, false),
	)
	return err
}

// GetPermalink gets a permalink URL for a message.
func (c *SlackClient) GetPermalink(channelID, messageTS string) (string, error) {
	return c.Client.GetPermalink(&slack.PermalinkParameters{
		Channel: channelID,
		Ts:      messageTS,
	})
}

// GetUserInfo gets information about a Slack user.
func (c *SlackClient) GetUserInfo(ctx context.Context, userID string) (*clients.SlackUser, error) {
	user, err := c.Client.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &clients.SlackUser{
		ID:          user.ID,
		Name:        user.Name,
		DisplayName: user.Profile.DisplayName,
		RealName:    user.Profile.RealName,
	}, nil
}
