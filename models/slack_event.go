package models

// SlackMessageEvent carries the fields of a Slack `message` event the
// coaching pipeline cares about.
type SlackMessageEvent struct {
	TeamID   string
	Channel  string
	User     string
	Text     string
	TS       string
	ThreadTS string
	BotID    string
	Subtype  string
}
