package models

import (
	"time"
)

const (
	// MaxCoachingFlags is the per-user ceiling on custom flag slots.
	MaxCoachingFlags = 15
	// MaxFlagNameLength and MaxFlagDescriptionLength bound user-supplied text.
	MaxFlagNameLength        = 50
	MaxFlagDescriptionLength = 200
)

// CoachingFlag is one user-configurable rule the analyzer checks messages
// against. Flag ids referenced by analysis instances and reports are 1-based
// positions in the user's flag list (or in the default list when the user has
// no custom flags), so Position is significant and gap-free.
type CoachingFlag struct {
	ID          string    `db:"id"           json:"id"`
	WorkspaceID string    `db:"workspace_id" json:"workspace_id"`
	SlackUserID string    `db:"slack_user_id" json:"slack_user_id"`
	Position    int       `db:"position"     json:"position"`
	Name        string    `db:"name"         json:"name"`
	Description string    `db:"description"  json:"description"`
	Enabled     bool      `db:"enabled"      json:"enabled"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}

// FlagDefinition is a resolved flag as seen by the analyzer and the report
// aggregator: a 1-based id plus display fields and a severity weight.
type FlagDefinition struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Enabled     bool    `json:"enabled"`
	Weight      float64 `json:"weight"`
}

// DefaultFlagWeight applies to custom flags, which have no curated severity.
const DefaultFlagWeight = 0.5

// DefaultCoachingFlags is the built-in 8-flag list used when a user has
// configured no custom flags. Weights rank how severely each flag counts
// against the communication score.
func DefaultCoachingFlags() []FlagDefinition {
	return []FlagDefinition{
		{ID: 1, Name: "Harsh tone", Description: "Wording that reads as aggressive or confrontational", Enabled: true, Weight: 0.7},
		{ID: 2, Name: "Dismissive reply", Description: "Brushing off a question or concern without engaging", Enabled: true, Weight: 0.8},
		{ID: 3, Name: "Passive-aggressive", Description: "Indirect hostility or veiled criticism", Enabled: true, Weight: 0.9},
		{ID: 4, Name: "Demanding", Description: "Orders without context or room for discussion", Enabled: true, Weight: 0.6},
		{ID: 5, Name: "Personal criticism", Description: "Criticizing the person rather than the work", Enabled: true, Weight: 1.0},
		{ID: 6, Name: "Sarcasm", Description: "Sarcastic remarks that can read as contempt in writing", Enabled: true, Weight: 0.6},
		{ID: 7, Name: "Public call-out", Description: "Singling someone out negatively in a shared channel", Enabled: true, Weight: 0.8},
		{ID: 8, Name: "Terse one-liner", Description: "Abrupt minimal replies that can feel cold", Enabled: true, Weight: 0.3},
	}
}

// WeightForFlag returns the severity weight for a flag id against a resolved
// definition list, falling back to DefaultFlagWeight for unknown ids.
func WeightForFlag(definitions []FlagDefinition, flagID int) float64 {
	for _, def := range definitions {
		if def.ID == flagID {
			return def.Weight
		}
	}
	return DefaultFlagWeight
}
