package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"claritybackend/clients"
	"claritybackend/models"
)

const analyzeSystemPrompt = `You are a workplace communication coach. You review one Slack message at a time against a list of communication flags and respond with strict JSON only, no markdown fences, matching this schema:
{"flagged": bool, "flag_ids": [int], "target_ids": [string], "rephrase": string, "coaching": string}
flag_ids are the ids of flags the message triggers. target_ids are Slack user ids mentioned as <@U...> that the message is directed at. rephrase is a kinder version of the message keeping its intent. coaching is one short private tip for the author. When nothing is flagged, return {"flagged": false, "flag_ids": [], "target_ids": [], "rephrase": "", "coaching": ""}.`

const rephraseSystemPrompt = `You are a workplace communication coach. Rewrite the user's message to be kinder and clearer while keeping its intent and meaning. Respond with the rewritten message only - no preamble, no quotes.`

const insightsSystemPrompt = `You are a workplace communication coach writing the narrative sections of a periodic communication report. Respond with strict JSON only, no markdown fences, matching this schema:
{"recommendations": [string], "insights": [string], "achievements": [string], "ranked_examples": [int]}
ranked_examples orders the provided example messages by how instructive they are, as zero-based indices. Keep every list short and concrete.`

// CoachClient implements the clients.CoachClient interface against the
// Anthropic Messages API.
type CoachClient struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewCoachClient(apiKey string) clients.CoachClient {
	return &CoachClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.ModelClaudeSonnet4_20250514,
	}
}

// AnalyzeMessage evaluates one message against the user's active flag list.
func (c *CoachClient) AnalyzeMessage(
	ctx context.Context,
	req clients.AnalyzeMessageRequest,
) (*clients.AnalyzeMessageResult, error) {
	var flagList strings.Builder
	for _, flag := range req.Flags {
		if !flag.Enabled {
			continue
		}
		fmt.Fprintf(&flagList, "%d. %s: %s\n", flag.ID, flag.Name, flag.Description)
	}

	userPrompt := fmt.Sprintf("Flags:\n%s\nMessage:\n%s", flagList.String(), req.Text)

	raw, err := c.complete(ctx, analyzeSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze message: %w", err)
	}

	var parsed struct {
		Flagged   bool     `json:"flagged"`
		FlagIDs   []int    `json:"flag_ids"`
		TargetIDs []string `json:"target_ids"`
		Rephrase  string   `json:"rephrase"`
		Coaching  string   `json:"coaching"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	// The model occasionally flags without ids or vice versa; trust the ids.
	result := &clients.AnalyzeMessageResult{
		Flagged:   len(parsed.FlagIDs) > 0,
		FlagIDs:   validFlagIDs(parsed.FlagIDs, req.Flags),
		TargetIDs: parsed.TargetIDs,
		Rephrase:  parsed.Rephrase,
		Coaching:  parsed.Coaching,
	}
	result.Flagged = len(result.FlagIDs) > 0
	return result, nil
}

// RephraseMessage rewrites a message the user explicitly asked to improve.
func (c *CoachClient) RephraseMessage(ctx context.Context, text string) (string, error) {
	raw, err := c.complete(ctx, rephraseSystemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("failed to rephrase message: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// GenerateReportInsights drafts the free-text report sections. The raw JSON
// is returned untouched; the report aggregator normalizes it with fallbacks,
// so a malformed response here is tolerated downstream.
func (c *CoachClient) GenerateReportInsights(
	ctx context.Context,
	req clients.ReportInsightsRequest,
) (json.RawMessage, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Communication score: %d\n", req.CommunicationScore)
	fmt.Fprintf(&prompt, "Messages analyzed: %d, flagged: %d\n", req.TotalMessages, req.FlaggedMessages)
	if len(req.TopFlags) > 0 {
		fmt.Fprintf(&prompt, "Most frequent flags: %s\n", strings.Join(req.TopFlags, ", "))
	}
	for i, example := range req.ExampleTexts {
		fmt.Fprintf(&prompt, "Example %d: %s\n", i, example)
	}

	raw, err := c.complete(ctx, insightsSystemPrompt, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate report insights: %w", err)
	}

	return json.RawMessage(extractJSON(raw)), nil
}

func (c *CoachClient) complete(ctx context.Context, system, user string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return text.String(), nil
}

// extractJSON strips markdown fences the model sometimes wraps around JSON
// despite instructions, and trims to the outermost braces.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}
	var end int
	if raw[start] == '{' {
		end = strings.LastIndex(raw, "}")
	} else {
		end = strings.LastIndex(raw, "]")
	}
	if end <= start {
		return raw
	}
	return raw[start : end+1]
}

// validFlagIDs drops ids outside the active flag list; the model cannot be
// trusted to stay within range.
func validFlagIDs(ids []int, flags []models.FlagDefinition) []int {
	valid := map[int]bool{}
	for _, flag := range flags {
		if flag.Enabled {
			valid[flag.ID] = true
		}
	}
	out := make([]int, 0, len(ids))
	seen := map[int]bool{}
	for _, id := range ids {
		if valid[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
