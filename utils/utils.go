package utils

import (
	"regexp"
)

func AssertInvariant(condition bool, message string) {
	if !condition {
		panic("invariant violated - " + message)
	}
}

// ConvertMarkdownToSlack rewrites common markdown constructs into Slack's
// mrkdwn dialect. Coaching suggestions come back from the model as markdown.
func ConvertMarkdownToSlack(message string) string {
	result := message

	// Markdown links [text](url) become Slack format <url|text>.
	// This must be done first to avoid conflicts with other formatting.
	linkRegex := regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	result = linkRegex.ReplaceAllString(result, "<$2|$1>")

	// Headings with embedded bold markdown: extract and convert the content first
	headingRegex := regexp.MustCompile(`(?m)^#+\s*(.+)$`)
	result = headingRegex.ReplaceAllStringFunc(result, func(match string) string {
		content := regexp.MustCompile(`^#+\s*(.+)$`).ReplaceAllString(match, "$1")
		boldRegex := regexp.MustCompile(`\*\*(.+?)\*\*`)
		content = boldRegex.ReplaceAllString(content, "$1")
		return "*" + content + "*"
	})

	// Remaining **text** (double asterisks) becomes *text* (single asterisks)
	boldRegex := regexp.MustCompile(`\*\*(.+?)\*\*`)
	result = boldRegex.ReplaceAllString(result, "*$1*")

	return result
}

// TruncateText cuts a message excerpt to at most maxLen runes, appending an
// ellipsis when something was removed. Used for report message examples.
func TruncateText(text string, maxLen int) string {
	AssertInvariant(maxLen > 0, "maxLen must be positive")
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
