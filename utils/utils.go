package utils

import (
	"fmt"
	"regexp"
)

// AssertInvariant panics with a clear message when a supposedly-impossible
// condition is violated. It guards core.NewID's prefix and the non-nil
// error passed to the entities repository's MarkFailed.
func AssertInvariant(condition bool, message string) {
	if !condition {
		panic("invariant violated - " + message)
	}
}

var (
	mdLinkRegex    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdBoldRegex    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdHeadingRegex = regexp.MustCompile(`(?m)^#+\s*(.+)$`)
)

// ConvertMarkdownToMattermost rewrites a Slack plain-text message body
// (markdown-style links and headings, already-bold `**text**` runs) into
// Mattermost's markdown dialect. Mattermost's bold/heading syntax already
// matches CommonMark, so this mainly collapses Slack's heading+bold
// double-encoding and leaves link syntax untouched; it mirrors the
// teacher's fixed multi-step regex pipeline, run in the opposite direction.
func ConvertMarkdownToMattermost(message string) string {
	result := message

	result = mdHeadingRegex.ReplaceAllStringFunc(result, func(match string) string {
		content := mdHeadingRegex.ReplaceAllString(match, "$1")
		content = mdBoldRegex.ReplaceAllString(content, "**$1**")
		return "# " + content
	})

	return result
}

// mentionRegex matches Slack user mentions embedded in message text, e.g.
// <@U0123ABCD> or <@U0123ABCD|alias>.
var mentionRegex = regexp.MustCompile(`<@([UW][A-Z0-9]+)(?:\|[^>]*)?>`)

// ResolveSlackMentions rewrites `<@U123...>` mentions into Mattermost
// `@username` mentions using a precomputed slack-id -> mattermost-username
// lookup (built from already-exported user entities). Unlike the teacher's
// live-API mention resolver, this never makes a network call during export:
// by the time a message is exported every referenced user has already been
// imported, so resolution is a pure map lookup.
func ResolveSlackMentions(message string, usernameBySlackID map[string]string) string {
	if !mentionRegex.MatchString(message) {
		return message
	}
	return mentionRegex.ReplaceAllStringFunc(message, func(match string) string {
		submatches := mentionRegex.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}
		userID := submatches[1]
		if username, ok := usernameBySlackID[userID]; ok {
			return fmt.Sprintf("@%s", username)
		}
		return match
	})
}
