// Package markdown converts a Slack message body (plain text, or the
// richer blocks/rich_text/classic-attachments payload Slack attaches to
// newer messages) into Mattermost-flavored markdown (spec.md 4.4.1).
package markdown

import (
	"regexp"

	"slackimporter/utils"
)

// These substitution rules are grounded on mattermost-mmetl's
// SlackConvertPostsMarkup: Slack's plain-text markup (bold/strike via bare
// `*`/`~`, `<url|label>` links, `&gt;` blockquotes) needs the same handful
// of regex rewrites mmetl applies when migrating from the older
// plain-text-only Slack export format.
var (
	linkRegex          = regexp.MustCompile(`<([^|<>#@!][^|<>]*)\|([^|<>]+)>`)
	nakedURLRegex      = regexp.MustCompile(`<(https?://[^|<>]+)>`)
	boldRegex          = regexp.MustCompile(`(^|[\s.;,])\*(\S[^*\n]+)\*`)
	strikeRegex        = regexp.MustCompile(`(^|[\s.;,])~(\S[^~\n]+)~`)
	blockquoteRegex    = regexp.MustCompile(`(?sm)^&gt;`)
	channelMentionRe   = regexp.MustCompile(`<#([C][A-Z0-9]+)(?:\|([^>]*))?>`)
	broadcastHereRe    = regexp.MustCompile(`<!here(?:\|[^>]*)?>`)
	broadcastChannelRe = regexp.MustCompile(`<!channel(?:\|[^>]*)?>`)
	broadcastEveryRe   = regexp.MustCompile(`<!everyone(?:\|[^>]*)?>`)
)

// convertPlainText rewrites a Slack plain-text message body into
// Mattermost markdown: user/channel mentions are resolved via the supplied
// lookups (built from already-exported entities, spec.md 4.4.1), and the
// remaining Slack markup quirks are normalized via the mmetl-grounded
// regex table above.
func convertPlainText(text string, usernameBySlackID, channelNameBySlackID map[string]string) string {
	result := text

	result = linkRegex.ReplaceAllString(result, "[$2]($1)")
	result = nakedURLRegex.ReplaceAllString(result, "$1")
	result = boldRegex.ReplaceAllString(result, "$1**$2**")
	result = strikeRegex.ReplaceAllString(result, "$1~~$2~~")
	result = blockquoteRegex.ReplaceAllString(result, ">")

	result = broadcastHereRe.ReplaceAllString(result, "@here")
	result = broadcastChannelRe.ReplaceAllString(result, "@channel")
	result = broadcastEveryRe.ReplaceAllString(result, "@all")

	result = utils.ResolveSlackMentions(result, usernameBySlackID)

	result = channelMentionRe.ReplaceAllStringFunc(result, func(match string) string {
		sub := channelMentionRe.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		if name, ok := channelNameBySlackID[sub[1]]; ok {
			return "~" + name
		}
		if len(sub) == 3 && sub[2] != "" {
			return "~" + sub[2]
		}
		return match
	})

	return result
}
