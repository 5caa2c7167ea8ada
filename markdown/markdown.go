package markdown

import (
	"strings"

	"github.com/mitchellh/mapstructure"

	"slackimporter/models"
)

// Resolvers bundles the per-job lookups needed to turn Slack id references
// embedded in a message (mentions, channel links) into Mattermost-facing
// names. Both maps are built once from already-exported entities before a
// channel's messages are exported (spec.md 4.4.1, 4.6).
type Resolvers struct {
	UsernameBySlackID    map[string]string
	ChannelNameBySlackID map[string]string
}

func (r Resolvers) toInternal() resolvers {
	return resolvers{usernameBySlackID: r.UsernameBySlackID, channelNameBySlackID: r.ChannelNameBySlackID}
}

// Convert renders a Slack message body as Mattermost markdown. Messages
// carrying the newer Block Kit payload are rendered by walking the block
// tree; messages with only classic attachments render each attachment's
// text joined by a horizontal rule; everything else falls back to the
// mmetl-grounded plain-text regex pipeline.
func Convert(msg models.SlackExportMessage, r Resolvers) string {
	internal := r.toInternal()

	if len(msg.Blocks) > 0 {
		if rendered := renderBlocks(msg.Blocks, internal); rendered != "" {
			return rendered
		}
	}

	if len(msg.Attachments) > 0 {
		return renderClassicAttachments(msg.Text, msg.Attachments, internal)
	}

	return convertPlainText(msg.Text, internal.usernameBySlackID, internal.channelNameBySlackID)
}

type classicAttachment struct {
	Pretext  string `mapstructure:"pretext"`
	Title    string `mapstructure:"title"`
	Text     string `mapstructure:"text"`
	Fallback string `mapstructure:"fallback"`
}

// renderClassicAttachments mirrors how Slack itself displays pre-Block-Kit
// attachments: the message text first, then each attachment's title/body
// stacked below it, visually separated the way Slack's own UI separates
// attachment cards.
func renderClassicAttachments(text string, raw []map[string]any, r resolvers) string {
	parts := []string{convertPlainText(text, r.usernameBySlackID, r.channelNameBySlackID)}

	for _, rawAtt := range raw {
		var att classicAttachment
		if err := mapstructure.Decode(rawAtt, &att); err != nil {
			continue
		}
		body := att.Text
		if body == "" {
			body = att.Fallback
		}
		body = convertPlainText(body, r.usernameBySlackID, r.channelNameBySlackID)

		var section []string
		if att.Pretext != "" {
			section = append(section, convertPlainText(att.Pretext, r.usernameBySlackID, r.channelNameBySlackID))
		}
		if att.Title != "" {
			section = append(section, "**"+att.Title+"**")
		}
		if body != "" {
			section = append(section, body)
		}
		if len(section) > 0 {
			parts = append(parts, strings.Join(section, "\n"))
		}
	}

	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n---\n\n")
}
