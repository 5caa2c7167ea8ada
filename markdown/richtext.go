package markdown

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// These shapes mirror the subset of Slack's blocks/rich_text JSON schema
// (https://api.slack.com/reference/block-kit/blocks) the conversion cares
// about. Slack's actual payload is much larger; unknown fields are dropped
// by mapstructure rather than causing a decode error.

type block struct {
	Type     string           `mapstructure:"type"`
	Text     *textObject      `mapstructure:"text"`
	Fields   []textObject     `mapstructure:"fields"`
	Elements []map[string]any `mapstructure:"elements"`
	ImageURL string           `mapstructure:"image_url"`
	AltText  string           `mapstructure:"alt_text"`
}

type textObject struct {
	Type string `mapstructure:"type"`
	Text string `mapstructure:"text"`
}

// richTextElement covers both the inline runs found inside a
// rich_text_section (text/link/user/channel/emoji/broadcast) and the
// structural containers (rich_text_section/list/quote/preformatted) that
// hold them.
type richTextElement struct {
	Type      string           `mapstructure:"type"`
	Text      string           `mapstructure:"text"`
	URL       string           `mapstructure:"url"`
	UserID    string           `mapstructure:"user_id"`
	ChannelID string           `mapstructure:"channel_id"`
	Name      string           `mapstructure:"name"` // emoji shortcode, broadcast range ("here"/"channel"/"everyone")
	Style     map[string]bool  `mapstructure:"style"`
	Elements  []map[string]any `mapstructure:"elements"`
}

type resolvers struct {
	usernameBySlackID    map[string]string
	channelNameBySlackID map[string]string
}

// renderBlocks walks a Block Kit payload top to bottom, joining each
// block's rendered markdown with blank lines, the way Slack itself renders
// vertically stacked blocks.
func renderBlocks(raw []map[string]any, r resolvers) string {
	var parts []string
	for _, rawBlock := range raw {
		var b block
		if err := mapstructure.Decode(rawBlock, &b); err != nil {
			continue
		}
		if rendered := renderBlock(b, r); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(b block, r resolvers) string {
	switch b.Type {
	case "section":
		if b.Text != nil {
			return convertPlainText(b.Text.Text, r.usernameBySlackID, r.channelNameBySlackID)
		}
		var fields []string
		for _, f := range b.Fields {
			fields = append(fields, convertPlainText(f.Text, r.usernameBySlackID, r.channelNameBySlackID))
		}
		return strings.Join(fields, "\n")
	case "header":
		if b.Text == nil {
			return ""
		}
		return "# " + convertPlainText(b.Text.Text, r.usernameBySlackID, r.channelNameBySlackID)
	case "divider":
		return "---"
	case "context":
		var parts []string
		for _, el := range b.Elements {
			if text, ok := el["text"].(string); ok {
				parts = append(parts, convertPlainText(text, r.usernameBySlackID, r.channelNameBySlackID))
			}
		}
		return strings.Join(parts, " | ")
	case "image":
		return fmt.Sprintf("![%s](%s)", b.AltText, b.ImageURL)
	case "rich_text":
		var parts []string
		for _, el := range b.Elements {
			var e richTextElement
			if err := mapstructure.Decode(el, &e); err != nil {
				continue
			}
			if rendered := renderRichTextContainer(e, r); rendered != "" {
				parts = append(parts, rendered)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// renderRichTextContainer handles the structural rich_text_* wrappers:
// section (a run of inline elements), list (one line per item, bulleted or
// numbered), quote (each line prefixed with "> "), and preformatted
// (wrapped in a fenced code block).
func renderRichTextContainer(e richTextElement, r resolvers) string {
	switch e.Type {
	case "rich_text_section":
		return renderInlineRuns(e.Elements, r)
	case "rich_text_quote":
		text := renderInlineRuns(e.Elements, r)
		var lines []string
		for _, line := range strings.Split(text, "\n") {
			lines = append(lines, "> "+line)
		}
		return strings.Join(lines, "\n")
	case "rich_text_preformatted":
		return "```\n" + renderInlineRuns(e.Elements, r) + "\n```"
	case "rich_text_list":
		var lines []string
		for i, item := range e.Elements {
			var itemEl richTextElement
			if err := mapstructure.Decode(item, &itemEl); err != nil {
				continue
			}
			bullet := "-"
			if e.Style["ordered"] {
				bullet = fmt.Sprintf("%d.", i+1)
			}
			lines = append(lines, fmt.Sprintf("%s %s", bullet, renderInlineRuns(itemEl.Elements, r)))
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// renderInlineRuns renders the leaf elements of a rich_text_section: plain
// text (with bold/italic/strike/code styling applied), links, user/channel
// mentions, emoji shortcodes, and broadcast ranges.
func renderInlineRuns(raw []map[string]any, r resolvers) string {
	var sb strings.Builder
	for _, rawEl := range raw {
		var e richTextElement
		if err := mapstructure.Decode(rawEl, &e); err != nil {
			continue
		}
		sb.WriteString(renderInlineRun(e, r))
	}
	return sb.String()
}

func renderInlineRun(e richTextElement, r resolvers) string {
	switch e.Type {
	case "text":
		return applyStyle(e.Text, e.Style)
	case "link":
		if e.Text != "" {
			return fmt.Sprintf("[%s](%s)", e.Text, e.URL)
		}
		return e.URL
	case "user":
		if username, ok := r.usernameBySlackID[e.UserID]; ok {
			return "@" + username
		}
		return fmt.Sprintf("<@%s>", e.UserID)
	case "channel":
		if name, ok := r.channelNameBySlackID[e.ChannelID]; ok {
			return "~" + name
		}
		return fmt.Sprintf("<#%s>", e.ChannelID)
	case "emoji":
		return ":" + e.Name + ":"
	case "broadcast":
		return "@" + e.Name
	default:
		return ""
	}
}

func applyStyle(text string, style map[string]bool) string {
	if style["code"] {
		return "`" + text + "`"
	}
	if style["bold"] {
		text = "**" + text + "**"
	}
	if style["italic"] {
		text = "_" + text + "_"
	}
	if style["strike"] {
		text = "~~" + text + "~~"
	}
	return text
}
