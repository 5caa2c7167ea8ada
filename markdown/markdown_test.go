package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slackimporter/models"
)

func testResolvers() Resolvers {
	return Resolvers{
		UsernameBySlackID:    map[string]string{"U123": "alice"},
		ChannelNameBySlackID: map[string]string{"C456": "general"},
	}
}

func TestConvertPlainTextLinkAndMention(t *testing.T) {
	msg := models.SlackExportMessage{Text: "see <https://example.com|the docs> <@U123>"}
	got := Convert(msg, testResolvers())
	assert.Equal(t, "see [the docs](https://example.com) @alice", got)
}

func TestConvertPlainTextBoldAndStrike(t *testing.T) {
	msg := models.SlackExportMessage{Text: "this is *bold* and this is ~gone~"}
	got := Convert(msg, testResolvers())
	assert.Equal(t, "this is **bold** and this is ~~gone~~", got)
}

func TestConvertPlainTextChannelMention(t *testing.T) {
	msg := models.SlackExportMessage{Text: "join <#C456|general>"}
	got := Convert(msg, testResolvers())
	assert.Equal(t, "join ~general", got)
}

func TestConvertBlocksSectionAndHeader(t *testing.T) {
	msg := models.SlackExportMessage{
		Blocks: []map[string]any{
			{"type": "header", "text": map[string]any{"type": "plain_text", "text": "Release notes"}},
			{"type": "section", "text": map[string]any{"type": "mrkdwn", "text": "all good"}},
			{"type": "divider"},
		},
	}
	got := Convert(msg, testResolvers())
	assert.Contains(t, got, "# Release notes")
	assert.Contains(t, got, "all good")
	assert.Contains(t, got, "---")
}

func TestConvertRichTextSectionWithStyledRuns(t *testing.T) {
	msg := models.SlackExportMessage{
		Blocks: []map[string]any{
			{
				"type": "rich_text",
				"elements": []map[string]any{
					{
						"type": "rich_text_section",
						"elements": []map[string]any{
							{"type": "text", "text": "hello ", "style": map[string]bool{}},
							{"type": "text", "text": "world", "style": map[string]bool{"bold": true}},
							{"type": "user", "user_id": "U123"},
						},
					},
				},
			},
		},
	}
	got := Convert(msg, testResolvers())
	assert.Equal(t, "hello **world**@alice", got)
}

func TestConvertClassicAttachmentsJoinedWithSeparator(t *testing.T) {
	msg := models.SlackExportMessage{
		Text: "check this out",
		Attachments: []map[string]any{
			{"title": "A link preview", "text": "some description"},
		},
	}
	got := Convert(msg, testResolvers())
	assert.Contains(t, got, "check this out")
	assert.Contains(t, got, "\n\n---\n\n")
	assert.Contains(t, got, "**A link preview**")
	assert.Contains(t, got, "some description")
}

func TestConvertEmptyMessageFallsBackToPlainText(t *testing.T) {
	msg := models.SlackExportMessage{Text: ""}
	assert.Equal(t, "", Convert(msg, testResolvers()))
}
