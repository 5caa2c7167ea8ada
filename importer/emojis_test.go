package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slackimporter/models"
)

func TestResolveEmojiAliasDirect(t *testing.T) {
	full := map[string]string{"partyparrot": "https://emoji.example/partyparrot.gif"}
	url, ok := resolveEmojiAlias("partyparrot", full, make(map[string]bool), 0)
	assert.True(t, ok)
	assert.Equal(t, "https://emoji.example/partyparrot.gif", url)
}

func TestResolveEmojiAliasChain(t *testing.T) {
	full := map[string]string{
		"party":       "alias:partyparrot",
		"partyparrot": "https://emoji.example/partyparrot.gif",
	}
	url, ok := resolveEmojiAlias("party", full, make(map[string]bool), 0)
	assert.True(t, ok)
	assert.Equal(t, "https://emoji.example/partyparrot.gif", url)
}

func TestResolveEmojiAliasCycleIsSafe(t *testing.T) {
	full := map[string]string{
		"a": "alias:b",
		"b": "alias:a",
	}
	_, ok := resolveEmojiAlias("a", full, make(map[string]bool), 0)
	assert.False(t, ok)
}

func TestResolveEmojiAliasUnknown(t *testing.T) {
	_, ok := resolveEmojiAlias("does_not_exist", map[string]string{}, make(map[string]bool), 0)
	assert.False(t, ok)
}

func TestResolveEmojiAliasDepthLimit(t *testing.T) {
	full := map[string]string{}
	name := "e0"
	for i := 0; i < maxEmojiAliasDepth+5; i++ {
		next := "e" + string(rune('a'+i))
		full[name] = "alias:" + next
		name = next
	}
	full[name] = "https://emoji.example/final.gif"
	_, ok := resolveEmojiAlias("e0", full, make(map[string]bool), 0)
	assert.False(t, ok, "chain longer than the depth limit must not resolve")
}

func TestShortcodesInFindsTextAndBlocks(t *testing.T) {
	data := models.MessageData{
		SlackExportMessage: models.SlackExportMessage{
			Text:   "nice one :partyparrot:",
			Blocks: []map[string]any{{"type": "section", "text": map[string]any{"text": ":tada: great work"}}},
		},
	}
	names := shortcodesIn(data)
	assert.Contains(t, names, "partyparrot")
	assert.Contains(t, names, "tada")
}
