package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"slackimporter/clients"
	"slackimporter/models"
)

// EmojiExporter creates one custom emoji per resolved Slack shortcode
// (spec.md 4.4, 4.2 step 5).
type EmojiExporter struct {
	mm         clients.MattermostClient
	slackFiles clients.SlackFileClient
	creatorID  string
}

func NewEmojiExporter(mm clients.MattermostClient, slackFiles clients.SlackFileClient, creatorID string) *EmojiExporter {
	return &EmojiExporter{mm: mm, slackFiles: slackFiles, creatorID: creatorID}
}

func (e *EmojiExporter) Type() models.EntityType { return models.EntityTypeCustomEmoji }

// cyrillicTransliteration covers the Cyrillic shortcode names Slack
// workspaces occasionally carry (team-specific in-jokes typed in the
// workspace's own language); Mattermost's emoji name validator only
// accepts ASCII, so these get transliterated rather than dropped.
var cyrillicTransliteration = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

var emojiNameDisallowed = regexp.MustCompile(`[^a-z0-9_+\-]+`)

// sanitizeEmojiName transliterates Cyrillic, lowercases, and strips any
// character Mattermost's emoji name validator rejects.
func sanitizeEmojiName(raw string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(raw) {
		if repl, ok := cyrillicTransliteration[r]; ok {
			sb.WriteString(repl)
			continue
		}
		sb.WriteRune(r)
	}
	return emojiNameDisallowed.ReplaceAllString(sb.String(), "")
}

func (e *EmojiExporter) Export(ctx context.Context, entity *models.Entity) (string, error) {
	var data models.CustomEmojiData
	if err := json.Unmarshal(entity.Data, &data); err != nil {
		return "", fmt.Errorf("decode custom emoji data: %w", err)
	}

	name := sanitizeEmojiName(data.Name)
	if name == "" {
		return "", Skip("emoji %q sanitized to an empty name", data.Name)
	}

	if existing, err := e.mm.GetEmojiByName(ctx, name); err == nil && existing.ID != "" {
		return existing.ID, nil
	}

	if data.URL == "" {
		return "", Skip("emoji %q has no resolvable image url", data.Name)
	}

	image, err := e.slackFiles.DownloadFile(ctx, data.URL)
	if err != nil {
		return "", fmt.Errorf("download emoji image: %w", err)
	}
	defer image.Close()

	emoji, err := e.mm.CreateEmoji(ctx, name, e.creatorID, name, image)
	if err != nil {
		// a concurrent export of the same alias-resolved image may have won
		// the race since the GetEmojiByName check above; treat that as success.
		if existing, getErr := e.mm.GetEmojiByName(ctx, name); getErr == nil && existing.ID != "" {
			return existing.ID, nil
		}
		return "", fmt.Errorf("create mattermost emoji: %w", err)
	}
	return emoji.ID, nil
}
