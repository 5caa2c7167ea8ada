package exporters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"slackimporter/appctx"
	"slackimporter/clients"
	"slackimporter/models"
	"slackimporter/services/entitygraph"
)

// ReactionExporter adds one reaction to its post's author/emoji pair
// (spec.md 4.4, 4.2 step 6's one-row-per-user fan out). Mattermost has no
// separate reaction id; a reaction's "mattermost id" is a composite of the
// three keys that make it unique, recorded for idempotency bookkeeping.
type ReactionExporter struct {
	mm    clients.MattermostClient
	graph *entitygraph.Service
}

func NewReactionExporter(mm clients.MattermostClient, graph *entitygraph.Service) *ReactionExporter {
	return &ReactionExporter{mm: mm, graph: graph}
}

func (e *ReactionExporter) Type() models.EntityType { return models.EntityTypeReaction }

var skinToneSuffix = regexp.MustCompile(`::skin-tone-[1-6]$`)

// standardEmojiAliases maps a Slack shortcode to Mattermost's canonical
// standard-emoji name.
var standardEmojiAliases = map[string]string{
	"+1": "thumbs_up",
	"-1": "thumbs_down",
}

// emojiAlternates lists, in try order, the names different Mattermost
// versions/themes accept for the same standard emoji.
var emojiAlternates = map[string][]string{
	"thumbs_up":   {"thumbs_up", "thumbsup", "+1"},
	"thumbs_down": {"thumbs_down", "thumbsdown", "-1"},
}

// emojiCandidates normalizes a raw Slack reaction name (stripping any
// skin-tone suffix and mapping +1/-1 to their canonical names) and returns
// the ordered list of Mattermost emoji names worth trying.
func emojiCandidates(raw string) []string {
	name := skinToneSuffix.ReplaceAllString(raw, "")
	if canonical, ok := standardEmojiAliases[name]; ok {
		name = canonical
	}
	if alts, ok := emojiAlternates[name]; ok {
		return alts
	}
	return []string{name}
}

func emojiNotFound(err error) bool {
	var apiErr *models.MMAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "couldn't find the emoji") || strings.Contains(msg, "could not find the emoji") ||
		strings.Contains(msg, "emoji not found")
}

func reactionAlreadyExists(err error) bool {
	var apiErr *models.MMAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "already") || strings.Contains(msg, "duplicate")
}

func (e *ReactionExporter) Export(ctx context.Context, entity *models.Entity) (string, error) {
	var data models.ReactionData
	if err := json.Unmarshal(entity.Data, &data); err != nil {
		return "", fmt.Errorf("decode reaction data: %w", err)
	}

	jobID, ok := appctx.JobID(ctx)
	if !ok {
		return "", fmt.Errorf("reaction export requires a job id in context")
	}

	postID, err := e.resolveTo(ctx, jobID, entity.ID, models.RelationReactionMessage)
	if err != nil {
		return "", err
	}
	if postID == "" {
		return "", Skip("reaction %s has no exported post yet", entity.SlackID)
	}

	authorID, err := e.resolveTo(ctx, jobID, entity.ID, models.RelationReactionAuthor)
	if err != nil {
		return "", err
	}
	if authorID == "" {
		return "", Skip("reaction %s has no exported author yet", entity.SlackID)
	}

	candidates := emojiCandidates(data.EmojiName)
	// A custom (workspace-uploaded) emoji name is transliterated from
	// Cyrillic the same way EmojiExporter named it on creation; standard
	// Mattermost emoji names are never transliterated.
	if sanitized := sanitizeEmojiName(candidates[0]); sanitized != "" {
		if existing, getErr := e.mm.GetEmojiByName(ctx, sanitized); getErr == nil && existing != nil && existing.ID != "" {
			candidates[0] = sanitized
		}
	}

	var lastErr error
	for _, name := range candidates {
		createErr := e.mm.CreateReaction(ctx, models.MMCreateReactionRequest{
			UserID:    authorID,
			PostID:    postID,
			EmojiName: name,
			CreateAt:  slackTsToMillis(data.Ts),
		})
		if createErr == nil {
			return reactionCompositeID(postID, authorID, name), nil
		}
		// Mattermost returns a 4xx when the same user already reacted with
		// the same emoji on the same post; treat a duplicate as success
		// rather than a failure, since re-running an export must be
		// idempotent (spec.md 5 "at-most-once effect").
		if reactionAlreadyExists(createErr) {
			return reactionCompositeID(postID, authorID, name), nil
		}
		lastErr = createErr
		if emojiNotFound(createErr) {
			continue
		}
		return "", fmt.Errorf("create reaction: %w", createErr)
	}

	if emojiNotFound(lastErr) {
		return "", Skip("reaction %s: emoji %q not found under any candidate name", entity.SlackID, data.EmojiName)
	}
	return "", fmt.Errorf("create reaction: %w", lastErr)
}

func reactionCompositeID(postID, authorID, emojiName string) string {
	return postID + ":" + authorID + ":" + emojiName
}

func (e *ReactionExporter) resolveTo(ctx context.Context, jobID, fromEntityID int64, relType models.RelationType) (string, error) {
	relations, err := e.graph.RelationsFrom(ctx, jobID, fromEntityID, relType)
	if err != nil {
		return "", fmt.Errorf("list %s relations: %w", relType, err)
	}
	if len(relations) == 0 {
		return "", nil
	}
	targetOpt, err := e.graph.Entities().GetEntityByID(ctx, nil, relations[0].ToEntity)
	if err != nil {
		return "", err
	}
	target, ok := targetOpt.Get()
	if !ok {
		return "", nil
	}
	return target.MattermostID, nil
}
