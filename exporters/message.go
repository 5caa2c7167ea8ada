package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"slackimporter/appctx"
	"slackimporter/clients"
	"slackimporter/markdown"
	"slackimporter/models"
	"slackimporter/services/entitygraph"
)

// MessageExporter pushes one message as a Mattermost post, resolving its
// channel, author, thread root, and attached files from already-exported
// entities (spec.md 4.4, 4.6).
type MessageExporter struct {
	mm       clients.MattermostClient
	graph    *entitygraph.Service
	resolver MentionResolver
}

func NewMessageExporter(mm clients.MattermostClient, graph *entitygraph.Service, resolver MentionResolver) *MessageExporter {
	return &MessageExporter{mm: mm, graph: graph, resolver: resolver}
}

func (e *MessageExporter) Type() models.EntityType { return models.EntityTypeMessage }

func (e *MessageExporter) Export(ctx context.Context, entity *models.Entity) (string, error) {
	var data models.MessageData
	if err := json.Unmarshal(entity.Data, &data); err != nil {
		return "", fmt.Errorf("decode message data: %w", err)
	}

	jobID, ok := appctx.JobID(ctx)
	if !ok {
		return "", fmt.Errorf("message export requires a job id in context")
	}

	channelMattermostID, ok := e.resolver.ChannelMattermostID(data.ChannelSlackID)
	if !ok || channelMattermostID == "" {
		var err error
		channelMattermostID, err = e.resolveTo(ctx, jobID, entity.ID, models.RelationMessageChannel)
		if err != nil {
			return "", err
		}
	}
	if channelMattermostID == "" {
		return "", Skip("message %s has no exported owning channel", entity.SlackID)
	}

	authorMattermostID, authorSlackID, err := e.resolveAuthor(ctx, jobID, entity, data)
	if err != nil {
		return "", err
	}

	if authorMattermostID != "" && authorSlackID != "" && data.ChannelSlackID != "" {
		if e.resolver.EnsureMembership(data.ChannelSlackID, authorSlackID) {
			if err := e.mm.AddChannelMembers(ctx, models.MMAddChannelMembersRequest{
				ChannelID: channelMattermostID,
				UserIDs:   []string{authorMattermostID},
			}); err != nil {
				log.Printf("⚠️ best-effort add author %s to channel %s failed: %v", authorMattermostID, channelMattermostID, err)
			}
		}
	}

	var rootID string
	if data.IsReply() {
		rootID, err = e.resolveTo(ctx, jobID, entity.ID, models.RelationMessageParent)
		if err != nil {
			return "", err
		}
	}

	fileIDs, err := e.resolveFiles(ctx, jobID, entity.ID)
	if err != nil {
		return "", err
	}

	body := markdown.Convert(data.SlackExportMessage, markdown.Resolvers{
		UsernameBySlackID:    e.resolver.Usernames(),
		ChannelNameBySlackID: e.resolver.ChannelNames(),
	})

	postID, err := e.mm.ImportPost(ctx, models.MMCreatePostRequest{
		ChannelID: channelMattermostID,
		Message:   body,
		RootID:    rootID,
		FileIDs:   fileIDs,
		CreateAt:  slackTsToMillis(data.Ts),
		UserID:    authorMattermostID,
	})
	if err != nil {
		return "", fmt.Errorf("import post: %w", err)
	}
	return postID, nil
}

// resolveAuthor implements the post-author fallback chain: the
// message_author relation (authoritative - handles synthetic bot-user
// entities the raw Slack fields don't name), then the raw Slack
// user/bot_id field resolved through the shared cache, then the importing
// admin account as a last resort so a post is never created with no author
// at all. The returned Slack id is whichever one the resolution matched,
// for channel-membership bookkeeping.
func (e *MessageExporter) resolveAuthor(ctx context.Context, jobID int64, entity *models.Entity, data models.MessageData) (mattermostID, slackID string, err error) {
	slackID = data.User
	if slackID == "" {
		slackID = data.BotID
	}

	if id, rErr := e.resolveTo(ctx, jobID, entity.ID, models.RelationMessageAuthor); rErr != nil {
		return "", slackID, rErr
	} else if id != "" {
		return id, slackID, nil
	}

	if slackID != "" {
		if id, ok := e.resolver.UserMattermostID(slackID); ok && id != "" {
			return id, slackID, nil
		}
	}

	me, mErr := e.mm.GetUserMe(ctx)
	if mErr != nil {
		return "", slackID, fmt.Errorf("resolve fallback author via /users/me: %w", mErr)
	}
	return me.ID, slackID, nil
}

// resolveTo follows one outgoing relation from entity and returns the
// target's Mattermost id, or "" if no such relation or target exists yet.
func (e *MessageExporter) resolveTo(ctx context.Context, jobID, fromEntityID int64, relType models.RelationType) (string, error) {
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

func (e *MessageExporter) resolveFiles(ctx context.Context, jobID, messageEntityID int64) ([]string, error) {
	relations, err := e.graph.RelationsFrom(ctx, jobID, messageEntityID, models.RelationMessageFile)
	if err != nil {
		return nil, fmt.Errorf("list message_file relations: %w", err)
	}
	var ids []string
	for _, rel := range relations {
		fileOpt, err := e.graph.Entities().GetEntityByID(ctx, nil, rel.ToEntity)
		if err != nil {
			return nil, err
		}
		if file, ok := fileOpt.Get(); ok && file.MattermostID != "" {
			ids = append(ids, file.MattermostID)
		}
	}
	return ids, nil
}

// slackTsToMillis converts a Slack timestamp string ("1700000000.000100")
// into Mattermost's millisecond create_at epoch.
func slackTsToMillis(ts string) int64 {
	parts := strings.SplitN(ts, ".", 2)
	secs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	millis := int64(0)
	if len(parts) == 2 {
		frac := (parts[1] + "000")[:3]
		if ms, err := strconv.ParseInt(frac, 10, 64); err == nil {
			millis = ms
		}
	}
	return secs*1000 + millis
}

