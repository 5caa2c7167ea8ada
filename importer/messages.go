package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"slackimporter/models"
)

// runMessages walks every channel-day file and upserts one message entity
// per plain or bot message (spec.md 4.2 step 3). Join/leave and other
// system subtypes are dropped entirely: they carry no content worth
// migrating. Bot authors with no corresponding users.json row get a
// synthetic placeholder user entity so message_author edges always resolve.
func (p *Pipeline) runMessages(ctx context.Context, extractDir string) error {
	jobID, ok := jobIDFrom(ctx)
	if !ok {
		return fmt.Errorf("runMessages requires a job id in context")
	}

	byChannelDir, err := channelDayFiles(extractDir)
	if err != nil {
		return err
	}

	channelsByName, err := p.channelLookup(ctx)
	if err != nil {
		return err
	}

	for dirName, files := range byChannelDir {
		channelEntity, ok := channelsByName[dirName]
		if !ok {
			continue // directory with no matching channels.json/dms.json/... entry
		}
		for _, file := range files {
			if err := p.importMessageFile(ctx, jobID, channelEntity, file); err != nil {
				return fmt.Errorf("failed to import %s: %w", file, err)
			}
		}
	}
	return nil
}

// channelLookup builds a name -> entity index over every known channel, so
// a channel-day directory (named after the channel, not its Slack id) can
// be resolved back to its entity.
func (p *Pipeline) channelLookup(ctx context.Context) (map[string]*models.Entity, error) {
	channels, err := p.graph.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	byName := make(map[string]*models.Entity, len(channels))
	for _, c := range channels {
		var data models.ChannelData
		if err := json.Unmarshal(c.Data, &data); err != nil {
			continue
		}
		if data.Name != "" {
			byName[data.Name] = c
		}
		byName[c.SlackID] = c
	}
	return byName, nil
}

func (p *Pipeline) importMessageFile(ctx context.Context, jobID int64, channelEntity *models.Entity, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return streamJSONArray(f, func(m models.SlackExportMessage) error {
		if m.Ts == "" || m.IsJoinLeaveMessage() {
			return nil
		}
		if !m.IsPlainMessage() && !m.IsBotMessage() && len(m.Files) == 0 {
			return nil
		}

		authorSlackID, err := p.resolveAuthor(ctx, m)
		if err != nil {
			return err
		}

		messageSlackID := channelEntity.SlackID + "_" + m.Ts
		messageEntity, err := p.graph.UpsertMessage(ctx, jobID, messageSlackID, models.MessageData{
			SlackExportMessage: m,
			ChannelSlackID:     channelEntity.SlackID,
		})
		if err != nil {
			return err
		}

		if err := p.graph.Relate(ctx, jobID, models.RelationMessageChannel, messageEntity.ID, channelEntity.ID); err != nil {
			return err
		}

		if authorSlackID != "" {
			author, err := p.graph.GetUser(ctx, authorSlackID)
			if err == nil && author != nil {
				if err := p.graph.Relate(ctx, jobID, models.RelationMessageAuthor, messageEntity.ID, author.ID); err != nil {
					return err
				}
			}
		}

		if m.IsReply() {
			parentSlackID := channelEntity.SlackID + "_" + m.ThreadTs
			parent, err := p.graph.Entities().GetEntityBySlackID(ctx, &jobID, models.EntityTypeMessage, parentSlackID)
			if err == nil && parent != nil {
				if err := p.graph.Relate(ctx, jobID, models.RelationMessageParent, messageEntity.ID, parent.ID); err != nil {
					return err
				}
			}
		}

		return p.jobs.IncrementMetaCounter(ctx, jobID, "totals.messages", 1)
	})
}

// resolveAuthor returns the Slack user id a message should be attributed
// to, creating a synthetic placeholder user entity for bot authors that
// never appear in users.json.
func (p *Pipeline) resolveAuthor(ctx context.Context, m models.SlackExportMessage) (string, error) {
	if m.User != "" {
		return m.User, nil
	}
	if m.BotID == "" {
		return "", nil
	}
	if existing, err := p.graph.GetUser(ctx, m.BotID); err == nil && existing != nil {
		return m.BotID, nil
	}
	_, err := p.graph.UpsertUser(ctx, m.BotID, models.UserData{
		SlackExportUser: models.SlackExportUser{ID: m.BotID, Name: m.BotID, IsBot: true},
		Synthetic:       true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create synthetic bot user %s: %w", m.BotID, err)
	}
	return m.BotID, nil
}
