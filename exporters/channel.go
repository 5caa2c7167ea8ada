package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"slackimporter/appctx"
	"slackimporter/clients"
	"slackimporter/models"
	"slackimporter/services/entitygraph"
)

const maxChannelDisplayName = 64

var crlfReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// sanitizeDisplayName enforces Mattermost's display_name boundary rules
// (spec.md section 8): CR/LF become spaces, the result is truncated to 64
// characters, and an empty result falls back to the channel's Slack name.
func sanitizeDisplayName(raw, fallback string) string {
	name := crlfReplacer.Replace(raw)
	if len(name) > maxChannelDisplayName {
		name = name[:maxChannelDisplayName]
	}
	if name == "" {
		name = fallback
	}
	return name
}

// ChannelExporter creates the Mattermost conversation a Slack channel maps
// to: a DM, a group DM, or a regular (public/private) channel, then adds
// its members (spec.md 4.4).
type ChannelExporter struct {
	mm     clients.MattermostClient
	graph  *entitygraph.Service
	teamID string
}

func NewChannelExporter(mm clients.MattermostClient, graph *entitygraph.Service, teamID string) *ChannelExporter {
	return &ChannelExporter{mm: mm, graph: graph, teamID: teamID}
}

func (e *ChannelExporter) Type() models.EntityType { return models.EntityTypeChannel }

func (e *ChannelExporter) Export(ctx context.Context, entity *models.Entity) (string, error) {
	var data models.ChannelData
	if err := json.Unmarshal(entity.Data, &data); err != nil {
		return "", fmt.Errorf("decode channel data: %w", err)
	}

	jobID, ok := appctx.JobID(ctx)
	if !ok {
		return "", fmt.Errorf("channel export requires a job id in context")
	}

	memberMattermostIDs, unresolved, err := e.resolveMembers(ctx, jobID, entity.ID)
	if err != nil {
		return "", err
	}

	switch {
	case data.IsDM():
		if len(memberMattermostIDs) != 2 {
			return "", Skip("dm %s has %d resolved members (want 2, %d unresolved)", entity.SlackID, len(memberMattermostIDs), unresolved)
		}
		ch, err := e.mm.CreateDM(ctx, models.MMCreateDMRequest{UserID1: memberMattermostIDs[0], UserID2: memberMattermostIDs[1]})
		if err != nil {
			return "", fmt.Errorf("create dm: %w", err)
		}
		return ch.ID, nil

	case data.IsGroupDM():
		if len(memberMattermostIDs) < 2 {
			return "", Skip("group dm %s has only %d resolved members", entity.SlackID, len(memberMattermostIDs))
		}
		ch, err := e.mm.CreateGroupDM(ctx, models.MMCreateGroupDMRequest{MemberIDs: memberMattermostIDs})
		if err != nil {
			return "", fmt.Errorf("create group dm: %w", err)
		}
		return ch.ID, nil

	default:
		channelType := "O"
		if data.IsPrivateChannel() {
			channelType = "P"
		}
		ch, err := e.mm.CreateChannel(ctx, models.MMCreateChannelRequest{
			TeamID:      e.teamID,
			Name:        data.Name,
			DisplayName: sanitizeDisplayName(data.Name, data.Name),
			Type:        channelType,
			Purpose:     data.Purpose.Value,
			Header:      data.Topic.Value,
		})
		if err != nil {
			return "", fmt.Errorf("create channel: %w", err)
		}

		if len(memberMattermostIDs) > 0 {
			for _, memberID := range memberMattermostIDs {
				if err := e.mm.AddTeamMember(ctx, e.teamID, memberID); err != nil {
					return "", fmt.Errorf("ensure team membership for %s: %w", memberID, err)
				}
			}
			if err := e.mm.AddChannelMembers(ctx, models.MMAddChannelMembersRequest{
				ChannelID: ch.ID,
				UserIDs:   memberMattermostIDs,
			}); err != nil {
				return "", fmt.Errorf("add channel members: %w", err)
			}
		}

		if data.IsArchived {
			if err := e.mm.ArchiveChannel(ctx, ch.ID); err != nil {
				return "", fmt.Errorf("archive channel: %w", err)
			}
		}
		return ch.ID, nil
	}
}

// resolveMembers looks up every channel_member edge for this channel and
// returns the Mattermost ids of members that have already been exported.
// Members whose user export hasn't landed yet (shouldn't happen given the
// user-before-channel type barrier, but import data can be inconsistent)
// are counted but skipped rather than failing the whole channel.
func (e *ChannelExporter) resolveMembers(ctx context.Context, jobID, channelEntityID int64) ([]string, int, error) {
	relations, err := e.graph.RelationsFrom(ctx, jobID, channelEntityID, models.RelationChannelMember)
	if err != nil {
		return nil, 0, fmt.Errorf("list channel members: %w", err)
	}

	var ids []string
	unresolved := 0
	for _, rel := range relations {
		memberOpt, err := e.graph.Entities().GetEntityByID(ctx, nil, rel.ToEntity)
		if err != nil {
			return nil, 0, err
		}
		member, ok := memberOpt.Get()
		if !ok || member.MattermostID == "" {
			unresolved++
			continue
		}
		ids = append(ids, member.MattermostID)
	}
	return ids, unresolved, nil
}
