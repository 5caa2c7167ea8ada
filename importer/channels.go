package importer

import (
	"context"
	"fmt"
	"log"
	"os"

	"slackimporter/models"
)

// channelFileSet is how mmetl's ParseSlackExportFile distinguishes Slack's
// four root-level channel-kind files; each maps straight onto one of our
// SlackExportChannel shape's classification helpers at export time.
var channelFileSet = []string{"channels.json", "groups.json", "dms.json", "mpims.json"}

// runChannels streams every present channel-kind file and upserts one
// global channel entity per Slack conversation, plus a channel_member
// relation per listed member (spec.md 4.2 step 2). Members the workspace
// export doesn't know about (left the workspace before users.json was
// generated) are skipped rather than failing the whole stage.
func (p *Pipeline) runChannels(ctx context.Context, extractDir string) error {
	for _, name := range channelFileSet {
		path, ok := findExportFile(extractDir, name)
		if !ok {
			continue
		}
		if err := p.importChannelFile(ctx, path); err != nil {
			return fmt.Errorf("failed to import %s: %w", name, err)
		}
	}
	return nil
}

func (p *Pipeline) importChannelFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return streamJSONArray(f, func(c models.SlackExportChannel) error {
		if c.ID == "" {
			return nil
		}
		channelEntity, err := p.graph.UpsertChannel(ctx, c.ID, models.ChannelData{SlackExportChannel: c})
		if err != nil {
			return err
		}

		jobID, ok := jobIDFrom(ctx)
		if !ok {
			return nil // members relation is job-scoped; nothing to link against without a job
		}

		for _, memberSlackID := range c.Members {
			member, err := p.graph.GetUser(ctx, memberSlackID)
			if err != nil {
				return err
			}
			if member == nil {
				log.Printf("⚠️ channel %s: member %s not found in users.json, skipping", c.ID, memberSlackID)
				continue
			}
			if err := p.graph.Relate(ctx, jobID, models.RelationChannelMember, channelEntity.ID, member.ID); err != nil {
				return err
			}
		}
		return nil
	})
}
