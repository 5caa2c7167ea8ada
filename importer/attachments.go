package importer

import (
	"context"
	"encoding/json"
	"fmt"

	"slackimporter/models"
)

// runAttachments walks every imported message's embedded files and
// upserts one attachment entity each, linked back to its owning message
// via a message_file relation (spec.md 4.2 step 7). Files without a
// url_private are ignored: they have nothing for the export phase to
// download.
func (p *Pipeline) runAttachments(ctx context.Context, extractDir string) error {
	jobID, ok := jobIDFrom(ctx)
	if !ok {
		return fmt.Errorf("runAttachments requires a job id in context")
	}

	messages, err := p.graph.ListMessagesForJob(ctx, jobID)
	if err != nil {
		return err
	}

	for _, msgEntity := range messages {
		var data models.MessageData
		if err := json.Unmarshal(msgEntity.Data, &data); err != nil {
			continue
		}
		for _, file := range data.Files {
			if file.ID == "" || file.URLPrivate == "" {
				continue
			}
			attachmentEntity, err := p.graph.UpsertAttachment(ctx, jobID, file.ID, models.AttachmentData{
				SlackExportFile: file,
				MessageTs:       data.Ts,
				ChannelSlackID:  data.ChannelSlackID,
			})
			if err != nil {
				return err
			}
			if err := p.graph.Relate(ctx, jobID, models.RelationMessageFile, msgEntity.ID, attachmentEntity.ID); err != nil {
				return err
			}
			if err := p.jobs.IncrementMetaCounter(ctx, jobID, "totals.attachments", 1); err != nil {
				return err
			}
		}
	}
	return nil
}
