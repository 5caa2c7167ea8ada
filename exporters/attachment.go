package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"slackimporter/appctx"
	"slackimporter/clients"
	"slackimporter/config"
	"slackimporter/models"
	"slackimporter/services/entitygraph"
)

// AttachmentExporter downloads a Slack file and re-uploads it to the
// Mattermost channel its owning message belongs to (spec.md 4.4). Files
// past the configured size limit are skipped rather than failing the job.
type AttachmentExporter struct {
	mm         clients.MattermostClient
	slackFiles clients.SlackFileClient
	graph      *entitygraph.Service
	cfg        config.ExportConfig
}

func NewAttachmentExporter(
	mm clients.MattermostClient,
	slackFiles clients.SlackFileClient,
	graph *entitygraph.Service,
	cfg config.ExportConfig,
) *AttachmentExporter {
	return &AttachmentExporter{mm: mm, slackFiles: slackFiles, graph: graph, cfg: cfg}
}

func (e *AttachmentExporter) Type() models.EntityType { return models.EntityTypeAttachment }

func (e *AttachmentExporter) Export(ctx context.Context, entity *models.Entity) (string, error) {
	var data models.AttachmentData
	if err := json.Unmarshal(entity.Data, &data); err != nil {
		return "", fmt.Errorf("decode attachment data: %w", err)
	}

	if e.cfg.AttachmentMaxMB > 0 && data.Size > int64(e.cfg.AttachmentMaxMB)*1024*1024 {
		return "", Skip("attachment %s is %d bytes, over the %dMB limit", entity.SlackID, data.Size, e.cfg.AttachmentMaxMB)
	}

	jobID, ok := appctx.JobID(ctx)
	if !ok {
		return "", fmt.Errorf("attachment export requires a job id in context")
	}
	channelMattermostID, err := e.resolveChannel(ctx, jobID, entity.ID)
	if err != nil {
		return "", err
	}
	if channelMattermostID == "" {
		return "", Skip("attachment %s has no exported owning channel yet", entity.SlackID)
	}

	reader, err := e.slackFiles.DownloadFile(ctx, data.URLPrivate)
	if err != nil {
		return "", fmt.Errorf("download attachment: %w", err)
	}
	defer reader.Close()

	filename := data.Name
	if filename == "" {
		filename = entity.SlackID
	}

	if e.cfg.AttachmentMultipart {
		fileID, err := e.mm.UploadAttachmentMultipart(ctx, channelMattermostID, filename, reader)
		if err != nil {
			return "", fmt.Errorf("upload attachment: %w", err)
		}
		return fileID, nil
	}

	buf, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("buffer attachment for base64 upload: %w", err)
	}
	fileID, err := e.mm.UploadAttachmentBase64(ctx, channelMattermostID, filename, buf)
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return fileID, nil
}

// resolveChannel walks message_file backwards to the owning message, then
// message_channel forwards to that message's channel, returning the
// channel's exported Mattermost id (or "" if the channel hasn't exported
// yet, which shouldn't happen given the channel-before-attachment barrier).
func (e *AttachmentExporter) resolveChannel(ctx context.Context, jobID, attachmentEntityID int64) (string, error) {
	owningMessages, err := e.graph.RelationsTo(ctx, jobID, attachmentEntityID, models.RelationMessageFile)
	if err != nil {
		return "", fmt.Errorf("list owning messages: %w", err)
	}
	if len(owningMessages) == 0 {
		return "", nil
	}

	channelRelations, err := e.graph.RelationsFrom(ctx, jobID, owningMessages[0].FromEntity, models.RelationMessageChannel)
	if err != nil {
		return "", fmt.Errorf("list owning channel: %w", err)
	}
	if len(channelRelations) == 0 {
		return "", nil
	}

	channelOpt, err := e.graph.Entities().GetEntityByID(ctx, nil, channelRelations[0].ToEntity)
	if err != nil {
		return "", err
	}
	channel, ok := channelOpt.Get()
	if !ok {
		return "", nil
	}
	return channel.MattermostID, nil
}
