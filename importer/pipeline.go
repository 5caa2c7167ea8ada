package importer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"slackimporter/appctx"
	"slackimporter/clients"
	"slackimporter/models"
	"slackimporter/services"
	"slackimporter/services/entitygraph"
)

// Pipeline runs the extract/normalize phase of one import job: unzip the
// export, stream-parse every Slack object kind in the fixed stage order,
// and populate the universal entity graph (spec.md 4.2). It never talks to
// Mattermost; that is the export orchestrator's job.
type Pipeline struct {
	jobs       services.ImportJobsRepository
	graph      *entitygraph.Service
	slackFiles clients.SlackFileClient
	tx         services.TransactionManager
	uploadDir  string
}

func New(
	jobs services.ImportJobsRepository,
	graph *entitygraph.Service,
	slackFiles clients.SlackFileClient,
	tx services.TransactionManager,
	uploadDir string,
) *Pipeline {
	return &Pipeline{jobs: jobs, graph: graph, slackFiles: slackFiles, tx: tx, uploadDir: uploadDir}
}

// Run drives one job from queued through every import stage, leaving it at
// status=running, current_stage=exporting on success. A stage error marks
// the job failed and returns it; the job row itself is left as-is so the
// operator can inspect how far it got.
func (p *Pipeline) Run(ctx context.Context, jobID int64) error {
	jobOpt, err := p.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load import job %d: %w", jobID, err)
	}
	job, ok := jobOpt.Get()
	if !ok {
		return fmt.Errorf("import job %d not found", jobID)
	}

	if err := p.jobs.UpdateStatusAndStage(ctx, jobID, models.JobStatusRunning, models.StageExtracting); err != nil {
		return err
	}

	extractDir, err := extractZip(job.ArchivePath, p.uploadDir)
	if err != nil {
		return p.fail(ctx, jobID, fmt.Errorf("extract failed: %w", err))
	}
	defer os.RemoveAll(extractDir)
	if err := p.jobs.SetMetaField(ctx, jobID, "extract_dir", extractDir); err != nil {
		return p.fail(ctx, jobID, err)
	}

	log.Printf("📦 import job %d: extracted %s", jobID, job.ArchivePath)

	stages := []struct {
		stage models.ImportStage
		run   func(ctx context.Context, extractDir string) error
	}{
		{models.StageUsers, p.runUsers},
		{models.StageChannels, p.runChannels},
		{models.StageMessages, p.runMessages},
		{models.StageEmojis, p.runEmojis},
		{models.StageReactions, p.runReactions},
		{models.StageAttachments, p.runAttachments},
	}

	for _, s := range stages {
		if err := p.jobs.UpdateStage(ctx, jobID, s.stage); err != nil {
			return p.fail(ctx, jobID, err)
		}
		stageCtx := appctx.WithJobID(ctx, jobID)
		if err := s.run(stageCtx, extractDir); err != nil {
			return p.fail(ctx, jobID, fmt.Errorf("stage %s failed: %w", s.stage, err))
		}
		log.Printf("✅ import job %d: stage %s complete", jobID, s.stage)
	}

	if err := p.jobs.DeleteMetaKey(ctx, jobID, "extract_dir"); err != nil {
		return p.fail(ctx, jobID, err)
	}
	if err := p.jobs.UpdateStage(ctx, jobID, models.StageExporting); err != nil {
		return p.fail(ctx, jobID, err)
	}
	log.Printf("📤 import job %d: ready for export", jobID)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, jobID int64, err error) error {
	if markErr := p.jobs.MarkFailed(ctx, jobID, err); markErr != nil {
		log.Printf("⚠️ import job %d: failed to record failure: %v", jobID, markErr)
	}
	return err
}

func jobIDFrom(ctx context.Context) (int64, bool) {
	return appctx.JobID(ctx)
}

func findExportFile(extractDir string, candidates ...string) (string, bool) {
	for _, name := range candidates {
		path := filepath.Join(extractDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
