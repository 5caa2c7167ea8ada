// Package supervisor owns the import_jobs lifecycle: starting an import,
// triggering export, resuming interrupted jobs on process startup, deriving
// the progress view the HTTP boundary serves, and job deletion.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"

	"slackimporter/importer"
	"slackimporter/models"
	"slackimporter/notify"
	"slackimporter/services"
	"slackimporter/services/entitygraph"
)

// Exporter is the subset of orchestrator.Orchestrator the supervisor drives
// in the background; kept as an interface so supervisor doesn't import
// orchestrator directly (it is built one layer above this package in
// cmd/main.go, avoiding an import cycle).
type Exporter interface {
	Run(ctx context.Context, anchorJobID *int64) error
}

type Supervisor struct {
	jobs     services.ImportJobsRepository
	graph    *entitygraph.Service
	pipeline *importer.Pipeline
	exporter Exporter
}

func New(jobs services.ImportJobsRepository, graph *entitygraph.Service, pipeline *importer.Pipeline, exporter Exporter) *Supervisor {
	return &Supervisor{jobs: jobs, graph: graph, pipeline: pipeline, exporter: exporter}
}

// StartImport creates a job row for an uploaded archive and runs the import
// pipeline in the background, matching the teacher's fire-and-forget
// "accept now, process asynchronously" upload handling.
func (s *Supervisor) StartImport(ctx context.Context, teamName, archivePath string) (*models.ImportJob, error) {
	log.Printf("📋 Starting import job for team %s from %s", teamName, archivePath)

	job, err := s.jobs.CreateJob(ctx, &models.ImportJob{
		TeamName:     teamName,
		ArchivePath:  archivePath,
		Status:       models.JobStatusRunning,
		CurrentStage: models.StageExtracting,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	go func() {
		runCtx := context.Background()
		if err := s.pipeline.Run(runCtx, job.ID); err != nil {
			log.Printf("❌ import job %d failed: %v", job.ID, err)
			if markErr := s.jobs.MarkFailed(runCtx, job.ID, err); markErr != nil {
				log.Printf("❌ failed to mark job %d failed: %v", job.ID, markErr)
			}
			notifyJobResult(runCtx, s.jobs, job.ID)
			return
		}
		log.Printf("✅ import job %d finished extracting/parsing, ready for export", job.ID)
	}()

	log.Printf("📋 Completed successfully - started import job %d", job.ID)
	return job, nil
}

// notifyJobResult reloads a job and forwards it to the ops webhook. Used
// wherever a job reaches a terminal outcome: import failure here, export
// success from the orchestrator.
func notifyJobResult(ctx context.Context, jobs services.ImportJobsRepository, jobID int64) {
	maybeJob, err := jobs.GetJobByID(ctx, jobID)
	if err != nil {
		log.Printf("⚠️ failed to reload job %d for notification: %v", jobID, err)
		return
	}
	if job, ok := maybeJob.Get(); ok {
		notify.JobFinished(job)
	}
}

// NotifyJobResult exposes notifyJobResult to collaborators outside this
// package (the export orchestrator) that also need to report terminal job
// outcomes through the same ops webhook path.
func NotifyJobResult(ctx context.Context, jobs services.ImportJobsRepository, jobID int64) {
	notifyJobResult(ctx, jobs, jobID)
}

// TriggerExport kicks off one orchestrator pass in the background, exactly
// the shape of POST /export (spec.md 6: "enqueue/trigger export
// orchestrator in the background").
func (s *Supervisor) TriggerExport(anchorJobID *int64) {
	go func() {
		if err := s.exporter.Run(context.Background(), anchorJobID); err != nil {
			log.Printf("❌ export orchestrator run failed: %v", err)
		}
	}()
}

// ResumeInterruptedJobs finds jobs left running/exporting by a prior
// process instance and re-invokes the export orchestrator, matching
// spec.md 5's "on startup the supervisor finds jobs in running/exporting
// and re-invokes the orchestrator." It never resumes the import phase
// itself (a half-extracted archive is not safely resumable mid-stream);
// operators re-upload if an import crashed before reaching exporting.
func (s *Supervisor) ResumeInterruptedJobs(ctx context.Context) error {
	log.Printf("📋 Starting startup scan for interrupted jobs")

	running, err := s.jobs.ListRunningExporting(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list running/exporting jobs on startup: %w", err)
	}
	if len(running) == 0 {
		log.Printf("📋 Completed successfully - no interrupted jobs found")
		return nil
	}

	log.Printf("🔄 found %d interrupted job(s), re-invoking export orchestrator", len(running))
	s.TriggerExport(nil)
	return nil
}

// ListRecentJobs returns the most recently created jobs, newest first.
func (s *Supervisor) ListRecentJobs(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	return s.jobs.ListRecent(ctx, limit)
}

// GetJob loads a single job by id.
func (s *Supervisor) GetJob(ctx context.Context, jobID int64) (*models.ImportJob, bool, error) {
	maybeJob, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get job %d: %w", jobID, err)
	}
	job, ok := maybeJob.Get()
	return job, ok, nil
}

// DeleteJob removes a job row; job-scoped entities/relations cascade via the
// foreign key (spec.md supplemented job-deletion feature, adapted from the
// teacher's services/jobs/jobs.go DeleteJob).
func (s *Supervisor) DeleteJob(ctx context.Context, jobID int64) error {
	log.Printf("📋 Starting to delete job %d", jobID)

	maybeJob, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job %d for deletion: %w", jobID, err)
	}
	job, ok := maybeJob.Get()
	if !ok {
		log.Printf("📋 Completed successfully - job %d not found (idempotent delete)", jobID)
		return nil
	}

	if job.ArchivePath != "" {
		if err := os.Remove(job.ArchivePath); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️ failed to remove archive for job %d: %v", jobID, err)
		}
	}

	if err := s.jobs.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("failed to delete job %d: %w", jobID, err)
	}

	log.Printf("📋 Completed successfully - deleted job %d", jobID)
	return nil
}
