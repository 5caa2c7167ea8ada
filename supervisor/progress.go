package supervisor

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"slackimporter/models"
)

// JobProgress is the derived view GET /jobs and the SSE stream serve
// alongside the raw job row (spec.md 6 "Jobs endpoint derivation rules").
type JobProgress struct {
	Job                *models.ImportJob `json:"job"`
	Totals             models.EntityCounts `json:"totals"`
	Processed          models.EntityCounts `json:"processed"`
	JSONFilesTotal     int                 `json:"json_files_total"`
	JSONFilesProcessed int                 `json:"json_files_processed"`
}

// importStages is the set of current_stage values progress derivation still
// treats as "mid-import" for the json_files_total fallback rule.
var importStages = map[models.ImportStage]bool{
	models.StageExtracting:  true,
	models.StageUsers:       true,
	models.StageChannels:    true,
	models.StageMessages:    true,
	models.StageEmojis:      true,
	models.StageReactions:   true,
	models.StageAttachments: true,
}

// DeriveProgress computes a job's progress view, filling in whatever its
// stored meta document is missing from the entities table (or, as a last
// resort, the extract directory) per spec.md 6's derivation rules.
func (s *Supervisor) DeriveProgress(ctx context.Context, job *models.ImportJob) (*JobProgress, error) {
	meta, err := job.DecodeMeta()
	if err != nil {
		return nil, fmt.Errorf("failed to decode job %d meta: %w", job.ID, err)
	}

	progress := &JobProgress{
		Job:                job,
		Totals:             meta.Totals,
		JSONFilesTotal:     meta.JSONFilesTotal,
		JSONFilesProcessed: meta.JSONFilesProcessed,
	}

	if progress.Totals == (models.EntityCounts{}) {
		derived, err := s.deriveTotals(ctx, job.ID)
		if err != nil {
			return nil, err
		}
		progress.Totals = derived
	}

	if progress.JSONFilesTotal == 0 && importStages[job.CurrentStage] {
		progress.JSONFilesTotal = s.deriveJSONFilesTotal(meta.ExtractDir, meta.ZipPath)
	}

	derivedProcessed, err := s.deriveProcessed(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	if job.CurrentStage == models.StageExporting || job.CurrentStage == models.StageDone {
		// Progress resets at export start: *_processed tracks export
		// completion, not the leftover import-time counters.
		progress.Processed = derivedProcessed
	} else {
		progress.Processed = maxCounts(meta.Processed, derivedProcessed)
	}

	return progress, nil
}

func (s *Supervisor) deriveTotals(ctx context.Context, jobID int64) (models.EntityCounts, error) {
	messages, err := s.graph.Entities().CountByJobAndType(ctx, jobID, models.EntityTypeMessage)
	if err != nil {
		return models.EntityCounts{}, err
	}
	reactions, err := s.graph.Entities().CountByJobAndType(ctx, jobID, models.EntityTypeReaction)
	if err != nil {
		return models.EntityCounts{}, err
	}
	attachments, err := s.graph.Entities().CountByJobAndType(ctx, jobID, models.EntityTypeAttachment)
	if err != nil {
		return models.EntityCounts{}, err
	}
	return models.EntityCounts{Messages: messages, Reactions: reactions, Attachments: attachments}, nil
}

func (s *Supervisor) deriveProcessed(ctx context.Context, jobID int64) (models.EntityCounts, error) {
	messages, err := s.graph.Entities().CountByJobTypeNonPending(ctx, jobID, models.EntityTypeMessage)
	if err != nil {
		return models.EntityCounts{}, err
	}
	reactions, err := s.graph.Entities().CountByJobTypeNonPending(ctx, jobID, models.EntityTypeReaction)
	if err != nil {
		return models.EntityCounts{}, err
	}
	attachments, err := s.graph.Entities().CountByJobTypeNonPending(ctx, jobID, models.EntityTypeAttachment)
	if err != nil {
		return models.EntityCounts{}, err
	}
	return models.EntityCounts{Messages: messages, Reactions: reactions, Attachments: attachments}, nil
}

// deriveJSONFilesTotal counts top-level channel-kind files plus per-channel
// day files in the still-present extract directory, falling back to
// scanning the original ZIP archive once the extract directory has been
// cleaned up after a finished import.
func (s *Supervisor) deriveJSONFilesTotal(extractDir, zipPath string) int {
	if extractDir != "" {
		if count, ok := countJSONFilesInDir(extractDir); ok {
			return count
		}
	}
	if zipPath != "" {
		if count, ok := countJSONFilesInZip(zipPath); ok {
			return count
		}
	}
	return 0
}

func countJSONFilesInDir(dir string) (int, bool) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, false
	}
	return count, true
}

func countJSONFilesInZip(zipPath string) (int, bool) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, false
	}
	defer r.Close()

	count := 0
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, ".json") {
			count++
		}
	}
	return count, true
}

func maxCounts(a, b models.EntityCounts) models.EntityCounts {
	return models.EntityCounts{
		Messages:    maxInt(a.Messages, b.Messages),
		Reactions:   maxInt(a.Reactions, b.Reactions),
		Attachments: maxInt(a.Attachments, b.Attachments),
		Emojis:      maxInt(a.Emojis, b.Emojis),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
