package importer

import (
	"context"
	"fmt"
	"os"

	"slackimporter/appctx"
	"slackimporter/models"
)

// runUsers streams users.json and upserts one global user entity per
// Slack member (spec.md 4.2 step 1). Deleted users are still imported: the
// export phase decides what a deleted user maps to.
func (p *Pipeline) runUsers(ctx context.Context, extractDir string) error {
	path, ok := findExportFile(extractDir, "users.json")
	if !ok {
		return fmt.Errorf("users.json not found in export")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open users.json: %w", err)
	}
	defer f.Close()

	count := 0
	err = streamJSONArray(f, func(u models.SlackExportUser) error {
		if u.ID == "" {
			return nil
		}
		if _, err := p.graph.UpsertUser(ctx, u.ID, models.UserData{SlackExportUser: u}); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	if jobID, ok := appctx.JobID(ctx); ok {
		return p.jobs.IncrementMetaCounter(ctx, jobID, "json_files_processed", 1)
	}
	return nil
}
