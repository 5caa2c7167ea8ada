package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	dbtx "slackimporter/db/tx"
	"slackimporter/models"
)

// PostgresImportJobsRepository is the repository for import_jobs, the
// top-level job-supervisor table (spec.md 3, 5).
type PostgresImportJobsRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresImportJobsRepository(db *sqlx.DB, schema string) *PostgresImportJobsRepository {
	return &PostgresImportJobsRepository{db: db, schema: schema}
}

const importJobColumns = `id, team_name, mattermost_team, status, current_stage, archive_path, meta, error, created_at, updated_at`

func (r *PostgresImportJobsRepository) CreateJob(ctx context.Context, job *models.ImportJob) (*models.ImportJob, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s.import_jobs (team_name, mattermost_team, status, current_stage, archive_path, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, r.schema, importJobColumns)

	emptyMeta, _ := json.Marshal(models.JobMeta{})
	var row models.ImportJob
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.GetContext(
		ctx, q, &row, query,
		job.TeamName, job.MattermostTeam, models.JobStatusQueued, models.StageExtracting,
		job.ArchivePath, json.RawMessage(emptyMeta),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}
	return &row, nil
}

func (r *PostgresImportJobsRepository) GetJobByID(ctx context.Context, id int64) (mo.Option[*models.ImportJob], error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.import_jobs WHERE id = $1`, importJobColumns, r.schema)
	var row models.ImportJob
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.GetContext(ctx, q, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.ImportJob](), nil
		}
		return mo.None[*models.ImportJob](), fmt.Errorf("failed to get import job: %w", err)
	}
	return mo.Some(&row), nil
}

// ListByStatus returns jobs in a given status ordered by (created_at, id),
// the global FIFO ordering the export orchestrator polls against (spec.md
// 4.5).
func (r *PostgresImportJobsRepository) ListByStatus(ctx context.Context, status models.ImportJobStatus) ([]*models.ImportJob, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s.import_jobs WHERE status = $1 ORDER BY created_at ASC, id ASC`,
		importJobColumns, r.schema,
	)
	var rows []*models.ImportJob
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.SelectContext(ctx, q, &rows, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs by status: %w", err)
	}
	return rows, nil
}

// ListRunningExporting returns jobs whose status is "running" and whose
// current_stage is "exporting", ordered FIFO — the orchestrator's batch
// query (spec.md 4.5 step 1).
func (r *PostgresImportJobsRepository) ListRunningExporting(ctx context.Context, anchorJobID *int64) ([]*models.ImportJob, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s.import_jobs WHERE status = $1 AND current_stage = $2`,
		importJobColumns, r.schema,
	)
	args := []any{models.JobStatusRunning, models.StageExporting}
	if anchorJobID != nil {
		query += fmt.Sprintf(` AND (created_at, id) <= (SELECT created_at, id FROM %s.import_jobs WHERE id = $3)`, r.schema)
		args = append(args, *anchorJobID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var rows []*models.ImportJob
	q := dbtx.GetTransactional(ctx, r.db)
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list running/exporting import jobs: %w", err)
	}
	return rows, nil
}

// ListRecent returns the most recently created jobs, newest first, for the
// dashboard-facing GET /jobs endpoint.
func (r *PostgresImportJobsRepository) ListRecent(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s.import_jobs ORDER BY created_at DESC, id DESC LIMIT $1`,
		importJobColumns, r.schema,
	)
	var rows []*models.ImportJob
	q := dbtx.GetTransactional(ctx, r.db)
	if err := sqlx.SelectContext(ctx, q, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent import jobs: %w", err)
	}
	return rows, nil
}

// DeleteJob removes the job row; entities and relations scoped to it cascade
// via the FK (spec.md supplemented job-deletion feature). Idempotent: a
// missing row is not an error.
func (r *PostgresImportJobsRepository) DeleteJob(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s.import_jobs WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete import job %d: %w", id, err)
	}
	return nil
}

func (r *PostgresImportJobsRepository) UpdateStatus(ctx context.Context, id int64, status models.ImportJobStatus) error {
	query := fmt.Sprintf(`UPDATE %s.import_jobs SET status = $2, updated_at = now() WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("failed to update import job status: %w", err)
	}
	return nil
}

// UpdateStage advances current_stage, writing it before the stage's work
// begins as spec.md 4.2 requires.
func (r *PostgresImportJobsRepository) UpdateStage(ctx context.Context, id int64, stage models.ImportStage) error {
	query := fmt.Sprintf(`UPDATE %s.import_jobs SET current_stage = $2, updated_at = now() WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, stage); err != nil {
		return fmt.Errorf("failed to update import job stage: %w", err)
	}
	return nil
}

// UpdateStatusAndStage is a convenience for transitions that change both
// columns in lockstep (e.g. queued/extracting -> exporting/exporting).
func (r *PostgresImportJobsRepository) UpdateStatusAndStage(
	ctx context.Context, id int64, status models.ImportJobStatus, stage models.ImportStage,
) error {
	query := fmt.Sprintf(
		`UPDATE %s.import_jobs SET status = $2, current_stage = $3, updated_at = now() WHERE id = $1`,
		r.schema,
	)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, status, stage); err != nil {
		return fmt.Errorf("failed to update import job status/stage: %w", err)
	}
	return nil
}

func (r *PostgresImportJobsRepository) MarkFailed(ctx context.Context, id int64, jobErr error) error {
	query := fmt.Sprintf(
		`UPDATE %s.import_jobs SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		r.schema,
	)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, models.JobStatusFailed, jobErr.Error()); err != nil {
		return fmt.Errorf("failed to mark import job failed: %w", err)
	}
	return nil
}

// IncrementMetaCounter atomically bumps one nested numeric field of the
// meta JSON document ("processed.messages", "json_files_processed", ...)
// with a single statement, never a read-modify-write round trip, so
// concurrent exporters/parsers racing to update the same job never clobber
// each other's counts (spec.md 4.2, 5 "shared resource policy").
func (r *PostgresImportJobsRepository) IncrementMetaCounter(ctx context.Context, id int64, dotPath string, delta int) error {
	segments := strings.Split(dotPath, ".")
	path := "{" + strings.Join(segments, ",") + "}"

	query := fmt.Sprintf(`
		UPDATE %s.import_jobs
		SET meta = jsonb_set(
			meta::jsonb,
			$2,
			to_jsonb(COALESCE((meta::jsonb #>> $2)::int, 0) + $3)
		)::json,
		updated_at = now()
		WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, path, delta); err != nil {
		return fmt.Errorf("failed to increment import job meta counter %q: %w", dotPath, err)
	}
	return nil
}

// SetMetaField atomically overwrites one nested field of the meta JSON
// document, used for scalar writes like json_files_total, extract_dir,
// and the totals computed by the import pre-pass.
func (r *PostgresImportJobsRepository) SetMetaField(ctx context.Context, id int64, dotPath string, value any) error {
	segments := strings.Split(dotPath, ".")
	path := "{" + strings.Join(segments, ",") + "}"

	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal meta field value: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s.import_jobs
		SET meta = jsonb_set(meta::jsonb, $2, $3::jsonb, true)::json,
		updated_at = now()
		WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, path, json.RawMessage(valueJSON)); err != nil {
		return fmt.Errorf("failed to set import job meta field %q: %w", dotPath, err)
	}
	return nil
}

// DeleteMetaKey removes a top-level meta key, used to strip the transient
// extract_dir once the import phase is done (spec.md 4.2 "Cleanup").
func (r *PostgresImportJobsRepository) DeleteMetaKey(ctx context.Context, id int64, key string) error {
	query := fmt.Sprintf(`UPDATE %s.import_jobs SET meta = (meta::jsonb - $2)::json, updated_at = now() WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, key); err != nil {
		return fmt.Errorf("failed to delete import job meta key %q: %w", key, err)
	}
	return nil
}
