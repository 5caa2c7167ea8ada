package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/mo"

	dbtx "slackimporter/db/tx"
	"slackimporter/models"
	"slackimporter/utils"
)

// PostgresEntitiesRepository is the repository for the entities table, the
// single store that both the import and export phases of a job read from
// and write to.
type PostgresEntitiesRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresEntitiesRepository(db *sqlx.DB, schema string) *PostgresEntitiesRepository {
	return &PostgresEntitiesRepository{db: db, schema: schema}
}

const entityColumns = `id, job_id, type, slack_id, mattermost_id, status, data, error, created_at, updated_at`

// UpsertEntity inserts a new entity row, or on a (job_id, type, slack_id) /
// (type, slack_id) conflict, updates its data in place. This is what makes
// re-running the import phase against an already-imported job idempotent
// (spec.md 4.1). Global types (e.JobID == nil) converge on one row shared
// across every job; job-scoped types converge per job.
func (r *PostgresEntitiesRepository) UpsertEntity(ctx context.Context, e *models.Entity) (*models.Entity, error) {
	var query string
	args := []any{e.Type, e.SlackID, models.EntityStatusPending, e.Data}

	if e.JobID == nil {
		query = fmt.Sprintf(`
			INSERT INTO %s.entities (job_id, type, slack_id, status, data)
			VALUES (NULL, $1, $2, $3, $4)
			ON CONFLICT (type, slack_id) WHERE job_id IS NULL DO UPDATE SET
				data = EXCLUDED.data,
				updated_at = now()
			RETURNING %s`, r.schema, entityColumns)
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %s.entities (job_id, type, slack_id, status, data)
			VALUES ($5, $1, $2, $3, $4)
			ON CONFLICT (job_id, type, slack_id) WHERE job_id IS NOT NULL DO UPDATE SET
				data = EXCLUDED.data,
				updated_at = now()
			RETURNING %s`, r.schema, entityColumns)
		args = append(args, *e.JobID)
	}

	var row models.Entity
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.GetContext(ctx, q, &row, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// a concurrent importer raced us; re-select the winning row
			return r.GetEntityBySlackID(ctx, e.JobID, e.Type, e.SlackID)
		}
		return nil, fmt.Errorf("failed to upsert entity: %w", err)
	}
	return &row, nil
}

// GetEntityBySlackID looks up an entity by its natural key. jobID is nil
// for global types (user, channel, custom_emoji).
func (r *PostgresEntitiesRepository) GetEntityBySlackID(
	ctx context.Context,
	jobID *int64,
	entityType models.EntityType,
	slackID string,
) (*models.Entity, error) {
	var query string
	args := []any{entityType, slackID}
	if jobID == nil {
		query = fmt.Sprintf(
			`SELECT %s FROM %s.entities WHERE job_id IS NULL AND type = $1 AND slack_id = $2`,
			entityColumns, r.schema,
		)
	} else {
		query = fmt.Sprintf(
			`SELECT %s FROM %s.entities WHERE job_id = $3 AND type = $1 AND slack_id = $2`,
			entityColumns, r.schema,
		)
		args = append(args, *jobID)
	}
	var row models.Entity
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.GetContext(ctx, q, &row, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity by slack id: %w", err)
	}
	return &row, nil
}

func (r *PostgresEntitiesRepository) GetEntityByID(ctx context.Context, jobID *int64, id int64) (mo.Option[*models.Entity], error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.entities WHERE id = $1`, entityColumns, r.schema)
	var row models.Entity
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.GetContext(ctx, q, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.Entity](), nil
		}
		return mo.None[*models.Entity](), fmt.Errorf("failed to get entity by id: %w", err)
	}
	if jobID != nil && (row.JobID == nil || *row.JobID != *jobID) {
		return mo.None[*models.Entity](), nil
	}
	return mo.Some(&row), nil
}

// ListPendingByType returns entities of a type ready to export (status
// pending), ordered by id to give a stable, replayable processing order.
// jobID is nil for global types, where pending rows are listed across the
// whole shared pool rather than one job.
func (r *PostgresEntitiesRepository) ListPendingByType(
	ctx context.Context,
	jobID *int64,
	entityType models.EntityType,
	limit int,
) ([]*models.Entity, error) {
	var query string
	args := []any{entityType, models.EntityStatusPending}
	if jobID == nil {
		query = fmt.Sprintf(
			`SELECT %s FROM %s.entities WHERE job_id IS NULL AND type = $1 AND status = $2 ORDER BY id ASC LIMIT $3`,
			entityColumns, r.schema,
		)
		args = append(args, limit)
	} else {
		query = fmt.Sprintf(
			`SELECT %s FROM %s.entities WHERE job_id = $3 AND type = $1 AND status = $2 ORDER BY id ASC LIMIT $4`,
			entityColumns, r.schema,
		)
		args = append(args, *jobID, limit)
	}
	var rows []*models.Entity
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.SelectContext(ctx, q, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entities: %w", err)
	}
	return rows, nil
}

// ListByType returns every entity of a type regardless of status. jobID is
// nil for global types (user, channel, custom_emoji), used by import
// stages that need to resolve a whole global table by name rather than by
// slack id (e.g. matching a channel-day directory name back to its
// channel entity).
func (r *PostgresEntitiesRepository) ListByType(ctx context.Context, jobID *int64, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	var query string
	args := []any{entityType}
	if jobID == nil {
		query = fmt.Sprintf(
			`SELECT %s FROM %s.entities WHERE job_id IS NULL AND type = $1 ORDER BY id ASC LIMIT $2`,
			entityColumns, r.schema,
		)
		args = append(args, limit)
	} else {
		query = fmt.Sprintf(
			`SELECT %s FROM %s.entities WHERE job_id = $3 AND type = $1 ORDER BY id ASC LIMIT $2`,
			entityColumns, r.schema,
		)
		args = append(args, limit, *jobID)
	}
	var rows []*models.Entity
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.SelectContext(ctx, q, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities by type: %w", err)
	}
	return rows, nil
}

// ListByJobAndType returns every entity of a type for a job regardless of
// status, used by the import pipeline's post-processing stages (emoji
// scan, reaction fan-out, attachment detection) which need to re-walk
// messages already created earlier in the same run.
func (r *PostgresEntitiesRepository) ListByJobAndType(ctx context.Context, jobID int64, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s.entities WHERE job_id = $1 AND type = $2 ORDER BY id ASC LIMIT $3`,
		entityColumns, r.schema,
	)
	var rows []*models.Entity
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.SelectContext(ctx, q, &rows, query, jobID, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities by job and type: %w", err)
	}
	return rows, nil
}

// ListByChannel returns message entities belonging to a channel, used by
// the per-channel export scheduler (spec.md 4.6) which needs all of one
// channel's messages to sort roots-before-replies.
func (r *PostgresEntitiesRepository) ListByChannel(
	ctx context.Context,
	jobID int64,
	channelEntityID int64,
) ([]*models.Entity, error) {
	query := fmt.Sprintf(`
		SELECT e.* FROM %s.entities e
		JOIN %s.entity_relations r ON r.from_entity_id = e.id AND r.type = $3
		WHERE e.job_id = $1 AND r.to_entity_id = $2 AND e.type = $4
		ORDER BY e.id ASC`,
		r.schema, r.schema,
	)
	var rows []*models.Entity
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.SelectContext(
		ctx, q, &rows, query,
		jobID, channelEntityID, models.RelationMessageChannel, models.EntityTypeMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities by channel: %w", err)
	}
	return rows, nil
}

// MarkExporting claims a pending row for processing, so a concurrent count
// of "remaining" work (CountRemainingByType) still sees it as in flight.
func (r *PostgresEntitiesRepository) MarkExporting(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s.entities SET status = $2, updated_at = now() WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, models.EntityStatusExporting); err != nil {
		return fmt.Errorf("failed to mark entity exporting: %w", err)
	}
	return nil
}

// MarkSkipped records a domain-level skip (oversized attachment, unresolved
// emoji, invalid DM member count): terminal, but distinct from a failure.
func (r *PostgresEntitiesRepository) MarkSkipped(ctx context.Context, id int64, reason string) error {
	query := fmt.Sprintf(
		`UPDATE %s.entities SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		r.schema,
	)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, models.EntityStatusSkipped, reason); err != nil {
		return fmt.Errorf("failed to mark entity skipped: %w", err)
	}
	return nil
}

// MarkExported records a successful export: the Mattermost-assigned ID and
// a terminal status, in one statement.
func (r *PostgresEntitiesRepository) MarkExported(ctx context.Context, id int64, mattermostID string) error {
	query := fmt.Sprintf(
		`UPDATE %s.entities SET status = $2, mattermost_id = $3, error = '', updated_at = now() WHERE id = $1`,
		r.schema,
	)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, models.EntityStatusExported, mattermostID); err != nil {
		return fmt.Errorf("failed to mark entity exported: %w", err)
	}
	return nil
}

// MarkFailed records a failed export attempt and its error message.
// ListPendingByType returns only pending rows, so the orchestrator does not
// pick a failed entity up again.
func (r *PostgresEntitiesRepository) MarkFailed(ctx context.Context, id int64, exportErr error) error {
	utils.AssertInvariant(exportErr != nil, "MarkFailed called with nil error")
	query := fmt.Sprintf(
		`UPDATE %s.entities SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		r.schema,
	)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, models.EntityStatusFailed, exportErr.Error()); err != nil {
		return fmt.Errorf("failed to mark entity failed: %w", err)
	}
	return nil
}

// CountMatrix reports, for every (type, status) pair present in the table,
// how many entities currently sit in it. Used by GET /stats/mappings to
// render the export-progress matrix across every job at once rather than
// one job at a time.
func (r *PostgresEntitiesRepository) CountMatrix(ctx context.Context) (map[models.EntityType]map[models.EntityStatus]int, error) {
	query := fmt.Sprintf(`SELECT type, status, count(*) AS n FROM %s.entities GROUP BY type, status`, r.schema)
	rows := []struct {
		Type   models.EntityType   `db:"type"`
		Status models.EntityStatus `db:"status"`
		N      int                 `db:"n"`
	}{}
	q := dbtx.GetTransactional(ctx, r.db)
	if err := sqlx.SelectContext(ctx, q, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count entity status matrix: %w", err)
	}

	matrix := make(map[models.EntityType]map[models.EntityStatus]int)
	for _, row := range rows {
		if matrix[row.Type] == nil {
			matrix[row.Type] = make(map[models.EntityStatus]int)
		}
		matrix[row.Type][row.Status] = row.N
	}
	return matrix, nil
}

func (r *PostgresEntitiesRepository) SetMarshaledData(ctx context.Context, id int64, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal entity data: %w", err)
	}
	query := fmt.Sprintf(`UPDATE %s.entities SET data = $2, updated_at = now() WHERE id = $1`, r.schema)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, id, json.RawMessage(b)); err != nil {
		return fmt.Errorf("failed to set entity data: %w", err)
	}
	return nil
}

// CountRemainingByType reports how many entities of a type have not yet
// reached a terminal state, used by the orchestrator's type-barrier to
// decide when it is safe to advance to the next type in the ordering.
// jobID is nil for global types.
func (r *PostgresEntitiesRepository) CountRemainingByType(ctx context.Context, jobID *int64, entityType models.EntityType) (int, error) {
	var query string
	args := []any{entityType, models.EntityStatusPending, models.EntityStatusExporting}
	if jobID == nil {
		query = fmt.Sprintf(
			`SELECT count(*) FROM %s.entities WHERE job_id IS NULL AND type = $1 AND status IN ($2, $3)`,
			r.schema,
		)
	} else {
		query = fmt.Sprintf(
			`SELECT count(*) FROM %s.entities WHERE job_id = $4 AND type = $1 AND status IN ($2, $3)`,
			r.schema,
		)
		args = append(args, *jobID)
	}
	var n int
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.GetContext(ctx, q, &n, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count remaining entities: %w", err)
	}
	return n, nil
}

// CountByJobAndType is used to derive job-scoped progress totals from the
// entities table when job.meta.totals has not yet been computed (spec.md
// 6's jobs-endpoint derivation rule).
func (r *PostgresEntitiesRepository) CountByJobAndType(ctx context.Context, jobID int64, entityType models.EntityType) (int, error) {
	query := fmt.Sprintf(`SELECT count(*) FROM %s.entities WHERE job_id = $1 AND type = $2`, r.schema)
	var n int
	q := dbtx.GetTransactional(ctx, r.db)
	if err := sqlx.GetContext(ctx, q, &n, query, jobID, entityType); err != nil {
		return 0, fmt.Errorf("failed to count entities by job and type: %w", err)
	}
	return n, nil
}

// CountByJobTypeNonPending reports how many entities of a type have reached a
// non-pending status for a job, used to derive *_processed progress.
func (r *PostgresEntitiesRepository) CountByJobTypeNonPending(ctx context.Context, jobID int64, entityType models.EntityType) (int, error) {
	query := fmt.Sprintf(
		`SELECT count(*) FROM %s.entities WHERE job_id = $1 AND type = $2 AND status != $3`,
		r.schema,
	)
	var n int
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.GetContext(ctx, q, &n, query, jobID, entityType, models.EntityStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to count non-pending entities: %w", err)
	}
	return n, nil
}
