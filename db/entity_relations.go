package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	dbtx "slackimporter/db/tx"
	"slackimporter/models"
)

// PostgresEntityRelationsRepository is the repository for entity_relations,
// the directed edges of the universal entity graph (spec.md 3).
type PostgresEntityRelationsRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresEntityRelationsRepository(db *sqlx.DB, schema string) *PostgresEntityRelationsRepository {
	return &PostgresEntityRelationsRepository{db: db, schema: schema}
}

// UpsertRelation inserts a relation edge, tolerating re-import: the same
// (job_id, type, from, to) tuple is a no-op on conflict.
func (r *PostgresEntityRelationsRepository) UpsertRelation(ctx context.Context, rel *models.EntityRelation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.entity_relations (job_id, type, from_entity_id, to_entity_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, type, from_entity_id, to_entity_id) DO NOTHING`,
		r.schema,
	)
	q := dbtx.GetTransactional(ctx, r.db)
	if _, err := q.ExecContext(ctx, query, rel.JobID, rel.Type, rel.FromEntity, rel.ToEntity); err != nil {
		return fmt.Errorf("failed to upsert entity relation: %w", err)
	}
	return nil
}

func (r *PostgresEntityRelationsRepository) ListByFromEntity(
	ctx context.Context,
	jobID, fromEntityID int64,
	relType models.RelationType,
) ([]*models.EntityRelation, error) {
	query := fmt.Sprintf(
		`SELECT id, job_id, type, from_entity_id, to_entity_id, created_at
		 FROM %s.entity_relations WHERE job_id = $1 AND from_entity_id = $2 AND type = $3
		 ORDER BY id ASC`,
		r.schema,
	)
	var rows []*models.EntityRelation
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.SelectContext(ctx, q, &rows, query, jobID, fromEntityID, relType)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations by from entity: %w", err)
	}
	return rows, nil
}

func (r *PostgresEntityRelationsRepository) ListByToEntity(
	ctx context.Context,
	jobID, toEntityID int64,
	relType models.RelationType,
) ([]*models.EntityRelation, error) {
	query := fmt.Sprintf(
		`SELECT id, job_id, type, from_entity_id, to_entity_id, created_at
		 FROM %s.entity_relations WHERE job_id = $1 AND to_entity_id = $2 AND type = $3
		 ORDER BY id ASC`,
		r.schema,
	)
	var rows []*models.EntityRelation
	q := dbtx.GetTransactional(ctx, r.db)
	err := sqlx.SelectContext(ctx, q, &rows, query, jobID, toEntityID, relType)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations by to entity: %w", err)
	}
	return rows, nil
}
