package services

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"slackimporter/models"
)

// EntitiesRepository persists the universal entity graph (spec.md 3, 4.1).
type EntitiesRepository interface {
	UpsertEntity(ctx context.Context, e *models.Entity) (*models.Entity, error)
	GetEntityBySlackID(ctx context.Context, jobID *int64, entityType models.EntityType, slackID string) (*models.Entity, error)
	GetEntityByID(ctx context.Context, jobID *int64, id int64) (mo.Option[*models.Entity], error)
	ListPendingByType(ctx context.Context, jobID *int64, entityType models.EntityType, limit int) ([]*models.Entity, error)
	ListByType(ctx context.Context, jobID *int64, entityType models.EntityType, limit int) ([]*models.Entity, error)
	ListByJobAndType(ctx context.Context, jobID int64, entityType models.EntityType, limit int) ([]*models.Entity, error)
	ListByChannel(ctx context.Context, jobID int64, channelEntityID int64) ([]*models.Entity, error)
	MarkExporting(ctx context.Context, id int64) error
	MarkExported(ctx context.Context, id int64, mattermostID string) error
	MarkSkipped(ctx context.Context, id int64, reason string) error
	MarkFailed(ctx context.Context, id int64, exportErr error) error
	SetMarshaledData(ctx context.Context, id int64, data any) error
	CountRemainingByType(ctx context.Context, jobID *int64, entityType models.EntityType) (int, error)
	CountByJobAndType(ctx context.Context, jobID int64, entityType models.EntityType) (int, error)
	CountByJobTypeNonPending(ctx context.Context, jobID int64, entityType models.EntityType) (int, error)
	CountMatrix(ctx context.Context) (map[models.EntityType]map[models.EntityStatus]int, error)
}

// EntityRelationsRepository persists the directed edges of the entity graph.
type EntityRelationsRepository interface {
	UpsertRelation(ctx context.Context, rel *models.EntityRelation) error
	ListByFromEntity(ctx context.Context, jobID, fromEntityID int64, relType models.RelationType) ([]*models.EntityRelation, error)
	ListByToEntity(ctx context.Context, jobID, toEntityID int64, relType models.RelationType) ([]*models.EntityRelation, error)
}

// ImportJobsRepository persists the job supervisor's state machine.
type ImportJobsRepository interface {
	CreateJob(ctx context.Context, job *models.ImportJob) (*models.ImportJob, error)
	GetJobByID(ctx context.Context, id int64) (mo.Option[*models.ImportJob], error)
	ListByStatus(ctx context.Context, status models.ImportJobStatus) ([]*models.ImportJob, error)
	ListRunningExporting(ctx context.Context, anchorJobID *int64) ([]*models.ImportJob, error)
	ListRecent(ctx context.Context, limit int) ([]*models.ImportJob, error)
	UpdateStatus(ctx context.Context, id int64, status models.ImportJobStatus) error
	UpdateStage(ctx context.Context, id int64, stage models.ImportStage) error
	UpdateStatusAndStage(ctx context.Context, id int64, status models.ImportJobStatus, stage models.ImportStage) error
	DeleteJob(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, jobErr error) error
	IncrementMetaCounter(ctx context.Context, id int64, dotPath string, delta int) error
	SetMetaField(ctx context.Context, id int64, dotPath string, value any) error
	DeleteMetaKey(ctx context.Context, id int64, key string) error
}

// TransactionManager handles database transactions via context
type TransactionManager interface {
	// Execute function within a transaction (recommended approach)
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Manual transaction control (for complex scenarios)
	BeginTransaction(ctx context.Context) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
}

// Transactional interface that both *sqlx.DB and *sqlx.Tx implement
type Transactional interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}
