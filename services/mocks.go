package services

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"slackimporter/models"
)

// MockEntitiesRepository is a mock implementation of the EntitiesRepository interface.
type MockEntitiesRepository struct {
	mock.Mock
}

func (m *MockEntitiesRepository) UpsertEntity(ctx context.Context, e *models.Entity) (*models.Entity, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *MockEntitiesRepository) GetEntityBySlackID(ctx context.Context, jobID *int64, entityType models.EntityType, slackID string) (*models.Entity, error) {
	args := m.Called(ctx, jobID, entityType, slackID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *MockEntitiesRepository) GetEntityByID(ctx context.Context, jobID *int64, id int64) (mo.Option[*models.Entity], error) {
	args := m.Called(ctx, jobID, id)
	if args.Get(0) == nil {
		return mo.None[*models.Entity](), args.Error(1)
	}
	return args.Get(0).(mo.Option[*models.Entity]), args.Error(1)
}

func (m *MockEntitiesRepository) ListPendingByType(ctx context.Context, jobID *int64, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	args := m.Called(ctx, jobID, entityType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entity), args.Error(1)
}

func (m *MockEntitiesRepository) ListByType(ctx context.Context, jobID *int64, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	args := m.Called(ctx, jobID, entityType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entity), args.Error(1)
}

func (m *MockEntitiesRepository) ListByJobAndType(ctx context.Context, jobID int64, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	args := m.Called(ctx, jobID, entityType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entity), args.Error(1)
}

func (m *MockEntitiesRepository) ListByChannel(ctx context.Context, jobID int64, channelEntityID int64) ([]*models.Entity, error) {
	args := m.Called(ctx, jobID, channelEntityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entity), args.Error(1)
}

func (m *MockEntitiesRepository) MarkExporting(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEntitiesRepository) MarkExported(ctx context.Context, id int64, mattermostID string) error {
	args := m.Called(ctx, id, mattermostID)
	return args.Error(0)
}

func (m *MockEntitiesRepository) MarkSkipped(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockEntitiesRepository) MarkFailed(ctx context.Context, id int64, exportErr error) error {
	args := m.Called(ctx, id, exportErr)
	return args.Error(0)
}

func (m *MockEntitiesRepository) SetMarshaledData(ctx context.Context, id int64, data any) error {
	args := m.Called(ctx, id, data)
	return args.Error(0)
}

func (m *MockEntitiesRepository) CountRemainingByType(ctx context.Context, jobID *int64, entityType models.EntityType) (int, error) {
	args := m.Called(ctx, jobID, entityType)
	return args.Int(0), args.Error(1)
}

func (m *MockEntitiesRepository) CountByJobAndType(ctx context.Context, jobID int64, entityType models.EntityType) (int, error) {
	args := m.Called(ctx, jobID, entityType)
	return args.Int(0), args.Error(1)
}

func (m *MockEntitiesRepository) CountByJobTypeNonPending(ctx context.Context, jobID int64, entityType models.EntityType) (int, error) {
	args := m.Called(ctx, jobID, entityType)
	return args.Int(0), args.Error(1)
}

func (m *MockEntitiesRepository) CountMatrix(ctx context.Context) (map[models.EntityType]map[models.EntityStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.EntityType]map[models.EntityStatus]int), args.Error(1)
}

var _ EntitiesRepository = (*MockEntitiesRepository)(nil)

// MockEntityRelationsRepository is a mock implementation of the EntityRelationsRepository interface.
type MockEntityRelationsRepository struct {
	mock.Mock
}

func (m *MockEntityRelationsRepository) UpsertRelation(ctx context.Context, rel *models.EntityRelation) error {
	args := m.Called(ctx, rel)
	return args.Error(0)
}

func (m *MockEntityRelationsRepository) ListByFromEntity(ctx context.Context, jobID, fromEntityID int64, relType models.RelationType) ([]*models.EntityRelation, error) {
	args := m.Called(ctx, jobID, fromEntityID, relType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EntityRelation), args.Error(1)
}

func (m *MockEntityRelationsRepository) ListByToEntity(ctx context.Context, jobID, toEntityID int64, relType models.RelationType) ([]*models.EntityRelation, error) {
	args := m.Called(ctx, jobID, toEntityID, relType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EntityRelation), args.Error(1)
}

var _ EntityRelationsRepository = (*MockEntityRelationsRepository)(nil)

// MockImportJobsRepository is a mock implementation of the ImportJobsRepository interface.
type MockImportJobsRepository struct {
	mock.Mock
}

func (m *MockImportJobsRepository) CreateJob(ctx context.Context, job *models.ImportJob) (*models.ImportJob, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportJob), args.Error(1)
}

func (m *MockImportJobsRepository) GetJobByID(ctx context.Context, id int64) (mo.Option[*models.ImportJob], error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return mo.None[*models.ImportJob](), args.Error(1)
	}
	return args.Get(0).(mo.Option[*models.ImportJob]), args.Error(1)
}

func (m *MockImportJobsRepository) ListByStatus(ctx context.Context, status models.ImportJobStatus) ([]*models.ImportJob, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ImportJob), args.Error(1)
}

func (m *MockImportJobsRepository) ListRunningExporting(ctx context.Context, anchorJobID *int64) ([]*models.ImportJob, error) {
	args := m.Called(ctx, anchorJobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ImportJob), args.Error(1)
}

func (m *MockImportJobsRepository) ListRecent(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ImportJob), args.Error(1)
}

func (m *MockImportJobsRepository) UpdateStatus(ctx context.Context, id int64, status models.ImportJobStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockImportJobsRepository) UpdateStage(ctx context.Context, id int64, stage models.ImportStage) error {
	args := m.Called(ctx, id, stage)
	return args.Error(0)
}

func (m *MockImportJobsRepository) UpdateStatusAndStage(ctx context.Context, id int64, status models.ImportJobStatus, stage models.ImportStage) error {
	args := m.Called(ctx, id, status, stage)
	return args.Error(0)
}

func (m *MockImportJobsRepository) DeleteJob(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockImportJobsRepository) MarkFailed(ctx context.Context, id int64, jobErr error) error {
	args := m.Called(ctx, id, jobErr)
	return args.Error(0)
}

func (m *MockImportJobsRepository) IncrementMetaCounter(ctx context.Context, id int64, dotPath string, delta int) error {
	args := m.Called(ctx, id, dotPath, delta)
	return args.Error(0)
}

func (m *MockImportJobsRepository) SetMetaField(ctx context.Context, id int64, dotPath string, value any) error {
	args := m.Called(ctx, id, dotPath, value)
	return args.Error(0)
}

func (m *MockImportJobsRepository) DeleteMetaKey(ctx context.Context, id int64, key string) error {
	args := m.Called(ctx, id, key)
	return args.Error(0)
}

var _ ImportJobsRepository = (*MockImportJobsRepository)(nil)
