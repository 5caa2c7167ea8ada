// Package entitygraph wraps the entity/relation repositories with typed,
// idempotent constructors, the "entity service" layer of the dependency
// order (spec.md section 2, item 2): everything above this package talks in
// terms of users/channels/messages/reactions/attachments/emoji, never raw
// rows.
package entitygraph

import (
	"context"
	"encoding/json"
	"fmt"

	"slackimporter/models"
	"slackimporter/services"
)

type Service struct {
	entities  services.EntitiesRepository
	relations services.EntityRelationsRepository
}

func New(entities services.EntitiesRepository, relations services.EntityRelationsRepository) *Service {
	return &Service{entities: entities, relations: relations}
}

func marshal(data any) (json.RawMessage, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity payload: %w", err)
	}
	return b, nil
}

// upsertGlobal creates or refreshes a job-unscoped entity (user, channel,
// custom_emoji), converging every job on one shared row.
func (s *Service) upsertGlobal(ctx context.Context, entityType models.EntityType, slackID string, data any) (*models.Entity, error) {
	raw, err := marshal(data)
	if err != nil {
		return nil, err
	}
	e, err := s.entities.UpsertEntity(ctx, &models.Entity{
		JobID:   nil,
		Type:    entityType,
		SlackID: slackID,
		Data:    raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s %q: %w", entityType, slackID, err)
	}
	return e, nil
}

// upsertScoped creates or refreshes a job-scoped entity (message, reaction,
// attachment).
func (s *Service) upsertScoped(ctx context.Context, jobID int64, entityType models.EntityType, slackID string, data any) (*models.Entity, error) {
	raw, err := marshal(data)
	if err != nil {
		return nil, err
	}
	e, err := s.entities.UpsertEntity(ctx, &models.Entity{
		JobID:   &jobID,
		Type:    entityType,
		SlackID: slackID,
		Data:    raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s %q (job %d): %w", entityType, slackID, jobID, err)
	}
	return e, nil
}

func (s *Service) UpsertUser(ctx context.Context, slackID string, data any) (*models.Entity, error) {
	return s.upsertGlobal(ctx, models.EntityTypeUser, slackID, data)
}

func (s *Service) UpsertChannel(ctx context.Context, slackID string, data any) (*models.Entity, error) {
	return s.upsertGlobal(ctx, models.EntityTypeChannel, slackID, data)
}

func (s *Service) UpsertCustomEmoji(ctx context.Context, slackID string, data any) (*models.Entity, error) {
	return s.upsertGlobal(ctx, models.EntityTypeCustomEmoji, slackID, data)
}

func (s *Service) UpsertMessage(ctx context.Context, jobID int64, slackID string, data any) (*models.Entity, error) {
	return s.upsertScoped(ctx, jobID, models.EntityTypeMessage, slackID, data)
}

func (s *Service) UpsertReaction(ctx context.Context, jobID int64, slackID string, data any) (*models.Entity, error) {
	return s.upsertScoped(ctx, jobID, models.EntityTypeReaction, slackID, data)
}

func (s *Service) UpsertAttachment(ctx context.Context, jobID int64, slackID string, data any) (*models.Entity, error) {
	return s.upsertScoped(ctx, jobID, models.EntityTypeAttachment, slackID, data)
}

// GetUser/GetChannel/GetCustomEmoji look up an existing global entity
// without creating one, returning (nil, nil) when absent.
func (s *Service) GetUser(ctx context.Context, slackID string) (*models.Entity, error) {
	return s.getGlobal(ctx, models.EntityTypeUser, slackID)
}

func (s *Service) GetChannel(ctx context.Context, slackID string) (*models.Entity, error) {
	return s.getGlobal(ctx, models.EntityTypeChannel, slackID)
}

func (s *Service) getGlobal(ctx context.Context, entityType models.EntityType, slackID string) (*models.Entity, error) {
	e, err := s.entities.GetEntityBySlackID(ctx, nil, entityType, slackID)
	if err != nil {
		return nil, nil // not found is not an error at this layer; callers check for nil
	}
	return e, nil
}

// Relate inserts a directed edge between two already-created entities,
// tolerating re-import (duplicate edges are a no-op).
func (s *Service) Relate(ctx context.Context, jobID int64, relType models.RelationType, fromEntityID, toEntityID int64) error {
	err := s.relations.UpsertRelation(ctx, &models.EntityRelation{
		JobID:      jobID,
		Type:       relType,
		FromEntity: fromEntityID,
		ToEntity:   toEntityID,
	})
	if err != nil {
		return fmt.Errorf("failed to relate %s (%d -> %d): %w", relType, fromEntityID, toEntityID, err)
	}
	return nil
}

// RelationsFrom/RelationsTo expose the raw join for callers (exporters,
// the per-channel scheduler) that need to walk the graph directly.
func (s *Service) RelationsFrom(ctx context.Context, jobID, fromEntityID int64, relType models.RelationType) ([]*models.EntityRelation, error) {
	return s.relations.ListByFromEntity(ctx, jobID, fromEntityID, relType)
}

func (s *Service) RelationsTo(ctx context.Context, jobID, toEntityID int64, relType models.RelationType) ([]*models.EntityRelation, error) {
	return s.relations.ListByToEntity(ctx, jobID, toEntityID, relType)
}

// Entities exposes the underlying repository for callers (exporters, the
// orchestrator) that need direct status transitions or listing.
func (s *Service) Entities() services.EntitiesRepository {
	return s.entities
}

// ListChannels returns every known channel entity, used by the message
// import stage to resolve a channel-day directory name back to its entity
// (export directories are keyed by channel name, not id).
func (s *Service) ListChannels(ctx context.Context) ([]*models.Entity, error) {
	return s.entities.ListByType(ctx, nil, models.EntityTypeChannel, 1_000_000)
}

// ListMessagesForJob returns every message entity created so far in a job,
// used by the reaction/attachment stages which re-walk already-imported
// messages to fan out their embedded reactions and files.
func (s *Service) ListMessagesForJob(ctx context.Context, jobID int64) ([]*models.Entity, error) {
	return s.entities.ListByJobAndType(ctx, jobID, models.EntityTypeMessage, 10_000_000)
}
