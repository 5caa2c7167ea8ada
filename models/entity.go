package models

import (
	"encoding/json"
	"time"
)

// EntityType enumerates the six kinds of entity this system tracks across
// both the import and export phases of a migration job.
type EntityType string

const (
	EntityTypeUser        EntityType = "user"
	EntityTypeCustomEmoji  EntityType = "custom_emoji"
	EntityTypeChannel      EntityType = "channel"
	EntityTypeAttachment   EntityType = "attachment"
	EntityTypeMessage      EntityType = "message"
	EntityTypeReaction     EntityType = "reaction"
)

// IsGlobal reports whether entities of this type are shared across jobs
// (job_id NULL) rather than duplicated per job.
func (t EntityType) IsGlobal() bool {
	return t == EntityTypeUser || t == EntityTypeChannel || t == EntityTypeCustomEmoji
}

// ExportOrder is the strict type-barrier ordering the export orchestrator
// advances through within one scheduling batch.
var ExportOrder = []EntityType{
	EntityTypeUser,
	EntityTypeCustomEmoji,
	EntityTypeChannel,
	EntityTypeAttachment,
	EntityTypeMessage,
	EntityTypeReaction,
}

// EntityStatus tracks an entity's progress through the export pipeline.
type EntityStatus string

const (
	EntityStatusPending   EntityStatus = "pending"
	EntityStatusExporting EntityStatus = "exporting"
	EntityStatusExported  EntityStatus = "exported"
	EntityStatusSkipped   EntityStatus = "skipped"
	EntityStatusFailed    EntityStatus = "failed"
)

// IsTerminal reports whether status is a settled outcome: exported or
// skipped. Failed is not counted here, although the orchestrator only
// lists pending rows and so does not export a failed row again.
func (s EntityStatus) IsTerminal() bool {
	return s == EntityStatusExported || s == EntityStatusSkipped
}

// Entity is a single node in the universal entity/relation graph that the
// import phase populates and the export phase drains. SlackID is the
// dedupe key within (job_id, type, slack_id): re-importing the same job
// must upsert in place rather than duplicate rows. JobID is nil for global
// entities (user, channel, custom_emoji), which are shared across jobs
// rather than duplicated per job.
type Entity struct {
	ID           int64           `db:"id" json:"id"`
	JobID        *int64          `db:"job_id" json:"job_id,omitempty"`
	Type         EntityType      `db:"type" json:"type"`
	SlackID      string          `db:"slack_id" json:"slack_id"`
	MattermostID string          `db:"mattermost_id" json:"mattermost_id,omitempty"`
	Status       EntityStatus    `db:"status" json:"status"`
	Data         json.RawMessage `db:"data" json:"data"`
	Error        string          `db:"error" json:"error,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// RelationType enumerates how two entities relate to one another.
type RelationType string

const (
	RelationChannelMember   RelationType = "channel_member"
	RelationMessageChannel  RelationType = "message_channel"
	RelationMessageParent   RelationType = "message_parent"
	RelationMessageAuthor   RelationType = "message_author"
	RelationReactionMessage RelationType = "reaction_message"
	RelationReactionAuthor  RelationType = "reaction_author"
	RelationMessageFile     RelationType = "message_file"
)

// EntityRelation is a directed edge between two entities belonging to the
// same job, e.g. "this message belongs to this channel".
type EntityRelation struct {
	ID         int64        `db:"id" json:"id"`
	JobID      int64        `db:"job_id" json:"job_id"`
	Type       RelationType `db:"type" json:"type"`
	FromEntity int64        `db:"from_entity_id" json:"from_entity_id"`
	ToEntity   int64        `db:"to_entity_id" json:"to_entity_id"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}
