// Package exporters implements the per-entity-type Mattermost push logic
// the export orchestrator drives through the type barrier (spec.md 4.4).
// Each exporter is a small, independently testable unit: given one entity,
// push it to Mattermost and return the id Mattermost assigned it.
package exporters

import (
	"context"
	"fmt"

	"slackimporter/models"
)

// ErrSkip marks an entity as a deliberate, terminal skip rather than a
// retryable failure: an oversized attachment, a DM with an unresolved
// member, an emoji shortcode that never resolved to an image. The
// orchestrator records these via MarkSkipped instead of MarkFailed.
type ErrSkip struct {
	Reason string
}

func (e *ErrSkip) Error() string { return e.Reason }

// Skip builds an *ErrSkip from a format string, mirroring fmt.Errorf.
func Skip(format string, args ...any) error {
	return &ErrSkip{Reason: fmt.Sprintf(format, args...)}
}

// Exporter pushes one entity of a fixed type to Mattermost. Implementations
// must be safe for concurrent use across distinct entities, since the
// orchestrator runs many of the same type in parallel within one barrier
// stage (spec.md 4.5).
type Exporter interface {
	Type() models.EntityType
	Export(ctx context.Context, entity *models.Entity) (mattermostID string, err error)
}

// MentionResolver is the per-job shared lookup the message and markdown
// layers use to turn Slack id references into Mattermost-facing names
// without a network round trip per message (spec.md 4.6's shared cache).
// Implementations (orchestrator/cache.go) hold the full snapshot in memory
// for the lifetime of one export run, refreshed as new entities export.
type MentionResolver interface {
	Usernames() map[string]string
	ChannelNames() map[string]string

	// UserMattermostID/ChannelMattermostID resolve a Slack id to the
	// Mattermost id already exported for it, without a relation/entity
	// round trip per message.
	UserMattermostID(slackID string) (string, bool)
	ChannelMattermostID(slackID string) (string, bool)

	// EnsureMembership records that (channelSlackID, userSlackID) has had
	// its Mattermost channel membership added this run, returning true
	// only the first time it's called for a given pair.
	EnsureMembership(channelSlackID, userSlackID string) bool
}
