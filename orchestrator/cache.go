// Package orchestrator drives the export phase: a type-barrier scheduling
// loop over exported entity rows (spec.md 4.5), with a dedicated per-channel
// scheduler for messages (spec.md 4.6).
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"slackimporter/models"
	"slackimporter/services/entitygraph"
)

// MentionCache is the process-local, per-run shared lookup spec.md 4.6 item 6
// describes: "channel MM id by slack id, channel name by slack id, user MM id
// by slack id, username by slack id, set of memberships already ensured".
// Structured the same way the teacher's IdempotencyManager guards an
// in-memory map: one sync.RWMutex over a handful of maps, refreshed lazily.
type MentionCache struct {
	graph *entitygraph.Service

	mu             sync.RWMutex
	usernames      map[string]string // slack user id -> resolved Mattermost username
	channelNames   map[string]string // slack channel id -> resolved Mattermost channel name
	userMMIDs      map[string]string // slack user id -> Mattermost user id
	channelMMIDs   map[string]string // slack channel id -> Mattermost channel id
	memberEnsured  map[string]bool   // "channelSlackID:userSlackID" -> membership already ensured this run
	loaded         bool
}

func NewMentionCache(graph *entitygraph.Service) *MentionCache {
	return &MentionCache{
		graph:         graph,
		usernames:     map[string]string{},
		channelNames:  map[string]string{},
		userMMIDs:     map[string]string{},
		channelMMIDs:  map[string]string{},
		memberEnsured: map[string]bool{},
	}
}

// Load snapshots every exported user and channel entity into the cache.
// Called once at the start of a barrier batch; Refresh keeps it current as
// more entities export within the same run.
func (c *MentionCache) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reloadLocked(ctx); err != nil {
		return err
	}
	c.loaded = true
	return nil
}

// Refresh re-snapshots the cache; cheap enough to call after each barrier
// since user/channel counts are small relative to messages/reactions.
func (c *MentionCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

func (c *MentionCache) reloadLocked(ctx context.Context) error {
	users, err := c.graph.Entities().ListByType(ctx, nil, models.EntityTypeUser, 1_000_000)
	if err != nil {
		return fmt.Errorf("failed to load users for mention cache: %w", err)
	}
	for _, u := range users {
		if u.MattermostID == "" {
			continue
		}
		c.userMMIDs[u.SlackID] = u.MattermostID
		var data models.UserData
		if err := unmarshalEntity(u, &data); err == nil {
			c.usernames[u.SlackID] = data.Name
		}
	}

	channels, err := c.graph.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load channels for mention cache: %w", err)
	}
	for _, ch := range channels {
		if ch.MattermostID == "" {
			continue
		}
		c.channelMMIDs[ch.SlackID] = ch.MattermostID
		var data models.ChannelData
		if err := unmarshalEntity(ch, &data); err == nil {
			c.channelNames[ch.SlackID] = data.Name
		}
	}
	return nil
}

// Usernames implements exporters.MentionResolver.
func (c *MentionCache) Usernames() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]string, len(c.usernames))
	for k, v := range c.usernames {
		snapshot[k] = v
	}
	return snapshot
}

// ChannelNames implements exporters.MentionResolver.
func (c *MentionCache) ChannelNames() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]string, len(c.channelNames))
	for k, v := range c.channelNames {
		snapshot[k] = v
	}
	return snapshot
}

// UserMattermostID resolves a Slack user id to its exported Mattermost id.
func (c *MentionCache) UserMattermostID(slackID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.userMMIDs[slackID]
	return id, ok
}

// ChannelMattermostID resolves a Slack channel id to its exported
// Mattermost id.
func (c *MentionCache) ChannelMattermostID(slackID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.channelMMIDs[slackID]
	return id, ok
}

// EnsureMembership records that a (channel, user) pair has already had its
// Mattermost channel membership created this run, returning true the first
// time it's called for a given pair so the caller knows whether to actually
// issue the AddChannelMembers call.
func (c *MentionCache) EnsureMembership(channelSlackID, userSlackID string) (firstTime bool) {
	key := channelSlackID + ":" + userSlackID
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.memberEnsured[key] {
		return false
	}
	c.memberEnsured[key] = true
	return true
}

func unmarshalEntity(e *models.Entity, out any) error {
	return json.Unmarshal(e.Data, out)
}
