package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"

	"slackimporter/appctx"
	"slackimporter/exporters"
	"slackimporter/models"
	"slackimporter/services/entitygraph"
)

// channelGroup holds one channel's pending messages, sorted roots-first so
// replies always export after the thread root they point at.
type channelGroup struct {
	channelEntityID int64 // -1 for messages with no resolved channel relation
	messages        []*models.Entity
}

// runMessageScheduler implements spec.md 4.6: group pending message entities
// by channel, sort each group (roots first, then by ts), and run one
// goroutine per channel gated by a semaphore, each processing its channel's
// messages strictly in order.
func runMessageScheduler(
	ctx context.Context,
	jobID int64,
	graph *entitygraph.Service,
	exporter *MessageExporterFunc,
	channelConcurrency int,
) error {
	pending, err := graph.Entities().ListPendingByType(ctx, &jobID, models.EntityTypeMessage, 10_000_000)
	if err != nil {
		return fmt.Errorf("failed to list pending messages for job %d: %w", jobID, err)
	}
	if len(pending) == 0 {
		return nil
	}

	groups, err := groupByChannel(ctx, graph, jobID, pending)
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(int64(channelConcurrency))
	var wg sync.WaitGroup
	for _, group := range groups {
		group := group
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("acquire channel semaphore: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			for _, entity := range group.messages {
				if err := exporter.ExportOne(ctx, entity); err != nil {
					log.Printf("⚠️ message %d export failed: %v", entity.ID, err)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

// groupByChannel assigns each message to its channel via the message_channel
// relation (spec.md 4.6 step 2), sorting roots before replies within each
// channel (step 4). Messages with no resolved channel land in a single -1
// group so a dangling relation never drops work silently.
func groupByChannel(ctx context.Context, graph *entitygraph.Service, jobID int64, messages []*models.Entity) ([]*channelGroup, error) {
	byChannel := map[int64][]*models.Entity{}
	for _, m := range messages {
		relations, err := graph.RelationsFrom(ctx, jobID, m.ID, models.RelationMessageChannel)
		if err != nil {
			return nil, fmt.Errorf("list message_channel for message %d: %w", m.ID, err)
		}
		channelID := int64(-1)
		if len(relations) > 0 {
			channelID = relations[0].ToEntity
		}
		byChannel[channelID] = append(byChannel[channelID], m)
	}

	groups := make([]*channelGroup, 0, len(byChannel))
	for channelID, msgs := range byChannel {
		sort.SliceStable(msgs, func(i, j int) bool {
			di, dj := decodeMessage(msgs[i]), decodeMessage(msgs[j])
			if di.IsReply() != dj.IsReply() {
				return !di.IsReply() // roots (false) sort before replies (true)
			}
			return tsSortKey(di.Ts) < tsSortKey(dj.Ts)
		})
		groups = append(groups, &channelGroup{channelEntityID: channelID, messages: msgs})
	}
	return groups, nil
}

// tsSortKey parses a Slack ts ("1700000000.000100") for ordering within a
// channel; a malformed value sorts last (+Inf) rather than breaking the
// whole group's order via a lexical string comparison.
func tsSortKey(ts string) float64 {
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return math.Inf(1)
	}
	return v
}

func decodeMessage(e *models.Entity) models.MessageData {
	var data models.MessageData
	_ = json.Unmarshal(e.Data, &data)
	return data
}

// MessageExporterFunc adapts exporters.Exporter plus the entity-status
// bookkeeping the orchestrator applies around every Export call, so the
// scheduler can drive message exports without importing the orchestrator's
// status-transition logic twice.
type MessageExporterFunc struct {
	Exporter exporters.Exporter
	Graph    *entitygraph.Service
	JobID    int64
}

func (f *MessageExporterFunc) ExportOne(ctx context.Context, entity *models.Entity) error {
	return exportAndPersist(appctx.WithJobID(ctx, f.JobID), f.Graph, f.Exporter, entity)
}
