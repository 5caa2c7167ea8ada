package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gammazero/workerpool"

	"slackimporter/appctx"
	"slackimporter/config"
	"slackimporter/exporters"
	"slackimporter/models"
	"slackimporter/services"
	"slackimporter/services/entitygraph"
	"slackimporter/supervisor"
)

// batchSize bounds how many pending rows a single barrier fetch pulls per
// job/type; the barrier loop re-polls until a type is dry, so this only
// controls how many rows are in flight per worker-pool submission round.
const batchSize = 500

// Orchestrator drives the export phase's type-barrier scheduling loop
// (spec.md 4.5): one process-wide run at a time, advancing strictly through
// ExportOrder, re-polling each type until no job has a pending row left.
type Orchestrator struct {
	jobs      services.ImportJobsRepository
	graph     *entitygraph.Service
	exporters map[models.EntityType]exporters.Exporter
	cfg       config.ExportConfig
	cache     *MentionCache // shared with the MessageExporter/ChannelExporter built at startup

	runMu sync.Mutex // process-wide: at most one orchestrate_mm_export runs at a time
}

// New wires an orchestrator against an already-constructed set of
// exporters. cache must be the same MentionCache instance passed to
// exporters.NewMessageExporter at startup, so refreshing it here is
// immediately visible to in-flight message exports.
func New(
	jobs services.ImportJobsRepository,
	graph *entitygraph.Service,
	cfg config.ExportConfig,
	cache *MentionCache,
	exporterList ...exporters.Exporter,
) *Orchestrator {
	byType := make(map[models.EntityType]exporters.Exporter, len(exporterList))
	for _, e := range exporterList {
		byType[e.Type()] = e
	}
	return &Orchestrator{jobs: jobs, graph: graph, exporters: byType, cfg: cfg, cache: cache}
}

// Run executes one full scheduling pass: fetch running/exporting jobs,
// barrier through every entity type in order, mark finished jobs done, and
// repeat the fetch until nothing running/exporting remains (spec.md 4.5
// steps 1-5). anchorJobID restricts consideration to jobs created at or
// before it, or nil for "every running job".
func (o *Orchestrator) Run(ctx context.Context, anchorJobID *int64) error {
	if !o.runMu.TryLock() {
		log.Printf("⚠️ export orchestrator already running, skipping this invocation")
		return nil
	}
	defer o.runMu.Unlock()

	log.Printf("📋 Starting export orchestrator run")

	for {
		jobs, err := o.jobs.ListRunningExporting(ctx, anchorJobID)
		if err != nil {
			return fmt.Errorf("failed to list running/exporting jobs: %w", err)
		}
		if len(jobs) == 0 {
			log.Printf("📋 Completed successfully - no running/exporting jobs left")
			return nil
		}

		jobIDs := make([]int64, len(jobs))
		for i, j := range jobs {
			jobIDs[i] = j.ID
		}

		if err := o.cache.Load(ctx); err != nil {
			return err
		}

		for _, entityType := range models.ExportOrder {
			if err := o.runBarrier(ctx, jobIDs, entityType); err != nil {
				return fmt.Errorf("failed barrier for %s: %w", entityType, err)
			}
			if entityType == models.EntityTypeUser || entityType == models.EntityTypeChannel {
				if err := o.cache.Refresh(ctx); err != nil {
					return err
				}
			}
		}

		for _, jobID := range jobIDs {
			if err := o.jobs.UpdateStatusAndStage(ctx, jobID, models.JobStatusSuccess, models.StageDone); err != nil {
				return fmt.Errorf("failed to mark job %d done: %w", jobID, err)
			}
			log.Printf("✅ job %d finished export", jobID)
			supervisor.NotifyJobResult(ctx, o.jobs, jobID)
		}
	}
}

// runBarrier exports every pending row of one entity type across jobIDs,
// re-polling until dry (spec.md 4.5 step 3: "repeat the barrier until no
// job has any pending row of that type").
func (o *Orchestrator) runBarrier(ctx context.Context, jobIDs []int64, entityType models.EntityType) error {
	exporter, ok := o.exporters[entityType]
	if !ok {
		return fmt.Errorf("no exporter registered for entity type %s", entityType)
	}

	for {
		progressed := false
		var err error
		if entityType == models.EntityTypeMessage {
			progressed, err = o.runMessageBarrierRound(ctx, jobIDs, exporter)
		} else if entityType.IsGlobal() {
			progressed, err = o.runGlobalBarrierRound(ctx, jobIDs, entityType, exporter)
		} else {
			progressed, err = o.runScopedBarrierRound(ctx, jobIDs, entityType, exporter)
		}
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// runGlobalBarrierRound exports pending rows of a global type (user,
// custom_emoji, channel). Rows themselves are job-unscoped, but relation
// lookups inside an exporter (e.g. channel membership) are job-scoped, so
// each job FIFO-claims and exports whatever is still globally pending in
// its own request context; once a row is claimed by one job's pass it goes
// exporting/exported and later jobs simply see nothing left to claim.
func (o *Orchestrator) runGlobalBarrierRound(ctx context.Context, jobIDs []int64, entityType models.EntityType, exporter exporters.Exporter) (bool, error) {
	progressed := false
	for _, jobID := range jobIDs {
		pending, err := o.graph.Entities().ListPendingByType(ctx, nil, entityType, batchSize)
		if err != nil {
			return false, fmt.Errorf("list pending %s: %w", entityType, err)
		}
		if len(pending) == 0 {
			continue
		}
		progressed = true
		if err := o.runPool(appctx.WithJobID(ctx, jobID), exporter, pending, o.cfg.Workers); err != nil {
			return false, err
		}
	}
	return progressed, nil
}

// runScopedBarrierRound exports pending rows of a job-scoped, non-message
// type (attachment, reaction) strictly FIFO by job.
func (o *Orchestrator) runScopedBarrierRound(ctx context.Context, jobIDs []int64, entityType models.EntityType, exporter exporters.Exporter) (bool, error) {
	workers := o.cfg.Workers
	if entityType == models.EntityTypeAttachment && o.cfg.AttachmentWorkers > 0 {
		workers = o.cfg.AttachmentWorkers
	}

	progressed := false
	for _, jobID := range jobIDs {
		pending, err := o.graph.Entities().ListPendingByType(ctx, &jobID, entityType, batchSize)
		if err != nil {
			return false, fmt.Errorf("list pending %s for job %d: %w", entityType, jobID, err)
		}
		if len(pending) == 0 {
			continue
		}
		progressed = true
		if err := o.runPool(appctx.WithJobID(ctx, jobID), exporter, pending, workers); err != nil {
			return false, err
		}
	}
	return progressed, nil
}

// runMessageBarrierRound defers to the per-channel scheduler (spec.md 4.6)
// instead of a flat worker pool, per job FIFO.
func (o *Orchestrator) runMessageBarrierRound(ctx context.Context, jobIDs []int64, exporter exporters.Exporter) (bool, error) {
	progressed := false
	for _, jobID := range jobIDs {
		hasPending, err := o.graph.Entities().ListPendingByType(ctx, &jobID, models.EntityTypeMessage, 1)
		if err != nil {
			return false, fmt.Errorf("check pending messages for job %d: %w", jobID, err)
		}
		if len(hasPending) == 0 {
			continue
		}
		progressed = true
		fn := &MessageExporterFunc{Exporter: exporter, Graph: o.graph, JobID: jobID}
		if err := runMessageScheduler(ctx, jobID, o.graph, fn, o.cfg.ChannelConcurrency); err != nil {
			return false, err
		}
	}
	return progressed, nil
}

// runPool exports entities concurrently via a bounded worker pool (spec.md
// 4.5's "EXPORT_WORKERS consuming a bounded queue of entities"), grounded
// on the teacher's own workerpool demonstration: submit returns instantly,
// StopWait blocks until every submitted func has run.
func (o *Orchestrator) runPool(ctx context.Context, exporter exporters.Exporter, pending []*models.Entity, workers int) error {
	wp := workerpool.New(workers)
	for _, entity := range pending {
		entity := entity
		wp.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("❌ %s %d exporter panicked: %v", entity.Type, entity.ID, r)
					if markErr := o.graph.Entities().MarkFailed(ctx, entity.ID, fmt.Errorf("exporter panic: %v", r)); markErr != nil {
						log.Printf("⚠️ %s %d mark failed after panic: %v", entity.Type, entity.ID, markErr)
					}
				}
			}()
			if err := exportAndPersist(ctx, o.graph, exporter, entity); err != nil {
				log.Printf("⚠️ %s %d export failed: %v", entity.Type, entity.ID, err)
			}
		})
	}
	wp.StopWait()
	return nil
}

// exportAndPersist wraps one Export call with the entity status transitions
// spec.md 4.1/4.5 require: exporting before the call, exported/skipped/
// failed after, depending on outcome. A worker never lets an exporter's
// error escape past this boundary - the orchestrator continues regardless
// (spec.md 4.5 "the orchestrator continues; a job is never aborted because
// of a per-entity failure").
func exportAndPersist(ctx context.Context, graph *entitygraph.Service, exporter exporters.Exporter, entity *models.Entity) error {
	if err := graph.Entities().MarkExporting(ctx, entity.ID); err != nil {
		return fmt.Errorf("mark exporting: %w", err)
	}

	start := time.Now()
	mattermostID, err := exporter.Export(ctx, entity)
	if err != nil {
		var skip *exporters.ErrSkip
		if errors.As(err, &skip) {
			if markErr := graph.Entities().MarkSkipped(ctx, entity.ID, skip.Reason); markErr != nil {
				return fmt.Errorf("mark skipped: %w", markErr)
			}
			log.Printf("⏭️ skipped %s %d: %s", entity.Type, entity.ID, skip.Reason)
			return nil
		}
		if markErr := graph.Entities().MarkFailed(ctx, entity.ID, err); markErr != nil {
			return fmt.Errorf("mark failed: %w", markErr)
		}
		return nil
	}

	if err := graph.Entities().MarkExported(ctx, entity.ID, mattermostID); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	log.Printf("✅ exported %s %d in %v", entity.Type, entity.ID, time.Since(start).Round(time.Millisecond))
	return nil
}

