package propagation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"authlinks/internal/authority"
	"authlinks/internal/links"
	"authlinks/internal/logger"
	"authlinks/internal/stats"
	"authlinks/internal/tenant"
	pkgerrors "authlinks/pkg/errors"
	"authlinks/pkg/logging"
	"authlinks/pkg/metrics"
)

// Emitter publishes correction events onto the tenant-scoped output
// topic.
type Emitter interface {
	Publish(ctx context.Context, tenantID string, events []LinksChangeEvent) error
}

// ConsortiumScheduler enqueues correction events for shadow
// propagation to consortium member tenants. Schedule never blocks the
// caller.
type ConsortiumScheduler interface {
	Schedule(tenantID string, events []LinksChangeEvent)
}

// Orchestrator drives one consumed batch of authority change events
// end to end: tenant partitioning, diff classification, link counting,
// audit stat correlation, handler dispatch and event emission.
type Orchestrator struct {
	router     *Router
	links      links.Repository
	stats      stats.Repository
	executor   tenant.Executor
	emitter    Emitter
	consortium ConsortiumScheduler
	logger     logger.Logger
}

func NewOrchestrator(
	router *Router,
	linksRepo links.Repository,
	statsRepo stats.Repository,
	executor tenant.Executor,
	emitter Emitter,
	consortium ConsortiumScheduler,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		router:     router,
		links:      linksRepo,
		stats:      statsRepo,
		executor:   executor,
		emitter:    emitter,
		consortium: consortium,
		logger:     log,
	}
}

// Handle processes a consumed batch. Events are partitioned by tenant
// and each partition runs under that tenant's system-user scope; a
// failing partition degrades to per-record processing so one poison
// record cannot take down its neighbours.
func (o *Orchestrator) Handle(ctx context.Context, events []authority.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	metrics.BatchSize.Observe(float64(len(events)))

	for _, tenantID := range tenantOrder(events) {
		partition := eventsForTenant(events, tenantID)
		err := o.executor.RunAsSystemUser(ctx, tenantID, func(ctx context.Context) error {
			return o.processTenant(ctx, partition)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) processTenant(ctx context.Context, events []authority.ChangeEvent) error {
	err := o.processBatch(ctx, events)
	if err == nil {
		return nil
	}
	if len(events) == 1 {
		return o.recordFailure(ctx, events[0], err)
	}

	o.logger.WarnwCtx(ctx, "Batch processing failed, retrying records individually",
		"error", err, "batch_size", len(events))

	for _, event := range events {
		recordCtx := logging.WithAuthorityID(ctx, event.AuthorityID.String())
		if event.ID != "" {
			recordCtx = logging.WithMessageID(recordCtx, event.ID)
		}
		if err := o.processBatch(recordCtx, []authority.ChangeEvent{event}); err != nil {
			if err := o.recordFailure(recordCtx, event, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordFailure swallows non-retryable record errors as logged skips
// and surfaces retryable ones to the consumer's retry loop.
func (o *Orchestrator) recordFailure(ctx context.Context, event authority.ChangeEvent, err error) error {
	if isRetryable(err) {
		return err
	}
	o.logger.ErrorwCtx(ctx, "Skipping authority change record",
		"error", err,
		"authority_id", event.AuthorityID,
		"event_type", event.Type,
	)
	metrics.IncSkippedRecord("processing_error")
	metrics.IncAuthorityEvent(string(event.Type), "failed")
	return nil
}

func (o *Orchestrator) processBatch(ctx context.Context, events []authority.ChangeEvent) error {
	start := time.Now()

	classified := o.classify(ctx, events)
	if len(classified) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(classified))
	for _, c := range classified {
		ids = append(ids, c.event.AuthorityID)
	}
	counts, err := o.links.CountByAuthorityIDs(ctx, ids)
	if err != nil {
		return err
	}

	holders := make([]*ChangeHolder, 0, len(classified))
	for _, c := range classified {
		holder, err := NewChangeHolder(c.event, c.changes, counts[c.event.AuthorityID])
		if err != nil {
			return err
		}
		holders = append(holders, holder)
	}

	correlation := o.recordStats(ctx, holders, start)

	out, err := o.router.Dispatch(ctx, holders, correlation)
	if err != nil {
		return err
	}

	if len(out) > 0 {
		tenantID := tenant.FromContext(ctx)
		if err := o.emitter.Publish(ctx, tenantID, out); err != nil {
			return err
		}
		for _, event := range out {
			metrics.IncLinksChangeEvents(string(event.Type), 1)
		}
		if o.consortium != nil {
			o.consortium.Schedule(tenantID, out)
		}
	}

	for _, holder := range holders {
		metrics.IncAuthorityEvent(string(holder.Event().Type), "processed")
		metrics.ObservePropagationDuration(string(holder.ChangeType()), time.Since(start))
	}
	return nil
}

type classifiedEvent struct {
	event   authority.ChangeEvent
	changes []authority.Change
}

func (o *Orchestrator) classify(ctx context.Context, events []authority.ChangeEvent) []classifiedEvent {
	classified := make([]classifiedEvent, 0, len(events))
	for _, event := range events {
		if event.Type != authority.EventTypeUpdate && event.Type != authority.EventTypeDelete {
			o.logger.DebugwCtx(ctx, "Skipping non-propagating event",
				"authority_id", event.AuthorityID, "event_type", event.Type)
			metrics.IncSkippedRecord("event_type")
			continue
		}

		changes := authority.Classify(event.Old, event.New)
		if len(changes) == 0 {
			o.logger.DebugwCtx(ctx, "Skipping event without tracked field changes",
				"authority_id", event.AuthorityID)
			metrics.IncSkippedRecord("no_changes")
			continue
		}

		classified = append(classified, classifiedEvent{event: event, changes: changes})
	}
	return classified
}

// recordStats writes one audit row per holder, links included or not,
// and returns the authority id to stat id correlation for rows that
// made it to storage. A failed insert degrades to uncorrelated events
// rather than blocking propagation.
func (o *Orchestrator) recordStats(ctx context.Context, holders []*ChangeHolder, startedAt time.Time) map[uuid.UUID]uuid.UUID {
	rows := make([]stats.DataStat, 0, len(holders))
	for _, holder := range holders {
		rows = append(rows, buildStat(holder, startedAt))
	}

	inserted, err := o.stats.InsertBulk(ctx, rows)
	if err != nil {
		o.logger.WarnwCtx(ctx, "Audit stat insert failed, publishing without correlation",
			"error", err, "rows", len(rows))
		return nil
	}

	correlation := make(map[uuid.UUID]uuid.UUID, len(inserted))
	for _, row := range inserted {
		if row.ID != uuid.Nil {
			correlation[row.AuthorityID] = row.ID
		}
	}
	return correlation
}

func buildStat(holder *ChangeHolder, startedAt time.Time) stats.DataStat {
	event := holder.Event()

	row := stats.DataStat{
		AuthorityID: event.AuthorityID,
		LinksCount:  holder.NumberOfLinks(),
		StartedAt:   startedAt,
	}

	switch {
	case event.Type == authority.EventTypeDelete:
		row.Action = stats.ActionDelete
	case holder.IsOnlyNaturalIDChanged():
		row.Action = stats.ActionUpdateNaturalID
	default:
		row.Action = stats.ActionUpdateHeading
	}

	for _, change := range holder.Changes() {
		if change.Field.IsNaturalID() {
			row.NaturalIDOld = change.Old
			row.NaturalIDNew = change.New
		} else if row.HeadingOld == "" && row.HeadingNew == "" {
			row.HeadingOld = change.Old
			row.HeadingNew = change.New
		}
	}
	return row
}

// tenantOrder returns tenant ids in first-appearance order so
// partition processing stays deterministic.
func tenantOrder(events []authority.ChangeEvent) []string {
	seen := make(map[string]struct{}, len(events))
	var order []string
	for _, event := range events {
		if _, ok := seen[event.Tenant]; ok {
			continue
		}
		seen[event.Tenant] = struct{}{}
		order = append(order, event.Tenant)
	}
	return order
}

func eventsForTenant(events []authority.ChangeEvent, tenantID string) []authority.ChangeEvent {
	var partition []authority.ChangeEvent
	for _, event := range events {
		if event.Tenant == tenantID {
			partition = append(partition, event)
		}
	}
	return partition
}

func isRetryable(err error) bool {
	var retryableErr pkgerrors.RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.IsRetryable()
	}
	return true
}
