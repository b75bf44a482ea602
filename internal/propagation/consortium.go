package propagation

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"authlinks/internal/logger"
	"authlinks/pkg/metrics"
)

type consortiumTask struct {
	tenantID string
	events   []LinksChangeEvent
}

// ConsortiumPropagator mirrors correction events published for the
// central tenant onto each member tenant's output topic. Propagation
// runs on a bounded worker pool behind a rate limiter; scheduling
// never blocks the consumer, a full queue drops the task and counts a
// failure.
type ConsortiumPropagator struct {
	emitter       Emitter
	centralTenant string
	memberTenants []string
	limiter       *rate.Limiter
	tasks         chan consortiumTask
	workers       int
	wg            sync.WaitGroup
	logger        logger.Logger
}

func NewConsortiumPropagator(
	emitter Emitter,
	centralTenant string,
	memberTenants []string,
	workers, queueSize int,
	rps float64, burst int,
	log logger.Logger,
) *ConsortiumPropagator {
	return &ConsortiumPropagator{
		emitter:       emitter,
		centralTenant: centralTenant,
		memberTenants: memberTenants,
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		tasks:         make(chan consortiumTask, queueSize),
		workers:       workers,
		logger:        log,
	}
}

func (p *ConsortiumPropagator) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Stop drains the queue and waits for in-flight propagations.
func (p *ConsortiumPropagator) Stop() {
	close(p.tasks)
	p.wg.Wait()
}

// Schedule enqueues shadow propagation to every member tenant when the
// source tenant is the consortium's central one. Events from member
// tenants are not mirrored back.
func (p *ConsortiumPropagator) Schedule(tenantID string, events []LinksChangeEvent) {
	if tenantID != p.centralTenant || len(events) == 0 {
		return
	}

	for _, member := range p.memberTenants {
		select {
		case p.tasks <- consortiumTask{tenantID: member, events: events}:
			metrics.ConsortiumQueueSize.Set(float64(len(p.tasks)))
		default:
			p.logger.Warnw("Consortium queue full, dropping propagation",
				"member_tenant", member, "events", len(events))
			metrics.ConsortiumPropagationsTotal.WithLabelValues("dropped").Inc()
		}
	}
}

func (p *ConsortiumPropagator) worker(ctx context.Context) {
	defer p.wg.Done()

	for task := range p.tasks {
		metrics.ConsortiumQueueSize.Set(float64(len(p.tasks)))

		if err := p.limiter.Wait(ctx); err != nil {
			metrics.ConsortiumPropagationsTotal.WithLabelValues("failure").Inc()
			continue
		}

		if err := p.emitter.Publish(ctx, task.tenantID, task.events); err != nil {
			p.logger.ErrorwCtx(ctx, "Consortium propagation failed",
				"error", err, "member_tenant", task.tenantID, "events", len(task.events))
			metrics.ConsortiumPropagationsTotal.WithLabelValues("failure").Inc()
			continue
		}
		metrics.ConsortiumPropagationsTotal.WithLabelValues("success").Inc()
	}
}
