package propagation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authlinks/internal/logger"
)

func waitForBatches(t *testing.T, emitter *fakeEmitter, n int) []publishedBatch {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if batches := emitter.batches(); len(batches) >= n {
			return batches
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d propagated batches, got %d", n, len(emitter.batches()))
	return nil
}

func TestConsortiumPropagator_MirrorsCentralTenantEvents(t *testing.T) {
	emitter := &fakeEmitter{}
	p := NewConsortiumPropagator(emitter, "consortium", []string{"member-a", "member-b"},
		2, 16, 100, 10, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	events := []LinksChangeEvent{{AuthorityID: uuid.New(), Type: ChangeTypeUpdate}}
	p.Schedule("consortium", events)

	batches := waitForBatches(t, emitter, 2)
	p.Stop()

	tenants := []string{batches[0].tenantID, batches[1].tenantID}
	assert.ElementsMatch(t, []string{"member-a", "member-b"}, tenants)
}

func TestConsortiumPropagator_IgnoresMemberTenantEvents(t *testing.T) {
	emitter := &fakeEmitter{}
	p := NewConsortiumPropagator(emitter, "consortium", []string{"member-a"},
		1, 16, 100, 10, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Schedule("member-a", []LinksChangeEvent{{AuthorityID: uuid.New()}})
	p.Schedule("diku", []LinksChangeEvent{{AuthorityID: uuid.New()}})
	p.Stop()

	assert.Empty(t, emitter.batches())
}

func TestConsortiumPropagator_FullQueueDrops(t *testing.T) {
	emitter := &fakeEmitter{}
	// No workers started, queue of one: the second member's task is
	// dropped instead of blocking the caller.
	p := NewConsortiumPropagator(emitter, "consortium", []string{"member-a", "member-b"},
		0, 1, 100, 10, logger.NopLogger())

	done := make(chan struct{})
	go func() {
		p.Schedule("consortium", []LinksChangeEvent{{AuthorityID: uuid.New()}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Schedule blocked on a full queue")
	}

	require.Len(t, p.tasks, 1)
}
