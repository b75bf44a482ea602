package propagation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authlinks/internal/authority"
	"authlinks/internal/broker"
	"authlinks/internal/constants"
	"authlinks/internal/links"
	"authlinks/internal/logger"
)

type fakeDedupeGuard struct {
	seen   map[int64]bool
	marked []int64
}

func (f *fakeDedupeGuard) Seen(ctx context.Context, tenantID, authorityID, topic string, partition int, offset int64) bool {
	return f.seen[offset]
}

func (f *fakeDedupeGuard) Mark(ctx context.Context, tenantID, authorityID, topic string, partition int, offset int64) {
	if f.seen == nil {
		f.seen = make(map[int64]bool)
	}
	f.seen[offset] = true
	f.marked = append(f.marked, offset)
}

func encodeEvent(t *testing.T, event authority.ChangeEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func TestMessageHandler_DecodesAndProcesses(t *testing.T) {
	f := newOrchestratorFixture(t)
	h := NewMessageHandler(f.orchestrator, nil, logger.NopLogger())

	id := uuid.New()
	f.linksRepo.links[id] = []links.Link{linkRow(1, id, "600")}

	event := tenantUpdateEvent("diku",
		&authority.Authority{ID: id, NaturalID: "n1"},
		&authority.Authority{ID: id, NaturalID: "n2"})

	err := h.BatchHandler()(context.Background(), []broker.Message{
		{Topic: "folio.authorities.authority", Value: encodeEvent(t, event)},
	})
	require.NoError(t, err)
	assert.Len(t, f.updateHandler.got, 1)
}

func TestMessageHandler_SkipsUndecodableMessages(t *testing.T) {
	f := newOrchestratorFixture(t)
	h := NewMessageHandler(f.orchestrator, nil, logger.NopLogger())

	err := h.BatchHandler()(context.Background(), []broker.Message{
		{Value: []byte("{not json")},
	})
	require.NoError(t, err)
	assert.Empty(t, f.updateHandler.got)
}

func TestMessageHandler_TenantFromHeader(t *testing.T) {
	f := newOrchestratorFixture(t)
	h := NewMessageHandler(f.orchestrator, nil, logger.NopLogger())

	id := uuid.New()
	f.linksRepo.links[id] = []links.Link{linkRow(1, id, "600")}

	event := tenantUpdateEvent("",
		&authority.Authority{ID: id, NaturalID: "n1"},
		&authority.Authority{ID: id, NaturalID: "n2"})

	err := h.BatchHandler()(context.Background(), []broker.Message{
		{
			Value:   encodeEvent(t, event),
			Headers: map[string]string{constants.HeaderTenant: "diku"},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.statsRepo.inserted, 1)
}

func TestMessageHandler_SkipsWithoutTenant(t *testing.T) {
	f := newOrchestratorFixture(t)
	h := NewMessageHandler(f.orchestrator, nil, logger.NopLogger())

	id := uuid.New()
	event := tenantUpdateEvent("",
		&authority.Authority{ID: id, NaturalID: "n1"},
		&authority.Authority{ID: id, NaturalID: "n2"})

	err := h.BatchHandler()(context.Background(), []broker.Message{
		{Value: encodeEvent(t, event)},
	})
	require.NoError(t, err)
	assert.Empty(t, f.statsRepo.inserted)
}

func TestMessageHandler_DedupeGuardFilters(t *testing.T) {
	f := newOrchestratorFixture(t)
	guard := &fakeDedupeGuard{seen: map[int64]bool{7: true}}
	h := NewMessageHandler(f.orchestrator, guard, logger.NopLogger())

	id := uuid.New()
	f.linksRepo.links[id] = []links.Link{linkRow(1, id, "600")}
	event := tenantUpdateEvent("diku",
		&authority.Authority{ID: id, NaturalID: "n1"},
		&authority.Authority{ID: id, NaturalID: "n2"})

	err := h.BatchHandler()(context.Background(), []broker.Message{
		{Value: encodeEvent(t, event), Offset: 7},
		{Value: encodeEvent(t, event), Offset: 8},
	})
	require.NoError(t, err)
	// Only the unseen offset reaches the orchestrator.
	require.Len(t, f.updateHandler.got, 1)
	assert.Equal(t, []int64{8}, guard.marked)
}

func TestMessageHandler_FailedBatchStaysUnmarked(t *testing.T) {
	f := newOrchestratorFixture(t)
	guard := &fakeDedupeGuard{}
	h := NewMessageHandler(f.orchestrator, guard, logger.NopLogger())

	id := uuid.New()
	f.linksRepo.links[id] = []links.Link{linkRow(1, id, "600")}
	event := tenantUpdateEvent("diku",
		&authority.Authority{ID: id, NaturalID: "n1"},
		&authority.Authority{ID: id, NaturalID: "n2"})
	msgs := []broker.Message{{Value: encodeEvent(t, event), Offset: 12}}

	f.linksRepo.countErr = errors.New("connection reset")
	err := h.BatchHandler()(context.Background(), msgs)
	require.Error(t, err)
	assert.Empty(t, guard.marked)

	// A redelivered batch must still be processed in full.
	f.linksRepo.countErr = nil
	err = h.BatchHandler()(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, f.updateHandler.got, 1)
	assert.Equal(t, []int64{12}, guard.marked)
}
