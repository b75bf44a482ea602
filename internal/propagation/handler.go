package propagation

import (
	"context"
	"encoding/json"

	"authlinks/internal/authority"
	"authlinks/internal/broker"
	"authlinks/internal/constants"
	"authlinks/internal/logger"
	"authlinks/pkg/metrics"
)

// MessageHandler adapts raw broker batches into authority change
// events for the orchestrator. Undecodable payloads are logged skips
// so a malformed message cannot poison the batch.
type MessageHandler struct {
	orchestrator *Orchestrator
	dedupe       DedupeGuard
	logger       logger.Logger
}

func NewMessageHandler(orchestrator *Orchestrator, dedupe DedupeGuard, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		orchestrator: orchestrator,
		dedupe:       dedupe,
		logger:       log,
	}
}

// BatchHandler returns the function the consumer invokes per fetched
// batch.
func (h *MessageHandler) BatchHandler() broker.BatchHandlerFunc {
	return h.handleBatch
}

func (h *MessageHandler) handleBatch(ctx context.Context, msgs []broker.Message) error {
	events := make([]authority.ChangeEvent, 0, len(msgs))
	accepted := make([]broker.Message, 0, len(msgs))

	for _, msg := range msgs {
		var event authority.ChangeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			h.logger.ErrorwCtx(ctx, "Skipping undecodable authority event",
				"error", err, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
			metrics.IncSkippedRecord("decode_error")
			continue
		}
		if event.Tenant == "" {
			event.Tenant = msg.Headers[constants.HeaderTenant]
		}
		if event.Tenant == "" {
			h.logger.ErrorwCtx(ctx, "Skipping authority event without tenant",
				"authority_id", event.AuthorityID, "topic", msg.Topic, "offset", msg.Offset)
			metrics.IncSkippedRecord("missing_tenant")
			continue
		}

		if h.dedupe != nil && h.dedupe.Seen(ctx, event.Tenant, event.AuthorityID.String(), msg.Topic, msg.Partition, msg.Offset) {
			h.logger.DebugwCtx(ctx, "Skipping already processed message",
				"authority_id", event.AuthorityID, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
			continue
		}

		events = append(events, event)
		accepted = append(accepted, msg)
	}

	if err := h.orchestrator.Handle(ctx, events); err != nil {
		// Unmarked positions are seen again by the consumer's retry
		// and redelivery paths.
		return err
	}

	if h.dedupe != nil {
		for i, msg := range accepted {
			h.dedupe.Mark(ctx, events[i].Tenant, events[i].AuthorityID.String(), msg.Topic, msg.Partition, msg.Offset)
		}
	}
	return nil
}
