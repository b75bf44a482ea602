package propagation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"authlinks/internal/logger"
)

// ChangeHandler turns one group of same-typed change holders into
// outbound correction events. Handlers only receive holders with at
// least one current link.
type ChangeHandler interface {
	SupportedType() ChangeType
	Handle(ctx context.Context, holders []*ChangeHolder, correlation map[uuid.UUID]uuid.UUID) ([]LinksChangeEvent, error)
}

// Router dispatches holder groups to their registered handlers. The
// registry is built at startup and validated: every dispatchable
// change type must have exactly one handler.
type Router struct {
	handlers map[ChangeType]ChangeHandler
	logger   logger.Logger
}

func NewRouter(log logger.Logger, handlers ...ChangeHandler) (*Router, error) {
	registry := make(map[ChangeType]ChangeHandler, len(handlers))
	for _, h := range handlers {
		if _, exists := registry[h.SupportedType()]; exists {
			return nil, fmt.Errorf("duplicate handler registered for change type %s", h.SupportedType())
		}
		registry[h.SupportedType()] = h
	}

	for _, required := range []ChangeType{ChangeTypeUpdate, ChangeTypeDelete} {
		if _, ok := registry[required]; !ok {
			return nil, fmt.Errorf("no handler registered for change type %s", required)
		}
	}

	return &Router{handlers: registry, logger: log}, nil
}

// Dispatch groups holders by change type and hands each group to its
// handler. Holders without current links never reach a handler.
func (r *Router) Dispatch(ctx context.Context, holders []*ChangeHolder, correlation map[uuid.UUID]uuid.UUID) ([]LinksChangeEvent, error) {
	groups := make(map[ChangeType][]*ChangeHolder)
	for _, holder := range holders {
		if holder.NumberOfLinks() == 0 {
			continue
		}
		ct := holder.ChangeType()
		groups[ct] = append(groups[ct], holder)
	}

	var events []LinksChangeEvent
	for _, ct := range []ChangeType{ChangeTypeDelete, ChangeTypeUpdate} {
		group := groups[ct]
		if len(group) == 0 {
			continue
		}

		handler := r.handlers[ct]
		handled, err := handler.Handle(ctx, group, correlation)
		if err != nil {
			return nil, fmt.Errorf("handler for %s failed: %w", ct, err)
		}
		events = append(events, handled...)
	}

	return events, nil
}
