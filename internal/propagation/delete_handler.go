package propagation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"authlinks/internal/authority"
	"authlinks/internal/links"
	"authlinks/internal/logger"
	"authlinks/internal/tenant"
)

// DeleteHandler tears down an authority's links. Events are built from
// live link data first; only then are the links and the authority rows
// deleted.
type DeleteHandler struct {
	links       links.Repository
	authorities authority.Repository
	pageSize    int
	logger      logger.Logger
}

func NewDeleteHandler(linksRepo links.Repository, authRepo authority.Repository, pageSize int, log logger.Logger) *DeleteHandler {
	return &DeleteHandler{
		links:       linksRepo,
		authorities: authRepo,
		pageSize:    pageSize,
		logger:      log,
	}
}

func (h *DeleteHandler) SupportedType() ChangeType {
	return ChangeTypeDelete
}

func (h *DeleteHandler) Handle(ctx context.Context, holders []*ChangeHolder, correlation map[uuid.UUID]uuid.UUID) ([]LinksChangeEvent, error) {
	if len(holders) == 0 {
		return nil, nil
	}

	var events []LinksChangeEvent
	authorityIDs := make([]uuid.UUID, 0, len(holders))

	for _, holder := range holders {
		authorityID := holder.Event().AuthorityID
		authorityIDs = append(authorityIDs, authorityID)

		holderEvents, err := h.buildEvents(ctx, holder, correlation)
		if err != nil {
			return nil, err
		}
		events = append(events, holderEvents...)
	}

	// Events were built from live data; the links and the authority
	// rows can go now.
	if err := h.links.DeleteByAuthorityIDs(ctx, authorityIDs); err != nil {
		return nil, err
	}
	if err := h.authorities.DeleteByIDs(ctx, authorityIDs); err != nil {
		return nil, err
	}

	return events, nil
}

func (h *DeleteHandler) buildEvents(ctx context.Context, holder *ChangeHolder, correlation map[uuid.UUID]uuid.UUID) ([]LinksChangeEvent, error) {
	authorityID := holder.Event().AuthorityID

	var events []LinksChangeEvent
	for offset := 0; ; offset += h.pageSize {
		page, err := h.links.FindByAuthorityID(ctx, authorityID, h.pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		events = append(events, LinksChangeEvent{
			JobID:            correlationID(correlation, authorityID),
			AuthorityID:      authorityID,
			Type:             ChangeTypeDelete,
			UpdateTargets:    groupByBibTag(page),
			SubfieldsChanges: []FieldChange{},
			Tenant:           tenant.FromContext(ctx),
			Timestamp:        time.Now(),
		})

		if len(page) < h.pageSize {
			break
		}
	}

	return events, nil
}

// groupByBibTag groups one page of links by bibliographic tag,
// preserving first-seen tag order.
func groupByBibTag(page []links.Link) []ChangeTarget {
	index := make(map[string]int)
	var targets []ChangeTarget

	for _, link := range page {
		ref := LinkRef{LinkID: link.ID, InstanceID: link.InstanceID}
		if i, ok := index[link.BibRecordTag]; ok {
			targets[i].Links = append(targets[i].Links, ref)
			continue
		}
		index[link.BibRecordTag] = len(targets)
		targets = append(targets, ChangeTarget{
			Field: link.BibRecordTag,
			Links: []LinkRef{ref},
		})
	}

	return targets
}

func correlationID(correlation map[uuid.UUID]uuid.UUID, authorityID uuid.UUID) *uuid.UUID {
	if correlation == nil {
		return nil
	}
	if id, ok := correlation[authorityID]; ok && id != uuid.Nil {
		return &id
	}
	return nil
}
