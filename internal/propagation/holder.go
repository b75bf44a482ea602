package propagation

import (
	"fmt"

	"authlinks/internal/authority"
)

// ChangeHolder correlates one inbound event with its classified
// differences and current link count. Immutable once constructed;
// correlation ids live in a separate map threaded through the
// pipeline.
type ChangeHolder struct {
	event         authority.ChangeEvent
	changes       []authority.Change
	numberOfLinks int
}

// NewChangeHolder rejects an empty change list: constructing a holder
// without differences is a programming error upstream.
func NewChangeHolder(event authority.ChangeEvent, changes []authority.Change, numberOfLinks int) (*ChangeHolder, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("change holder requires at least one change for authority %s", event.AuthorityID)
	}
	return &ChangeHolder{
		event:         event,
		changes:       changes,
		numberOfLinks: numberOfLinks,
	}, nil
}

func (h *ChangeHolder) Event() authority.ChangeEvent {
	return h.event
}

func (h *ChangeHolder) Changes() []authority.Change {
	return h.changes
}

func (h *ChangeHolder) NumberOfLinks() int {
	return h.numberOfLinks
}

func (h *ChangeHolder) ChangeType() ChangeType {
	if h.event.Type == authority.EventTypeDelete {
		return ChangeTypeDelete
	}
	return ChangeTypeUpdate
}

func (h *ChangeHolder) IsNaturalIDChanged() bool {
	for _, c := range h.changes {
		if c.Field.IsNaturalID() {
			return true
		}
	}
	return false
}

func (h *ChangeHolder) IsOnlyNaturalIDChanged() bool {
	return len(h.changes) == 1 && h.changes[0].Field.IsNaturalID()
}

// FieldChange returns the sole non-identifier change, when present.
func (h *ChangeHolder) FieldChange() (authority.Change, bool) {
	for _, c := range h.changes {
		if !c.Field.IsNaturalID() {
			return c, true
		}
	}
	return authority.Change{}, false
}

// NewNaturalID returns the post-change natural id when it changed,
// otherwise the event's current natural id.
func (h *ChangeHolder) NewNaturalID() string {
	for _, c := range h.changes {
		if c.Field.IsNaturalID() {
			return c.New
		}
	}
	if active := h.event.Active(); active != nil {
		return active.NaturalID
	}
	return ""
}
