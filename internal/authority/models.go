package authority

import (
	"time"

	"github.com/google/uuid"
)

// Authority is one snapshot of an authority record as carried by
// inbound change events. Heading fields are denormalized copies of the
// underlying MARC authority record.
type Authority struct {
	ID           uuid.UUID  `json:"id"`
	NaturalID    string     `json:"naturalId"`
	SourceFileID *uuid.UUID `json:"sourceFileId,omitempty"`

	PersonalName       string `json:"personalName,omitempty"`
	PersonalNameTitle  string `json:"personalNameTitle,omitempty"`
	CorporateName      string `json:"corporateName,omitempty"`
	CorporateNameTitle string `json:"corporateNameTitle,omitempty"`
	MeetingName        string `json:"meetingName,omitempty"`
	MeetingNameTitle   string `json:"meetingNameTitle,omitempty"`
	UniformTitle       string `json:"uniformTitle,omitempty"`
	TopicalTerm        string `json:"topicalTerm,omitempty"`
	GeographicName     string `json:"geographicName,omitempty"`
	GenreTerm          string `json:"genreTerm,omitempty"`
}

type EventType string

const (
	EventTypeCreate  EventType = "CREATE"
	EventTypeUpdate  EventType = "UPDATE"
	EventTypeDelete  EventType = "DELETE"
	EventTypeReindex EventType = "REINDEX"
)

// ChangeEvent is one inbound authority mutation. Immutable once
// received.
type ChangeEvent struct {
	ID          string     `json:"id"`
	Tenant      string     `json:"tenant"`
	Type        EventType  `json:"type"`
	AuthorityID uuid.UUID  `json:"authorityId"`
	Old         *Authority `json:"old,omitempty"`
	New         *Authority `json:"new,omitempty"`
	Timestamp   time.Time  `json:"ts"`
}

// Active returns the snapshot that reflects the authority's current
// state: the new one for creates and updates, the old one for deletes.
func (e ChangeEvent) Active() *Authority {
	if e.Type == EventTypeDelete {
		return e.Old
	}
	if e.New != nil {
		return e.New
	}
	return e.Old
}
