package propagation

import (
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeDelete ChangeType = "DELETE"
)

// SubfieldChange corrects one bibliographic subfield. An empty value
// instructs the consumer to clear its stale copy.
type SubfieldChange struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

// FieldChange is the ordered set of subfield corrections for one
// bibliographic field.
type FieldChange struct {
	Field     string           `json:"field"`
	Subfields []SubfieldChange `json:"subfields"`
}

type LinkRef struct {
	LinkID     int64     `json:"linkId"`
	InstanceID uuid.UUID `json:"instanceId"`
}

// ChangeTarget groups the affected links of one page by bibliographic
// tag.
type ChangeTarget struct {
	Field string    `json:"field"`
	Links []LinkRef `json:"links"`
}

// LinksChangeEvent is the outbound correction event. One instance
// covers one page of affected links for one authority.
type LinksChangeEvent struct {
	JobID            *uuid.UUID     `json:"jobId,omitempty"`
	AuthorityID      uuid.UUID      `json:"authorityId"`
	Type             ChangeType     `json:"type"`
	UpdateTargets    []ChangeTarget `json:"updateTargets"`
	SubfieldsChanges []FieldChange  `json:"subfieldsChanges"`
	Tenant           string         `json:"tenant"`
	Timestamp        time.Time      `json:"ts"`
}
