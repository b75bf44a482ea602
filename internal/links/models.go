package links

import (
	"github.com/google/uuid"
)

// Link connects one bibliographic instance field to an authority
// record. The subfield list and natural id are denormalized copies kept
// current by the propagation pipeline.
type Link struct {
	ID                 int64
	InstanceID         uuid.UUID
	AuthorityID        uuid.UUID
	AuthorityNaturalID string
	BibRecordTag       string
	BibRecordSubfields []string
	LinkingRuleID      int
}
