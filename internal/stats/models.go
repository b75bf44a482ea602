package stats

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionUpdateHeading   Action = "UPDATE_HEADING"
	ActionUpdateNaturalID Action = "UPDATE_NATURAL_ID"
	ActionDelete          Action = "DELETE"
)

// DataStat is one audit row per processed authority change. Its id
// becomes the correlation id stamped onto every correction event for
// that authority. Created once at batch-ingest time; completion is
// recorded by a downstream consumer.
type DataStat struct {
	ID           uuid.UUID
	AuthorityID  uuid.UUID
	Action       Action
	NaturalIDOld string
	NaturalIDNew string
	HeadingOld   string
	HeadingNew   string
	LinksCount   int
	StartedAt    time.Time
	CompletedAt  *time.Time
}
