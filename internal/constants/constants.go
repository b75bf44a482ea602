package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	// DefaultLinkPageSize bounds link pagination in the change handlers.
	DefaultLinkPageSize = 100
)

const (
	DefaultInputTopic  = "authorities.authority"
	DefaultOutputTopic = "links.instance-authority"
)

const (
	// SubfieldNaturalID is the bibliographic subfield carrying the
	// authority natural identifier.
	SubfieldNaturalID = '0'

	// SubfieldAuthorityID is the bibliographic subfield carrying the
	// internal authority record id.
	SubfieldAuthorityID = '9'
)

const (
	HeaderDomainEventType = "domain-event-type"
	HeaderTenant          = "x-okapi-tenant"
	HeaderJobID           = "reindex-job-id"

	DomainEventTypeLinksChange = "LINKS_CHANGE"
)

const (
	CacheKeyPrefixSourceFile = "authority-source-file:"
	CacheKeyPrefixDedupe     = "authority-event:"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultMigrationsPath = "migrations/postgres"
)

const (
	DefaultDedupeTTLSeconds = 86400
)
