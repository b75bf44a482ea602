package rules

import (
	"context"
	"sync"
	"time"

	"authlinks/internal/authority"
	pkgerrors "authlinks/pkg/errors"
)

// Resolver maps a changed authority business field to the MARC tag
// that owns it and resolves the linking rules keyed by that tag. Rules
// change rarely; resolved sets are cached per tag with a TTL.
type Resolver struct {
	client   Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	rules     []LinkingRule
	expiresAt time.Time
}

func NewResolver(client Client, cacheTTL time.Duration) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Resolver{
		client:   client,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

// TagByChangeField resolves the MARC authority tag for a changed
// business field. A field with no mapping is a batch-processing error
// for the authority being handled.
func (r *Resolver) TagByChangeField(field authority.ChangeField) (string, error) {
	tag, ok := field.AuthorityTag()
	if !ok {
		return "", pkgerrors.ErrValidation.
			WithDetail("message", "no MARC tag mapping for changed field").
			WithDetail("field", string(field))
	}
	return tag, nil
}

// RulesByAuthorityField returns every linking rule governing the given
// authority tag.
func (r *Resolver) RulesByAuthorityField(ctx context.Context, tag string) ([]LinkingRule, error) {
	r.mu.RLock()
	entry, ok := r.cache[tag]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.rules, nil
	}

	rules, err := r.client.GetLinkingRulesByAuthorityField(ctx, tag)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[tag] = cacheEntry{rules: rules, expiresAt: time.Now().Add(r.cacheTTL)}
	r.mu.Unlock()

	return rules, nil
}
