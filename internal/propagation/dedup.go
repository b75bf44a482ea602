package propagation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"authlinks/internal/constants"
	"authlinks/internal/logger"
	"authlinks/pkg/metrics"
)

// DedupeGuard suppresses redelivered messages across consumer
// restarts. Keys are derived from the message's source position, so a
// legitimately re-emitted change with a new offset always passes.
// Positions are recorded only after the batch they belong to has been
// processed; a failed batch stays unmarked so the consumer's retry and
// redelivery paths see every message again.
type DedupeGuard interface {
	// Seen reports whether the position was already processed.
	Seen(ctx context.Context, tenantID, authorityID, topic string, partition int, offset int64) bool
	// Mark records the position as processed.
	Mark(ctx context.Context, tenantID, authorityID, topic string, partition int, offset int64)
}

type RedisDedupeGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisDedupeGuard(client *redis.Client, ttlSeconds int, log logger.Logger) *RedisDedupeGuard {
	if ttlSeconds <= 0 {
		ttlSeconds = constants.DefaultDedupeTTLSeconds
	}
	return &RedisDedupeGuard{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		logger: log,
	}
}

func (g *RedisDedupeGuard) Seen(ctx context.Context, tenantID, authorityID, topic string, partition int, offset int64) bool {
	key := dedupeKey(tenantID, authorityID, topic, partition, offset)

	exists, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		// Guard is best effort, processing stays at-least-once.
		g.logger.WarnwCtx(ctx, "Dedupe guard check failed, processing anyway",
			"error", err, "key", key)
		metrics.DedupeGuardHitsTotal.WithLabelValues("error").Inc()
		return false
	}

	if exists == 0 {
		metrics.DedupeGuardHitsTotal.WithLabelValues("miss").Inc()
		return false
	}
	metrics.DedupeGuardHitsTotal.WithLabelValues("hit").Inc()
	return true
}

func (g *RedisDedupeGuard) Mark(ctx context.Context, tenantID, authorityID, topic string, partition int, offset int64) {
	key := dedupeKey(tenantID, authorityID, topic, partition, offset)

	if err := g.client.Set(ctx, key, 1, g.ttl).Err(); err != nil {
		g.logger.WarnwCtx(ctx, "Dedupe guard mark failed",
			"error", err, "key", key)
		metrics.DedupeGuardHitsTotal.WithLabelValues("error").Inc()
	}
}

func dedupeKey(tenantID, authorityID, topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s%s:%s:%s:%d:%d",
		constants.CacheKeyPrefixDedupe, tenantID, authorityID, topic, partition, offset)
}
