package sourcerecord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"authlinks/internal/constants"
	"authlinks/internal/logger"
	pkgerrors "authlinks/pkg/errors"
	"authlinks/pkg/metrics"
)

// SourceFileClient resolves an authority source file's base URL, used
// to build subfield $0 values.
type SourceFileClient interface {
	GetBaseURL(ctx context.Context, sourceFileID uuid.UUID) (string, error)
}

// CachedSourceFileClient fronts the source files service with a redis
// cache. Base URLs change rarely; a miss is fetched once and shared by
// every propagation worker.
type CachedSourceFileClient struct {
	baseURL  string
	client   *http.Client
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewCachedSourceFileClient(baseURL string, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *CachedSourceFileClient {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &CachedSourceFileClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

func (c *CachedSourceFileClient) GetBaseURL(ctx context.Context, sourceFileID uuid.UUID) (string, error) {
	key := constants.CacheKeyPrefixSourceFile + sourceFileID.String()

	if c.redis != nil {
		val, err := c.redis.Get(ctx, key).Result()
		if err == nil {
			metrics.SourceFileCacheHitsTotal.WithLabelValues("hit").Inc()
			return val, nil
		}
		if err != redis.Nil {
			// Cache trouble is not worth failing propagation over.
			c.logger.WarnwCtx(ctx, "Source file cache read failed",
				"error", err,
				"source_file_id", sourceFileID,
			)
		}
	}
	metrics.SourceFileCacheHitsTotal.WithLabelValues("miss").Inc()

	baseURL, err := c.fetch(ctx, sourceFileID)
	if err != nil {
		return "", err
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, baseURL, c.cacheTTL).Err(); err != nil {
			c.logger.WarnwCtx(ctx, "Source file cache write failed",
				"error", err,
				"source_file_id", sourceFileID,
			)
		}
	}

	return baseURL, nil
}

func (c *CachedSourceFileClient) fetch(ctx context.Context, sourceFileID uuid.UUID) (string, error) {
	endpoint := fmt.Sprintf("%s/authority-source-files/%s", c.baseURL, sourceFileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", pkgerrors.ErrIntegration.WithCause(err).
			WithDetail("message", "source file request failed").
			WithDetail("source_file_id", sourceFileID.String())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", pkgerrors.ErrNotFound.
			WithDetail("message", "authority source file not found").
			WithDetail("source_file_id", sourceFileID.String())
	}
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.ErrIntegration.
			WithDetail("message", fmt.Sprintf("source files service returned status %d", resp.StatusCode)).
			WithDetail("source_file_id", sourceFileID.String())
	}

	var result struct {
		BaseURL string `json:"baseUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode source file: %w", err)
	}

	return result.BaseURL, nil
}
