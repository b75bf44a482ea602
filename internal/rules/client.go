package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"authlinks/internal/constants"
	"authlinks/pkg/circuitbreaker"
	pkgerrors "authlinks/pkg/errors"
)

// Client fetches linking rules from the linking rules service.
type Client interface {
	GetLinkingRulesByAuthorityField(ctx context.Context, authorityField string) ([]LinkingRule, error)
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.Wrapper
}

func NewHTTPClient(baseURL string, breaker *circuitbreaker.Wrapper) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
		breaker: breaker,
	}
}

func (c *HTTPClient) GetLinkingRulesByAuthorityField(ctx context.Context, authorityField string) ([]LinkingRule, error) {
	fetch := func() (interface{}, error) {
		return c.fetch(ctx, authorityField)
	}

	var result interface{}
	var err error
	if c.breaker != nil {
		result, err = c.breaker.ExecuteWithContext(ctx, fetch)
		c.breaker.RecordRequest(err == nil)
	} else {
		result, err = fetch()
	}
	if err != nil {
		return nil, err
	}

	return result.([]LinkingRule), nil
}

func (c *HTTPClient) fetch(ctx context.Context, authorityField string) ([]LinkingRule, error) {
	endpoint := fmt.Sprintf("%s/linking-rules/instance-authority?authorityField=%s",
		c.baseURL, url.QueryEscape(authorityField))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pkgerrors.ErrIntegration.WithCause(err).
			WithDetail("message", "linking rules request failed").
			WithDetail("authority_field", authorityField)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.ErrIntegration.
			WithDetail("message", fmt.Sprintf("linking rules service returned status %d", resp.StatusCode)).
			WithDetail("authority_field", authorityField)
	}

	var result []LinkingRule
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode linking rules: %w", err)
	}

	return result, nil
}
