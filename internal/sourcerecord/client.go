package sourcerecord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"authlinks/internal/constants"
	"authlinks/internal/marc"
	"authlinks/pkg/circuitbreaker"
	pkgerrors "authlinks/pkg/errors"
)

// Client fetches the current MARC source record for an authority.
type Client interface {
	GetSourceRecordByID(ctx context.Context, authorityID uuid.UUID) (*marc.Record, error)
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

func (c *HTTPClient) GetSourceRecordByID(ctx context.Context, authorityID uuid.UUID) (*marc.Record, error) {
	fetch := func() (interface{}, error) {
		return c.fetch(ctx, authorityID)
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

	return result.(*marc.Record), nil
}

func (c *HTTPClient) fetch(ctx context.Context, authorityID uuid.UUID) (*marc.Record, error) {
	endpoint := fmt.Sprintf("%s/source-storage/records/%s", c.baseURL, authorityID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pkgerrors.ErrIntegration.WithCause(err).
			WithDetail("message", "source record request failed").
			WithDetail("authority_id", authorityID.String())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.ErrNotFound.
			WithDetail("message", "source record not found").
			WithDetail("authority_id", authorityID.String())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.ErrIntegration.
			WithDetail("message", fmt.Sprintf("source storage returned status %d", resp.StatusCode)).
			WithDetail("authority_id", authorityID.String())
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read source record body: %w", err)
	}

	var envelope struct {
		ParsedRecord struct {
			Content json.RawMessage `json:"content"`
		} `json:"parsedRecord"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode source record envelope: %w", err)
	}

	return marc.ParseRecord(envelope.ParsedRecord.Content)
}
