package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vigia/sentinela/core"
)

// Record is one federated data row, shape-agnostic beyond the fields the
// dedupe logic in federation needs to see.
type Record struct {
	SourceID string
	Fields   map[string]interface{}
}

// FetchFunc performs one capability fetch against a single source.
type FetchFunc func(ctx context.Context, source *core.Source, filters map[string]interface{}) ([]Record, error)

// Client performs the actual HTTP call to a declared source, or returns
// canned fixtures when the module is running in demo mode (no
// TRANSPARENCY_API_KEY configured) — mirroring the teacher's
// mock-services stand-in for an unavailable external dependency.
type Client struct {
	httpClient *http.Client
	apiKey     string
	demoMode   bool
}

func NewClient(apiKey string, demoMode bool) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		demoMode:   demoMode,
	}
}

func (c *Client) Fetch(ctx context.Context, source *core.Source, filters map[string]interface{}) ([]Record, error) {
	if c.demoMode {
		return c.fixture(source), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.BaseEndpoint, nil)
	if err != nil {
		return nil, core.NewError("Fetch", core.KindSource, source.ID, "build request failed", err).WithRetryable(false)
	}
	req.Header.Set("chave-api-dados", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.NewError("Fetch", core.KindSource, source.ID, "timeout", core.ErrTimeout).WithRetryable(true)
		}
		return nil, core.NewError("Fetch", core.KindSource, source.ID, "transient network failure", err).WithRetryable(true)
	}
	defer resp.Body.Close()

	// Retryable: rate-limited or a transient server fault (spec §4.2).
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, core.NewError("Fetch", core.KindSource, source.ID, fmt.Sprintf("retryable status %d", resp.StatusCode), nil).WithRetryable(true)
	}
	// Non-retryable: credentials will not become valid on retry.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, core.NewError("Fetch", core.KindSource, source.ID, "auth failure", core.ErrNotConfigured).WithRetryable(false)
	}
	// Non-retryable: every other 4xx reflects a malformed request, not a
	// transient condition.
	if resp.StatusCode >= 400 {
		return nil, core.NewError("Fetch", core.KindSource, source.ID, fmt.Sprintf("permanent status %d", resp.StatusCode), nil).WithRetryable(false)
	}

	// Wire decoding is per-API and out of scope; the core's concern ends at
	// classifying the outcome.
	return []Record{}, nil
}

// fixture synthesizes demo-mode records so the federation executor has
// something realistic to dedupe and merge during local development.
func (c *Client) fixture(source *core.Source) []Record {
	return []Record{
		{
			SourceID: source.ID,
			Fields: map[string]interface{}{
				"contract_id": fmt.Sprintf("%s-DEMO-0001", source.ID),
				"org":         "Ministério da Saúde",
				"value":       125000.0,
				"date":        "2024-03-15",
			},
		},
	}
}
