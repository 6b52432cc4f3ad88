package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voltgrid/merchant-gateway/internal/config"
	"github.com/voltgrid/merchant-gateway/internal/domain"
)

// Client forwards requests to one backend domain service. Exactly one
// outbound call is made per Forward; no retries, no fan-out.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	version    string
	httpClient *http.Client
}

// NewClient creates a forwarder for one backend. A nil httpClient gets a
// default with a 15 second timeout.
func NewClient(name string, svc config.Service, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 15 * time.Second,
		}
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(svc.BaseURL, "/"),
		apiKey:     svc.APIKey,
		version:    svc.Version,
		httpClient: httpClient,
	}
}

// Name returns the backend name used in logs and probe reports.
func (c *Client) Name() string { return c.name }

// endpoint builds ${BaseURL}/api/${Version}/<path>?<query>. Query values are
// re-encoded with url.Values.Encode, which sorts keys, so the forwarded
// query string is deterministic.
func (c *Client) endpoint(path string, query url.Values) string {
	u := fmt.Sprintf("%s/api/%s/%s", c.baseURL, c.version, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Forward issues the single downstream call and returns the raw response
// body. A non-2xx response carrying the structured {code, description,
// reasonPhrase} envelope comes back as *domain.Error so it passes through
// verbatim; anything else surfaces as a plain error and becomes a generic
// 500 at the translator.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	req.Header.Set("x-functions-key", c.apiKey)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", c.name, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	if env := decodeEnvelope(respBody); env != nil {
		if env.Code == 0 {
			env.Code = resp.StatusCode
		}
		return nil, env
	}
	return nil, fmt.Errorf("%s: responded with status %d", c.name, resp.StatusCode)
}

// ForwardJSON marshals v and forwards it, for handlers that enrich the
// request body before passing it on.
func (c *Client) ForwardJSON(ctx context.Context, method, path string, query url.Values, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal body: %w", c.name, err)
	}
	return c.Forward(ctx, method, path, query, body)
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Forward(ctx, http.MethodGet, "health", nil, nil)
	return err
}

func decodeEnvelope(body []byte) *domain.Error {
	var env domain.Error
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	if env.ReasonPhrase == "" {
		return nil
	}
	return &env
}
