// Package provider implements the HTTP client for the aggregate search
// gateway that fronts the individual content-provider endpoints.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oriontv/models"
)

// TransportError reports a failed call against one provider or the
// gateway. Timeout deadline expiry is flagged separately from plain
// transport failures so diagnostics can tell "the network dropped it"
// apart from "we cancelled it".
type TransportError struct {
	Op      string // "searchOne", "searchAll", "listSources"
	Source  string // source key, empty for aggregate calls
	Status  int    // HTTP status, 0 when the request never completed
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	target := e.Op
	if e.Source != "" {
		target = fmt.Sprintf("%s source=%s", e.Op, e.Source)
	}
	switch {
	case e.Timeout:
		return fmt.Sprintf("provider %s: timed out: %v", target, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("provider %s: unexpected status %d", target, e.Status)
	default:
		return fmt.Sprintf("provider %s: %v", target, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a transport failure caused by a
// deadline rather than an explicit cancellation.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}

// Client talks to the aggregate search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client with a default HTTP client when one is
// not provided.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: client,
	}
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
}

type sourcesResponse struct {
	Sources []models.SourceDescriptor `json:"sources"`
}

// SearchOne queries a single source for a title.
func (c *Client) SearchOne(ctx context.Context, query, sourceKey string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("wd", query)
	q.Set("source", sourceKey)
	var resp searchResponse
	if err := c.getJSON(ctx, "/api/search", q, &resp, "searchOne", sourceKey); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchAll queries every upstream source through the gateway.
func (c *Client) SearchAll(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("wd", query)
	var resp searchResponse
	if err := c.getJSON(ctx, "/api/search", q, &resp, "searchAll", ""); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ListSources fetches the catalog of available providers.
func (c *Client) ListSources(ctx context.Context) ([]models.SourceDescriptor, error) {
	var resp sourcesResponse
	if err := c.getJSON(ctx, "/api/search/resources", nil, &resp, "listSources", ""); err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any, op, sourceKey string) error {
	if c.baseURL == "" {
		return &TransportError{Op: op, Source: sourceKey, Err: errors.New("api base url not configured")}
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Op: op, Source: sourceKey, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Caller-initiated cancellation is not a transport failure; let
		// the orchestrator recognize it via errors.Is.
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &TransportError{Op: op, Source: sourceKey, Timeout: isTimeoutErr(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: op, Source: sourceKey, Status: resp.StatusCode, Err: fmt.Errorf("status %s", resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Source: sourceKey, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
