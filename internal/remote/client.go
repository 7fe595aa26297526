package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pockettune/radiosync/internal/station"
)

// Ensure Client implements Store at compile time.
var _ Store = (*Client)(nil)

// Client talks to the document store's HTTP API. The collection lives under
// /api/users/{userID}/stations with one document per station id.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultUserAgent      = "radiosync/0.1"
	defaultRequestTimeout = 10 * time.Second
)

// ClientOption adjusts a Client during construction.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a Client for the given base URL (host:port or full URL).
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// uploadRequest is the replace-all payload. The server applies it as one
// atomic batch.
type uploadRequest struct {
	Stations []CloudStation `json:"stations"`
}

type downloadResponse struct {
	Stations []CloudStation `json:"stations"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

// UploadAll replaces the user's entire collection in one request.
func (c *Client) UploadAll(ctx context.Context, userID string, stations []station.Station) error {
	docs := make([]CloudStation, 0, len(stations))
	for _, s := range stations {
		docs = append(docs, ToCloud(s))
	}
	path := fmt.Sprintf("/api/users/%s/stations", url.PathEscape(userID))
	return c.do(ctx, http.MethodPut, path, uploadRequest{Stations: docs}, nil)
}

// DownloadAll fetches every station stored for the user.
func (c *Client) DownloadAll(ctx context.Context, userID string) ([]station.Station, error) {
	path := fmt.Sprintf("/api/users/%s/stations", url.PathEscape(userID))
	var payload downloadResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	stations := make([]station.Station, 0, len(payload.Stations))
	for _, doc := range payload.Stations {
		stations = append(stations, FromCloud(doc))
	}
	return stations, nil
}

// PushOne applies a single change to the user's collection.
func (c *Client) PushOne(ctx context.Context, userID string, change station.PendingChange) error {
	collection := fmt.Sprintf("/api/users/%s/stations", url.PathEscape(userID))
	document := collection + "/" + url.PathEscape(change.Station.ID)

	switch change.Type {
	case station.ChangeAdd:
		return c.do(ctx, http.MethodPost, collection, ToCloud(change.Station), nil)
	case station.ChangeUpdate:
		patch := map[string]any{
			"name":      change.Station.Name,
			"url":       change.Station.URL,
			"updatedAt": time.Now().UnixMilli(),
		}
		return c.do(ctx, http.MethodPatch, document, patch, nil)
	case station.ChangeDelete:
		return c.do(ctx, http.MethodDelete, document, nil, nil)
	default:
		return fmt.Errorf("remote: unknown change type %q", change.Type)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures are connectivity problems by definition.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload apiErrorResponse
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Error
		}
		// Gateway-level statuses still mean the store itself is unreachable.
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %v", ErrUnavailable, apiErr)
		}
		return apiErr
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("remote: base URL is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base URL %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
