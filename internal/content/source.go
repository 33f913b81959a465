package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Source retrieves pages of content. Implementations perform exactly one
// network round trip per call and never retry; retry policy belongs to
// whoever owns the session.
type Source interface {
	FetchPage(ctx context.Context, req PageRequest) (*PageResult, error)
}

// HTTPSource fetches pages from the drift content server's JSON API.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTPSource for the given server base URL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// pagePayload mirrors the wire response. Pointer fields distinguish
// "absent" from zero values so truncated responses are rejected.
type pagePayload struct {
	Items      *[]Item `json:"items"`
	NextCursor string  `json:"nextCursor"`
	HasMore    *bool   `json:"hasMore"`
}

// FetchPage performs one round trip against GET /api/v1/feed.
func (s *HTTPSource) FetchPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("pageSize", strconv.Itoa(req.PageSize))
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}
	if len(req.Categories) > 0 {
		q.Set("categories", strings.Join(req.Categories, ","))
	}
	if len(req.ExcludeIDs) > 0 {
		q.Set("exclude", strings.Join(req.ExcludeIDs, ","))
	}

	u := s.baseURL + "/api/v1/feed?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var payload pagePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Items == nil || payload.HasMore == nil {
		return nil, fmt.Errorf("%w: missing items or hasMore", ErrMalformed)
	}

	return &PageResult{
		Items:      *payload.Items,
		NextCursor: payload.NextCursor,
		HasMore:    *payload.HasMore,
	}, nil
}
