package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ReportClient sends engagement signals to the content server.
// Fire-and-forget from the caller's point of view: errors are returned for
// logging but carry no retry obligation.
type ReportClient struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

// NewReportClient creates a ReportClient. sessionID tags every report so
// the server can group signals per feed session.
func NewReportClient(baseURL, sessionID string, timeout time.Duration) *ReportClient {
	return &ReportClient{
		baseURL:   baseURL,
		sessionID: sessionID,
		client:    &http.Client{Timeout: timeout},
	}
}

type engagementPayload struct {
	SessionID string  `json:"sessionId"`
	ContentID string  `json:"contentId"`
	Seconds   int     `json:"seconds,omitempty"`
	Interest  float64 `json:"interest,omitempty"`
	Kind      string  `json:"kind"`
}

// ReportDuration reports accumulated view seconds for an item.
func (c *ReportClient) ReportDuration(contentID string, seconds int) error {
	return c.post(engagementPayload{
		SessionID: c.sessionID,
		ContentID: contentID,
		Seconds:   seconds,
		Kind:      "duration",
	})
}

// ReportInterest reports a hover-interest score for an item.
func (c *ReportClient) ReportInterest(contentID string, score float64) error {
	return c.post(engagementPayload{
		SessionID: c.sessionID,
		ContentID: contentID,
		Interest:  score,
		Kind:      "interest",
	})
}

func (c *ReportClient) post(p engagementPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode engagement report: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/api/v1/engagement", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
