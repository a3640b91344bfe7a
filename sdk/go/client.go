package sitedesksdk

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
)

// Client is a minimal Sitedesk HTTP API client.
type Client struct {
	BaseURL     string
	ProjectID   string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// BallInCourt identifies who owes the next action on an RFI.
type BallInCourt struct {
	UserID          string `json:"user_id,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	SuggestedAction string `json:"suggested_action"`
	IsBlocked       bool   `json:"is_blocked"`
}

// RFI represents the API RFI model (partial).
type RFI struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"project_id"`
	Number          int         `json:"number"`
	Subject         string      `json:"subject"`
	Status          string      `json:"status"`
	StatusLabel     string      `json:"status_label"`
	Priority        string      `json:"priority"`
	AssignedToID    *string     `json:"assigned_to_id,omitempty"`
	AssignedToOrg   *string     `json:"assigned_to_org,omitempty"`
	ResponseDueDate *time.Time  `json:"response_due_date,omitempty"`
	BallInCourt     BallInCourt `json:"ball_in_court"`
}

// ChangeOrder represents the API change order model (partial).
type ChangeOrder struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	Payload    map[string]any `json:"payload"`
}

// CourtEntry is one RFI waiting on a user.
type CourtEntry struct {
	RFI          RFI         `json:"rfi"`
	Court        BallInCourt `json:"court"`
	Overdue      bool        `json:"overdue"`
	DaysOverdue  int         `json:"days_overdue"`
	DaysUntilDue *int        `json:"days_until_due,omitempty"`
}

// RFISLAMetrics is the SLA dashboard for a project.
type RFISLAMetrics struct {
	ByStatus             map[string]int `json:"by_status"`
	OpenOverdue          int            `json:"open_overdue"`
	ComplianceTotal      int            `json:"compliance_total"`
	ComplianceCompliant  int            `json:"compliance_compliant"`
	CompliancePercentage int            `json:"compliance_percentage"`
	AverageResponseHours *float64       `json:"average_response_hours,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedRFIs wraps RFI list responses with cursors.
type PaginatedRFIs struct {
	Items      []RFI  `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// PaginatedEvents wraps event list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateRFI creates a draft RFI.
func (c *Client) CreateRFI(ctx context.Context, subject, question, priority string) (RFI, error) {
	body := map[string]any{
		"subject":  subject,
		"question": question,
	}
	if priority != "" {
		body["priority"] = priority
	}
	var resp RFI
	err := c.do(ctx, http.MethodPost, c.projectPath("rfis"), body, &resp)
	return resp, err
}

// SubmitRFI submits a draft RFI, starting the SLA clock.
func (c *Client) SubmitRFI(ctx context.Context, id string) (RFI, error) {
	var resp RFI
	endpoint := c.projectPath(fmt.Sprintf("rfis/%s/submit", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{}, &resp)
	return resp, err
}

// AnswerRFI records an answer on an RFI.
func (c *Client) AnswerRFI(ctx context.Context, id, answer string) (RFI, error) {
	var resp RFI
	endpoint := c.projectPath(fmt.Sprintf("rfis/%s/answer", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"answer": answer}, &resp)
	return resp, err
}

// GetRFI fetches an RFI by id.
func (c *Client) GetRFI(ctx context.Context, id string) (RFI, error) {
	var resp RFI
	endpoint := c.projectPath(fmt.Sprintf("rfis/%s", url.PathEscape(id)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// RFIs returns a paginated RFI listing, optionally filtered by status.
func (c *Client) RFIs(ctx context.Context, status string, limit int, cursor string) (PaginatedRFIs, error) {
	endpoint := c.projectPath("rfis")
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedRFIs
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CourtFor returns the RFIs whose ball-in-court resolves to a user.
func (c *Client) CourtFor(ctx context.Context, userID string) ([]CourtEntry, error) {
	var resp []CourtEntry
	endpoint := c.projectPath(fmt.Sprintf("court/%s", url.PathEscape(userID)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Metrics returns the RFI SLA dashboard for the project.
func (c *Client) Metrics(ctx context.Context) (RFISLAMetrics, error) {
	var resp RFISLAMetrics
	err := c.do(ctx, http.MethodGet, c.projectPath("metrics/rfi-sla"), nil, &resp)
	return resp, err
}

// CreateChangeOrder creates a change order in the contemplated status.
func (c *Client) CreateChangeOrder(ctx context.Context, title string, amountCents int64) (ChangeOrder, error) {
	body := map[string]any{
		"title":        title,
		"amount_cents": amountCents,
	}
	var resp ChangeOrder
	err := c.do(ctx, http.MethodPost, c.projectPath("change-orders"), body, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := c.projectPath("events")
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
