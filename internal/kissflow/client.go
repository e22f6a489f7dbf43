package kissflow

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

// DefaultBaseURL is the account host the nomination workflow lives on.
const DefaultBaseURL = "https://kf-0000580.appspot.com"

const listPageSize = 99999

// Workflow step identifiers of the Honours flow, fixed per account.
const (
	StepDirectorateShortlist = "Acc70d887e_8f06_11e7_addd_062ed84aadae"
	StepProvideInput         = "Ac56fe5508_8f07_11e7_addd_062ed84aadae"
)

// Client calls the Kissflow process API for the Honours flow. All calls take
// a context and authenticate with the account API key header.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given account host. An empty baseURL
// selects the default host.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Case is one workflow case record as returned by the list endpoint. Field
// presence varies per case, so access goes through the typed getters.
type Case map[string]any

// ID returns the case identifier.
func (c Case) ID() string {
	return c.String("Id")
}

// String returns the named field as a string, or "" when absent or not a
// string.
func (c Case) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Float returns the named field as a float64, or 0 when absent.
func (c Case) Float(key string) float64 {
	f, _ := c[key].(float64)
	return f
}

// Has reports whether the named field is present at all.
func (c Case) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// ListCases fetches every case of the Honours flow.
func (c *Client) ListCases(ctx context.Context) ([]Case, error) {
	endpoint := fmt.Sprintf("%s/api/1/Honours/list/p1/%d", c.baseURL, listPageSize)

	body, err := c.call(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}

	var cases []Case
	if err := json.Unmarshal(body, &cases); err != nil {
		return nil, fmt.Errorf("decode case list: %w", err)
	}
	return cases, nil
}

// Submit creates a new case from the given submission body and returns the
// created case ID.
func (c *Client) Submit(ctx context.Context, submission map[string]any) (string, error) {
	payload, err := json.Marshal(submission)
	if err != nil {
		return "", fmt.Errorf("marshal submission: %w", err)
	}

	body, err := c.call(ctx, http.MethodPost, c.baseURL+"/api/1/Honours/submit", payload, "application/json")
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("submit response carries no case ID")
	}
	return created.ID, nil
}

// UpdateCase writes the given fields to an existing case.
func (c *Client) UpdateCase(ctx context.Context, id string, fields url.Values) error {
	endpoint := fmt.Sprintf("%s/api/1/Honours/%s/update", c.baseURL, id)
	_, err := c.call(ctx, http.MethodPut, endpoint, []byte(fields.Encode()), "application/x-www-form-urlencoded")
	return err
}

// ProgressCase writes the given fields and moves the case to its next step.
func (c *Client) ProgressCase(ctx context.Context, id string, fields url.Values) error {
	endpoint := fmt.Sprintf("%s/api/1/Honours/%s/done", c.baseURL, id)
	_, err := c.call(ctx, http.MethodPost, endpoint, []byte(fields.Encode()), "application/x-www-form-urlencoded")
	return err
}

// Host returns the account host the client talks to.
func (c *Client) Host() string {
	return c.baseURL
}

// CaseInboxURL returns the inbox link for a case at the given workflow step.
func (c *Client) CaseInboxURL(step, id string) string {
	return fmt.Sprintf("%s/#/inbox/Provide%%20Input/Sh25328874_8f06_11e7_addd_062ed84aadae/%s/%s",
		c.baseURL, step, id)
}

func (c *Client) call(ctx context.Context, method, endpoint string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kissflow api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	return respBody, nil
}

// APIError reports a non-2xx response from the workflow host.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kissflow api status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the failure is worth retrying: rate limiting or
// a server-side fault.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
