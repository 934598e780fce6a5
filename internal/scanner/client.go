package scanner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const DefaultTimeout = 5 * time.Second

const networkErrorMessage = "Network or server error"

type Config struct {
	BaseURL string        `json:"baseUrl"`
	Token   string        `json:"token"`
	Timeout time.Duration `json:"timeout"`
}

// Result mirrors the scan endpoint response.
type Result struct {
	Status     string     `json:"status"`
	HolderName string     `json:"holderName,omitempty"`
	TicketType string     `json:"ticketType,omitempty"`
	ScannedAt  *time.Time `json:"scannedAt,omitempty"`
	Message    string     `json:"message,omitempty"`
}

func (r *Result) String() string {
	switch r.Status {
	case "SUCCESS":
		return fmt.Sprintf("SUCCESS  %s (%s)", r.HolderName, r.TicketType)
	case "DUPLICATE":
		at := "unknown time"
		if r.ScannedAt != nil {
			at = r.ScannedAt.Local().Format("15:04:05")
		}
		return fmt.Sprintf("DUPLICATE  %s already scanned at %s", r.HolderName, at)
	}
	return fmt.Sprintf("ERROR  %s", r.Message)
}

type Client struct {
	// baseURL is the eventpass server root.
	baseURL string

	// token is an admin auth token sent as Authorization.
	token string

	// hc bounds every call with the configured timeout.
	hc *http.Client
}

func NewClient(c Config) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		token:   c.Token,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// Scan submits a scanned code. It never returns an error: a timeout, a network failure or an
// unreadable reply all come back as an ERROR result the operator can act on.
func (c *Client) Scan(ctx context.Context, payload, eventID string) *Result {
	result, err := c.scan(ctx, payload, eventID)
	if err != nil {
		slog.Warn("Scan request failed", "event_id", eventID, "error", err)
		return &Result{Status: "ERROR", Message: networkErrorMessage}
	}
	return result
}

func (c *Client) scan(ctx context.Context, payload, eventID string) (*Result, error) {
	body, err := json.Marshal(map[string]string{
		"secret":  payload,
		"eventId": eventID,
	})
	if err != nil {
		return nil, fmt.Errorf("scan: json.Marshal: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/api/v1/scan")
	if err != nil {
		return nil, fmt.Errorf("scan: url.JoinPath: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scan: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scan: http.Do: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Result{Status: "ERROR", Message: "Not authorized to scan"}, nil
	default:
		return nil, fmt.Errorf("scan: resp.StatusCode: %d", resp.StatusCode)
	}

	var reply Result
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("scan: json.Decode: %w", err)
	}
	if reply.Status == "" {
		return nil, fmt.Errorf("scan: empty status in reply")
	}
	return &reply, nil
}
