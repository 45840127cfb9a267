package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"basegraph.app/reminder/internal/model"
)

// Client forwards accepted card submissions to the reminder endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/api/remind",
		http:     httpClient,
	}
}

// Forward posts req to the reminder endpoint. A non-200 answer means the
// endpoint refused the reminder.
func (c *Client) Forward(ctx context.Context, req model.ReminderRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding reminder: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("posting reminder: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reminder endpoint answered HTTP %d", resp.StatusCode)
	}
	return nil
}
