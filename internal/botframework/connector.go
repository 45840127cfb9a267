package botframework

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"basegraph.app/reminder/core/config"
)

const (
	botFrameworkScope     = "https://api.botframework.com/.default"
	defaultConnectorLimit = 30 * time.Second
)

// APIError is a non-2xx answer from the Bot Framework connector service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bot framework HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether sending again may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// ConnectorClient calls the v3 conversations API of a channel's service URL.
type ConnectorClient struct {
	http *http.Client
}

// NewConnectorClient returns a client that authenticates with the bot's app
// credentials. base is the transport used for both token and API calls; nil
// uses a client with a 30s timeout. Without an app id requests are anonymous.
func NewConnectorClient(cfg config.BotConfig, base *http.Client) *ConnectorClient {
	if base == nil {
		base = &http.Client{Timeout: defaultConnectorLimit}
	}
	if !cfg.Enabled() {
		return &ConnectorClient{http: base}
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppPassword,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{botFrameworkScope},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := creds.Client(ctx)
	client.Timeout = base.Timeout
	return &ConnectorClient{http: client}
}

// SendToConversation posts an activity into a conversation.
// POST {serviceUrl}/v3/conversations/{conversationId}/activities
func (c *ConnectorClient) SendToConversation(ctx context.Context, serviceURL, conversationID string, activity *Activity) (*ResourceResponse, error) {
	endpoint := fmt.Sprintf("%sv3/conversations/%s/activities",
		ensureTrailingSlash(serviceURL), url.PathEscape(conversationID))
	return c.postActivity(ctx, endpoint, activity)
}

// ReplyToActivity posts an activity as a reply to another one.
// POST {serviceUrl}/v3/conversations/{conversationId}/activities/{activityId}
func (c *ConnectorClient) ReplyToActivity(ctx context.Context, serviceURL, conversationID, activityID string, activity *Activity) (*ResourceResponse, error) {
	endpoint := fmt.Sprintf("%sv3/conversations/%s/activities/%s",
		ensureTrailingSlash(serviceURL), url.PathEscape(conversationID), url.PathEscape(activityID))
	return c.postActivity(ctx, endpoint, activity)
}

// GetPagedMembers lists one page of conversation members.
// GET {serviceUrl}/v3/conversations/{conversationId}/pagedmembers
func (c *ConnectorClient) GetPagedMembers(ctx context.Context, serviceURL, conversationID string, pageSize int, continuationToken string) (*PagedMembersResult, error) {
	query := url.Values{}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	if continuationToken != "" {
		query.Set("continuationToken", continuationToken)
	}
	endpoint := fmt.Sprintf("%sv3/conversations/%s/pagedmembers",
		ensureTrailingSlash(serviceURL), url.PathEscape(conversationID))
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating members request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var page PagedMembersResult
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding members page: %w", err)
	}
	return &page, nil
}

func (c *ConnectorClient) postActivity(ctx context.Context, endpoint string, activity *Activity) (*ResourceResponse, error) {
	payload, err := json.Marshal(activity)
	if err != nil {
		return nil, fmt.Errorf("marshal activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating activity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	res := &ResourceResponse{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, res); err != nil {
			return nil, fmt.Errorf("decoding resource response: %w", err)
		}
	}

	slog.DebugContext(ctx, "activity sent", "type", activity.Type, "resource_id", res.ID)
	return res, nil
}

func (c *ConnectorClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bot framework request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading bot framework response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func ensureTrailingSlash(u string) string {
	if !strings.HasSuffix(u, "/") {
		return u + "/"
	}
	return u
}
