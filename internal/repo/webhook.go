package repo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookClient fetches an arbitrary JSON object of metrics from a custom endpoint.
type WebhookClient struct {
	url        string
	method     string
	headers    map[string]string
	httpClient *http.Client
}

// NewWebhookClient builds a client; a non-empty token is sent as a bearer credential.
func NewWebhookClient(url, method, token string, headers map[string]string, timeout time.Duration) *WebhookClient {
	if method == "" {
		method = http.MethodGet
	}
	h := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	if token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return &WebhookClient{
		url:        url,
		method:     strings.ToUpper(method),
		headers:    h,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the decoded JSON object. Numbers arrive as json.Number.
func (c *WebhookClient) Fetch(ctx context.Context) (map[string]any, error) {
	if c == nil || c.url == "" {
		return nil, fmt.Errorf("webhook url not configured")
	}
	var out map[string]any
	if err := doJSON(ctx, c.httpClient, c.method, c.url, c.headers, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("webhook returned an empty document")
	}
	return out, nil
}
