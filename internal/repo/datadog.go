package repo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DatadogClient runs metric queries against the Datadog v1 query API.
type DatadogClient struct {
	baseURL    string
	apiKey     string
	appKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewDatadogClient targets baseURL (for example https://api.datadoghq.com).
func NewDatadogClient(baseURL, apiKey, appKey string, timeout time.Duration) *DatadogClient {
	return &DatadogClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		appKey:     appKey,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

type datadogQueryResponse struct {
	Status string `json:"status"`
	Series []struct {
		Metric    string       `json:"metric"`
		Pointlist [][]*float64 `json:"pointlist"`
	} `json:"series"`
	Error string `json:"error"`
}

// QueryLatest evaluates query over the last window and returns the newest
// non-null point of the first series. ok is false when no point exists.
func (c *DatadogClient) QueryLatest(ctx context.Context, query string, window time.Duration) (value float64, ok bool, err error) {
	if c == nil || c.baseURL == "" {
		return 0, false, fmt.Errorf("datadog client not configured")
	}
	if c.apiKey == "" || c.appKey == "" {
		return 0, false, fmt.Errorf("datadog api and application keys are required")
	}
	end := c.now()
	params := url.Values{}
	params.Set("from", strconv.FormatInt(end.Add(-window).Unix(), 10))
	params.Set("to", strconv.FormatInt(end.Unix(), 10))
	params.Set("query", query)

	headers := map[string]string{
		"DD-API-KEY":         c.apiKey,
		"DD-APPLICATION-KEY": c.appKey,
	}
	var resp datadogQueryResponse
	if err := doJSON(ctx, c.httpClient, http.MethodGet, c.baseURL+"/api/v1/query?"+params.Encode(), headers, nil, &resp); err != nil {
		return 0, false, err
	}
	if resp.Error != "" {
		return 0, false, fmt.Errorf("datadog query %q: %s", query, resp.Error)
	}
	if len(resp.Series) == 0 {
		return 0, false, nil
	}
	points := resp.Series[0].Pointlist
	for i := len(points) - 1; i >= 0; i-- {
		if len(points[i]) == 2 && points[i][1] != nil {
			return *points[i][1], true, nil
		}
	}
	return 0, false, nil
}
