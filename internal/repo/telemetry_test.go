package repo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestDatadogQueryLatest(t *testing.T) {
	client := NewDatadogClient("https://dd.example", "api", "app", time.Second)
	client.now = func() time.Time { return time.Unix(1_700_000_300, 0) }
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/v1/query", req.URL.Path)
		assert.Equal(t, "api", req.Header.Get("DD-API-KEY"))
		assert.Equal(t, "app", req.Header.Get("DD-APPLICATION-KEY"))
		assert.Equal(t, "1700000000", req.URL.Query().Get("from"))
		assert.Equal(t, "1700000300", req.URL.Query().Get("to"))
		assert.Equal(t, "avg:system.cpu.user{*}", req.URL.Query().Get("query"))
		return jsonResponse(http.StatusOK, `{"status":"ok","series":[{"metric":"system.cpu.user","pointlist":[[1700000000000,12.5],[1700000060000,33.0],[1700000120000,null]]}]}`), nil
	})

	v, ok, err := client.QueryLatest(context.Background(), "avg:system.cpu.user{*}", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 33.0, v)
}

func TestDatadogQueryEmptySeries(t *testing.T) {
	client := NewDatadogClient("https://dd.example", "api", "app", time.Second)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"ok","series":[]}`), nil
	})
	_, ok, err := client.QueryLatest(context.Background(), "q", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDatadogRequiresKeys(t *testing.T) {
	_, _, err := NewDatadogClient("https://dd.example", "", "", time.Second).QueryLatest(context.Background(), "q", time.Minute)
	assert.Error(t, err)
}

func TestDatadogNon200(t *testing.T) {
	client := NewDatadogClient("https://dd.example", "api", "app", time.Second)
	client.httpClient = newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"errors":["Forbidden"]}`), nil
	})
	_, _, err := client.QueryLatest(context.Background(), "q", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Forbidden")
}

func TestWebhookFetchSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Team"))
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": 7, "latency_ms": "250"})
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, "post", "secret", map[string]string{"X-Team": "yes"}, time.Second)
	out, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, json.Number("7"), out["errors"])
	assert.Equal(t, "250", out["latency_ms"])
}

func TestWebhookFetchRequiresURL(t *testing.T) {
	_, err := NewWebhookClient("", "", "", nil, time.Second).Fetch(context.Background())
	assert.Error(t, err)
}

func TestPrometheusQueryScalar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("query") {
		case "empty":
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
		default:
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"1.25"]}]}}`))
		}
	}))
	defer srv.Close()

	client, err := NewPrometheusClient(srv.URL, nil)
	require.NoError(t, err)

	v, ok, err := client.QueryScalar(context.Background(), "sum(up)")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.25, v)

	_, ok, err = client.QueryScalar(context.Background(), "empty")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrometheusRequiresAddress(t *testing.T) {
	_, err := NewPrometheusClient("", nil)
	assert.Error(t, err)
}
