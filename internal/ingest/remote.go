package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/repo"
	"github.com/miradorstack/autoops/internal/utils"
)

// DefaultPrometheusQueries map snapshot fields to PromQL. The latency query
// yields seconds and is scaled to milliseconds.
var DefaultPrometheusQueries = map[string]string{
	models.FieldErrors:      `sum(rate(http_requests_total{status=~"5.."}[5m]))`,
	models.FieldLatencyMs:   `histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))`,
	models.FieldActiveUsers: `sum(active_sessions)`,
}

// DefaultDatadogQueries map snapshot fields to Datadog metric queries.
var DefaultDatadogQueries = map[string]string{
	models.FieldErrors:      `sum:error.count{*}.as_count()`,
	models.FieldLatencyMs:   `avg:trace.http.request.duration{*}`,
	models.FieldActiveUsers: `sum:active.users{*}`,
}

const datadogWindow = 5 * time.Minute

type scalarQuerier func(ctx context.Context, query string) (float64, bool, error)

// QueryProvider evaluates one query per snapshot field against a time-series backend.
type QueryProvider struct {
	name    string
	queries map[string]string
	scale   map[string]float64
	query   scalarQuerier
	logger  *slog.Logger
	now     func() time.Time
}

// NewPrometheusProvider merges overrides over DefaultPrometheusQueries.
func NewPrometheusProvider(client *repo.PrometheusClient, overrides map[string]string, logger *slog.Logger) *QueryProvider {
	return newQueryProvider(SourcePrometheus, client.QueryScalar, mergeQueries(DefaultPrometheusQueries, overrides),
		map[string]float64{models.FieldLatencyMs: 1000}, logger)
}

// NewDatadogProvider merges overrides over DefaultDatadogQueries.
func NewDatadogProvider(client *repo.DatadogClient, overrides map[string]string, logger *slog.Logger) *QueryProvider {
	query := func(ctx context.Context, q string) (float64, bool, error) {
		return client.QueryLatest(ctx, q, datadogWindow)
	}
	return newQueryProvider(SourceDatadog, query, mergeQueries(DefaultDatadogQueries, overrides), nil, logger)
}

func newQueryProvider(name string, query scalarQuerier, queries map[string]string, scale map[string]float64, logger *slog.Logger) *QueryProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryProvider{name: name, queries: queries, scale: scale, query: query, logger: logger, now: time.Now}
}

// Name implements MetricsProvider.
func (p *QueryProvider) Name() string { return p.name }

// GetMetrics runs every configured query. Any query error fails the snapshot so
// the chain can fall back; empty results read as 0.
func (p *QueryProvider) GetMetrics(ctx context.Context) (models.MetricsSnapshot, error) {
	values := map[string]float64{models.FieldConversionDropPercent: 0}
	fields := make([]string, 0, len(p.queries))
	for f := range p.queries {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		v, ok, err := p.query(ctx, p.queries[field])
		if err != nil {
			return models.MetricsSnapshot{}, fmt.Errorf("%s %s: %w", p.name, field, err)
		}
		if !ok {
			v = 0
		}
		if s, scaled := p.scale[field]; scaled {
			v *= s
		}
		if models.IntegerFields[field] {
			v = math.Round(v)
		}
		values[field] = v
	}
	return models.NewSnapshot(utils.FormatTimestamp(p.now()), values, nil).WithSource(p.name), nil
}

func mergeQueries(defaults, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// WebhookProvider normalizes whatever JSON object a custom endpoint returns.
type WebhookProvider struct {
	client *repo.WebhookClient
	now    func() time.Time
}

// NewWebhookProvider wraps client.
func NewWebhookProvider(client *repo.WebhookClient) *WebhookProvider {
	return &WebhookProvider{client: client, now: time.Now}
}

// Name implements MetricsProvider.
func (w *WebhookProvider) Name() string { return SourceWebhook }

// GetMetrics fetches and normalizes the document.
func (w *WebhookProvider) GetMetrics(ctx context.Context) (models.MetricsSnapshot, error) {
	raw, err := w.client.Fetch(ctx)
	if err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("webhook: %w", err)
	}
	return Normalize(raw, w.now()).WithSource(SourceWebhook), nil
}
