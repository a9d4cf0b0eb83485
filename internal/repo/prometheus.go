package repo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// PrometheusClient evaluates instant PromQL queries.
type PrometheusClient struct {
	api    promv1.API
	logger *slog.Logger
	now    func() time.Time
}

// NewPrometheusClient targets a Prometheus server address.
func NewPrometheusClient(address string, logger *slog.Logger) (*PrometheusClient, error) {
	if address == "" {
		return nil, fmt.Errorf("prometheus address not configured")
	}
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("prometheus client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PrometheusClient{api: promv1.NewAPI(client), logger: logger, now: time.Now}, nil
}

// QueryScalar returns the first sample of an instant query. ok is false when
// the result is empty or not a finite number.
func (c *PrometheusClient) QueryScalar(ctx context.Context, query string) (value float64, ok bool, err error) {
	result, warnings, err := c.api.Query(ctx, query, c.now())
	if err != nil {
		return 0, false, fmt.Errorf("prometheus query %q: %w", query, err)
	}
	if len(warnings) > 0 {
		c.logger.Debug("prometheus query warnings", "query", query, "warnings", warnings)
	}

	var v model.SampleValue
	switch r := result.(type) {
	case model.Vector:
		if len(r) == 0 {
			return 0, false, nil
		}
		v = r[0].Value
	case *model.Scalar:
		v = r.Value
	default:
		return 0, false, fmt.Errorf("prometheus query %q: unsupported result type %s", query, result.Type())
	}
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, nil
	}
	return f, true, nil
}
