// Package ingest produces the metrics snapshot that starts every pipeline run,
// either by normalizing caller-supplied input or by querying a metrics source.
package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/utils"
)

// defaultedFields are always present after normalization, 0 when missing or unparsable.
var defaultedFields = []string{
	models.FieldErrors,
	models.FieldLatencyMs,
	models.FieldConversionDropPercent,
	models.FieldActiveUsers,
}

// Normalize converts an untrusted metrics object into a snapshot. Recognized
// numeric fields are parsed leniently; anything that does not parse becomes 0.
// Unrecognized fields pass through untouched.
func Normalize(raw map[string]any, now time.Time) models.MetricsSnapshot {
	values := make(map[string]float64, len(models.RecognizedFields))
	for _, name := range defaultedFields {
		values[name] = 0
	}
	extra := make(map[string]any)

	for k, v := range raw {
		if !models.IsRecognizedField(k) {
			extra[k] = v
			continue
		}
		f, ok := parseNumber(v)
		if !ok {
			f = 0
		}
		if models.IntegerFields[k] {
			f = math.Trunc(f)
		}
		values[k] = f
	}

	ts := utils.FormatTimestamp(now)
	if s, ok := raw[models.FieldTimestamp].(string); ok && strings.TrimSpace(s) != "" {
		ts = s
	}
	snap := models.NewSnapshot(ts, values, extra)
	if s, ok := raw[models.FieldSource].(string); ok && s != "" {
		snap = snap.WithSource(s)
	}
	if s, ok := raw[models.FieldError].(string); ok && s != "" {
		snap = snap.WithError(s)
	}
	return snap
}

func parseNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
