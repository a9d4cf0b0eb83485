package models

import (
	"encoding/json"
	"sort"
)

// Recognized metric field names. Snapshots may carry any subset of both vocabularies.
const (
	FieldCPULoad               = "cpu_load"
	FieldMemoryUsage           = "memory_usage"
	FieldProcessCount          = "process_count"
	FieldUptimeSeconds         = "uptime_seconds"
	FieldErrors                = "errors"
	FieldLatencyMs             = "latency_ms"
	FieldConversionDropPercent = "conversion_drop_percent"
	FieldActiveUsers           = "active_users"

	FieldTimestamp = "timestamp"
	FieldSource    = "source"
	FieldError     = "error"
)

// RecognizedFields lists the numeric fields normalized on ingestion.
var RecognizedFields = []string{
	FieldCPULoad,
	FieldMemoryUsage,
	FieldProcessCount,
	FieldUptimeSeconds,
	FieldErrors,
	FieldLatencyMs,
	FieldConversionDropPercent,
	FieldActiveUsers,
}

// IntegerFields are counters; fractional inputs are truncated on ingestion.
var IntegerFields = map[string]bool{
	FieldProcessCount:  true,
	FieldErrors:        true,
	FieldLatencyMs:     true,
	FieldActiveUsers:   true,
	FieldUptimeSeconds: true,
}

// IsRecognizedField reports whether name is one of RecognizedFields.
func IsRecognizedField(name string) bool {
	for _, f := range RecognizedFields {
		if f == name {
			return true
		}
	}
	return false
}

// MetricsSnapshot is one point-in-time reading of system and application health.
// Values are copied in and out so a snapshot never changes after construction.
type MetricsSnapshot struct {
	timestamp string
	source    string
	errTag    string
	values    map[string]float64
	extra     map[string]any
}

// NewSnapshot builds a snapshot from recognized numeric values and pass-through extras.
// Keys in extra that collide with recognized or reserved names are ignored.
func NewSnapshot(timestamp string, values map[string]float64, extra map[string]any) MetricsSnapshot {
	s := MetricsSnapshot{
		timestamp: timestamp,
		values:    make(map[string]float64, len(values)),
		extra:     make(map[string]any, len(extra)),
	}
	for k, v := range values {
		if v < 0 {
			v = 0
		}
		s.values[k] = v
	}
	for k, v := range extra {
		if isReserved(k) || IsRecognizedField(k) {
			continue
		}
		s.extra[k] = v
	}
	return s
}

func isReserved(name string) bool {
	return name == FieldTimestamp || name == FieldSource || name == FieldError
}

// WithSource returns a copy tagged with the producing source.
func (s MetricsSnapshot) WithSource(source string) MetricsSnapshot {
	c := s.clone()
	c.source = source
	return c
}

// WithError returns a copy carrying a best-effort error marker.
func (s MetricsSnapshot) WithError(msg string) MetricsSnapshot {
	c := s.clone()
	c.errTag = msg
	return c
}

func (s MetricsSnapshot) clone() MetricsSnapshot {
	return NewSnapshot(s.timestamp, s.values, s.extra).withTags(s.source, s.errTag)
}

func (s MetricsSnapshot) withTags(source, errTag string) MetricsSnapshot {
	s.source = source
	s.errTag = errTag
	return s
}

// Timestamp returns the ISO-8601 capture time.
func (s MetricsSnapshot) Timestamp() string { return s.timestamp }

// Source returns the producing source tag, if any.
func (s MetricsSnapshot) Source() string { return s.source }

// Error returns the best-effort error marker, if any.
func (s MetricsSnapshot) Error() string { return s.errTag }

// Value returns a numeric field, or 0 when absent.
func (s MetricsSnapshot) Value(name string) float64 {
	return s.values[name]
}

// Has reports whether the numeric field is present.
func (s MetricsSnapshot) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Extra returns an unrecognized pass-through field.
func (s MetricsSnapshot) Extra(name string) (any, bool) {
	v, ok := s.extra[name]
	return v, ok
}

// ValueNames returns present numeric field names in sorted order.
func (s MetricsSnapshot) ValueNames() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Fields flattens the snapshot into a fresh map suitable for JSON or structpb encoding.
func (s MetricsSnapshot) Fields() map[string]any {
	out := make(map[string]any, len(s.values)+len(s.extra)+3)
	for k, v := range s.extra {
		out[k] = v
	}
	for k, v := range s.values {
		out[k] = v
	}
	out[FieldTimestamp] = s.timestamp
	if s.source != "" {
		out[FieldSource] = s.source
	}
	if s.errTag != "" {
		out[FieldError] = s.errTag
	}
	return out
}

// MarshalJSON encodes the snapshot as a flat object.
func (s MetricsSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}
