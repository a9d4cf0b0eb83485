package models

// HealthStatusHealthy marks a system that received a fix.
const HealthStatusHealthy = "healthy"

// HealthStatus is the small JSON document shared between execution and demo ingestion.
type HealthStatus struct {
	Status           string `json:"status"`
	LastFixTimestamp string `json:"last_fix_timestamp"`
	FixType          string `json:"fix_type"`
}
