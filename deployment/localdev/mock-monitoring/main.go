package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// scenarios are the canned snapshots served to the webhook and Datadog integrations.
var scenarios = map[string]map[string]float64{
	"degraded": {"errors": 42, "latency_ms": 1800, "conversion_drop_percent": 12, "active_users": 1250},
	"healthy":  {"errors": 0, "latency_ms": 120, "conversion_drop_percent": 0, "active_users": 1250},
	"spike":    {"errors": 75, "latency_ms": 640, "conversion_drop_percent": 4, "active_users": 980},
	"overload": {"cpu_load": 93, "memory_usage": 71, "process_count": 240, "errors": 3, "latency_ms": 300},
}

type state struct {
	mu       sync.RWMutex
	scenario string
}

func (s *state) current() (string, map[string]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenario, scenarios[s.scenario]
}

func (s *state) set(name string) bool {
	if _, ok := scenarios[name]; !ok {
		return false
	}
	s.mu.Lock()
	s.scenario = name
	s.mu.Unlock()
	return true
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	initial := flag.String("scenario", "degraded", "initial scenario")
	flag.Parse()

	st := &state{scenario: "degraded"}
	if !st.set(*initial) {
		log.Fatalf("unknown scenario %q", *initial)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Webhook integration: monitoring.webhook.url = http://localhost:8080/metrics
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		name, values := st.current()
		payload := map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339), "scenario": name}
		for k, v := range values {
			payload[k] = v
		}
		writeJSON(w, payload)
	})

	// Datadog integration: monitoring.datadog.baseURL = http://localhost:8080
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("DD-API-KEY") == "" || r.Header.Get("DD-APPLICATION-KEY") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, values := st.current()
		query := r.URL.Query().Get("query")
		value, ok := datadogValue(query, values)
		if !ok {
			writeJSON(w, map[string]any{"status": "ok", "series": []any{}})
			return
		}
		now := float64(time.Now().UnixMilli())
		writeJSON(w, map[string]any{
			"status": "ok",
			"series": []map[string]any{{
				"metric":    query,
				"pointlist": [][]any{{now - 60000, value * 0.9}, {now, value}},
			}},
		})
	})

	mux.HandleFunc("/scenario", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		name := r.URL.Query().Get("name")
		if !st.set(name) {
			http.Error(w, "unknown scenario", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]string{"scenario": name})
	})

	logger := log.New(log.Writer(), "monitoring-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    *addr,
		Handler: logRequests(logger, mux),
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// datadogValue maps the default AutoOps Datadog queries onto scenario fields.
func datadogValue(query string, values map[string]float64) (float64, bool) {
	switch {
	case strings.Contains(query, "error"):
		v, ok := values["errors"]
		return v, ok
	case strings.Contains(query, "duration"), strings.Contains(query, "latency"):
		v, ok := values["latency_ms"]
		return v, ok
	case strings.Contains(query, "users"):
		v, ok := values["active_users"]
		return v, ok
	}
	return 0, false
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
