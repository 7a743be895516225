package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// HealthCheck probes one dependency. A nil check reports "not configured".
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	Checks    map[string]HealthCheck
	Version   string
	StartTime time.Time
	Timeout   time.Duration
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		Checks:    checks,
		Version:   version,
		StartTime: time.Now(),
		Timeout:   2 * time.Second,
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make(map[string]string, len(names))
	status := "healthy"
	for _, name := range names {
		check := h.Checks[name]
		if check == nil {
			deps[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
