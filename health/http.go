package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// It only reports that the process is serving.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler reports the registry's overall verdict. A degraded
// registry is still ready; an open circuit is not.
func ReadinessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := reg.Stats().OverallHealth

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(statusCode(status))

		switch status {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON body of the detailed health endpoint.
type HealthResponse struct {
	Status    string                     `json:"status"`
	Timestamp string                     `json:"timestamp"`
	Services  map[string]ServiceResponse `json:"services"`
}

// ServiceResponse is the JSON body for a single dependency.
type ServiceResponse struct {
	Available           bool   `json:"available"`
	CircuitState        string `json:"circuit_state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastHealthCheck     string `json:"last_health_check,omitempty"`
	Message             string `json:"message,omitempty"`
}

func newServiceResponse(st ServiceStatus) ServiceResponse {
	resp := ServiceResponse{
		Available:           st.Available,
		CircuitState:        st.CircuitState.String(),
		ConsecutiveFailures: st.ConsecutiveFailures,
		Message:             st.Message,
	}
	if !st.LastHealthCheck.IsZero() {
		resp.LastHealthCheck = st.LastHealthCheck.UTC().Format(time.RFC3339)
	}
	return resp
}

// DetailedHandler returns every dependency's status as JSON.
func DetailedHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := reg.Stats()

		response := HealthResponse{
			Status:    stats.OverallHealth.String(),
			Timestamp: stats.LastUpdated.UTC().Format(time.RFC3339),
			Services:  make(map[string]ServiceResponse, len(stats.Services)),
		}
		for name, st := range stats.Services {
			response.Services[name] = newServiceResponse(st)
		}

		writeJSON(w, statusCode(stats.OverallHealth), response)
	}
}

// ServiceHandler returns one dependency's status as JSON.
func ServiceHandler(reg *Registry, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := reg.ServiceStatus(name)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, ErrServiceNotFound) {
				code = http.StatusNotFound
			}
			writeJSON(w, code, map[string]string{"error": err.Error()})
			return
		}

		code := http.StatusOK
		if !st.Available {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, newServiceResponse(st))
	}
}

// RegisterHandlers mounts the health endpoints on mux, including one
// /health/<name> route per registered dependency.
func RegisterHandlers(mux *http.ServeMux, reg *Registry) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(reg))
	mux.HandleFunc("/health", DetailedHandler(reg))
	for _, name := range reg.Names() {
		mux.HandleFunc("/health/"+name, ServiceHandler(reg, name))
	}
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
