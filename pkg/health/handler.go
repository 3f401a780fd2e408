package health

import (
	"encoding/json"
	"net/http"
	"strings"
)

// LivenessHandler reports that the process is up. It runs no checks.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		write(w, r, http.StatusOK, &Response{Status: StatusHealthy})
	}
}

// ReadinessHandler runs checks on every request and answers 503 when any
// of them fails.
func ReadinessHandler(checks Checks, opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts...)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := runChecks(r.Context(), checks, cfg)
		if resp.Status == StatusUnhealthy {
			write(w, r, http.StatusServiceUnavailable, resp)
			return
		}
		write(w, r, http.StatusOK, resp)
	}
}

// write renders resp as JSON when the client asks for it with ?format=json
// or an Accept header, and as a one-line text summary otherwise.
func write(w http.ResponseWriter, r *http.Request, status int, resp *Response) {
	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if resp.Status == StatusHealthy {
		_, _ = w.Write([]byte("OK"))
		return
	}
	_, _ = w.Write([]byte("unhealthy: " + strings.Join(resp.Failing(), ", ")))
}
