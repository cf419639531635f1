package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"projsync/internal/store"
)

type ProjectHandler struct {
	Store *store.Store
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(projects)
}

// Changes lists change log entries, newest window first. The default window
// is the past 7 days; ?since= accepts an RFC 3339 timestamp or a date.
func (h *ProjectHandler) Changes(w http.ResponseWriter, r *http.Request) {
	until := time.Now()
	since := until.AddDate(0, 0, -7)

	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	events, err := h.Store.QueryChangeEvents(r.Context(), since, until)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
