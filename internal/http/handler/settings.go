package handler

import (
	"encoding/json"
	"net/http"

	"projsync/internal/project"
	"projsync/internal/store"
)

type SettingsHandler struct {
	Store *store.Store
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Store.GetReportSettings(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rs)
}

func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var rs project.ReportSettings
	if err := json.NewDecoder(r.Body).Decode(&rs); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if rs.ReportFormat == "" {
		rs.ReportFormat = "summary"
	}
	if len(rs.ChangeTypes) == 0 {
		rs.ChangeTypes = project.DefaultChangeTypes()
	}

	if err := h.Store.SaveReportSettings(r.Context(), &rs); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rs)
}
