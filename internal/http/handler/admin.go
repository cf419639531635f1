package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"projsync/internal/admin"
	syncpkg "projsync/internal/sync"
)

type AdminHandler struct {
	Maintenance *admin.Service
}

func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.Maintenance.Cleanup(r.Context())
	if err != nil {
		if errors.Is(err, syncpkg.ErrSyncInProgress) {
			http.Error(w, "sync already in progress", http.StatusConflict)
			return
		}
		http.Error(w, "cleanup failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *AdminHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Maintenance.ClearHistory(r.Context()); err != nil {
		if errors.Is(err, syncpkg.ErrSyncInProgress) {
			http.Error(w, "sync already in progress", http.StatusConflict)
			return
		}
		http.Error(w, "clear failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "history cleared"})
}
