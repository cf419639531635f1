package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	syncpkg "projsync/internal/sync"
)

type SyncHandler struct {
	Reconciler *syncpkg.Reconciler
}

// Trigger runs an on-demand reconciliation with the same semantics as the
// scheduled runs and returns the structured summary. Manual runs bypass the
// fetch cache unless ?force=false is given.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	force := strings.TrimSpace(r.URL.Query().Get("force")) != "false"

	summary, err := h.Reconciler.ReconcileAll(r.Context(), syncpkg.Options{ForceRefresh: force})
	if err != nil {
		if errors.Is(err, syncpkg.ErrSyncInProgress) {
			http.Error(w, "sync already in progress", http.StatusConflict)
			return
		}
		http.Error(w, "sync failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
