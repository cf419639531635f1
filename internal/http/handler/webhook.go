package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	syncpkg "projsync/internal/sync"

	"github.com/sirupsen/logrus"
)

// WebhookHandler accepts upstream change notifications and triggers a sync.
// Payloads are authenticated with an HMAC-SHA256 signature over the raw body.
type WebhookHandler struct {
	Secret     string
	Reconciler *syncpkg.Reconciler
	Log        *logrus.Logger
}

type webhookEvent struct {
	Type string `json:"type"`
}

func (h *WebhookHandler) Notion(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" {
		http.Error(w, "webhook not configured", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(r.Header.Get("X-Notion-Signature"), body) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	if ev.Type != "database.updated" && ev.Type != "page.updated" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "event received but not processed"})
		return
	}

	summary, err := h.Reconciler.ReconcileAll(r.Context(), syncpkg.Options{ForceRefresh: true})
	if err != nil {
		if errors.Is(err, syncpkg.ErrSyncInProgress) {
			// A running sync will pick the change up; acknowledge the event.
			w.WriteHeader(http.StatusAccepted)
			return
		}
		h.Log.WithError(err).Error("webhook-triggered sync failed")
		http.Error(w, "sync failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (h *WebhookHandler) verifySignature(signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
