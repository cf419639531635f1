package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"projsync/internal/project"
	"projsync/internal/report"
	"projsync/internal/store"

	"github.com/go-chi/chi/v5"
)

type ReportHandler struct {
	Generator *report.Generator
	Store     *store.Store
}

type generateReportReq struct {
	WindowDays  int      `json:"window_days"`
	ChangeTypes []string `json:"change_types"`
}

// Generate builds a report on demand. The window and allowlist default to
// the persisted settings when absent from the request body.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateReportReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.WindowDays <= 0 {
		req.WindowDays = 7
	}

	var (
		rep *report.WeeklyReport
		err error
	)
	if len(req.ChangeTypes) > 0 {
		end := time.Now()
		rep, err = h.Generator.Generate(r.Context(), end.AddDate(0, 0, -req.WindowDays), end, req.ChangeTypes)
	} else {
		rep, err = h.Generator.GenerateWindow(r.Context(), req.WindowDays)
	}
	if err != nil {
		if rep == nil {
			http.Error(w, "report generation failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// Report was computed but not fully persisted; return it anyway.
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rep)
}

// Recompute rebuilds a report body from the two most recent stored snapshots
// without touching the change log.
func (h *ReportHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Store.LatestSnapshots(r.Context(), 2)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if len(snaps) == 0 {
		http.Error(w, "no snapshots stored", http.StatusNotFound)
		return
	}

	var current, previous []project.Project
	if err := json.Unmarshal(snaps[0].Data, &current); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if len(snaps) > 1 {
		if err := json.Unmarshal(snaps[1].Data, &previous); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	rep := report.BuildFromSnapshots(current, previous)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rep)
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Store.ListReports(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	type item struct {
		ID          uint64    `json:"id"`
		ReportDate  string    `json:"report_date"`
		GeneratedAt time.Time `json:"generated_at"`
	}
	out := make([]item, 0, len(reports))
	for _, rec := range reports {
		out = append(out, item{ID: rec.ID, ReportDate: rec.ReportDate, GeneratedAt: rec.GeneratedAt})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.LatestReport(r.Context())
	h.writeReport(w, rec, err)
}

func (h *ReportHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	rec, err := h.Store.ReportByDate(r.Context(), date)
	h.writeReport(w, rec, err)
}

func (h *ReportHandler) writeReport(w http.ResponseWriter, rec *project.Report, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rec)
}
