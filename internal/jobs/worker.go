package jobs

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"projsync/internal/project"
	"projsync/internal/report"

	"github.com/sirupsen/logrus"
)

// ReportRunner is the slice of the report generator the worker drives.
type ReportRunner interface {
	GenerateWindow(ctx context.Context, windowDays int) (*report.WeeklyReport, error)
}

type ReportReader interface {
	ReportByDate(ctx context.Context, date string) (*project.Report, error)
	GetReportSettings(ctx context.Context) (*project.ReportSettings, error)
}

type Mailer interface {
	Configured() bool
	Send(to, subject, htmlBody, textBody string) error
}

type Worker struct {
	ID      string
	Repo    *Repo
	Reports ReportRunner
	Store   ReportReader
	Mailer  Mailer

	// Fallback recipient when the settings row carries none.
	Recipient string

	Log *logrus.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.WithError(err).Error("worker claim failed")
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	switch job.Type {
	case TypeReportGenerate:
		w.handleReportGenerate(ctx, job)
	case TypeEmailDispatch:
		w.handleEmailDispatch(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleReportGenerate(ctx context.Context, job *Job) {
	var p struct {
		WindowDays int  `json:"window_days"`
		Email      bool `json:"email"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}
	if p.WindowDays <= 0 {
		p.WindowDays = 7
	}

	rep, err := w.Reports.GenerateWindow(ctx, p.WindowDays)
	if err != nil {
		w.retry(job, "report generation: "+err.Error())
		return
	}
	w.Log.WithFields(logrus.Fields{
		"report_date": rep.ReportDate,
		"changed":     len(rep.ChangedProjects),
		"new":         len(rep.NewProjects),
	}).Info("report generated")

	if p.Email {
		if err := w.Repo.Enqueue(TypeEmailDispatch, map[string]any{"report_date": rep.ReportDate}); err != nil {
			// Notification loss only; the report itself is persisted.
			w.Log.WithError(err).Warn("failed to enqueue report email")
		}
	}

	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) handleEmailDispatch(ctx context.Context, job *Job) {
	var p struct {
		ReportDate string `json:"report_date"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	if w.Mailer == nil || !w.Mailer.Configured() {
		w.Log.Debug("mailer not configured, skipping report email")
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	rec, err := w.Store.ReportByDate(ctx, p.ReportDate)
	if err != nil {
		w.retry(job, "load report: "+err.Error())
		return
	}

	rep := &report.WeeklyReport{
		ReportDate:           rec.ReportDate,
		GeneratedAt:          rec.GeneratedAt,
		PreviousSnapshotDate: rec.PreviousSnapshotDate,
	}
	if rec.Narrative != nil {
		rep.Narrative = *rec.Narrative
	}
	if err := json.Unmarshal(rec.ChangedProjects, &rep.ChangedProjects); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad report record")
		return
	}
	if err := json.Unmarshal(rec.NewProjects, &rep.NewProjects); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad report record")
		return
	}

	recipient := w.Recipient
	if settings, err := w.Store.GetReportSettings(ctx); err == nil && settings.Recipient != "" {
		recipient = settings.Recipient
	}
	if recipient == "" {
		w.Log.Debug("no report recipient configured, skipping email")
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	subject, htmlBody, textBody := report.BuildInsightEmail(rep)
	if err := w.Mailer.Send(recipient, subject, htmlBody, textBody); err != nil {
		// Email failure never cascades; log and close the job out.
		w.Log.WithError(err).Error("report email send failed")
		_ = w.Repo.MarkFailed(job.ID, err.Error())
		return
	}

	w.Log.WithField("recipient", recipient).Info("report email sent")
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
