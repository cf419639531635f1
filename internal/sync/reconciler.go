// Package sync reconciles the upstream Notion registry against the local
// store and accumulates the field-level change log.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"projsync/internal/cache"
	"projsync/internal/jobs"
	"projsync/internal/notion"
	"projsync/internal/project"
	"projsync/internal/store"

	"github.com/sirupsen/logrus"
)

// ErrSyncInProgress is returned when a run is requested while another run or
// a maintenance operation holds the gate.
var ErrSyncInProgress = errors.New("sync already in progress")

type Store interface {
	FindProjectByTitle(ctx context.Context, title string) (*project.Project, error)
	InsertProject(ctx context.Context, p *project.Project) error
	UpdateProject(ctx context.Context, p *project.Project) error
	InsertChangeEvents(ctx context.Context, events []project.ChangeEvent) error
}

type Fetcher interface {
	QueryDatabase(ctx context.Context, databaseID string, editedSince *time.Time) ([]notion.Page, error)
}

// Queue receives the fire-and-forget report trigger after a run that produced
// change events. Enqueue failures are logged, never propagated.
type Queue interface {
	Enqueue(jobType string, payload any) error
}

type Options struct {
	ForceRefresh bool
}

type RecordError struct {
	Title string `json:"title"`
	Op    string `json:"op"` // lookup / insert / update / changelog
	Err   string `json:"error"`
}

type Summary struct {
	Total     int           `json:"total"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Rejected  int           `json:"rejected"`
	Failed    int           `json:"failed"`
	Events    int           `json:"events"`
	Errors    []RecordError `json:"errors,omitempty"`
}

type Reconciler struct {
	Store      Store
	Notion     Fetcher
	DatabaseID string

	Cache    *cache.Cache[[]notion.Page]
	CacheTTL time.Duration

	Queue Queue
	Gate  *Gate
	Log   *logrus.Logger
}

// ReconcileAll fetches the registry and reconciles every record
// independently: one record's failure is counted and logged but never aborts
// the batch. Only an upstream fetch failure fails the whole run.
func (r *Reconciler) ReconcileAll(ctx context.Context, opts Options) (*Summary, error) {
	if r.Gate != nil {
		if !r.Gate.TryLock() {
			return nil, ErrSyncInProgress
		}
		defer r.Gate.Unlock()
	}

	pages, err := r.fetchPages(ctx, opts.ForceRefresh)
	if err != nil {
		return nil, fmt.Errorf("fetch upstream records: %w", err)
	}

	summary := &Summary{Total: len(pages)}
	for _, page := range pages {
		r.reconcileOne(ctx, page, summary)
	}

	r.Log.WithFields(logrus.Fields{
		"total":     summary.Total,
		"created":   summary.Created,
		"updated":   summary.Updated,
		"unchanged": summary.Unchanged,
		"rejected":  summary.Rejected,
		"failed":    summary.Failed,
		"events":    summary.Events,
	}).Info("sync run finished")

	if summary.Events > 0 && r.Queue != nil {
		payload := map[string]any{"window_days": 7, "email": false}
		if err := r.Queue.Enqueue(jobs.TypeReportGenerate, payload); err != nil {
			r.Log.WithError(err).Warn("failed to enqueue report generation")
		}
	}

	return summary, nil
}

func (r *Reconciler) fetchPages(ctx context.Context, force bool) ([]notion.Page, error) {
	key := "notion:database:" + r.DatabaseID
	if r.Cache == nil {
		return r.Notion.QueryDatabase(ctx, r.DatabaseID, nil)
	}
	return r.Cache.GetOrFetch(ctx, key, r.CacheTTL, force, func(ctx context.Context) ([]notion.Page, error) {
		return r.Notion.QueryDatabase(ctx, r.DatabaseID, nil)
	})
}

// reconcileOne runs Normalize → Lookup → Diff → Persist → Log for a single
// record. The project write and the change-log append are separate
// statements: an event-append failure after a successful write is recorded as
// an inconsistency, not retried.
func (r *Reconciler) reconcileOne(ctx context.Context, page notion.Page, summary *Summary) {
	incoming, err := project.Normalize(page)
	if err != nil {
		summary.Rejected++
		r.Log.WithFields(logrus.Fields{"page_id": page.ID}).WithError(err).Debug("record rejected")
		return
	}

	existing, err := r.Store.FindProjectByTitle(ctx, incoming.Title)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.createProject(ctx, incoming, summary)
	case err != nil:
		r.fail(summary, incoming.Title, "lookup", err)
	default:
		r.updateProject(ctx, existing, incoming, summary)
	}
}

func (r *Reconciler) createProject(ctx context.Context, p *project.Project, summary *Summary) {
	if err := r.Store.InsertProject(ctx, p); err != nil {
		r.fail(summary, p.Title, "insert", err)
		return
	}
	summary.Created++

	ev := project.RegistrationEvent(p)
	if err := r.Store.InsertChangeEvents(ctx, []project.ChangeEvent{ev}); err != nil {
		r.inconsistent(summary, p.Title, err)
		return
	}
	summary.Events++
	r.Log.WithField("title", p.Title).Info("project registered")
}

func (r *Reconciler) updateProject(ctx context.Context, existing, incoming *project.Project, summary *Summary) {
	deltas := project.Diff(existing, incoming)
	if len(deltas) == 0 {
		summary.Unchanged++
		return
	}

	incoming.ID = existing.ID
	incoming.CreatedAt = existing.CreatedAt
	if err := r.Store.UpdateProject(ctx, incoming); err != nil {
		r.fail(summary, incoming.Title, "update", err)
		return
	}
	summary.Updated++

	if err := r.Store.InsertChangeEvents(ctx, deltas); err != nil {
		r.inconsistent(summary, incoming.Title, err)
		return
	}
	summary.Events += len(deltas)
	r.Log.WithFields(logrus.Fields{"title": incoming.Title, "changes": len(deltas)}).Info("project updated")
}

func (r *Reconciler) fail(summary *Summary, title, op string, err error) {
	summary.Failed++
	summary.Errors = append(summary.Errors, RecordError{Title: title, Op: op, Err: err.Error()})
	r.Log.WithFields(logrus.Fields{"title": title, "op": op}).WithError(err).Error("record reconciliation failed")
}

// inconsistent records a change-log append that failed after the project row
// was already written. The row is current but history is missing one diff;
// surfaced for operators, not retried.
func (r *Reconciler) inconsistent(summary *Summary, title string, err error) {
	summary.Errors = append(summary.Errors, RecordError{Title: title, Op: "changelog", Err: err.Error()})
	r.Log.WithField("title", title).WithError(err).Error("change log append failed after project write")
}
