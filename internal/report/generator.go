package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"projsync/internal/project"

	"github.com/sirupsen/logrus"
)

// Store is the slice of persistence the generator needs.
type Store interface {
	QueryChangeEvents(ctx context.Context, since, until time.Time) ([]project.ChangeEvent, error)
	ListProjects(ctx context.Context) ([]project.Project, error)
	LatestSnapshotBefore(ctx context.Context, t time.Time) (*time.Time, []project.Project, error)
	InsertSnapshot(ctx context.Context, snapshotType string, projects []project.Project) error
	InsertReport(ctx context.Context, r *project.Report) error
	GetReportSettings(ctx context.Context) (*project.ReportSettings, error)
}

// Narrator turns a rendered prompt into a free-text summary. Optional;
// failures only cost the narrative, never the structured report.
type Narrator interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

type FieldChange struct {
	Field    string  `json:"field"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

type ChangedProject struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Changes []FieldChange `json:"changes"`
}

type WeeklyReport struct {
	ReportDate           string            `json:"report_date"`
	GeneratedAt          time.Time         `json:"generated_at"`
	ChangedProjects      []ChangedProject  `json:"changed_projects"`
	NewProjects          []project.Project `json:"new_projects"`
	PreviousSnapshotDate *string           `json:"previous_snapshot_date"`
	Narrative            string            `json:"narrative,omitempty"`
}

type Generator struct {
	Store    Store
	Narrator Narrator
	Log      *logrus.Logger
}

// GenerateWindow runs Generate over the trailing window using the persisted
// settings allowlist. The scheduled weekly path and queued report jobs both
// land here.
func (g *Generator) GenerateWindow(ctx context.Context, windowDays int) (*WeeklyReport, error) {
	settings, err := g.Store.GetReportSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load report settings: %w", err)
	}
	end := time.Now()
	start := end.AddDate(0, 0, -windowDays)
	return g.Generate(ctx, start, end, settings.ChangeTypes)
}

// Generate builds, optionally narrates and persists one report over
// [windowStart, windowEnd). Zero qualifying events is a valid outcome and
// yields an empty report. The returned report is usable even when the final
// persistence step failed; the error says so.
func (g *Generator) Generate(ctx context.Context, windowStart, windowEnd time.Time, allowedFields []string) (*WeeklyReport, error) {
	events, err := g.Store.QueryChangeEvents(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("query change events: %w", err)
	}

	allowed := make(map[string]struct{}, len(allowedFields))
	for _, f := range allowedFields {
		allowed[f] = struct{}{}
	}
	var filtered []project.ChangeEvent
	for _, e := range events {
		if _, ok := allowed[e.Field]; ok {
			filtered = append(filtered, e)
		}
	}

	current, err := g.Store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	byTitle := make(map[string]project.Project, len(current))
	for _, p := range current {
		byTitle[p.Title] = p
	}

	rep := &WeeklyReport{
		ReportDate:      windowEnd.Format("2006-01-02"),
		GeneratedAt:     time.Now(),
		ChangedProjects: []ChangedProject{},
		NewProjects:     []project.Project{},
	}

	prevDate, _, err := g.Store.LatestSnapshotBefore(ctx, windowStart)
	if err != nil {
		g.Log.WithError(err).Warn("failed to load previous snapshot date")
	} else if prevDate != nil {
		d := prevDate.Format("2006-01-02")
		rep.PreviousSnapshotDate = &d
	}

	// Group events per project, keeping the first-seen order; projects whose
	// window opens with the registration sentinel are reported as new rather
	// than changed.
	grouped := map[string]*ChangedProject{}
	var order []string
	registered := map[string]bool{}
	for _, e := range filtered {
		if e.Field == project.FieldRegistration && grouped[e.ProjectTitle] == nil {
			registered[e.ProjectTitle] = true
			continue
		}
		cp := grouped[e.ProjectTitle]
		if cp == nil {
			id := ""
			if e.ProjectID != nil {
				id = *e.ProjectID
			} else if p, ok := byTitle[e.ProjectTitle]; ok {
				id = p.ID
			}
			cp = &ChangedProject{ID: id, Title: e.ProjectTitle}
			grouped[e.ProjectTitle] = cp
			order = append(order, e.ProjectTitle)
		}
		cp.Changes = append(cp.Changes, FieldChange{
			Field:    e.Field,
			OldValue: e.OldValue,
			NewValue: e.NewValue,
		})
	}
	for _, title := range order {
		rep.ChangedProjects = append(rep.ChangedProjects, *grouped[title])
	}
	for title := range registered {
		if p, ok := byTitle[title]; ok {
			rep.NewProjects = append(rep.NewProjects, p)
		}
	}

	if len(filtered) > 0 && g.Narrator != nil {
		settings, serr := g.Store.GetReportSettings(ctx)
		if serr != nil {
			g.Log.WithError(serr).Warn("report settings unavailable, using defaults for prompt")
			settings = &project.ReportSettings{
				ReportFormat:           "summary",
				IncludeChanges:         true,
				IncludeTimeline:        true,
				IncludeRecommendations: true,
			}
		}
		prompt := RenderPrompt(filtered, settings)
		narrative, nerr := g.Narrator.Summarize(ctx, prompt)
		if nerr != nil {
			g.Log.WithError(nerr).Warn("narrative generation failed, persisting structured report only")
		} else {
			rep.Narrative = narrative
		}
	}

	if err := g.persist(ctx, rep, current); err != nil {
		return rep, err
	}
	return rep, nil
}

func (g *Generator) persist(ctx context.Context, rep *WeeklyReport, current []project.Project) error {
	// The snapshot is the next report's baseline; losing it degrades the next
	// comparison but does not invalidate this report.
	if err := g.Store.InsertSnapshot(ctx, "weekly", current); err != nil {
		g.Log.WithError(err).Error("failed to store project snapshot")
	}

	changed, err := json.Marshal(rep.ChangedProjects)
	if err != nil {
		return fmt.Errorf("encode changed projects: %w", err)
	}
	added, err := json.Marshal(rep.NewProjects)
	if err != nil {
		return fmt.Errorf("encode new projects: %w", err)
	}

	rec := &project.Report{
		ReportDate:           rep.ReportDate,
		GeneratedAt:          rep.GeneratedAt,
		ChangedProjects:      changed,
		NewProjects:          added,
		PreviousSnapshotDate: rep.PreviousSnapshotDate,
		Settings:             json.RawMessage(`{}`),
	}
	if rep.Narrative != "" {
		rec.Narrative = &rep.Narrative
	}
	if err := g.Store.InsertReport(ctx, rec); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return nil
}

// BuildFromSnapshots recomputes a report from two full project-list captures.
// Pure and idempotent: the same snapshot pair always yields the same report
// body. Comparison is keyed on the surrogate id, so retitled projects show up
// as a title change rather than a new project.
func BuildFromSnapshots(current, previous []project.Project) *WeeklyReport {
	now := time.Now()
	rep := &WeeklyReport{
		ReportDate:      now.Format("2006-01-02"),
		GeneratedAt:     now,
		ChangedProjects: []ChangedProject{},
		NewProjects:     []project.Project{},
	}
	if len(previous) > 0 {
		d := previous[0].CreatedAt.Format("2006-01-02")
		rep.PreviousSnapshotDate = &d
	}

	prevByID := make(map[string]project.Project, len(previous))
	for _, p := range previous {
		prevByID[p.ID] = p
	}

	for _, cur := range current {
		prev, ok := prevByID[cur.ID]
		if !ok {
			rep.NewProjects = append(rep.NewProjects, cur)
			continue
		}
		deltas := project.Diff(&prev, &cur)
		if len(deltas) == 0 {
			continue
		}
		cp := ChangedProject{ID: cur.ID, Title: cur.Title}
		for _, d := range deltas {
			cp.Changes = append(cp.Changes, FieldChange{
				Field:    d.Field,
				OldValue: d.OldValue,
				NewValue: d.NewValue,
			})
		}
		rep.ChangedProjects = append(rep.ChangedProjects, cp)
	}

	return rep
}
