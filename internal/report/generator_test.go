package report

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"projsync/internal/project"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeReportStore struct {
	events   []project.ChangeEvent
	projects []project.Project
	settings *project.ReportSettings

	snapshotDate *time.Time

	snapshots []string
	reports   []*project.Report
	reportErr error
}

func (f *fakeReportStore) QueryChangeEvents(ctx context.Context, since, until time.Time) ([]project.ChangeEvent, error) {
	var out []project.ChangeEvent
	for _, e := range f.events {
		if !e.CreatedAt.Before(since) && e.CreatedAt.Before(until) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeReportStore) ListProjects(ctx context.Context) ([]project.Project, error) {
	return f.projects, nil
}

func (f *fakeReportStore) LatestSnapshotBefore(ctx context.Context, t time.Time) (*time.Time, []project.Project, error) {
	return f.snapshotDate, nil, nil
}

func (f *fakeReportStore) InsertSnapshot(ctx context.Context, snapshotType string, projects []project.Project) error {
	f.snapshots = append(f.snapshots, snapshotType)
	return nil
}

func (f *fakeReportStore) InsertReport(ctx context.Context, r *project.Report) error {
	if f.reportErr != nil {
		return f.reportErr
	}
	f.reports = append(f.reports, r)
	return nil
}

func (f *fakeReportStore) GetReportSettings(ctx context.Context) (*project.ReportSettings, error) {
	if f.settings != nil {
		return f.settings, nil
	}
	return &project.ReportSettings{
		ReportFormat:           "summary",
		IncludeChanges:         true,
		IncludeTimeline:        true,
		IncludeRecommendations: true,
		ChangeTypes:            project.DefaultChangeTypes(),
	}, nil
}

type fakeNarrator struct {
	narrative string
	err       error
	prompts   []string
}

func (f *fakeNarrator) Summarize(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.narrative, nil
}

func strp(s string) *string { return &s }

func eventAt(title, field string, oldV, newV *string, at time.Time) project.ChangeEvent {
	return project.ChangeEvent{
		ProjectTitle: title,
		Field:        field,
		FieldName:    project.FieldDisplayName(field),
		OldValue:     oldV,
		NewValue:     newV,
		CreatedAt:    at,
	}
}

func newGenerator(st *fakeReportStore, n Narrator) *Generator {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Generator{Store: st, Narrator: n, Log: log}
}

func TestGenerateExcludesEventsOutsideWindow(t *testing.T) {
	now := time.Now()
	st := &fakeReportStore{
		events: []project.ChangeEvent{
			eventAt("오래된 프로젝트", "status", strp("기획"), strp("진행중"), now.AddDate(0, 0, -10)),
			eventAt("최근 프로젝트", "status", strp("진행중"), strp("완료"), now.AddDate(0, 0, -2)),
		},
		projects: []project.Project{{ID: "p2", Title: "최근 프로젝트"}},
	}
	g := newGenerator(st, nil)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, project.DefaultChangeTypes())
	require.NoError(t, err)

	require.Len(t, rep.ChangedProjects, 1)
	require.Equal(t, "최근 프로젝트", rep.ChangedProjects[0].Title)
}

func TestGenerateFiltersByAllowlist(t *testing.T) {
	now := time.Now()
	st := &fakeReportStore{
		events: []project.ChangeEvent{
			eventAt("플랫폼", "status", strp("기획"), strp("진행중"), now.AddDate(0, 0, -1)),
			eventAt("플랫폼", "expected_schedule", nil, strp("2026-06-01"), now.AddDate(0, 0, -1)),
		},
		projects: []project.Project{{ID: "p1", Title: "플랫폼"}},
	}
	g := newGenerator(st, nil)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, []string{"status"})
	require.NoError(t, err)

	require.Len(t, rep.ChangedProjects, 1)
	require.Len(t, rep.ChangedProjects[0].Changes, 1)
	require.Equal(t, "status", rep.ChangedProjects[0].Changes[0].Field)
}

func TestGenerateEmptyWindow(t *testing.T) {
	now := time.Now()
	st := &fakeReportStore{}
	g := newGenerator(st, nil)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, project.DefaultChangeTypes())
	require.NoError(t, err)

	require.Empty(t, rep.ChangedProjects)
	require.Empty(t, rep.NewProjects)
	require.Empty(t, rep.Narrative)
	// Empty reports are still persisted with a fresh snapshot.
	require.Len(t, st.reports, 1)
	require.Equal(t, []string{"weekly"}, st.snapshots)
}

func TestGenerateRegistrationBecomesNewProject(t *testing.T) {
	now := time.Now()
	st := &fakeReportStore{
		events: []project.ChangeEvent{
			eventAt("신규 사업", project.FieldRegistration, nil, strp(project.RegistrationNewValue), now.AddDate(0, 0, -1)),
			eventAt("기존 사업", "status", strp("기획"), strp("진행중"), now.AddDate(0, 0, -1)),
		},
		projects: []project.Project{
			{ID: "p1", Title: "신규 사업"},
			{ID: "p2", Title: "기존 사업"},
		},
	}
	g := newGenerator(st, nil)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, project.DefaultChangeTypes())
	require.NoError(t, err)

	require.Len(t, rep.NewProjects, 1)
	require.Equal(t, "신규 사업", rep.NewProjects[0].Title)
	require.Len(t, rep.ChangedProjects, 1)
	require.Equal(t, "기존 사업", rep.ChangedProjects[0].Title)
}

func TestGenerateNarratorFailureTolerated(t *testing.T) {
	now := time.Now()
	st := &fakeReportStore{
		events: []project.ChangeEvent{
			eventAt("플랫폼", "status", strp("기획"), strp("진행중"), now.AddDate(0, 0, -1)),
		},
		projects: []project.Project{{ID: "p1", Title: "플랫폼"}},
	}
	narrator := &fakeNarrator{err: errors.New("llm unavailable")}
	g := newGenerator(st, narrator)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, project.DefaultChangeTypes())
	require.NoError(t, err)

	require.Empty(t, rep.Narrative)
	require.Len(t, rep.ChangedProjects, 1)
	require.Len(t, st.reports, 1)
	require.Nil(t, st.reports[0].Narrative)
}

func TestGenerateNarrativePersisted(t *testing.T) {
	now := time.Now()
	st := &fakeReportStore{
		events: []project.ChangeEvent{
			eventAt("플랫폼", "status", strp("기획"), strp("진행중"), now.AddDate(0, 0, -1)),
		},
		projects: []project.Project{{ID: "p1", Title: "플랫폼"}},
	}
	narrator := &fakeNarrator{narrative: "이번 주는 플랫폼 과제가 진행중으로 전환되었습니다."}
	g := newGenerator(st, narrator)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, project.DefaultChangeTypes())
	require.NoError(t, err)

	require.Equal(t, narrator.narrative, rep.Narrative)
	require.Len(t, narrator.prompts, 1)
	require.Contains(t, narrator.prompts[0], "플랫폼")
	require.NotNil(t, st.reports[0].Narrative)
}

func TestGeneratePersistFailureStillReturnsReport(t *testing.T) {
	now := time.Now()
	st := &fakeReportStore{
		events: []project.ChangeEvent{
			eventAt("플랫폼", "status", strp("기획"), strp("진행중"), now.AddDate(0, 0, -1)),
		},
		projects:  []project.Project{{ID: "p1", Title: "플랫폼"}},
		reportErr: errors.New("reports table down"),
	}
	g := newGenerator(st, nil)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, project.DefaultChangeTypes())
	require.Error(t, err)
	require.NotNil(t, rep)
	require.Len(t, rep.ChangedProjects, 1)
}

func TestGeneratePreviousSnapshotDate(t *testing.T) {
	now := time.Now()
	prev := now.AddDate(0, 0, -8)
	st := &fakeReportStore{snapshotDate: &prev}
	g := newGenerator(st, nil)

	rep, err := g.Generate(context.Background(), now.AddDate(0, 0, -7), now, project.DefaultChangeTypes())
	require.NoError(t, err)

	require.NotNil(t, rep.PreviousSnapshotDate)
	require.Equal(t, prev.Format("2006-01-02"), *rep.PreviousSnapshotDate)
}

func TestBuildFromSnapshots(t *testing.T) {
	previous := []project.Project{
		{ID: "a", Title: "플랫폼", Status: "기획", CreatedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Title: "물류 자동화", Status: "진행중"},
	}
	current := []project.Project{
		{ID: "a", Title: "플랫폼", Status: "진행중"},
		{ID: "b", Title: "물류 자동화", Status: "진행중"},
		{ID: "c", Title: "신규 사업"},
	}

	rep := BuildFromSnapshots(current, previous)

	require.Len(t, rep.NewProjects, 1)
	require.Equal(t, "신규 사업", rep.NewProjects[0].Title)

	require.Len(t, rep.ChangedProjects, 1)
	require.Equal(t, "플랫폼", rep.ChangedProjects[0].Title)
	require.Len(t, rep.ChangedProjects[0].Changes, 1)
	require.Equal(t, "status", rep.ChangedProjects[0].Changes[0].Field)

	require.NotNil(t, rep.PreviousSnapshotDate)
	require.Equal(t, "2026-08-20", *rep.PreviousSnapshotDate)
}

func TestBuildFromSnapshotsRetitleIsChange(t *testing.T) {
	previous := []project.Project{{ID: "a", Title: "구명칭"}}
	current := []project.Project{{ID: "a", Title: "신명칭"}}

	rep := BuildFromSnapshots(current, previous)

	require.Empty(t, rep.NewProjects)
	require.Len(t, rep.ChangedProjects, 1)
	require.Equal(t, "title", rep.ChangedProjects[0].Changes[0].Field)
}
