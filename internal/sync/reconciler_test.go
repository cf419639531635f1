package sync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"projsync/internal/cache"
	"projsync/internal/jobs"
	"projsync/internal/notion"
	"projsync/internal/project"
	"projsync/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	byTitle map[string]*project.Project
	events  []project.ChangeEvent

	insertErrFor string
	eventErr     error
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byTitle: map[string]*project.Project{}}
}

func (f *fakeStore) FindProjectByTitle(ctx context.Context, title string) (*project.Project, error) {
	p, ok := f.byTitle[title]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) InsertProject(ctx context.Context, p *project.Project) error {
	if p.Title == f.insertErrFor {
		return errors.New("insert refused")
	}
	f.nextID++
	if p.ID == "" {
		p.ID = string(rune('a' + f.nextID))
	}
	cp := *p
	f.byTitle[p.Title] = &cp
	return nil
}

func (f *fakeStore) UpdateProject(ctx context.Context, p *project.Project) error {
	cp := *p
	f.byTitle[p.Title] = &cp
	return nil
}

func (f *fakeStore) InsertChangeEvents(ctx context.Context, events []project.ChangeEvent) error {
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, events...)
	return nil
}

type fakeFetcher struct {
	pages []notion.Page
	err   error
	calls int
}

func (f *fakeFetcher) QueryDatabase(ctx context.Context, databaseID string, editedSince *time.Time) ([]notion.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

type fakeQueue struct {
	enqueued []string
}

func (f *fakeQueue) Enqueue(jobType string, payload any) error {
	f.enqueued = append(f.enqueued, jobType)
	return nil
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func pageWith(id, title string, extra map[string]notion.Property) notion.Page {
	props := map[string]notion.Property{
		"title": {Type: notion.TypeTitle, Title: []notion.TextRun{{PlainText: title}}},
	}
	for k, v := range extra {
		props[k] = v
	}
	return notion.Page{ID: id, Properties: props}
}

func selectOf(name string) notion.Property {
	return notion.Property{Type: notion.TypeSelect, Select: &notion.SelectValue{Name: name}}
}

func newReconciler(st *fakeStore, fetcher *fakeFetcher, queue *fakeQueue) *Reconciler {
	return &Reconciler{
		Store:      st,
		Notion:     fetcher,
		DatabaseID: "db-1",
		Queue:      queue,
		Gate:       &Gate{},
		Log:        quietLog(),
	}
}

func TestReconcileNewRecordRegisters(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{pages: []notion.Page{
		pageWith("p1", "AI 품질검사 시스템", map[string]notion.Property{"stage": selectOf("개발")}),
	}}
	r := newReconciler(st, fetcher, &fakeQueue{})

	summary, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Total)
	require.Equal(t, 1, summary.Created)
	require.Equal(t, 1, summary.Events)
	require.Empty(t, summary.Errors)

	require.Len(t, st.events, 1)
	ev := st.events[0]
	require.Equal(t, project.FieldRegistration, ev.Field)
	require.Equal(t, project.RegistrationNewValue, *ev.NewValue)
	require.NotNil(t, ev.ProjectID)
}

func TestReconcileIdempotent(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{pages: []notion.Page{
		pageWith("p1", "스마트팩토리 구축", map[string]notion.Property{"stage": selectOf("기획")}),
	}}
	r := newReconciler(st, fetcher, &fakeQueue{})

	_, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	summary, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Unchanged)
	require.Equal(t, 0, summary.Created)
	require.Equal(t, 0, summary.Updated)
	require.Equal(t, 0, summary.Events)
	require.Len(t, st.events, 1)
}

func TestReconcileUpdateAppendsDeltas(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{pages: []notion.Page{
		pageWith("p1", "데이터 플랫폼", map[string]notion.Property{"stage": selectOf("개발")}),
	}}
	r := newReconciler(st, fetcher, &fakeQueue{})

	_, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	fetcher.pages = []notion.Page{
		pageWith("p1", "데이터 플랫폼", map[string]notion.Property{"stage": selectOf("배포"), "status": selectOf("진행중")}),
	}

	summary, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Updated)
	require.Equal(t, 2, summary.Events)
	require.Equal(t, "배포", st.byTitle["데이터 플랫폼"].Stage)
}

func TestReconcileRejectsPlaceholders(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{pages: []notion.Page{
		pageWith("p1", "12345", nil),
		pageWith("p2", "테스트 행", nil),
		pageWith("p3", "물류 자동화", nil),
	}}
	r := newReconciler(st, fetcher, &fakeQueue{})

	summary, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Rejected)
	require.Equal(t, 1, summary.Created)
	require.Len(t, st.byTitle, 1)
}

func TestReconcilePartialBatchResilience(t *testing.T) {
	st := newFakeStore()
	st.insertErrFor = "고장난 레코드"
	fetcher := &fakeFetcher{pages: []notion.Page{
		pageWith("p1", "첫번째 프로젝트", nil),
		pageWith("p2", "고장난 레코드", nil),
		pageWith("p3", "세번째 프로젝트", nil),
	}}
	r := newReconciler(st, fetcher, &fakeQueue{})

	summary, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, 2, summary.Created)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, "insert", summary.Errors[0].Op)
	require.Equal(t, "고장난 레코드", summary.Errors[0].Title)
}

func TestReconcileFetchFailureAborts(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{err: errors.New("api unreachable")}
	r := newReconciler(st, fetcher, &fakeQueue{})

	summary, err := r.ReconcileAll(context.Background(), Options{})
	require.Error(t, err)
	require.Nil(t, summary)
	require.Empty(t, st.byTitle)
}

func TestReconcileChangelogFailureIsInconsistency(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{pages: []notion.Page{pageWith("p1", "ERP 고도화", nil)}}
	r := newReconciler(st, fetcher, &fakeQueue{})

	_, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	st.eventErr = errors.New("changes table down")
	fetcher.pages = []notion.Page{
		pageWith("p1", "ERP 고도화", map[string]notion.Property{"status": selectOf("진행중")}),
	}

	summary, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)

	// The project row is current; only the history append is missing.
	require.Equal(t, 1, summary.Updated)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 0, summary.Events)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, "changelog", summary.Errors[0].Op)
	require.Equal(t, "진행중", st.byTitle["ERP 고도화"].Status)
}

func TestReconcileEnqueuesReportWhenEventsProduced(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{pages: []notion.Page{pageWith("p1", "신규 사업", nil)}}
	queue := &fakeQueue{}
	r := newReconciler(st, fetcher, queue)

	_, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, []string{jobs.TypeReportGenerate}, queue.enqueued)

	// No changes on the second run, no trigger.
	_, err = r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, queue.enqueued, 1)
}

func TestReconcileGateExclusion(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{}
	r := newReconciler(st, fetcher, &fakeQueue{})

	require.True(t, r.Gate.TryLock())
	defer r.Gate.Unlock()

	_, err := r.ReconcileAll(context.Background(), Options{})
	require.ErrorIs(t, err, ErrSyncInProgress)
}

func TestReconcileCacheSkipsRefetch(t *testing.T) {
	st := newFakeStore()
	fetcher := &fakeFetcher{pages: []notion.Page{pageWith("p1", "캐시 확인", nil)}}
	r := newReconciler(st, fetcher, &fakeQueue{})
	r.Cache = cache.New[[]notion.Page]()
	r.CacheTTL = time.Minute

	_, err := r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)
	_, err = r.ReconcileAll(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)

	_, err = r.ReconcileAll(context.Background(), Options{ForceRefresh: true})
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.calls)
}
