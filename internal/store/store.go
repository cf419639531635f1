// Package store owns durable Project, ChangeEvent, Snapshot and Report state
// in Postgres. Consumers (reconciler, report generator, handlers) depend on
// the narrow subsets of these methods they need, so they stay testable with
// in-memory fakes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"projsync/internal/project"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// FindProjectByTitle does an exact, case-sensitive lookup on the natural key.
func (s *Store) FindProjectByTitle(ctx context.Context, title string) (*project.Project, error) {
	var p project.Project
	err := s.DB.WithContext(ctx).Where("title = ?", title).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertProject assigns the surrogate uuid and persists the row.
func (s *Store) InsertProject(ctx context.Context, p *project.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return s.DB.WithContext(ctx).Create(p).Error
}

func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	// Full-row save keeps zero values (cleared strings, false booleans).
	return s.DB.WithContext(ctx).Save(p).Error
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	var out []project.Project
	err := s.DB.WithContext(ctx).Order("created_at desc").Find(&out).Error
	return out, err
}

// InsertChangeEvents writes one record's whole diff in a single batch insert;
// either every event of the diff lands or none do.
func (s *Store) InsertChangeEvents(ctx context.Context, events []project.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Create(&events).Error
}

func (s *Store) QueryChangeEvents(ctx context.Context, since, until time.Time) ([]project.ChangeEvent, error) {
	var out []project.ChangeEvent
	err := s.DB.WithContext(ctx).
		Where("created_at >= ? and created_at < ?", since, until).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

func (s *Store) InsertSnapshot(ctx context.Context, snapshotType string, projects []project.Project) error {
	data, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	snap := project.Snapshot{
		SnapshotType: snapshotType,
		Data:         data,
		CreatedAt:    time.Now(),
	}
	return s.DB.WithContext(ctx).Create(&snap).Error
}

// LatestSnapshotBefore returns the newest snapshot strictly older than t,
// or (nil, nil, nil) when no baseline exists yet.
func (s *Store) LatestSnapshotBefore(ctx context.Context, t time.Time) (*time.Time, []project.Project, error) {
	var snap project.Snapshot
	err := s.DB.WithContext(ctx).
		Where("created_at < ?", t).
		Order("created_at desc").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var projects []project.Project
	if err := json.Unmarshal(snap.Data, &projects); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot %d: %w", snap.ID, err)
	}
	return &snap.CreatedAt, projects, nil
}

// LatestSnapshots returns up to n most recent snapshots, newest first.
func (s *Store) LatestSnapshots(ctx context.Context, n int) ([]project.Snapshot, error) {
	var out []project.Snapshot
	err := s.DB.WithContext(ctx).Order("created_at desc").Limit(n).Find(&out).Error
	return out, err
}

func (s *Store) InsertReport(ctx context.Context, r *project.Report) error {
	return s.DB.WithContext(ctx).Create(r).Error
}

func (s *Store) LatestReport(ctx context.Context) (*project.Report, error) {
	var r project.Report
	err := s.DB.WithContext(ctx).Order("report_date desc, id desc").First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ReportByDate(ctx context.Context, date string) (*project.Report, error) {
	var r project.Report
	err := s.DB.WithContext(ctx).Where("report_date = ?", date).Order("id desc").First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context) ([]project.Report, error) {
	var out []project.Report
	err := s.DB.WithContext(ctx).
		Select("id", "report_date", "generated_at").
		Order("report_date desc").
		Find(&out).Error
	return out, err
}

// GetReportSettings returns the singleton settings row, falling back to
// defaults when none has been saved yet.
func (s *Store) GetReportSettings(ctx context.Context) (*project.ReportSettings, error) {
	var rs project.ReportSettings
	err := s.DB.WithContext(ctx).Order("id asc").First(&rs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &project.ReportSettings{
			ReportFormat:           "summary",
			IncludeChanges:         true,
			IncludeTimeline:        true,
			IncludeRecommendations: true,
			ChangeTypes:            project.DefaultChangeTypes(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rs.ChangeTypes) == 0 {
		rs.ChangeTypes = project.DefaultChangeTypes()
	}
	return &rs, nil
}

func (s *Store) SaveReportSettings(ctx context.Context, rs *project.ReportSettings) error {
	rs.UpdatedAt = time.Now()
	var existing project.ReportSettings
	err := s.DB.WithContext(ctx).Order("id asc").First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.DB.WithContext(ctx).Create(rs).Error
	case err != nil:
		return err
	default:
		rs.ID = existing.ID
		return s.DB.WithContext(ctx).Save(rs).Error
	}
}
