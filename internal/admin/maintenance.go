// Package admin holds the maintenance operations that exist outside the
// reconciliation contract: purging malformed rows, deduplicating by title and
// resetting test data. They take the sync gate so they never run against an
// active sync.
package admin

import (
	"context"
	"fmt"

	"projsync/internal/project"
	syncpkg "projsync/internal/sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	DB   *gorm.DB
	Gate *syncpkg.Gate
	Log  *logrus.Logger
}

type CleanupResult struct {
	MalformedDeleted  int `json:"malformed_deleted"`
	DuplicatesDeleted int `json:"duplicates_deleted"`
}

// Cleanup removes rows with empty or placeholder titles, then collapses
// duplicate titles keeping only the newest row per title.
func (s *Service) Cleanup(ctx context.Context) (*CleanupResult, error) {
	if !s.Gate.TryLock() {
		return nil, syncpkg.ErrSyncInProgress
	}
	defer s.Gate.Unlock()

	result := &CleanupResult{}

	res := s.DB.WithContext(ctx).Exec(`
delete from project_list
where title is null
   or title = ''
   or title ~ '^\d+$'
`)
	if res.Error != nil {
		return nil, fmt.Errorf("delete malformed rows: %w", res.Error)
	}
	result.MalformedDeleted = int(res.RowsAffected)

	var all []project.Project
	if err := s.DB.WithContext(ctx).Order("created_at desc").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	seen := map[string]bool{}
	var dupIDs []string
	for _, p := range all {
		if seen[p.Title] {
			dupIDs = append(dupIDs, p.ID)
			continue
		}
		seen[p.Title] = true
	}
	if len(dupIDs) > 0 {
		res := s.DB.WithContext(ctx).Exec(`delete from project_list where id in ?`, dupIDs)
		if res.Error != nil {
			return nil, fmt.Errorf("delete duplicates: %w", res.Error)
		}
		result.DuplicatesDeleted = int(res.RowsAffected)
	}

	s.Log.WithFields(logrus.Fields{
		"malformed":  result.MalformedDeleted,
		"duplicates": result.DuplicatesDeleted,
	}).Info("cleanup finished")
	return result, nil
}

// ClearHistory wipes the change log and every stored report and snapshot.
// Intended for resetting test data, not for routine use.
func (s *Service) ClearHistory(ctx context.Context) error {
	if !s.Gate.TryLock() {
		return syncpkg.ErrSyncInProgress
	}
	defer s.Gate.Unlock()

	for _, table := range []string{"project_changes", "project_reports", "project_history"} {
		if err := s.DB.WithContext(ctx).Exec("delete from " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	s.Log.Info("change history cleared")
	return nil
}
