package db

import (
	"fmt"

	"projsync/internal/auth"
	"projsync/internal/jobs"
	"projsync/internal/project"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&project.Project{},
		&project.ChangeEvent{},
		&project.Snapshot{},
		&project.Report{},
		&project.ReportSettings{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_changes_created on project_changes(created_at desc);`,
		`create index if not exists idx_changes_title_created on project_changes(project_title, created_at desc);`,
		`create index if not exists idx_history_type_created on project_history(snapshot_type, created_at desc);`,
		`create index if not exists idx_reports_date on project_reports(report_date desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
