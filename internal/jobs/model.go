package jobs

import "time"

// Job types handled by the worker.
const (
	TypeReportGenerate = "REPORT_GENERATE"
	TypeEmailDispatch  = "EMAIL_DISPATCH"
)

type Job struct {
	ID uint64 `gorm:"primaryKey"`

	Type    string `gorm:"type:text;not null"` // REPORT_GENERATE / EMAIL_DISPATCH
	Payload []byte `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"` // PENDING/RUNNING/DONE/FAILED/CANCELLED

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}
