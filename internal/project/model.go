package project

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Project is the canonical local copy of one registry row. Title is the
// natural key used to match incoming Notion records; ID is assigned locally
// on first insert and stays stable across updates.
type Project struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	Title string `gorm:"type:text;not null;uniqueIndex:uq_project_list_title" json:"title"`

	Company     string `gorm:"type:text;not null;default:''" json:"company"`
	Stage       string `gorm:"type:text;not null;default:''" json:"stage"`
	Status      string `gorm:"type:text;not null;default:''" json:"status"`
	PM          string `gorm:"column:pm;type:text;not null;default:''" json:"pm"`
	Stakeholder string `gorm:"type:text;not null;default:''" json:"stakeholder"`
	ProjectDoc  string `gorm:"column:project_doc;type:text;not null;default:''" json:"project_doc"`

	Training      bool `gorm:"not null;default:false" json:"training"`
	GenAI         bool `gorm:"column:genai;not null;default:false" json:"genai"`
	DigitalOutput bool `gorm:"not null;default:false" json:"digital_output"`

	ExpectedSchedule *time.Time `gorm:"type:date" json:"expected_schedule"`

	// Upstream page id, kept for operators; matching is by title only.
	NotionID string `gorm:"column:notion_id;type:text;index" json:"notion_id"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Project) TableName() string { return "project_list" }

// ChangeEvent is append-only. One row per field-level delta detected at sync
// time; never updated or deleted by the pipeline.
type ChangeEvent struct {
	ID           uint64  `gorm:"primaryKey" json:"id"`
	ProjectID    *string `gorm:"type:uuid;index" json:"project_id"`
	ProjectTitle string  `gorm:"type:text;not null;index" json:"project_title"`

	Field     string  `gorm:"type:text;not null" json:"field"`
	FieldName string  `gorm:"type:text;not null" json:"field_name"`
	OldValue  *string `gorm:"type:text" json:"old_value"`
	NewValue  *string `gorm:"type:text" json:"new_value"`

	CreatedAt time.Time `gorm:"index;not null;default:now()" json:"created_at"`
}

func (ChangeEvent) TableName() string { return "project_changes" }

// Registration sentinel, written once when a project is first seen.
const (
	FieldRegistration     = "registration"
	RegistrationFieldName = "프로젝트 등록"
	RegistrationNewValue  = "신규 등록"
)

// Snapshot is a full capture of project_list at a point in time, the
// comparison baseline for the next report.
type Snapshot struct {
	ID           uint64          `gorm:"primaryKey" json:"id"`
	SnapshotType string          `gorm:"type:text;not null;default:'weekly'" json:"snapshot_type"`
	Data         json.RawMessage `gorm:"type:jsonb;not null;default:'[]'::jsonb" json:"data"`
	CreatedAt    time.Time       `gorm:"index;not null;default:now()" json:"created_at"`
}

func (Snapshot) TableName() string { return "project_history" }

// Report is the persisted form of a generated weekly report. The structured
// lists are stored as jsonb; Narrative is the optional LLM summary.
type Report struct {
	ID                   uint64          `gorm:"primaryKey" json:"id"`
	ReportDate           string          `gorm:"type:date;not null;index" json:"report_date"`
	GeneratedAt          time.Time       `gorm:"not null;default:now()" json:"generated_at"`
	ChangedProjects      json.RawMessage `gorm:"type:jsonb;not null;default:'[]'::jsonb" json:"changed_projects"`
	NewProjects          json.RawMessage `gorm:"type:jsonb;not null;default:'[]'::jsonb" json:"new_projects"`
	PreviousSnapshotDate *string         `gorm:"type:date" json:"previous_snapshot_date"`
	Narrative            *string         `gorm:"type:text" json:"narrative"`
	Settings             json.RawMessage `gorm:"type:jsonb;not null;default:'{}'::jsonb" json:"settings"`
}

func (Report) TableName() string { return "project_reports" }

// ReportSettings is a single-row table controlling report content. ChangeTypes
// is the field allowlist applied to the change log before reporting.
type ReportSettings struct {
	ID                     uint64         `gorm:"primaryKey" json:"id"`
	ReportFormat           string         `gorm:"type:text;not null;default:'summary'" json:"report_format"` // summary | custom
	CustomPrompt           *string        `gorm:"type:text" json:"custom_prompt"`
	IncludeChanges         bool           `gorm:"not null;default:true" json:"include_changes"`
	IncludeTimeline        bool           `gorm:"not null;default:true" json:"include_timeline"`
	IncludeRecommendations bool           `gorm:"not null;default:true" json:"include_recommendations"`
	ChangeTypes            pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"change_types"`
	Recipient              string         `gorm:"type:text;not null;default:''" json:"recipient"`
	UpdatedAt              time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReportSettings) TableName() string { return "report_settings" }

// DefaultChangeTypes is the allowlist used when no settings row exists yet.
func DefaultChangeTypes() []string {
	return []string{FieldRegistration, "status", "stage", "pm", "stakeholder"}
}

var fieldDisplayNames = map[string]string{
	"title":             "프로젝트명",
	"company":           "회사",
	"stage":             "단계",
	"status":            "상태",
	"pm":                "PM",
	"stakeholder":       "이해관계자",
	"training":          "교육",
	"project_doc":       "프로젝트 문서",
	"genai":             "생성형 AI",
	"digital_output":    "디지털 산출물",
	"expected_schedule": "예상 일정",
	FieldRegistration:   RegistrationFieldName,
}

// FieldDisplayName maps a tracked field key to its Korean display label.
// Unknown keys fall through unchanged.
func FieldDisplayName(field string) string {
	if name, ok := fieldDisplayNames[field]; ok {
		return name
	}
	return field
}

// FormatValue renders a field value for display and comparison.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case string:
		return t
	case *time.Time:
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
