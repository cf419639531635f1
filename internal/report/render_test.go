package report

import (
	"testing"
	"time"

	"projsync/internal/project"

	"github.com/stretchr/testify/require"
)

func defaultSettings() *project.ReportSettings {
	return &project.ReportSettings{
		ReportFormat:           "summary",
		IncludeChanges:         true,
		IncludeTimeline:        true,
		IncludeRecommendations: true,
	}
}

func TestRenderPromptSections(t *testing.T) {
	changes := []project.ChangeEvent{
		eventAt("플랫폼", "status", strp("기획"), strp("진행중"), time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)),
	}

	prompt := RenderPrompt(changes, defaultSettings())

	require.Contains(t, prompt, "변경 사항:")
	require.Contains(t, prompt, `플랫폼: 상태가 "기획"에서 "진행중"로 변경됨`)
	require.Contains(t, prompt, "타임라인:")
	require.Contains(t, prompt, "2026-08-25 10:30")
	require.Contains(t, prompt, "리스크가 예상되는 항목")
}

func TestRenderPromptUnsetValue(t *testing.T) {
	changes := []project.ChangeEvent{
		eventAt("플랫폼", "pm", nil, strp("김철수"), time.Now()),
	}

	prompt := RenderPrompt(changes, defaultSettings())
	require.Contains(t, prompt, `"미지정"에서 "김철수"로`)
}

func TestRenderPromptSectionToggles(t *testing.T) {
	changes := []project.ChangeEvent{
		eventAt("플랫폼", "status", strp("기획"), strp("진행중"), time.Now()),
	}
	settings := defaultSettings()
	settings.IncludeTimeline = false
	settings.IncludeRecommendations = false

	prompt := RenderPrompt(changes, settings)

	require.Contains(t, prompt, "변경 사항:")
	require.NotContains(t, prompt, "타임라인:")
	require.NotContains(t, prompt, "후속 조치")
}

func TestRenderPromptCustomOverride(t *testing.T) {
	settings := defaultSettings()
	settings.ReportFormat = "custom"
	custom := "이번 주 변경 사항을 3줄로 요약해줘."
	settings.CustomPrompt = &custom

	prompt := RenderPrompt(nil, settings)
	require.Equal(t, custom, prompt)
}

func TestBuildInsightEmailWithNarrative(t *testing.T) {
	rep := &WeeklyReport{
		ReportDate: "2026-08-31",
		Narrative:  "이번 주 주요 변경 요약입니다.",
	}

	subject, htmlBody, textBody := BuildInsightEmail(rep)

	require.Equal(t, "📬 2026-08-31 프로젝트 인사이트 리포트", subject)
	require.Equal(t, rep.Narrative, textBody)
	require.Contains(t, htmlBody, rep.Narrative)
	require.Contains(t, htmlBody, "2026-08-31")
}

func TestBuildInsightEmailFallbackBody(t *testing.T) {
	rep := &WeeklyReport{
		ReportDate: "2026-08-31",
		ChangedProjects: []ChangedProject{
			{Title: "플랫폼", Changes: []FieldChange{{Field: "status"}}},
		},
		NewProjects: []project.Project{{Title: "신규 사업"}},
	}

	_, _, textBody := BuildInsightEmail(rep)

	require.Contains(t, textBody, "변경된 프로젝트 1건, 신규 등록 1건")
	require.Contains(t, textBody, "- 플랫폼 (1개 항목 변경)")
	require.Contains(t, textBody, "- [신규] 신규 사업")
}
