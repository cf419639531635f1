package report

import (
	"fmt"
	"strings"

	"projsync/internal/project"
)

// RenderPrompt produces the deterministic text handed to the narrator. The
// section toggles and the custom-prompt override come from the persisted
// report settings.
func RenderPrompt(changes []project.ChangeEvent, settings *project.ReportSettings) string {
	if settings.ReportFormat == "custom" && settings.CustomPrompt != nil && *settings.CustomPrompt != "" {
		return *settings.CustomPrompt
	}

	var b strings.Builder
	b.WriteString("지난 일주일간의 프로젝트 변경 사항을 분석하여 리포트를 작성해주세요.\n\n")

	if settings.IncludeChanges {
		b.WriteString("변경 사항:\n")
		for _, c := range changes {
			fmt.Fprintf(&b, "- %s: %s가 %q에서 %q로 변경됨\n",
				c.ProjectTitle, c.FieldName, orUnset(c.OldValue), orUnset(c.NewValue))
		}
		b.WriteString("\n")
	}

	if settings.IncludeTimeline {
		b.WriteString("타임라인:\n")
		for _, c := range changes {
			fmt.Fprintf(&b, "- %s: %s의 %s 변경\n",
				c.CreatedAt.Format("2006-01-02 15:04"), c.ProjectTitle, c.FieldName)
		}
		b.WriteString("\n")
	}

	if settings.IncludeRecommendations {
		b.WriteString(`위 변경 사항들을 분석하여 다음 사항들을 포함해주세요:
1. 주요 변경 사항 요약
2. 변경된 프로젝트들의 현재 상태 분석
3. 후속 조치가 필요한 항목
4. PM 및 이해관계자들에게 전달해야 할 중요 사항
5. 리스크가 예상되는 항목`)
	}

	return b.String()
}

// BuildInsightEmail renders the subject and bodies for the report
// notification mail.
func BuildInsightEmail(rep *WeeklyReport) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("📬 %s 프로젝트 인사이트 리포트", rep.ReportDate)

	var text strings.Builder
	if rep.Narrative != "" {
		text.WriteString(rep.Narrative)
	} else {
		fmt.Fprintf(&text, "변경된 프로젝트 %d건, 신규 등록 %d건입니다.\n",
			len(rep.ChangedProjects), len(rep.NewProjects))
		for _, cp := range rep.ChangedProjects {
			fmt.Fprintf(&text, "- %s (%d개 항목 변경)\n", cp.Title, len(cp.Changes))
		}
		for _, p := range rep.NewProjects {
			fmt.Fprintf(&text, "- [신규] %s\n", p.Title)
		}
	}
	textBody = text.String()

	var html strings.Builder
	html.WriteString("<h1>프로젝트 인사이트 리포트</h1>\n")
	fmt.Fprintf(&html, "<p>리포트 날짜: %s</p>\n<hr />\n", rep.ReportDate)
	html.WriteString(strings.ReplaceAll(textBody, "\n", "<br />\n"))
	html.WriteString("<hr />\n<p>이 리포트는 자동으로 생성된 내용입니다.</p>\n")
	htmlBody = html.String()

	return subject, htmlBody, textBody
}

func orUnset(v *string) string {
	if v == nil || *v == "" {
		return "미지정"
	}
	return *v
}
