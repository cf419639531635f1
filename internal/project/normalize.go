package project

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"projsync/internal/notion"
)

var (
	ErrEmptyTitle       = errors.New("empty title")
	ErrPlaceholderTitle = errors.New("placeholder title")
)

// propertyRef is one (property-name, shape) candidate for a logical field.
// Candidates are tried in order; the first present property of the expected
// shape wins.
type propertyRef struct {
	name  string
	shape string
}

var (
	titleRefs       = []propertyRef{{"title", notion.TypeTitle}}
	companyRefs     = []propertyRef{{"company", notion.TypeSelect}}
	stageRefs       = []propertyRef{{"stage", notion.TypeSelect}}
	statusRefs      = []propertyRef{{"status", notion.TypeSelect}, {"Status", notion.TypeSelect}}
	pmRefs          = []propertyRef{{"pm", notion.TypeRichText}, {"PM", notion.TypePeople}}
	stakeholderRefs = []propertyRef{{"stakeholder", notion.TypeRichText}}
	docRefs         = []propertyRef{{"project_doc", notion.TypeURL}, {"project_document", notion.TypeURL}}
	trainingRefs    = []propertyRef{{"training", notion.TypeCheckbox}}
	genaiRefs       = []propertyRef{{"genai", notion.TypeCheckbox}}
	digitalRefs     = []propertyRef{{"digital_output", notion.TypeCheckbox}}
	scheduleRefs    = []propertyRef{{"expected_schedule", notion.TypeDate}}
)

// Placeholder titles that must never reach the store: purely numeric rows,
// timestamp-shaped rows, and rows marked as test data.
var (
	numericTitleRe   = regexp.MustCompile(`^\d+$`)
	timestampTitleRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}`)
	testMarkers      = []string{"test", "테스트", "dummy", "샘플"}
)

// Normalize maps one Notion page onto the canonical Project shape. It is a
// pure function: no I/O, no clock. A non-nil error means the record is
// rejected and must be skipped, not persisted.
func Normalize(page notion.Page) (*Project, error) {
	title := strings.TrimSpace(extractString(page, titleRefs))
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if isPlaceholderTitle(title) {
		return nil, fmt.Errorf("%w: %q", ErrPlaceholderTitle, title)
	}

	p := &Project{
		Title:         title,
		Company:       extractString(page, companyRefs),
		Stage:         extractString(page, stageRefs),
		Status:        extractString(page, statusRefs),
		PM:            extractString(page, pmRefs),
		Stakeholder:   extractString(page, stakeholderRefs),
		ProjectDoc:    extractString(page, docRefs),
		Training:      extractBool(page, trainingRefs),
		GenAI:         extractBool(page, genaiRefs),
		DigitalOutput: extractBool(page, digitalRefs),
		NotionID:      page.ID,
	}

	if d, ok := extractDate(page, scheduleRefs); ok {
		p.ExpectedSchedule = &d
	}

	return p, nil
}

func isPlaceholderTitle(title string) bool {
	if numericTitleRe.MatchString(title) || timestampTitleRe.MatchString(title) {
		return true
	}
	lower := strings.ToLower(title)
	for _, marker := range testMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// extractString resolves the first matching candidate to its string form.
// Every extracted string passes through the yes/no vocabulary rewrite.
func extractString(page notion.Page, refs []propertyRef) string {
	for _, ref := range refs {
		prop, ok := page.Properties[ref.name]
		if !ok || prop.Type != ref.shape {
			continue
		}
		if v, ok := stringValue(prop); ok {
			return translateYesNo(v)
		}
	}
	return ""
}

func stringValue(prop notion.Property) (string, bool) {
	switch prop.Type {
	case notion.TypeTitle:
		if len(prop.Title) > 0 {
			return prop.Title[0].PlainText, true
		}
	case notion.TypeRichText:
		if len(prop.RichText) > 0 {
			return prop.RichText[0].PlainText, true
		}
	case notion.TypeSelect:
		if prop.Select != nil {
			return prop.Select.Name, true
		}
	case notion.TypeMultiSelect:
		if len(prop.MultiSelect) > 0 {
			return prop.MultiSelect[0].Name, true
		}
	case notion.TypePeople:
		if len(prop.People) > 0 {
			return prop.People[0].Name, true
		}
	case notion.TypeURL:
		if prop.URL != nil {
			return *prop.URL, true
		}
	case notion.TypeNumber:
		if prop.Number != nil {
			return strconv.FormatFloat(*prop.Number, 'f', -1, 64), true
		}
	}
	return "", false
}

func extractBool(page notion.Page, refs []propertyRef) bool {
	for _, ref := range refs {
		prop, ok := page.Properties[ref.name]
		if !ok || prop.Type != ref.shape {
			continue
		}
		if prop.Checkbox != nil {
			return *prop.Checkbox
		}
	}
	return false
}

func extractDate(page notion.Page, refs []propertyRef) (time.Time, bool) {
	for _, ref := range refs {
		prop, ok := page.Properties[ref.name]
		if !ok || prop.Type != ref.shape || prop.Date == nil {
			continue
		}
		start := prop.Date.Start
		if len(start) >= 10 {
			start = start[:10]
		}
		d, err := time.Parse("2006-01-02", start)
		if err != nil {
			continue
		}
		return d, true
	}
	return time.Time{}, false
}

// translateYesNo rewrites the upstream yes/no vocabulary into the localized
// 있음/없음 tokens. Applied uniformly to every extracted string.
func translateYesNo(v string) string {
	switch strings.ToLower(v) {
	case "yes":
		return "있음"
	case "no":
		return "없음"
	default:
		return v
	}
}
