package notion

import "time"

// Property value shapes supported by the registry database. Every property on
// a page carries exactly one of the typed payloads below, discriminated by Type.
const (
	TypeTitle       = "title"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
	TypeRichText    = "rich_text"
	TypePeople      = "people"
	TypeCheckbox    = "checkbox"
	TypeDate        = "date"
	TypeURL         = "url"
	TypeNumber      = "number"
)

type Page struct {
	ID             string              `json:"id"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
}

type Property struct {
	Type string `json:"type"`

	Title       []TextRun    `json:"title,omitempty"`
	RichText    []TextRun    `json:"rich_text,omitempty"`
	Select      *SelectValue `json:"select,omitempty"`
	MultiSelect []SelectValue `json:"multi_select,omitempty"`
	People      []Person     `json:"people,omitempty"`
	Checkbox    *bool        `json:"checkbox,omitempty"`
	Date        *DateValue   `json:"date,omitempty"`
	URL         *string      `json:"url,omitempty"`
	Number      *float64     `json:"number,omitempty"`
}

type TextRun struct {
	PlainText string `json:"plain_text"`
}

type SelectValue struct {
	Name string `json:"name"`
}

type Person struct {
	Name string `json:"name"`
}

type DateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}
