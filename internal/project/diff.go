package project

// trackedFields is the fixed allowlist of diffable fields. Surrogate id and
// created_at are deliberately absent.
var trackedFields = []struct {
	key   string
	value func(*Project) *string
}{
	{"title", func(p *Project) *string { return strptr(p.Title) }},
	{"company", func(p *Project) *string { return strptr(p.Company) }},
	{"stage", func(p *Project) *string { return strptr(p.Stage) }},
	{"status", func(p *Project) *string { return strptr(p.Status) }},
	{"pm", func(p *Project) *string { return strptr(p.PM) }},
	{"expected_schedule", func(p *Project) *string {
		if p.ExpectedSchedule == nil {
			return nil
		}
		return strptr(p.ExpectedSchedule.Format("2006-01-02"))
	}},
	{"stakeholder", func(p *Project) *string { return strptr(p.Stakeholder) }},
	{"training", func(p *Project) *string { return strptr(FormatValue(p.Training)) }},
	{"project_doc", func(p *Project) *string { return strptr(p.ProjectDoc) }},
	{"genai", func(p *Project) *string { return strptr(FormatValue(p.GenAI)) }},
	{"digital_output", func(p *Project) *string { return strptr(FormatValue(p.DigitalOutput)) }},
}

// Diff compares two normalized projects field by field and returns one
// ChangeEvent per differing tracked field, old and new values preserved as
// rendered. Both arguments must be non-nil: first-sighting records take the
// registration path instead of being diffed. Pure function; CreatedAt is left
// zero for the store default to fill.
func Diff(oldP, newP *Project) []ChangeEvent {
	var events []ChangeEvent
	for _, f := range trackedFields {
		oldV := f.value(oldP)
		newV := f.value(newP)
		if equalValue(oldV, newV) {
			continue
		}
		events = append(events, ChangeEvent{
			ProjectID:    strptr(oldP.ID),
			ProjectTitle: newP.Title,
			Field:        f.key,
			FieldName:    FieldDisplayName(f.key),
			OldValue:     oldV,
			NewValue:     newV,
		})
	}
	return events
}

// RegistrationEvent builds the sentinel event for a freshly created project.
func RegistrationEvent(p *Project) ChangeEvent {
	return ChangeEvent{
		ProjectID:    strptr(p.ID),
		ProjectTitle: p.Title,
		Field:        FieldRegistration,
		FieldName:    RegistrationFieldName,
		NewValue:     strptr(RegistrationNewValue),
	}
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strptr(s string) *string { return &s }
