package manuscripts

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
)

const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldAuthorEmail = "author_email"
	FieldState       = "state"
	FieldReferees    = "referees"
	FieldText        = "text"
	FieldAbstract    = "abstract"
	FieldHistory     = "history"
	FieldEditor      = "editor"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrFieldNotEditable = errors.New("field is managed by the workflow")
	ErrInvalidFieldType = errors.New("field value must be a string")
)

var fieldDisplayNames = map[string]string{
	FieldTitle:       "Title",
	FieldAuthor:      "Author",
	FieldAuthorEmail: "Author Email",
	FieldState:       "State",
	FieldReferees:    "Referees",
	FieldText:        "Text",
	FieldAbstract:    "Abstract",
	FieldHistory:     "History",
	FieldEditor:      "Editor",
}

// workflow-owned fields only change through transitions
var workflowFields = map[string]bool{
	FieldState:    true,
	FieldReferees: true,
	FieldHistory:  true,
}

// FieldInfo is the wire form of a manuscript field
type FieldInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Editable    bool   `json:"editable"`
}

// Fields lists the manuscript fields sorted by name
func Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(fieldDisplayNames))
	for name, disp := range fieldDisplayNames {
		out = append(out, FieldInfo{Name: name, DisplayName: disp, Editable: !workflowFields[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidateFieldData checks that every key names a known field
func ValidateFieldData(data map[string]any) error {
	for name := range data {
		if _, ok := fieldDisplayNames[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}
	return nil
}

// applyFieldUpdates validates data and writes the descriptive fields onto m
func applyFieldUpdates(m *Manuscript, data map[string]any) error {
	if err := ValidateFieldData(data); err != nil {
		return err
	}
	values := make(map[string]string, len(data))
	for name, raw := range data {
		if workflowFields[name] {
			return fmt.Errorf("%w: %s", ErrFieldNotEditable, name)
		}
		v, ok := raw.(string)
		if !ok {
			return fmt.Errorf("%w: %s", ErrInvalidFieldType, name)
		}
		values[name] = v
	}
	if email, ok := values[FieldAuthorEmail]; ok && !people.IsValidEmail(email) {
		return fmt.Errorf("%w: %q", people.ErrInvalidEmail, email)
	}

	for name, v := range values {
		switch name {
		case FieldTitle:
			m.Title = v
		case FieldAuthor:
			m.Author = v
		case FieldAuthorEmail:
			m.AuthorEmail = v
		case FieldText:
			m.Text = v
		case FieldAbstract:
			m.Abstract = v
		case FieldEditor:
			m.Editor = v
		}
	}
	return nil
}
