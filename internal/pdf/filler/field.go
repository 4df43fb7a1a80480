package filler

import (
	"fmt"
	"strings"
)

// FieldType is the kind of a form field as seen by callers
type FieldType int

const (
	FieldUnknown FieldType = iota
	FieldText
	FieldButton
	FieldCheckbox
	FieldRadio
	FieldChoice
	FieldSignature
)

var fieldTypeNames = [...]string{
	FieldUnknown:   "unknown",
	FieldText:      "text",
	FieldButton:    "button",
	FieldCheckbox:  "checkbox",
	FieldRadio:     "radio",
	FieldChoice:    "choice",
	FieldSignature: "signature",
}

// String returns a string representation of the FieldType
func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return fieldTypeNames[FieldUnknown]
	}
	return fieldTypeNames[t]
}

// ParseFieldType converts a field type name back into a FieldType
func ParseFieldType(s string) (FieldType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range fieldTypeNames {
		if n == name {
			return FieldType(i), nil
		}
	}
	return FieldUnknown, fmt.Errorf("unknown field type: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *FieldType) UnmarshalText(b []byte) error {
	ft, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*t = ft
	return nil
}

// IsButton reports whether the type is a settable on/off button
func (t FieldType) IsButton() bool {
	return t == FieldCheckbox || t == FieldRadio
}

// WidgetGeometry is the position of one widget of a field
type WidgetGeometry struct {
	PageIndex int     `json:"page_index"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// FormField is a snapshot of a terminal form field. It is a copy; changing
// it does not change the document.
type FormField struct {
	Name         string           `json:"name"`
	FullName     string           `json:"full_name"`
	Value        string           `json:"value"`
	DefaultValue string           `json:"default_value,omitempty"`
	Type         FieldType        `json:"type"`
	ReadOnly     bool             `json:"read_only"`
	Required     bool             `json:"required"`
	PageIndex    int              `json:"page_index"`
	X            float64          `json:"x"`
	Y            float64          `json:"y"`
	Width        float64          `json:"width"`
	Height       float64          `json:"height"`
	Options      []string         `json:"options,omitempty"`
	ExportValue  string           `json:"export_value,omitempty"`
	IsChecked    bool             `json:"is_checked,omitempty"`
	Widgets      []WidgetGeometry `json:"widgets,omitempty"`
}

// FieldValue is a name/value pair for bulk updates
type FieldValue struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}
