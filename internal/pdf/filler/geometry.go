package filler

import (
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/engine"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

// defaultOnState is the on-state name used when a widget declares none
const defaultOnState = "Yes"

// fieldType maps the engine kind and button variant onto a FieldType.
func fieldType(f *engine.Field) FieldType {
	switch f.Kind() {
	case engine.KindText:
		return FieldText
	case engine.KindChoice:
		return FieldChoice
	case engine.KindSignature:
		return FieldSignature
	case engine.KindButton:
		switch f.ButtonType() {
		case engine.ButtonCheck:
			return FieldCheckbox
		case engine.ButtonRadio:
			return FieldRadio
		default:
			return FieldButton
		}
	default:
		return FieldUnknown
	}
}

// onState returns the name written for a checked button.
func onState(f *engine.Field) string {
	if on := f.OnStr(); on != "" {
		return on
	}
	return defaultOnState
}

// snapshot copies the current state of a terminal field.
func (d *Document) snapshot(f *engine.Field) FormField {
	ff := FormField{
		FullName:  textcodec.Decode(f.FullName()),
		Type:      fieldType(f),
		ReadOnly:  f.IsReadOnly(),
		Required:  f.IsRequired(),
		PageIndex: -1,
	}
	ff.Name = ff.FullName
	if p := f.PartialName(); p != nil {
		ff.Name = textcodec.Decode(p)
	}

	switch ff.Type {
	case FieldText:
		ff.Value = textcodec.Decode(f.Content())
		ff.DefaultValue = textcodec.Decode(f.DefaultContent())
	case FieldChoice:
		choices := f.Choices()
		ff.Options = make([]string, len(choices))
		for i, c := range choices {
			ff.Options[i] = textcodec.Decode(c.Display)
		}
		if sel := f.Selected(); len(sel) > 0 {
			ff.Value = ff.Options[sel[0]]
		}
		ff.DefaultValue = textcodec.Decode(f.DefaultContent())
	case FieldCheckbox, FieldRadio:
		ff.ExportValue = onState(f)
		ff.IsChecked = f.State()
		ff.Value = "Off"
		switch {
		case ff.Type == FieldRadio && f.StateName() != "":
			// The group value names the selected widget.
			ff.Value = f.StateName()
		case ff.IsChecked:
			ff.Value = ff.ExportValue
		}
	}

	d.geometry(f, &ff)
	return ff
}

// geometry fills the first widget's rectangle and page, plus the list of
// every widget's placement.
func (d *Document) geometry(f *engine.Field, ff *FormField) {
	n := f.NumWidgets()
	if n == 0 {
		return
	}

	ff.Widgets = make([]WidgetGeometry, 0, n)
	for i := 0; i < n; i++ {
		w := f.Widget(i)
		x1, y1, x2, y2 := w.Rect()
		ff.Widgets = append(ff.Widgets, WidgetGeometry{
			PageIndex: w.PageNum() - 1,
			X:         x1,
			Y:         y1,
			Width:     x2 - x1,
			Height:    y2 - y1,
		})
	}

	first := ff.Widgets[0]
	ff.PageIndex = first.PageIndex
	ff.X, ff.Y = first.X, first.Y
	ff.Width, ff.Height = first.Width, first.Height
}
