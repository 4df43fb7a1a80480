package engine

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Content returns the raw bytes of the field's /V text string
func (f *Field) Content() []byte {
	o, ok := f.inherited("V")
	if !ok {
		return nil
	}
	b, _ := f.doc.stringBytes(o)
	return b
}

// SetContent replaces the field's /V with raw text string bytes
func (f *Field) SetContent(raw []byte) {
	f.dict.Update("V", types.NewHexLiteral(raw))
	f.doc.dirty = true
}

// DefaultContent returns the raw bytes of the field's /DV text string
func (f *Field) DefaultContent() []byte {
	o, ok := f.inherited("DV")
	if !ok {
		return nil
	}
	b, _ := f.doc.stringBytes(o)
	return b
}

// Choices returns the option list of a choice field in document order
func (f *Field) Choices() []Choice {
	o, ok := f.inherited("Opt")
	if !ok {
		return nil
	}
	arr, err := f.doc.ctx.DereferenceArray(o)
	if err != nil {
		return nil
	}

	out := make([]Choice, 0, len(arr))
	for _, item := range arr {
		if b, ok := f.doc.stringBytes(item); ok {
			out = append(out, Choice{Display: b})
			continue
		}
		pair, err := f.doc.ctx.DereferenceArray(item)
		if err != nil || len(pair) != 2 {
			continue
		}
		export, _ := f.doc.stringBytes(pair[0])
		display, _ := f.doc.stringBytes(pair[1])
		out = append(out, Choice{Export: export, Display: display})
	}
	return out
}

// Selected returns the indices of the selected options. The /V value is
// matched against export values; /I is consulted when /V is absent.
func (f *Field) Selected() []int {
	choices := f.Choices()
	values := f.choiceValues()

	var sel []int
	for _, v := range values {
		for i, c := range choices {
			key := c.Export
			if key == nil {
				key = c.Display
			}
			if bytes.Equal(key, v) {
				sel = append(sel, i)
				break
			}
		}
	}
	if len(values) > 0 {
		return sel
	}

	o, ok := f.dict.Find("I")
	if !ok {
		return nil
	}
	arr, err := f.doc.ctx.DereferenceArray(o)
	if err != nil {
		return nil
	}
	for _, item := range arr {
		i, err := f.doc.ctx.DereferenceInteger(item)
		if err == nil && i != nil && i.Value() >= 0 && i.Value() < len(choices) {
			sel = append(sel, i.Value())
		}
	}
	return sel
}

func (f *Field) choiceValues() [][]byte {
	o, ok := f.inherited("V")
	if !ok {
		return nil
	}
	if b, ok := f.doc.stringBytes(o); ok {
		return [][]byte{b}
	}
	arr, err := f.doc.ctx.DereferenceArray(o)
	if err != nil {
		return nil
	}
	var out [][]byte
	for _, item := range arr {
		if b, ok := f.doc.stringBytes(item); ok {
			out = append(out, b)
		}
	}
	return out
}

// Select makes option i the single selection. It writes the option's
// export value (its display text when there is none) into /V and records
// the index in /I. It reports false when i is out of range.
func (f *Field) Select(i int) bool {
	choices := f.Choices()
	if i < 0 || i >= len(choices) {
		return false
	}
	v := choices[i].Export
	if v == nil {
		v = choices[i].Display
	}
	f.dict.Update("V", types.NewHexLiteral(v))
	f.dict.Update("I", types.Array{types.Integer(i)})
	f.doc.dirty = true
	return true
}

// ButtonType returns the button variant from the field flags
func (f *Field) ButtonType() ButtonType {
	flags := f.flags()
	switch {
	case flags&flagPushbutton != 0:
		return ButtonPush
	case flags&flagRadio != 0:
		return ButtonRadio
	default:
		return ButtonCheck
	}
}

// OnStr returns the first widget's on-state name, empty when unknown
func (f *Field) OnStr() string {
	if len(f.widgets) == 0 {
		return ""
	}
	return f.widgets[0].OnStr()
}

// StateName returns the field's current /V name, empty when absent
func (f *Field) StateName() string {
	o, ok := f.inherited("V")
	if !ok {
		return ""
	}
	s, _ := f.doc.name(o)
	return s
}

// State reports whether the button is on. The first widget's /AS decides;
// without one the field's /V name is used.
func (f *Field) State() bool {
	state := ""
	if len(f.widgets) > 0 {
		state = f.widgets[0].AppearanceState()
	}
	if state == "" {
		state = f.StateName()
	}
	if state == "" || state == "Off" {
		return false
	}
	if on := f.OnStr(); on != "" {
		return state == on
	}
	return true
}

// SetState sets the button state by name. The field's /V becomes the name
// and each widget's /AS becomes the name when the widget has that on-state,
// Off otherwise. Widgets without appearance states take any on name.
// Push buttons have no state and report false.
func (f *Field) SetState(name string) bool {
	if f.ButtonType() == ButtonPush || name == "" {
		return false
	}

	f.dict.Update("V", types.Name(name))
	for _, w := range f.widgets {
		as := "Off"
		if name != "Off" {
			on := w.OnStr()
			if on == name || on == "" {
				as = name
			}
		}
		w.dict.Update("AS", types.Name(as))
	}
	f.doc.dirty = true
	return true
}
