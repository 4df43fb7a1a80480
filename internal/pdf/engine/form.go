package engine

import (
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

// Kind is the engine's field kind
type Kind int

const (
	KindUndef Kind = iota
	KindButton
	KindText
	KindChoice
	KindSignature
)

// ButtonType distinguishes the button variants
type ButtonType int

const (
	ButtonCheck ButtonType = iota
	ButtonRadio
	ButtonPush
)

// Field flags (PDF 32000-1, tables 221, 226, 228)
const (
	flagReadOnly   = 1 << 0
	flagRequired   = 1 << 1
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
)

// maxFieldDepth bounds the recursion over malformed trees
const maxFieldDepth = 32

// Form is the document's interactive form
type Form struct {
	doc    *Document
	dict   types.Dict
	fields []*Field
}

// Field is a node of the field tree. Fields are parsed once when the
// document is opened and stay valid for the document's lifetime; setters
// edit the underlying dictionaries in place.
type Field struct {
	doc      *Document
	dict     types.Dict
	objNr    int
	parent   *Field
	children []*Field
	widgets  []*Widget
	partial  []byte
	full     []byte
}

// Widget is a widget annotation belonging to a terminal field
type Widget struct {
	field *Field
	dict  types.Dict
	objNr int
}

// Choice is one entry of a choice field's option list
type Choice struct {
	Export  []byte // nil when the option has no separate export value
	Display []byte
}

func (d *Document) loadForm() (*Form, error) {
	obj, found := d.ctx.RootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	dict, err := d.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("AcroForm: %w", err)
	}
	if dict == nil {
		return nil, nil
	}

	f := &Form{doc: d, dict: dict}

	fieldsObj, found := dict.Find("Fields")
	if !found {
		return f, nil
	}
	roots, err := d.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("AcroForm Fields: %w", err)
	}

	visited := make(map[int]bool)
	for _, r := range roots {
		field, err := d.parseField(r, nil, visited, 0)
		if err != nil {
			return nil, err
		}
		if field != nil {
			f.fields = append(f.fields, field)
		}
	}

	return f, nil
}

func (d *Document) parseField(obj types.Object, parent *Field, visited map[int]bool, depth int) (*Field, error) {
	if depth > maxFieldDepth {
		return nil, nil
	}

	objNr := 0
	if ir, ok := obj.(types.IndirectRef); ok {
		objNr = ir.ObjectNumber.Value()
		if visited[objNr] {
			return nil, nil
		}
		visited[objNr] = true
	}

	dict, err := d.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("field object %d: %w", objNr, err)
	}
	if dict == nil {
		return nil, nil
	}

	f := &Field{doc: d, dict: dict, objNr: objNr, parent: parent}

	if t, ok := dict.Find("T"); ok {
		f.partial, _ = d.stringBytes(t)
	}
	f.full = f.partial
	if parent != nil {
		switch {
		case len(parent.full) == 0:
		case f.partial == nil:
			f.full = parent.full
		default:
			f.full = joinNames(parent.full, f.partial)
		}
	}

	kidsObj, hasKids := dict.Find("Kids")
	if !hasKids {
		// A field without kids is merged with its single widget.
		if isWidget(dict) {
			f.widgets = append(f.widgets, &Widget{field: f, dict: dict, objNr: objNr})
		}
		return f, nil
	}

	kids, err := d.ctx.DereferenceArray(kidsObj)
	if err != nil {
		return nil, fmt.Errorf("field object %d Kids: %w", objNr, err)
	}

	// A parent may still carry a merged widget of its own.
	if _, hasRect := dict.Find("Rect"); hasRect && isWidget(dict) {
		f.widgets = append(f.widgets, &Widget{field: f, dict: dict, objNr: objNr})
	}

	for _, k := range kids {
		kd, err := d.ctx.DereferenceDict(k)
		if err != nil || kd == nil {
			continue
		}
		if isFieldNode(kd) {
			child, err := d.parseField(k, f, visited, depth+1)
			if err != nil {
				return nil, err
			}
			if child != nil {
				f.children = append(f.children, child)
			}
			continue
		}

		w := &Widget{field: f, dict: kd}
		if ir, ok := k.(types.IndirectRef); ok {
			w.objNr = ir.ObjectNumber.Value()
		}
		f.widgets = append(f.widgets, w)
	}

	return f, nil
}

// isFieldNode reports whether a kid dictionary is a field rather than a bare
// widget annotation.
func isFieldNode(d types.Dict) bool {
	if _, ok := d.Find("T"); ok {
		return true
	}
	if _, ok := d.Find("Kids"); ok {
		return true
	}
	return false
}

func isWidget(d types.Dict) bool {
	if st := d.NameEntry("Subtype"); st != nil {
		return *st == "Widget"
	}
	_, ok := d.Find("Rect")
	return ok
}

// joinNames builds a qualified name from a parent name and a partial name.
// Mixed encodings are unified as UTF-16BE.
func joinNames(parent, partial []byte) []byte {
	if !textcodec.IsUTF16(parent) && !textcodec.IsUTF16(partial) {
		out := make([]byte, 0, len(parent)+1+len(partial))
		out = append(out, parent...)
		out = append(out, '.')
		return append(out, partial...)
	}
	return textcodec.Encode(textcodec.Decode(parent) + "." + textcodec.Decode(partial))
}

// NumFields returns the number of root fields
func (f *Form) NumFields() int {
	return len(f.fields)
}

// RootField returns the i-th root field
func (f *Form) RootField(i int) *Field {
	if i < 0 || i >= len(f.fields) {
		return nil
	}
	return f.fields[i]
}

// NeedAppearances reports the AcroForm NeedAppearances flag
func (f *Form) NeedAppearances() bool {
	b := f.dict.BooleanEntry("NeedAppearances")
	return b != nil && *b
}

// SetNeedAppearances sets the AcroForm NeedAppearances flag
func (f *Form) SetNeedAppearances(on bool) {
	f.dict.Update("NeedAppearances", types.Boolean(on))
	f.doc.dirty = true
}

// inherited looks up an inheritable entry on the field or its ancestors.
func (f *Field) inherited(key string) (types.Object, bool) {
	for n := f; n != nil; n = n.parent {
		if o, ok := n.dict.Find(key); ok {
			return o, true
		}
	}
	return nil, false
}

func (f *Field) flags() int {
	o, ok := f.inherited("Ff")
	if !ok {
		return 0
	}
	i, err := f.doc.ctx.DereferenceInteger(o)
	if err != nil || i == nil {
		return 0
	}
	return i.Value()
}

// Kind returns the field kind from the inherited /FT entry
func (f *Field) Kind() Kind {
	o, ok := f.inherited("FT")
	if !ok {
		return KindUndef
	}
	name, ok := f.doc.name(o)
	if !ok {
		return KindUndef
	}
	switch name {
	case "Btn":
		return KindButton
	case "Tx":
		return KindText
	case "Ch":
		return KindChoice
	case "Sig":
		return KindSignature
	default:
		return KindUndef
	}
}

// ObjectNumber returns the field's object number, 0 for direct objects
func (f *Field) ObjectNumber() int {
	return f.objNr
}

// FullName returns the raw fully qualified name
func (f *Field) FullName() []byte {
	return f.full
}

// PartialName returns the raw /T entry, nil when absent
func (f *Field) PartialName() []byte {
	return f.partial
}

// IsReadOnly reports the ReadOnly field flag
func (f *Field) IsReadOnly() bool {
	return f.flags()&flagReadOnly != 0
}

// IsRequired reports the Required field flag
func (f *Field) IsRequired() bool {
	return f.flags()&flagRequired != 0
}

// NumChildren returns the number of child fields
func (f *Field) NumChildren() int {
	return len(f.children)
}

// Child returns the i-th child field
func (f *Field) Child(i int) *Field {
	if i < 0 || i >= len(f.children) {
		return nil
	}
	return f.children[i]
}

// NumWidgets returns the number of widgets owned by the field
func (f *Field) NumWidgets() int {
	return len(f.widgets)
}

// Widget returns the i-th widget
func (f *Field) Widget(i int) *Widget {
	if i < 0 || i >= len(f.widgets) {
		return nil
	}
	return f.widgets[i]
}

// Rect returns the normalized widget rectangle
func (w *Widget) Rect() (x1, y1, x2, y2 float64) {
	o, ok := w.dict.Find("Rect")
	if !ok {
		return 0, 0, 0, 0
	}
	x1, y1, x2, y2, _ = w.field.doc.rect(o)
	return x1, y1, x2, y2
}

// PageNum returns the 1-based page holding the widget, 0 when unknown
func (w *Widget) PageNum() int {
	d := w.field.doc
	if w.objNr != 0 {
		if p, ok := d.annotPage[w.objNr]; ok {
			return p
		}
	}
	if o, ok := w.dict.Find("P"); ok {
		if ir, ok := o.(types.IndirectRef); ok {
			return d.pageObj[ir.ObjectNumber.Value()]
		}
	}
	return 0
}

// OnStr returns the widget's on-state name: the first normal appearance
// state other than Off. It is empty when the widget has no such state.
func (w *Widget) OnStr() string {
	d := w.field.doc
	apObj, ok := w.dict.Find("AP")
	if !ok {
		return ""
	}
	ap, err := d.ctx.DereferenceDict(apObj)
	if err != nil || ap == nil {
		return ""
	}
	nObj, ok := ap.Find("N")
	if !ok {
		return ""
	}
	n, err := d.ctx.DereferenceDict(nObj)
	if err != nil || n == nil {
		return ""
	}

	keys := make([]string, 0, len(n))
	for k := range n {
		if k != "Off" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return keys[0]
}

// AppearanceState returns the widget's /AS name, empty when absent
func (w *Widget) AppearanceState() string {
	o, ok := w.dict.Find("AS")
	if !ok {
		return ""
	}
	s, _ := w.field.doc.name(o)
	return s
}
