package filler

import (
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/engine"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

// fieldIndex caches the terminal field snapshots and the name to live
// field mapping. The snapshots go stale on every mutation; the handles do
// not, because mutations change values and never the tree.
type fieldIndex struct {
	fields []FormField
	valid  bool

	handles   map[textcodec.Identifier]*engine.Field
	byDisplay map[string][]*engine.Field
	built     bool
}

func (x *fieldIndex) reset() {
	*x = fieldIndex{}
}

func (x *fieldIndex) invalidate() {
	x.fields = nil
	x.valid = false
}

// rebuild walks the field tree. Nodes with at least one widget become
// snapshots; children are always visited. The handle maps are filled on the
// first walk only.
func (d *Document) rebuild() {
	if d.index.valid {
		return
	}

	x := &d.index
	x.fields = nil
	withHandles := !x.built
	if withHandles {
		x.handles = make(map[textcodec.Identifier]*engine.Field)
		x.byDisplay = make(map[string][]*engine.Field)
	}

	if form := d.doc.Form(); form != nil {
		for i := 0; i < form.NumFields(); i++ {
			d.collect(form.RootField(i), withHandles)
		}
	}

	x.valid = true
	x.built = true
}

func (d *Document) collect(f *engine.Field, withHandles bool) {
	if f == nil {
		return
	}

	if f.NumWidgets() > 0 {
		d.index.fields = append(d.index.fields, d.snapshot(f))
		if withHandles {
			d.addHandles(f)
		}
	}

	for i := 0; i < f.NumChildren(); i++ {
		d.collect(f.Child(i), withHandles)
	}
}

// addHandles maps the raw full name and, when distinct, the raw partial
// name onto f. Later insertions overwrite earlier ones.
func (d *Document) addHandles(f *engine.Field) {
	full := f.FullName()
	partial := f.PartialName()
	if partial == nil {
		partial = full
	}

	if len(full) > 0 {
		d.index.handles[textcodec.DecodeRaw(full)] = f
	}
	if len(partial) > 0 && string(partial) != string(full) {
		d.index.handles[textcodec.DecodeRaw(partial)] = f
	}

	d.addDisplayName(textcodec.Decode(full), f)
	d.addDisplayName(textcodec.Decode(partial), f)
}

func (d *Document) addDisplayName(name string, f *engine.Field) {
	if name == "" {
		return
	}
	for _, g := range d.index.byDisplay[name] {
		if g == f {
			return
		}
	}
	d.index.byDisplay[name] = append(d.index.byDisplay[name], f)
}

// lookup resolves a caller supplied name to a live field. Raw identifiers
// win; decoded display names are used only when they are unambiguous.
func (d *Document) lookup(name string) (*engine.Field, error) {
	if !d.index.built {
		d.rebuild()
	}

	if f, ok := d.index.handles[textcodec.IdentifierFor(name)]; ok {
		return f, nil
	}
	if fs := d.index.byDisplay[name]; len(fs) == 1 {
		return fs[0], nil
	}

	return nil, pdferrors.New(pdferrors.KindFieldNotFound, "field not found: %s", name).WithField(name)
}

// Fields returns the terminal fields in tree order. The slice is a copy.
func (d *Document) Fields() ([]FormField, error) {
	if err := d.requireDocument(); err != nil {
		return nil, err
	}
	d.rebuild()

	out := make([]FormField, len(d.index.fields))
	for i, f := range d.index.fields {
		out[i] = f.clone()
	}
	return out, nil
}

// Field returns the snapshot of one field by full or partial name
func (d *Document) Field(name string) (FormField, error) {
	if err := d.requireDocument(); err != nil {
		return FormField{}, err
	}
	f, err := d.lookup(name)
	if err != nil {
		return FormField{}, d.fail(err)
	}
	return d.snapshot(f), nil
}

func (f FormField) clone() FormField {
	if f.Options != nil {
		f.Options = append([]string(nil), f.Options...)
	}
	if f.Widgets != nil {
		f.Widgets = append([]WidgetGeometry(nil), f.Widgets...)
	}
	return f
}
