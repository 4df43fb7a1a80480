package filler

import (
	"errors"
	"log"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/engine"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

// resolve looks up a field for a mutation.
func (d *Document) resolve(name string) (*engine.Field, error) {
	if err := d.requireDocument(); err != nil {
		return nil, err
	}
	f, err := d.lookup(name)
	if err != nil {
		return nil, d.fail(err)
	}
	return f, nil
}

// SetFieldValue sets a field by name, dispatching on its kind. Buttons are
// unchecked by "", "0" and "false" and checked by any other value.
func (d *Document) SetFieldValue(name, value string) error {
	f, err := d.resolve(name)
	if err != nil {
		return err
	}

	switch f.Kind() {
	case engine.KindText:
		return d.setText(f, name, value)
	case engine.KindChoice:
		return d.setChoice(f, name, value)
	case engine.KindButton:
		return d.setButton(f, name, truthy(value))
	default:
		return d.fail(pdferrors.New(pdferrors.KindTypeMismatch,
			"unsupported field type for setValue: %s", name).WithField(name))
	}
}

func truthy(value string) bool {
	return value != "" && value != "0" && value != "false"
}

// SetTextValue sets a text field
func (d *Document) SetTextValue(name, value string) error {
	f, err := d.resolve(name)
	if err != nil {
		return err
	}
	return d.setText(f, name, value)
}

// SetChoiceValue selects the option whose display text equals value
func (d *Document) SetChoiceValue(name, value string) error {
	f, err := d.resolve(name)
	if err != nil {
		return err
	}
	return d.setChoice(f, name, value)
}

// SetCheckbox checks or unchecks a checkbox or radio button. Push buttons
// are accepted and left unchanged.
func (d *Document) SetCheckbox(name string, checked bool) error {
	f, err := d.resolve(name)
	if err != nil {
		return err
	}
	return d.setButton(f, name, checked)
}

// SetFieldValues applies every pair in order. Failures do not stop the
// batch and nothing is rolled back; the joined failures are returned.
func (d *Document) SetFieldValues(values []FieldValue) error {
	var errs []error
	for _, v := range values {
		if err := d.SetFieldValue(v.Name, v.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Document) setText(f *engine.Field, name, value string) error {
	if f.Kind() != engine.KindText {
		return d.fail(pdferrors.New(pdferrors.KindTypeMismatch,
			"field is not a text field: %s", name).WithField(name))
	}

	f.SetContent(textcodec.Encode(value))
	d.needAppearances()

	if d.opts.debug {
		log.Printf("Set text field %s (%d chars)", name, len([]rune(value)))
	}
	d.markModified()
	return nil
}

func (d *Document) setChoice(f *engine.Field, name, value string) error {
	if f.Kind() != engine.KindChoice {
		return d.fail(pdferrors.New(pdferrors.KindTypeMismatch,
			"field is not a choice field: %s", name).WithField(name))
	}

	idx := -1
	for i, c := range f.Choices() {
		if textcodec.Decode(c.Display) == value {
			idx = i
			break
		}
	}
	if idx < 0 || !f.Select(idx) {
		return d.fail(pdferrors.New(pdferrors.KindValueNotInOptions,
			"value not in choice options: %s", value).WithField(name))
	}
	d.needAppearances()

	if d.opts.debug {
		log.Printf("Set choice field %s to option %d", name, idx)
	}
	d.markModified()
	return nil
}

func (d *Document) setButton(f *engine.Field, name string, checked bool) error {
	if f.Kind() != engine.KindButton {
		return d.fail(pdferrors.New(pdferrors.KindTypeMismatch,
			"field is not a button field: %s", name).WithField(name))
	}

	if f.ButtonType() == engine.ButtonPush {
		return nil
	}

	state := "Off"
	if checked {
		state = onState(f)
	}
	f.SetState(state)

	if d.opts.debug {
		log.Printf("Set button field %s to %s", name, state)
	}
	d.markModified()
	return nil
}

// needAppearances asks viewers to regenerate appearance streams, which are
// not updated here.
func (d *Document) needAppearances() {
	if form := d.doc.Form(); form != nil && !form.NeedAppearances() {
		form.SetNeedAppearances(true)
	}
}
