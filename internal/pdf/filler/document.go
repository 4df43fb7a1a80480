// Package filler is the form-field bridge: it flattens a document's field
// tree into name-addressable snapshots, applies typed value changes, saves
// the result back to bytes and renders pages to PNG.
//
// A Document is not safe for concurrent use.
package filler

import (
	"errors"
	"image/png"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/engine"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

// DefaultDPI is the render resolution used when none is given
const DefaultDPI = 150

// Render resolutions outside [MinDPI, MaxDPI] are rejected
const (
	MinDPI = 18
	MaxDPI = 600
)

// Option configures a Document
type Option func(*options)

type options struct {
	debug       bool
	tempDir     string
	defaultDPI  float64
	compression png.CompressionLevel
}

// WithDebug enables debug logging
func WithDebug(debug bool) Option {
	return func(o *options) { o.debug = debug }
}

// WithTempDir sets the directory saves are staged in
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithDefaultDPI sets the resolution RenderPage uses for non-positive dpi
func WithDefaultDPI(dpi float64) Option {
	return func(o *options) {
		if dpi > 0 {
			o.defaultDPI = dpi
		}
	}
}

// WithPNGCompression sets the PNG compression level of rendered pages
func WithPNGCompression(level png.CompressionLevel) Option {
	return func(o *options) { o.compression = level }
}

// Document holds one loaded PDF and its field index
type Document struct {
	opts options
	id   uuid.UUID

	doc      *engine.Document
	src      []byte
	modified bool
	index    fieldIndex

	lastError string
}

// New creates an empty Document. Load or LoadFile must succeed before any
// other operation.
func New(opts ...Option) *Document {
	o := options{
		tempDir:     os.TempDir(),
		defaultDPI:  DefaultDPI,
		compression: png.DefaultCompression,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Document{opts: o, id: uuid.New()}
}

// Open creates a Document and loads data into it
func Open(data []byte, password string, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.Load(data, password); err != nil {
		return nil, err
	}
	return d, nil
}

// Load parses data, replacing any previously loaded document. The password
// is tried as both owner and user password. data is copied.
func (d *Document) Load(data []byte, password string) error {
	d.Close()

	src := make([]byte, len(data))
	copy(src, data)

	doc, err := engine.Open(src, password, password)
	if err != nil {
		fe := pdferrors.Wrap(pdferrors.KindLoadFailure, err, "failed to load PDF")
		var engErr *engine.Error
		if errors.As(err, &engErr) {
			fe = fe.WithCode(engErr.Code)
		}
		return d.fail(fe)
	}

	d.doc = doc
	d.src = src

	if d.opts.debug {
		log.Printf("Loaded PDF: %d bytes, %d pages, form: %v", len(src), doc.PageCount(), doc.Form() != nil)
	}
	return nil
}

// LoadFile reads and loads the PDF at path
func (d *Document) LoadFile(path, password string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return d.fail(pdferrors.Wrap(pdferrors.KindFileAccess, err, "failed to read PDF file"))
	}
	return d.Load(data, password)
}

// Loaded reports whether a document is loaded
func (d *Document) Loaded() bool {
	return d.doc != nil
}

// PageCount returns the number of pages, 0 when nothing is loaded
func (d *Document) PageCount() int {
	if d.doc == nil {
		return 0
	}
	return d.doc.PageCount()
}

// Title returns the decoded document title
func (d *Document) Title() string {
	return d.info("Title")
}

// Author returns the decoded document author
func (d *Document) Author() string {
	return d.info("Author")
}

func (d *Document) info(key string) string {
	if d.doc == nil {
		return ""
	}
	raw, ok := d.doc.Info(key)
	if !ok {
		return ""
	}
	return textcodec.Decode(raw)
}

// HasForm reports whether the document has an interactive form
func (d *Document) HasForm() bool {
	return d.doc != nil && d.doc.Form() != nil
}

// Modified reports whether a mutation succeeded since the last load
func (d *Document) Modified() bool {
	return d.modified
}

// LastError returns the message of the most recent failure
func (d *Document) LastError() string {
	return d.lastError
}

// Close releases the loaded document. The Document may be loaded again.
func (d *Document) Close() {
	d.doc = nil
	d.src = nil
	d.modified = false
	d.index.reset()
}

// fail records err as the last error and returns it.
func (d *Document) fail(err error) error {
	d.lastError = err.Error()
	if d.opts.debug {
		log.Printf("pdf filler: %v", err)
	}
	return err
}

func (d *Document) requireDocument() error {
	if d.doc == nil {
		return d.fail(pdferrors.New(pdferrors.KindNoDocument, "no document loaded"))
	}
	return nil
}

// markModified records a successful mutation.
func (d *Document) markModified() {
	d.modified = true
	d.index.invalidate()
}

// Flatten marks the document modified. Widget appearances are not merged
// into page content and the fields stay editable.
func (d *Document) Flatten() error {
	if err := d.requireDocument(); err != nil {
		return err
	}
	if !d.HasForm() {
		return d.fail(pdferrors.New(pdferrors.KindFieldNotFound, "document has no form"))
	}
	d.markModified()
	return nil
}
