// Package engine adapts pdfcpu (document model, writer) and ledongthuc/pdf
// (page content) into the small capability set the form bridge consumes:
// open, page count, info, field tree, per-kind field accessors, save to path
// and page display onto a raster device.
package engine

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Error codes reported by the engine. The numbering follows the classic
// xpdf/poppler error codes so callers can surface them verbatim.
const (
	CodeNone       = 0
	CodeOpenFile   = 1
	CodeBadCatalog = 2
	CodeDamaged    = 3
	CodeEncrypted  = 4
	CodePermission = 8
	CodeBadPageNum = 9
	CodeFileIO     = 10
)

// Error is an engine failure with a numeric code
type Error struct {
	Code int
	Op   string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s: error code %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("engine %s: error code %d", e.Op, e.Code)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

var (
	globalMu    sync.Mutex
	initialized bool
	globalConf  *model.Configuration
)

// Init performs the process-wide engine setup once. It disables pdfcpu's
// on-disk configuration directory and fixes the read/write configuration that
// every document is opened with. Calling it again is a no-op.
func Init() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if initialized {
		return
	}

	api.DisableConfigDir()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Classic xref tables keep the output readable by the page content reader.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	globalConf = conf
	initialized = true
}

// Initialized reports whether Init has run
func Initialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return initialized
}

// reset clears the global state; tests use it to re-run Init.
func reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	initialized = false
	globalConf = nil
}

// configuration returns a per-document copy of the global configuration.
func configuration() *model.Configuration {
	Init()
	globalMu.Lock()
	defer globalMu.Unlock()
	conf := *globalConf
	return &conf
}

// Document is an opened PDF held by pdfcpu
type Document struct {
	ctx       *model.Context
	src       []byte
	password  string
	form      *Form
	annotPage map[int]int // annotation object number -> 1-based page
	pageObj   map[int]int // page object number -> 1-based page
	dirty     bool
}

// Open parses data. The owner and user passwords are used for encrypted
// documents; either may be empty. data is retained, not copied.
func Open(data []byte, ownerPassword, userPassword string) (*Document, error) {
	if len(data) == 0 {
		return nil, &Error{Code: CodeDamaged, Op: "open", Err: fmt.Errorf("empty input")}
	}

	conf := configuration()
	conf.OwnerPW = ownerPassword
	conf.UserPW = userPassword

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &Error{Code: openErrorCode(err), Op: "open", Err: err}
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &Error{Code: CodeBadCatalog, Op: "open", Err: err}
	}

	if _, err := ctx.Catalog(); err != nil {
		return nil, &Error{Code: CodeBadCatalog, Op: "open", Err: err}
	}

	password := userPassword
	if password == "" {
		password = ownerPassword
	}

	d := &Document{
		ctx:       ctx,
		src:       data,
		password:  password,
		annotPage: make(map[int]int),
		pageObj:   make(map[int]int),
	}

	d.indexPages()

	form, err := d.loadForm()
	if err != nil {
		return nil, &Error{Code: CodeBadCatalog, Op: "open", Err: err}
	}
	d.form = form

	return d, nil
}

func openErrorCode(err error) int {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"), strings.Contains(msg, "encrypt"):
		return CodeEncrypted
	case strings.Contains(msg, "permission"):
		return CodePermission
	default:
		return CodeDamaged
	}
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// IsEncrypted reports whether the source document is encrypted
func (d *Document) IsEncrypted() bool {
	return d.ctx.Encrypt != nil
}

// Modified reports whether any setter changed the document since Open
func (d *Document) Modified() bool {
	return d.dirty
}

// Info returns the raw bytes of a document information dictionary entry
// such as "Title" or "Author". ok is false when the entry is absent.
func (d *Document) Info(key string) (raw []byte, ok bool) {
	if d.ctx.Info == nil {
		return nil, false
	}
	info, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil || info == nil {
		return nil, false
	}
	obj, found := info.Find(key)
	if !found {
		return nil, false
	}
	return d.stringBytes(obj)
}

// Form returns the interactive form, or nil when the catalog has no AcroForm
func (d *Document) Form() *Form {
	return d.form
}

// indexPages maps annotation and page object numbers onto page numbers.
func (d *Document) indexPages() {
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, pageRef, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		if pageRef != nil {
			d.pageObj[pageRef.ObjectNumber.Value()] = pageNr
		}

		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := d.ctx.DereferenceArray(annotsObj)
		if err != nil {
			continue
		}
		for _, a := range annots {
			if ir, ok := a.(types.IndirectRef); ok {
				if _, seen := d.annotPage[ir.ObjectNumber.Value()]; !seen {
					d.annotPage[ir.ObjectNumber.Value()] = pageNr
				}
			}
		}
	}
}

// stringBytes returns the raw bytes of a string or hex literal.
func (d *Document) stringBytes(obj types.Object) ([]byte, bool) {
	o, err := d.ctx.Dereference(obj)
	if err != nil || o == nil {
		return nil, false
	}
	switch v := o.(type) {
	case types.StringLiteral:
		b, err := types.Unescape(v.Value())
		if err != nil {
			return []byte(v.Value()), true
		}
		return b, true
	case types.HexLiteral:
		b, err := v.Bytes()
		if err != nil {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}

// name returns the value of a name object.
func (d *Document) name(obj types.Object) (string, bool) {
	o, err := d.ctx.Dereference(obj)
	if err != nil || o == nil {
		return "", false
	}
	n, ok := o.(types.Name)
	if !ok {
		return "", false
	}
	return n.Value(), true
}

// rect returns a normalized rectangle from a four-number array.
func (d *Document) rect(obj types.Object) (x1, y1, x2, y2 float64, ok bool) {
	arr, err := d.ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return 0, 0, 0, 0, false
	}
	var c [4]float64
	for i, o := range arr {
		f, err := d.ctx.DereferenceNumber(o)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		c[i] = f
	}
	x1, x2 = minMax(c[0], c[2])
	y1, y2 = minMax(c[1], c[3])
	return x1, y1, x2, y2, true
}

func minMax(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}
