package engine

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// WriteMode selects how SaveAs serializes the document
type WriteMode int

const (
	// WriteStandard writes the original bytes when nothing changed and a
	// full rewrite otherwise.
	WriteStandard WriteMode = iota
	// WriteForceRewrite always regenerates the whole file.
	WriteForceRewrite
)

// String returns a string representation of the WriteMode
func (m WriteMode) String() string {
	switch m {
	case WriteStandard:
		return "standard"
	case WriteForceRewrite:
		return "force-rewrite"
	default:
		return "unknown"
	}
}

// SaveAs writes the document to path
func (d *Document) SaveAs(path string, mode WriteMode) error {
	if mode == WriteStandard && !d.dirty {
		if err := os.WriteFile(path, d.src, 0o600); err != nil {
			return &Error{Code: CodeOpenFile, Op: "save", Err: err}
		}
		return nil
	}
	return d.rewrite(path)
}

func (d *Document) rewrite(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &Error{Code: CodeOpenFile, Op: "save", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &Error{Code: CodeFileIO, Op: "save", Err: cerr}
		}
	}()

	// The write context carries offsets and the set of written objects,
	// so every save starts from a fresh one.
	d.ctx.Write = model.NewWriteContext(d.ctx.Eol)

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Code: CodeDamaged, Op: "save", Err: fmt.Errorf("panic during write: %v", r)}
		}
	}()

	if werr := api.WriteContext(d.ctx, f); werr != nil {
		return &Error{Code: CodeFileIO, Op: "save", Err: werr}
	}
	return nil
}
