package filler

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/engine"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
)

// stagingPath returns the temporary file this Document saves through
func (d *Document) stagingPath() string {
	return filepath.Join(d.opts.tempDir, fmt.Sprintf("pdf_filler_%s.pdf", d.id))
}

// Save serializes the document. An unmodified document is written in the
// standard mode; any mutation forces a full rewrite.
func (d *Document) Save() ([]byte, error) {
	if err := d.requireDocument(); err != nil {
		return nil, err
	}

	mode := engine.WriteStandard
	if d.modified {
		mode = engine.WriteForceRewrite
	}

	// The engine writes to paths only, so stage through a temp file.
	path := d.stagingPath()
	defer os.Remove(path)

	if err := d.doc.SaveAs(path, mode); err != nil {
		fe := pdferrors.Wrap(pdferrors.KindSaveError, err, "failed to save PDF")
		var engErr *engine.Error
		if errors.As(err, &engErr) {
			fe = fe.WithCode(engErr.Code)
		}
		return nil, d.fail(fe)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, d.fail(pdferrors.Wrap(pdferrors.KindReadBackError, err, "failed to read saved PDF"))
	}
	if len(data) == 0 {
		return nil, d.fail(pdferrors.New(pdferrors.KindReadBackError, "saved PDF is empty"))
	}

	if d.opts.debug {
		log.Printf("Saved PDF (%s): %d bytes", mode, len(data))
	}
	return data, nil
}

// SaveFile saves the document to path
func (d *Document) SaveFile(path string) error {
	data, err := d.Save()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return d.fail(pdferrors.Wrap(pdferrors.KindFileAccess, err, "failed to open file for writing: %s", path))
	}
	return nil
}
