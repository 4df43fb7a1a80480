package filler

import (
	"errors"
	"log"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/engine"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/raster"
)

// RenderPage rasterizes a 0-based page at dpi and returns it as PNG. A
// non-positive dpi uses the configured default.
func (d *Document) RenderPage(pageIndex int, dpi float64) ([]byte, error) {
	if err := d.requireDocument(); err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= d.doc.PageCount() {
		return nil, d.fail(pdferrors.New(pdferrors.KindPageOutOfRange,
			"page index %d out of range [0, %d)", pageIndex, d.doc.PageCount()).WithPage(pageIndex))
	}
	if dpi <= 0 {
		dpi = d.opts.defaultDPI
	}
	if dpi < MinDPI || dpi > MaxDPI {
		return nil, d.fail(pdferrors.New(pdferrors.KindRenderFailure,
			"dpi %g out of range [%d, %d]", dpi, MinDPI, MaxDPI).WithPage(pageIndex))
	}

	dev := raster.NewDevice(raster.White, false)
	defer dev.Close()

	if err := d.doc.DisplayPage(dev, pageIndex+1, dpi, dpi, 0, true, false, false); err != nil {
		fe := pdferrors.Wrap(pdferrors.KindRenderFailure, err, "failed to render page").WithPage(pageIndex)
		var engErr *engine.Error
		if errors.As(err, &engErr) {
			fe = fe.WithCode(engErr.Code)
		}
		return nil, d.fail(fe)
	}

	bitmap := dev.Bitmap()
	if bitmap == nil {
		return nil, d.fail(pdferrors.New(pdferrors.KindRenderFailure, "failed to render page").WithPage(pageIndex))
	}

	out, err := raster.PNG(bitmap, d.opts.compression)
	if err != nil {
		return nil, d.fail(pdferrors.Wrap(pdferrors.KindRenderFailure, err, "failed to encode page").WithPage(pageIndex))
	}

	if d.opts.debug {
		log.Printf("Rendered page %d at %g dpi: %dx%d, %d bytes", pageIndex, dpi, bitmap.Width, bitmap.Height, len(out))
	}
	return out, nil
}
