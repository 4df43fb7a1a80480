package engine

import (
	"bytes"
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/raster"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

// letter is the page box used when a page carries none
var letter = types.NewRectangle(0, 0, 612, 792)

// PageBox returns the media box (or crop box) of a 1-based page and its
// effective rotation in degrees.
func (d *Document) PageBox(pageNum int, useMediaBox bool) (*types.Rectangle, int, error) {
	if pageNum < 1 || pageNum > d.ctx.PageCount {
		return nil, 0, &Error{Code: CodeBadPageNum, Op: "display", Err: fmt.Errorf("page %d of %d", pageNum, d.ctx.PageCount)}
	}
	_, _, inh, err := d.ctx.PageDict(pageNum, false)
	if err != nil {
		return nil, 0, &Error{Code: CodeDamaged, Op: "display", Err: err}
	}

	box := letter
	rotate := 0
	if inh != nil {
		if inh.MediaBox != nil {
			box = inh.MediaBox
		}
		if !useMediaBox && inh.CropBox != nil {
			box = inh.CropBox
		}
		rotate = inh.Rotate
	}
	return box, rotate, nil
}

// DisplayPage renders a 1-based page onto dev at the given resolution.
// rotate is added to the page's own rotation. With crop set the page is
// clipped to its crop box. annots draws the widget outlines and values.
func (d *Document) DisplayPage(dev *raster.Device, pageNum int, hDPI, vDPI float64, rotate int, useMediaBox, crop, annots bool) error {
	if hDPI <= 0 || vDPI <= 0 {
		return &Error{Code: CodeBadPageNum, Op: "display", Err: fmt.Errorf("invalid resolution %gx%g", hDPI, vDPI)}
	}

	box, pageRotate, err := d.PageBox(pageNum, useMediaBox)
	if err != nil {
		return err
	}
	if crop && useMediaBox {
		if cb, _, err := d.PageBox(pageNum, false); err == nil {
			box = intersect(box, cb)
		}
	}

	rot := ((pageRotate+rotate)%360 + 360) % 360
	sx, sy := hDPI/72, vDPI/72
	ctm, w, h := pageTransform(box, rot, sx, sy)

	if err := dev.StartPage(w, h, ctm); err != nil {
		return &Error{Code: CodeDamaged, Op: "display", Err: err}
	}

	if err := d.drawContent(dev, pageNum); err != nil {
		return err
	}
	if annots {
		d.drawWidgets(dev, pageNum)
	}
	return nil
}

// pageTransform returns the page to device transform and the device size.
func pageTransform(box *types.Rectangle, rot int, sx, sy float64) (raster.Matrix, int, int) {
	llx, lly, urx, ury := box.LL.X, box.LL.Y, box.UR.X, box.UR.Y
	bw, bh := urx-llx, ury-lly

	switch rot {
	case 90:
		return raster.Matrix{B: sy, C: sx, E: -sx * lly, F: -sy * llx}, pixels(bh * sx), pixels(bw * sy)
	case 180:
		return raster.Matrix{A: -sx, D: sy, E: sx * urx, F: -sy * lly}, pixels(bw * sx), pixels(bh * sy)
	case 270:
		return raster.Matrix{B: -sy, C: -sx, E: sx * ury, F: sy * urx}, pixels(bh * sx), pixels(bw * sy)
	default:
		return raster.Matrix{A: sx, D: -sy, E: -sx * llx, F: sy * ury}, pixels(bw * sx), pixels(bh * sy)
	}
}

func pixels(v float64) int {
	return int(math.Ceil(v - 1e-6))
}

func intersect(a, b *types.Rectangle) *types.Rectangle {
	llx, lly := math.Max(a.LL.X, b.LL.X), math.Max(a.LL.Y, b.LL.Y)
	urx, ury := math.Min(a.UR.X, b.UR.X), math.Min(a.UR.Y, b.UR.Y)
	if urx <= llx || ury <= lly {
		return a
	}
	return types.NewRectangle(llx, lly, urx, ury)
}

// drawContent paints the text runs and rectangles of the page content
// stream. A document the content reader cannot open keeps a blank content
// layer; a content stream that fails while being interpreted is CodeDamaged.
func (d *Document) drawContent(dev *raster.Device, pageNum int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Code: CodeDamaged, Op: "display",
				Err: fmt.Errorf("page %d content stream: %v", pageNum, r)}
		}
	}()

	r, err := d.contentReader()
	if err != nil {
		return nil
	}
	if pageNum > r.NumPage() {
		return nil
	}
	p := r.Page(pageNum)
	if p.V.IsNull() {
		return nil
	}

	content := p.Content()
	for _, rect := range content.Rect {
		dev.StrokeRect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, 1)
	}
	for _, t := range content.Text {
		if err := dev.DrawText(t.S, t.X, t.Y, t.FontSize); err != nil {
			return &Error{Code: CodeDamaged, Op: "display", Err: err}
		}
	}
	return nil
}

func (d *Document) contentReader() (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("content reader: %v", p)
		}
	}()

	ra := bytes.NewReader(d.src)
	if !d.IsEncrypted() {
		return pdf.NewReader(ra, int64(len(d.src)))
	}
	tried := false
	return pdf.NewReaderEncrypted(ra, int64(len(d.src)), func() string {
		if tried {
			return ""
		}
		tried = true
		return d.password
	})
}

// drawWidgets outlines the widgets on a page and writes their values.
func (d *Document) drawWidgets(dev *raster.Device, pageNum int) {
	if d.form == nil {
		return
	}
	var walk func(f *Field)
	walk = func(f *Field) {
		for i, w := range f.widgets {
			if w.PageNum() != pageNum {
				continue
			}
			x1, y1, x2, y2 := w.Rect()
			dev.StrokeRect(x1, y1, x2, y2, 0.5)

			size := math.Min((y2-y1)*0.7, 12)
			label := ""
			switch f.Kind() {
			case KindText, KindChoice:
				if i == 0 {
					label = textcodec.Decode(f.Content())
				}
			case KindButton:
				if w.AppearanceState() != "" && w.AppearanceState() != "Off" {
					label = "X"
				}
			}
			_ = dev.DrawText(label, x1+2, y1+(y2-y1-size)/2+size*0.2, size)
		}
		for _, c := range f.children {
			walk(c)
		}
	}
	for _, f := range d.form.fields {
		walk(f)
	}
}
