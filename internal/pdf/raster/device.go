package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var (
	// White is the default paper colour
	White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	// Black is the default ink colour
	Black = color.RGBA{A: 0xff}
)

// Matrix is an affine transform [A B C D E F] mapping page space to device
// pixels: x' = A*x + C*y + E, y' = B*x + D*y + F.
type Matrix struct {
	A, B, C, D, E, F float64
}

// Apply transforms a point
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// Scale returns the geometric mean scale factor of the transform
func (m Matrix) Scale() float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}

var (
	fontOnce sync.Once
	textFont *opentype.Font
	fontErr  error
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		textFont, fontErr = opentype.Parse(goregular.TTF)
	})
	return textFont, fontErr
}

// Device is a software output device. Drawing calls accumulate coverage in
// a page sized mask that Bitmap composites onto the paper colour.
type Device struct {
	paper     color.RGBA
	ink       color.RGBA
	antialias bool

	ctm    Matrix
	mask   *image.Alpha
	bitmap *Buffer
	faces  map[int]font.Face
	done   bool
}

// NewDevice creates a device with the given paper colour
func NewDevice(paper color.RGBA, antialias bool) *Device {
	return &Device{
		paper:     paper,
		ink:       Black,
		antialias: antialias,
		faces:     make(map[int]font.Face),
	}
}

// StartPage allocates the page bitmap and sets the page transform
func (d *Device) StartPage(width, height int, ctm Matrix) error {
	bitmap, err := NewBuffer(width, height, d.paper)
	if err != nil {
		return err
	}
	d.bitmap = bitmap
	d.mask = image.NewAlpha(image.Rect(0, 0, width, height))
	d.ctm = ctm
	d.done = false
	return nil
}

// FillRect fills a page space rectangle
func (d *Device) FillRect(x1, y1, x2, y2 float64) {
	if d.mask == nil {
		return
	}
	pts := d.corners(x1, y1, x2, y2)
	d.fillPolygons([][4][2]float64{pts})
}

// StrokeRect outlines a page space rectangle with the given line width in
// page units. Lines thinner than a device pixel are drawn one pixel wide.
func (d *Device) StrokeRect(x1, y1, x2, y2, lineWidth float64) {
	if d.mask == nil {
		return
	}
	outer := d.corners(x1, y1, x2, y2)
	bx0, by0, bx1, by1 := bounds(outer)

	w := lineWidth * d.ctm.Scale()
	if w < 1 {
		w = 1
	}
	if bx1-bx0 <= 2*w || by1-by0 <= 2*w {
		d.fillPolygons([][4][2]float64{outer})
		return
	}

	// Outer clockwise, inner counter-clockwise leaves the middle empty.
	o := [4][2]float64{{bx0, by0}, {bx1, by0}, {bx1, by1}, {bx0, by1}}
	in := [4][2]float64{{bx0 + w, by0 + w}, {bx0 + w, by1 - w}, {bx1 - w, by1 - w}, {bx1 - w, by0 + w}}
	d.fillPolygons([][4][2]float64{o, in})
}

// corners maps a page space rectangle to device space.
func (d *Device) corners(x1, y1, x2, y2 float64) [4][2]float64 {
	var pts [4][2]float64
	for i, p := range [4][2]float64{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}} {
		pts[i][0], pts[i][1] = d.ctm.Apply(p[0], p[1])
	}
	return pts
}

func bounds(pts [4][2]float64) (x0, y0, x1, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		x0 = math.Min(x0, p[0])
		y0 = math.Min(y0, p[1])
		x1 = math.Max(x1, p[0])
		y1 = math.Max(y1, p[1])
	}
	return x0, y0, x1, y1
}

// fillPolygons rasterizes closed quadrilaterals into the mask. The
// rasterizer only covers the bounding box of the shapes.
func (d *Device) fillPolygons(polys [][4][2]float64) {
	x0, y0, x1, y1 := math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, p := range polys {
		a, b, c, e := bounds(p)
		x0, y0 = math.Min(x0, a), math.Min(y0, b)
		x1, y1 = math.Max(x1, c), math.Max(y1, e)
	}

	box := image.Rect(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Ceil(x1)), int(math.Ceil(y1)))
	box = box.Intersect(d.mask.Bounds())
	if box.Empty() {
		return
	}

	z := vector.NewRasterizer(box.Dx(), box.Dy())
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	for _, p := range polys {
		z.MoveTo(float32(p[0][0]-ox), float32(p[0][1]-oy))
		for _, q := range p[1:] {
			z.LineTo(float32(q[0]-ox), float32(q[1]-oy))
		}
		z.ClosePath()
	}
	z.Draw(d.mask, box, image.Opaque, image.Point{})
}

// DrawText draws s with its baseline origin at the page space point (x, y).
// size is the font size in page units.
func (d *Device) DrawText(s string, x, y, size float64) error {
	if d.mask == nil || strings.TrimSpace(s) == "" || size <= 0 {
		return nil
	}

	px := int(math.Round(size * d.ctm.Scale()))
	if px < 1 {
		return nil
	}
	face, err := d.face(px)
	if err != nil {
		return err
	}

	dx, dy := d.ctm.Apply(x, y)
	drawer := &font.Drawer{
		Dst:  d.mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(int(math.Round(dx)), int(math.Round(dy))),
	}
	drawer.DrawString(s)
	return nil
}

func (d *Device) face(px int) (font.Face, error) {
	if f, ok := d.faces[px]; ok {
		return f, nil
	}
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	d.faces[px] = face
	return face, nil
}

// Bitmap composites the accumulated drawing onto the page and returns it.
// Without anti-aliasing coverage is thresholded to full ink or paper.
func (d *Device) Bitmap() *Buffer {
	if d.bitmap == nil || d.done {
		return d.bitmap
	}

	b := d.bitmap
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		mrow := d.mask.Pix[y*d.mask.Stride : y*d.mask.Stride+b.Width]
		for x, a := range mrow {
			if a == 0 {
				continue
			}
			if !d.antialias {
				if a < 0x80 {
					continue
				}
				a = 0xff
			}
			row[x*3] = blend(d.paper.R, d.ink.R, a)
			row[x*3+1] = blend(d.paper.G, d.ink.G, a)
			row[x*3+2] = blend(d.paper.B, d.ink.B, a)
		}
	}
	d.done = true
	return b
}

func blend(bg, fg, a uint8) uint8 {
	return uint8((uint32(bg)*uint32(0xff-a) + uint32(fg)*uint32(a) + 0x7f) / 0xff)
}

// Close releases cached font faces
func (d *Device) Close() error {
	for k, f := range d.faces {
		_ = f.Close()
		delete(d.faces, k)
	}
	return nil
}
