// Package raster provides the software output device pages are displayed
// onto: an RGB pixel buffer with padded rows, simple path filling and glyph
// drawing, and PNG encoding of the result.
package raster

import (
	"fmt"
	"image"
	"image/color"
)

// rowAlign is the byte alignment of buffer rows
const rowAlign = 4

// MaxPixels bounds the size of a single buffer
const MaxPixels = 1 << 26

// Buffer is a 3-channel RGB pixel grid. Rows are Stride bytes apart and
// Stride may exceed Width*3; index pixels through Stride only.
type Buffer struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewBuffer allocates a buffer filled with the paper colour
func NewBuffer(width, height int, paper color.RGBA) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	if width > MaxPixels/height {
		return nil, fmt.Errorf("buffer size %dx%d exceeds limit", width, height)
	}

	stride := (width*3 + rowAlign - 1) / rowAlign * rowAlign
	b := &Buffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
	b.Fill(paper)
	return b, nil
}

// Fill paints every pixel with c
func (b *Buffer) Fill(c color.RGBA) {
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		for x := 0; x < b.Width; x++ {
			row[x*3] = c.R
			row[x*3+1] = c.G
			row[x*3+2] = c.B
		}
	}
}

// Row returns the pixel bytes of row y without padding
func (b *Buffer) Row(y int) []byte {
	off := y * b.Stride
	return b.Pix[off : off+b.Width*3]
}

// ColorModel implements image.Image
func (b *Buffer) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// At implements image.Image
func (b *Buffer) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.RGBA{}
	}
	i := y*b.Stride + x*3
	return color.RGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: 0xff}
}

// Set implements draw.Image. Alpha is dropped.
func (b *Buffer) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	i := y*b.Stride + x*3
	b.Pix[i] = rgba.R
	b.Pix[i+1] = rgba.G
	b.Pix[i+2] = rgba.B
}

// Opaque reports that the buffer has no transparency, which makes the PNG
// encoder pick a true colour format without alpha.
func (b *Buffer) Opaque() bool {
	return true
}
