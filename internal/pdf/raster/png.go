package raster

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"strings"
)

// ParseCompression maps a configuration name to a PNG compression level
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	default:
		return png.DefaultCompression, fmt.Errorf("unknown png compression %q", name)
	}
}

// EncodePNG writes b as a non-interlaced true colour PNG without alpha
func EncodePNG(w io.Writer, b *Buffer, level png.CompressionLevel) error {
	if b == nil {
		return fmt.Errorf("nil buffer")
	}
	enc := &png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, b); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// PNG encodes b and returns the bytes
func PNG(b *Buffer, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, b, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
