// Package textcodec converts between UTF-8 display strings and PDF text
// strings (UTF-16BE with byte order mark, or PDFDocEncoding).
package textcodec

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Identifier is the raw byte sequence of a PDF string used as a lookup key.
// It is never normalized, so two byte sequences that decode to the same
// display text stay distinct.
type Identifier string

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// Decode interprets native PDF text string bytes and returns UTF-8.
func Decode(native []byte) string {
	switch {
	case len(native) == 0:
		return ""
	case bytes.HasPrefix(native, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(native)
		if err != nil {
			return decodePDFDoc(native[len(bomUTF16BE):])
		}
		return string(out)
	case bytes.HasPrefix(native, bomUTF8):
		return string(native[len(bomUTF8):])
	default:
		return decodePDFDoc(native)
	}
}

// DecodeRaw returns the native bytes as an Identifier without any decoding.
func DecodeRaw(native []byte) Identifier {
	return Identifier(native)
}

// Encode converts a UTF-8 display string into a UTF-16BE text string with a
// leading byte order mark. The empty string encodes to an empty slice.
func Encode(display string) []byte {
	if display == "" {
		return []byte{}
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(display))
	if err != nil {
		// Only invalid UTF-8 gets here; replace it and retry.
		out, _ = enc.Bytes([]byte(toValidUTF8(display)))
	}
	if !bytes.HasPrefix(out, bomUTF16BE) {
		out = append(append([]byte{}, bomUTF16BE...), out...)
	}
	return out
}

// IdentifierFor maps a caller supplied name onto the raw key space. Names in
// the ASCII/PDFDocEncoding range are stored verbatim by most producers, so the
// UTF-8 bytes are used as-is.
func IdentifierFor(display string) Identifier {
	return Identifier(display)
}

// IsUTF16 reports whether native carries a UTF-16BE byte order mark.
func IsUTF16(native []byte) bool {
	return bytes.HasPrefix(native, bomUTF16BE)
}

func toValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return string(bytes.ToValidUTF8([]byte(s), []byte("�")))
}
