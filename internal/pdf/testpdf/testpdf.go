// Package testpdf builds small PDF documents in memory for tests: a
// classic cross-reference table, standard fonts and hand-written AcroForm
// dictionaries.
package testpdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

// Builder assembles numbered objects into a PDF file
type Builder struct {
	objects []string
}

// New creates an empty builder
func New() *Builder {
	return &Builder{}
}

// Reserve allocates an object number whose body is set later with Set
func (b *Builder) Reserve() int {
	b.objects = append(b.objects, "null")
	return len(b.objects)
}

// Set replaces the body of object num
func (b *Builder) Set(num int, body string) {
	b.objects[num-1] = body
}

// Add appends an object and returns its number
func (b *Builder) Add(body string) int {
	b.objects = append(b.objects, body)
	return len(b.objects)
}

// AddStream appends a stream object; dict holds extra entries besides /Length
func (b *Builder) AddStream(dict, data string) int {
	return b.Add(fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data))
}

// Bytes serializes the objects. info may be 0 for no Info dictionary.
func (b *Builder) Bytes(root, info int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R", len(b.objects)+1, root)
	if info > 0 {
		fmt.Fprintf(&buf, " /Info %d 0 R", info)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// Ref formats an indirect reference
func Ref(num int) string {
	return fmt.Sprintf("%d 0 R", num)
}

// Refs formats an array of indirect references
func Refs(nums ...int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = Ref(n)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Literal formats s as an escaped literal string
func Literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return "(" + r.Replace(s) + ")"
}

// UTF16 formats s as a hex string in UTF-16BE with byte order mark
func UTF16(s string) string {
	return fmt.Sprintf("<%X>", textcodec.Encode(s))
}

// TextContent returns a content stream showing one line of Helvetica text
func TextContent(x, y, size float64, s string) string {
	return fmt.Sprintf("BT\n/F1 %g Tf\n%g %g Td\n%s Tj\nET", size, x, y, Literal(s))
}

const helvetica = "/Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >>"

// Page adds a letter sized page with the given content and annotations
func (b *Builder) Page(parent int, content string, annots ...int) int {
	contents := b.AddStream("", content)
	body := fmt.Sprintf("<< /Type /Page /Parent %s /MediaBox [0 0 612 792] /Resources << %s >> /Contents %s",
		Ref(parent), helvetica, Ref(contents))
	if len(annots) > 0 {
		body += " /Annots " + Refs(annots...)
	}
	return b.Add(body + " >>")
}

// Plain returns a document with the given number of text pages and no form
func Plain(pages int) []byte {
	b := New()
	catalog := b.Reserve()
	tree := b.Reserve()

	kids := make([]int, 0, pages)
	for i := 1; i <= pages; i++ {
		kids = append(kids, b.Page(tree, TextContent(72, 720, 12, fmt.Sprintf("Page %d Text", i))))
	}
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids %s /Count %d >>", Refs(kids...), len(kids)))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s >>", Ref(tree)))

	info := b.Add("<< /Title (Plain Document) /Producer (testpdf) >>")
	return b.Bytes(catalog, info)
}

// Form field names of the document returned by Form
const (
	FieldName    = "name"
	FieldAgree   = "agree"
	FieldCountry = "country"
	FieldID      = "id"
	FieldReset   = "reset"
	FieldStreet  = "address.street"
	FieldCity    = "address.city"
	FieldSize    = "size"
	FieldNotes   = "notes"
)

// Form returns a two page document with an AcroForm:
//
//	page 1: name (text, required, "John"), agree (checkbox, on-state "On",
//	        off), country (combo box: us/United States, de/Germany, France;
//	        "us" selected), id (read-only text), reset (push button),
//	        notes (text without value, UTF-16 name)
//	page 2: address.street and address.city (text kids of a container),
//	        size (radio group with on-states S and L, S selected)
//
// Title is "Sample Form", Author is a UTF-16 string "Jürgen Ä".
func Form() []byte {
	b := New()
	catalog := b.Reserve()
	tree := b.Reserve()
	page1 := b.Reserve()
	page2 := b.Reserve()
	acroForm := b.Reserve()

	onAP := b.AddStream("/Type /XObject /Subtype /Form /BBox [0 0 12 12]", "0 g 2 2 8 8 re f")
	offAP := b.AddStream("/Type /XObject /Subtype /Form /BBox [0 0 12 12]", "")

	widget := func(rect string, page int) string {
		return fmt.Sprintf("/Type /Annot /Subtype /Widget /Rect %s /P %s /F 4", rect, Ref(page))
	}

	name := b.Add(fmt.Sprintf("<< %s /FT /Tx /T (name) /TU (Full name) /Ff 2 /V (John) /DV (Jane) /DA (/Helv 10 Tf 0 g) >>",
		widget("[100 700 300 720]", page1)))
	agree := b.Add(fmt.Sprintf("<< %s /FT /Btn /T (agree) /V /Off /AS /Off /AP << /N << /On %s /Off %s >> >> >>",
		widget("[100 650 112 662]", page1), Ref(onAP), Ref(offAP)))
	country := b.Add(fmt.Sprintf("<< %s /FT /Ch /Ff 131072 /T (country) /Opt [[(us) (United States)] [(de) (Germany)] (France)] /V (us) /I [0] >>",
		widget("[100 600 300 620]", page1)))
	id := b.Add(fmt.Sprintf("<< %s /FT /Tx /T (id) /Ff 1 /V (A-1) >>",
		widget("[400 700 500 720]", page1)))
	reset := b.Add(fmt.Sprintf("<< %s /FT /Btn /Ff 65536 /T (reset) >>",
		widget("[400 600 480 620]", page1)))
	notes := b.Add(fmt.Sprintf("<< %s /FT /Tx /T %s >>",
		widget("[100 500 500 580]", page1), UTF16(FieldNotes)))

	address := b.Reserve()
	street := b.Add(fmt.Sprintf("<< %s /T (street) /Parent %s >>",
		widget("[100 700 400 720]", page2), Ref(address)))
	city := b.Add(fmt.Sprintf("<< %s /T (city) /Parent %s /V (Berlin) >>",
		widget("[100 660 400 680]", page2), Ref(address)))
	b.Set(address, fmt.Sprintf("<< /FT /Tx /T (address) /Kids %s >>", Refs(street, city)))

	size := b.Reserve()
	small := b.Add(fmt.Sprintf("<< %s /Parent %s /AS /S /AP << /N << /S %s /Off %s >> >> >>",
		widget("[100 600 112 612]", page2), Ref(size), Ref(onAP), Ref(offAP)))
	large := b.Add(fmt.Sprintf("<< %s /Parent %s /AS /Off /AP << /N << /L %s /Off %s >> >> >>",
		widget("[150 600 162 612]", page2), Ref(size), Ref(onAP), Ref(offAP)))
	b.Set(size, fmt.Sprintf("<< /FT /Btn /Ff 49152 /T (size) /V /S /Kids %s >>", Refs(small, large)))

	c1 := b.AddStream("", TextContent(72, 740, 14, "Application Form")+"\n0 G 72 730 468 0.5 re S")
	c2 := b.AddStream("", TextContent(72, 740, 14, "Address"))
	page := func(content int, annots ...int) string {
		return fmt.Sprintf("<< /Type /Page /Parent %s /MediaBox [0 0 612 792] /Resources << %s >> /Contents %s /Annots %s >>",
			Ref(tree), helvetica, Ref(content), Refs(annots...))
	}
	b.Set(page1, page(c1, name, agree, country, id, reset, notes))
	b.Set(page2, page(c2, street, city, small, large))
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids %s /Count 2 >>", Refs(page1, page2)))

	b.Set(acroForm, fmt.Sprintf("<< /Fields %s /DA (/Helv 0 Tf 0 g) >>",
		Refs(name, agree, country, id, reset, notes, address, size)))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s /AcroForm %s >>", Ref(tree), Ref(acroForm)))

	info := b.Add(fmt.Sprintf("<< /Title (Sample Form) /Author %s /Producer (testpdf) >>", UTF16("Jürgen Ä")))
	return b.Bytes(catalog, info)
}
