package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/raster"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/testpdf"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/textcodec"
)

func openForm(t *testing.T) *Document {
	t.Helper()
	doc, err := Open(testpdf.Form(), "", "")
	require.NoError(t, err)
	return doc
}

// findField walks the tree for a field with the given decoded full name.
func findField(t *testing.T, doc *Document, name string) *Field {
	t.Helper()
	var found *Field
	var walk func(f *Field)
	walk = func(f *Field) {
		if textcodec.Decode(f.FullName()) == name {
			found = f
		}
		for i := 0; i < f.NumChildren(); i++ {
			walk(f.Child(i))
		}
	}
	form := doc.Form()
	require.NotNil(t, form)
	for i := 0; i < form.NumFields(); i++ {
		walk(form.RootField(i))
	}
	require.NotNil(t, found, "field %s", name)
	return found
}

func TestInit_Once(t *testing.T) {
	reset()
	assert.False(t, Initialized())

	Init()
	assert.True(t, Initialized())
	first := globalConf

	Init()
	assert.Same(t, first, globalConf)

	reset()
	assert.False(t, Initialized())

	// Open initializes lazily.
	_, err := Open(testpdf.Plain(1), "", "")
	require.NoError(t, err)
	assert.True(t, Initialized())
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not a pdf file at all")},
		{"truncated", testpdf.Form()[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Open(tt.data, "", "")
			require.Error(t, err)
			assert.Nil(t, doc)

			var engErr *Error
			require.True(t, errors.As(err, &engErr))
			assert.NotEqual(t, CodeNone, engErr.Code)
		})
	}
}

func TestDocument_PagesAndInfo(t *testing.T) {
	doc := openForm(t)

	assert.Equal(t, 2, doc.PageCount())
	assert.False(t, doc.IsEncrypted())
	assert.False(t, doc.Modified())

	title, ok := doc.Info("Title")
	require.True(t, ok)
	assert.Equal(t, "Sample Form", textcodec.Decode(title))

	author, ok := doc.Info("Author")
	require.True(t, ok)
	assert.True(t, textcodec.IsUTF16(author))
	assert.Equal(t, "Jürgen Ä", textcodec.Decode(author))

	_, ok = doc.Info("Subject")
	assert.False(t, ok)
}

func TestDocument_NoForm(t *testing.T) {
	doc, err := Open(testpdf.Plain(3), "", "")
	require.NoError(t, err)

	assert.Equal(t, 3, doc.PageCount())
	assert.Nil(t, doc.Form())
}

func TestForm_Tree(t *testing.T) {
	doc := openForm(t)
	form := doc.Form()
	require.NotNil(t, form)

	assert.Equal(t, 8, form.NumFields())
	assert.Nil(t, form.RootField(-1))
	assert.Nil(t, form.RootField(8))

	address := findField(t, doc, "address")
	assert.Equal(t, 0, address.NumWidgets())
	assert.Equal(t, 2, address.NumChildren())

	city := findField(t, doc, testpdf.FieldCity)
	assert.Equal(t, "city", string(city.PartialName()))
	assert.Equal(t, KindText, city.Kind(), "FT is inherited from the container")
	assert.Equal(t, 1, city.NumWidgets())
	assert.Equal(t, 2, city.Widget(0).PageNum())

	size := findField(t, doc, testpdf.FieldSize)
	assert.Equal(t, KindButton, size.Kind())
	assert.Equal(t, ButtonRadio, size.ButtonType())
	assert.Equal(t, 2, size.NumWidgets())
	assert.Equal(t, "S", size.Widget(0).OnStr())
	assert.Equal(t, "L", size.Widget(1).OnStr())

	notes := findField(t, doc, testpdf.FieldNotes)
	assert.True(t, textcodec.IsUTF16(notes.FullName()))
}

func TestField_FlagsAndGeometry(t *testing.T) {
	doc := openForm(t)

	name := findField(t, doc, testpdf.FieldName)
	assert.True(t, name.IsRequired())
	assert.False(t, name.IsReadOnly())

	id := findField(t, doc, testpdf.FieldID)
	assert.True(t, id.IsReadOnly())

	x1, y1, x2, y2 := name.Widget(0).Rect()
	assert.Equal(t, []float64{100, 700, 300, 720}, []float64{x1, y1, x2, y2})
	assert.Equal(t, 1, name.Widget(0).PageNum())

	reset := findField(t, doc, testpdf.FieldReset)
	assert.Equal(t, ButtonPush, reset.ButtonType())
	assert.False(t, reset.SetState("Yes"))
}

func TestField_TextContent(t *testing.T) {
	doc := openForm(t)
	name := findField(t, doc, testpdf.FieldName)

	assert.Equal(t, "John", textcodec.Decode(name.Content()))
	assert.Equal(t, "Jane", textcodec.Decode(name.DefaultContent()))

	name.SetContent(textcodec.Encode("Zoë"))
	assert.Equal(t, "Zoë", textcodec.Decode(name.Content()))
	assert.True(t, doc.Modified())
}

func TestField_Choices(t *testing.T) {
	doc := openForm(t)
	country := findField(t, doc, testpdf.FieldCountry)

	choices := country.Choices()
	require.Len(t, choices, 3)
	assert.Equal(t, "us", string(choices[0].Export))
	assert.Equal(t, "United States", string(choices[0].Display))
	assert.Nil(t, choices[2].Export)
	assert.Equal(t, "France", string(choices[2].Display))

	assert.Equal(t, []int{0}, country.Selected())

	require.True(t, country.Select(1))
	assert.Equal(t, []int{1}, country.Selected())
	assert.Equal(t, "de", string(country.Content()))

	require.True(t, country.Select(2))
	assert.Equal(t, []int{2}, country.Selected())

	assert.False(t, country.Select(3))
	assert.Equal(t, []int{2}, country.Selected())
}

func TestField_ButtonState(t *testing.T) {
	doc := openForm(t)

	agree := findField(t, doc, testpdf.FieldAgree)
	assert.Equal(t, ButtonCheck, agree.ButtonType())
	assert.Equal(t, "On", agree.OnStr())
	assert.False(t, agree.State())

	require.True(t, agree.SetState("On"))
	assert.True(t, agree.State())
	assert.Equal(t, "On", agree.Widget(0).AppearanceState())

	require.True(t, agree.SetState("Off"))
	assert.False(t, agree.State())

	size := findField(t, doc, testpdf.FieldSize)
	assert.True(t, size.State())
	require.True(t, size.SetState("L"))
	assert.Equal(t, "L", size.StateName())
	assert.Equal(t, "Off", size.Widget(0).AppearanceState())
	assert.Equal(t, "L", size.Widget(1).AppearanceState())
}

func TestSaveAs_Standard(t *testing.T) {
	src := testpdf.Form()
	doc, err := Open(src, "", "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, doc.SaveAs(path, WriteStandard))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestSaveAs_ForceRewrite(t *testing.T) {
	doc := openForm(t)
	findField(t, doc, testpdf.FieldName).SetContent(textcodec.Encode("Test Value"))
	require.True(t, findField(t, doc, testpdf.FieldAgree).SetState("On"))
	require.True(t, findField(t, doc, testpdf.FieldCountry).Select(1))
	doc.Form().SetNeedAppearances(true)

	dir := t.TempDir()
	for _, name := range []string{"first.pdf", "second.pdf"} {
		path := filepath.Join(dir, name)
		require.NoError(t, doc.SaveAs(path, WriteForceRewrite))

		out, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-", string(out[:5]))

		reread, err := Open(out, "", "")
		require.NoError(t, err, name)
		assert.Equal(t, 2, reread.PageCount())
		assert.True(t, reread.Form().NeedAppearances())
		assert.Equal(t, "Test Value", textcodec.Decode(findField(t, reread, testpdf.FieldName).Content()))
		assert.True(t, findField(t, reread, testpdf.FieldAgree).State())
		assert.Equal(t, []int{1}, findField(t, reread, testpdf.FieldCountry).Selected())
	}
}

func TestSaveAs_BadPath(t *testing.T) {
	doc := openForm(t)
	err := doc.SaveAs(filepath.Join(t.TempDir(), "missing", "out.pdf"), WriteForceRewrite)
	require.Error(t, err)

	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, CodeOpenFile, engErr.Code)
}

func TestDisplayPage(t *testing.T) {
	doc := openForm(t)

	dev := raster.NewDevice(raster.White, false)
	defer dev.Close()
	require.NoError(t, doc.DisplayPage(dev, 1, 72, 72, 0, true, false, false))

	bm := dev.Bitmap()
	require.NotNil(t, bm)
	assert.Equal(t, 612, bm.Width)
	assert.Equal(t, 792, bm.Height)
	assert.GreaterOrEqual(t, bm.Stride, bm.Width*3)
	assert.True(t, hasInk(bm), "page text should leave dark pixels")
}

func TestDisplayPage_Rotation(t *testing.T) {
	doc := openForm(t)

	dev := raster.NewDevice(raster.White, false)
	require.NoError(t, doc.DisplayPage(dev, 2, 36, 36, 90, true, false, true))

	bm := dev.Bitmap()
	assert.Equal(t, 396, bm.Width)
	assert.Equal(t, 306, bm.Height)
}

func TestDisplayPage_BadPage(t *testing.T) {
	doc := openForm(t)
	dev := raster.NewDevice(raster.White, false)

	for _, page := range []int{0, 3, -1} {
		err := doc.DisplayPage(dev, page, 72, 72, 0, true, false, false)
		var engErr *Error
		require.True(t, errors.As(err, &engErr))
		assert.Equal(t, CodeBadPageNum, engErr.Code)
	}
	assert.Nil(t, dev.Bitmap())
}

func TestForm_ParentWithOwnWidget(t *testing.T) {
	b := testpdf.New()
	catalog := b.Reserve()
	tree := b.Reserve()
	parent := b.Reserve()
	kid := b.Add(fmt.Sprintf("<< /Subtype /Widget /Rect [0 20 10 30] /T (kid) /Parent %s >>", testpdf.Ref(parent)))
	b.Set(parent, fmt.Sprintf("<< /Subtype /Widget /Rect [0 0 10 10] /FT /Tx /T (both) /Kids %s >>", testpdf.Refs(kid)))
	page := b.Page(tree, "", parent, kid)
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids %s /Count 1 >>", testpdf.Refs(page)))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s /AcroForm << /Fields %s >> >>",
		testpdf.Ref(tree), testpdf.Refs(parent)))

	doc, err := Open(b.Bytes(catalog, 0), "", "")
	require.NoError(t, err)

	both := findField(t, doc, "both")
	require.Equal(t, 1, both.NumWidgets())
	x1, y1, x2, y2 := both.Widget(0).Rect()
	assert.Equal(t, []float64{0, 0, 10, 10}, []float64{x1, y1, x2, y2})
	assert.Equal(t, 1, both.Widget(0).PageNum())

	require.Equal(t, 1, both.NumChildren())
	assert.Equal(t, 1, both.Child(0).NumWidgets())
	assert.Equal(t, KindText, both.Child(0).Kind())
}

func TestDisplayPage_DamagedContent(t *testing.T) {
	b := testpdf.New()
	catalog := b.Reserve()
	tree := b.Reserve()
	page := b.Page(tree, "BT\n1 2 Tj\nET")
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids %s /Count 1 >>", testpdf.Refs(page)))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s >>", testpdf.Ref(tree)))

	doc, err := Open(b.Bytes(catalog, 0), "", "")
	require.NoError(t, err)

	dev := raster.NewDevice(raster.White, false)
	defer dev.Close()
	err = doc.DisplayPage(dev, 1, 36, 36, 0, true, false, false)
	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, CodeDamaged, engErr.Code)
	assert.Contains(t, err.Error(), "content stream")
}

func hasInk(b *raster.Buffer) bool {
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		for x := 0; x < b.Width; x++ {
			if row[x*3] < 0x80 {
				return true
			}
		}
	}
	return false
}
