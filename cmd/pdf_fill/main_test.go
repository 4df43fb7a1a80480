package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/filler"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/testpdf"
)

func writeForm(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "form.pdf")
	require.NoError(t, os.WriteFile(path, testpdf.Form(), 0o644))
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI()
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "USAGE")

	code, _, stderr = runCLI("explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "explode"`)

	code, stdout, _ := runCLI("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "pdf_fill fill")
}

func TestRun_Fields(t *testing.T) {
	path := writeForm(t)

	code, stdout, stderr := runCLI("fields", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "2 page(s), 9 field(s)")
	assert.Contains(t, stdout, testpdf.FieldCity+"\ttext\t\"Berlin\"")
	assert.Contains(t, stdout, testpdf.FieldID+"\ttext")
	assert.Contains(t, stdout, "read-only")

	code, stdout, stderr = runCLI("fields", "--json", path)
	require.Equal(t, 0, code, stderr)
	var fields []filler.FormField
	require.NoError(t, json.Unmarshal([]byte(stdout), &fields))
	assert.Len(t, fields, 9)

	code, _, stderr = runCLI("fields")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "expected exactly one PDF file")

	code, _, _ = runCLI("fields", filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Equal(t, 1, code)
}

func TestRun_Fill(t *testing.T) {
	path := writeForm(t)
	valuesFile := filepath.Join(filepath.Dir(path), "values.yaml")
	require.NoError(t, os.WriteFile(valuesFile, []byte(
		testpdf.FieldName+": Ada Lovelace\n"+
			testpdf.FieldAgree+": true\n"+
			testpdf.FieldCountry+": Germany\n"), 0o644))

	code, stdout, stderr := runCLI("fill", "--values", valuesFile,
		"--set", testpdf.FieldCity+"=Paris", "--set", "missing=x", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "warning:")

	out := filepath.Join(filepath.Dir(path), "form_filled.pdf")
	assert.Contains(t, stdout, "Saved "+out)

	doc := filler.New()
	require.NoError(t, doc.LoadFile(out, ""))
	defer doc.Close()

	want := map[string]string{
		testpdf.FieldName:    "Ada Lovelace",
		testpdf.FieldCountry: "Germany",
		testpdf.FieldCity:    "Paris",
	}
	for name, value := range want {
		f, err := doc.Field(name)
		require.NoError(t, err)
		assert.Equal(t, value, f.Value, name)
	}
	agree, err := doc.Field(testpdf.FieldAgree)
	require.NoError(t, err)
	assert.True(t, agree.IsChecked)
}

func TestRun_FillStrictAndFlatten(t *testing.T) {
	path := writeForm(t)
	dir := filepath.Dir(path)

	strictOut := filepath.Join(dir, "strict.pdf")
	code, _, stderr := runCLI("fill", "--strict", "--set", "missing=x", "-o", strictOut, path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "nothing saved")
	assert.NoFileExists(t, strictOut)

	flatOut := filepath.Join(dir, "flat.pdf")
	code, _, stderr = runCLI("fill", "--flatten", "-o", flatOut, path)
	require.Equal(t, 0, code, stderr)

	doc := filler.New()
	require.NoError(t, doc.LoadFile(flatOut, ""))
	defer doc.Close()
	fields, err := doc.Fields()
	require.NoError(t, err)
	assert.Len(t, fields, 9)

	code, _, stderr = runCLI("fill", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "nothing to fill")

	code, _, stderr = runCLI("fill", "--set", "novalue", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "expected name=value")
}

func TestRun_Render(t *testing.T) {
	path := writeForm(t)

	code, stdout, stderr := runCLI("render", "--page", "2", "--dpi", "36", path)
	require.Equal(t, 0, code, stderr)

	out := filepath.Join(filepath.Dir(path), "form_page2.png")
	assert.Contains(t, stdout, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 306, cfg.Width)
	assert.Equal(t, 396, cfg.Height)

	code, _, _ = runCLI("render", "--page", "3", path)
	assert.Equal(t, 1, code)

	code, _, stderr = runCLI("render", "--page", "0", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "page must be at least 1")
}

func TestParseValues(t *testing.T) {
	values, err := parseValues([]byte("b: 2\na: yes\nc: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []filler.FieldValue{
		{Name: "b", Value: "2"},
		{Name: "a", Value: "yes"},
		{Name: "c", Value: ""},
	}, values)

	values, err = parseValues([]byte("- name: x\n  value: one\n- name: x\n  value: two\n"))
	require.NoError(t, err)
	assert.Equal(t, []filler.FieldValue{{Name: "x", Value: "one"}, {Name: "x", Value: "two"}}, values)

	values, err = parseValues(nil)
	require.NoError(t, err)
	assert.Empty(t, values)

	for _, bad := range []string{
		"a: [1, 2]\n",
		"- value: nameless\n",
		"just a string\n",
		"a: [unclosed\n",
	} {
		_, err := parseValues([]byte(bad))
		assert.Error(t, err, bad)
	}
}
