package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/filler"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "fields":
		err = runFields(args[1:], stdout)
	case "fill":
		err = runFill(args[1:], stdout, stderr)
	case "render":
		err = runRender(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "pdf_fill - inspect, fill and render PDF forms")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_fill fields [--json] [--password PW] <file.pdf>")
	fmt.Fprintln(w, "  pdf_fill fill [--values FILE.yaml] [--set NAME=VALUE]... [--flatten] [-o OUT.pdf] <file.pdf>")
	fmt.Fprintln(w, "  pdf_fill render [--page N] [--dpi DPI] [-o OUT.png] <file.pdf>")
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// openDocument parses the single positional argument and loads it
func openDocument(fs *pflag.FlagSet, password string, opts ...filler.Option) (*filler.Document, string, error) {
	if fs.NArg() != 1 {
		return nil, "", fmt.Errorf("%s: expected exactly one PDF file", fs.Name())
	}
	path := fs.Arg(0)

	doc := filler.New(opts...)
	if err := doc.LoadFile(path, password); err != nil {
		return nil, "", err
	}
	return doc, path, nil
}

func runFields(args []string, stdout io.Writer) error {
	fs := newFlagSet("fields")
	password := fs.String("password", "", "Document password")
	asJSON := fs.Bool("json", false, "Print fields as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, path, err := openDocument(fs, *password)
	if err != nil {
		return err
	}
	defer doc.Close()

	fields, err := doc.Fields()
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	}

	fmt.Fprintf(stdout, "%s: %d page(s), %d field(s)\n", path, doc.PageCount(), len(fields))
	for _, f := range fields {
		line := fmt.Sprintf("%s\t%s\t%q", f.FullName, f.Type, f.Value)
		if f.ReadOnly {
			line += "\tread-only"
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}

func runFill(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("fill")
	password := fs.String("password", "", "Document password")
	valuesFile := fs.String("values", "", "YAML file with field values")
	sets := fs.StringArray("set", nil, "Field assignment NAME=VALUE, repeatable")
	flatten := fs.Bool("flatten", false, "Flatten the form after filling")
	strict := fs.Bool("strict", false, "Do not save when any value fails")
	output := fs.StringP("output", "o", "", "Output path (default <name>_filled.pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var values []filler.FieldValue
	if *valuesFile != "" {
		fromFile, err := readValuesFile(*valuesFile)
		if err != nil {
			return err
		}
		values = append(values, fromFile...)
	}
	assigned, err := parseAssignments(*sets)
	if err != nil {
		return err
	}
	values = append(values, assigned...)

	if len(values) == 0 && !*flatten {
		return errors.New("nothing to fill: use --values, --set or --flatten")
	}

	doc, path, err := openDocument(fs, *password)
	if err != nil {
		return err
	}
	defer doc.Close()

	if err := doc.SetFieldValues(values); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(stderr, "warning: %s\n", line)
		}
		if *strict {
			return errors.New("some values could not be applied, nothing saved")
		}
	}

	if *flatten {
		if err := doc.Flatten(); err != nil {
			return err
		}
	}

	out := *output
	if out == "" {
		out = pdf.DefaultOutputPath(path)
	}
	if err := doc.SaveFile(out); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Saved %s\n", out)
	return nil
}

func runRender(args []string, stdout io.Writer) error {
	fs := newFlagSet("render")
	password := fs.String("password", "", "Document password")
	page := fs.Int("page", 1, "Page number, starting at 1")
	dpi := fs.Float64("dpi", filler.DefaultDPI, "Render resolution")
	output := fs.StringP("output", "o", "", "Output path (default <name>_page<N>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", *page)
	}

	doc, path, err := openDocument(fs, *password)
	if err != nil {
		return err
	}
	defer doc.Close()

	data, err := doc.RenderPage(*page-1, *dpi)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		out = fmt.Sprintf("%s_page%d.png", base, *page)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Fprintf(stdout, "Rendered page %d to %s (%d bytes)\n", *page, out, len(data))
	return nil
}
