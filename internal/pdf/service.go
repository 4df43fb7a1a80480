package pdf

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/filler"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/security"
)

// maxServiceFileSize caps the configurable file size limit
const maxServiceFileSize = 1024 * 1024 * 1024

// Service handles form operations on files inside the configured directory
type Service struct {
	maxFileSize   int64
	validator     *Validator
	pathValidator *security.PathValidator
	serverInfo    *PDFServerInfo

	debug       bool
	tempDir     string
	defaultDPI  float64
	compression png.CompressionLevel
}

// Option configures a Service
type Option func(*Service)

// WithDebug enables debug logging in the service and the documents it opens
func WithDebug(debug bool) Option {
	return func(s *Service) { s.debug = debug }
}

// WithTempDir sets the directory saves are staged in
func WithTempDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.tempDir = dir
		}
	}
}

// WithDefaultDPI sets the render resolution used when a request has none
func WithDefaultDPI(dpi float64) Option {
	return func(s *Service) {
		if dpi > 0 {
			s.defaultDPI = dpi
		}
	}
}

// WithPNGCompression sets the compression of rendered pages
func WithPNGCompression(level png.CompressionLevel) Option {
	return func(s *Service) { s.compression = level }
}

// NewService creates a new form service rooted at configuredDirectory
func NewService(maxFileSize int64, configuredDirectory string, opts ...Option) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	s := &Service{
		maxFileSize:   maxFileSize,
		validator:     NewValidator(maxFileSize),
		pathValidator: pathValidator,
		tempDir:       os.TempDir(),
		defaultDPI:    filler.DefaultDPI,
		compression:   png.DefaultCompression,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.serverInfo = NewPDFServerInfo(s)
	return s, nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// DefaultDPI returns the render resolution used when a request has none
func (s *Service) DefaultDPI() float64 {
	return s.defaultDPI
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}
	if s.maxFileSize > maxServiceFileSize {
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}
	return nil
}

func (s *Service) documentOptions() []filler.Option {
	return []filler.Option{
		filler.WithDebug(s.debug),
		filler.WithTempDir(s.tempDir),
		filler.WithDefaultDPI(s.defaultDPI),
		filler.WithPNGCompression(s.compression),
	}
}

// open validates path and loads the document behind it
func (s *Service) open(path, password string) (*filler.Document, string, int64, error) {
	normalized, err := s.pathValidator.NormalizePath(path)
	if err != nil {
		return nil, "", 0, fmt.Errorf("security validation failed: %w", err)
	}

	data, err := s.validator.ReadFile(normalized)
	if err != nil {
		return nil, "", 0, err
	}

	doc, err := filler.Open(data, password, s.documentOptions()...)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to open %s: %w", normalized, err)
	}
	return doc, normalized, int64(len(data)), nil
}

// FormInfo summarizes a PDF
func (s *Service) FormInfo(req FormInfoRequest) (*FormInfoResult, error) {
	doc, path, size, err := s.open(req.Path, req.Password)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	result := &FormInfoResult{
		Path:    path,
		Size:    size,
		Pages:   doc.PageCount(),
		Title:   doc.Title(),
		Author:  doc.Author(),
		HasForm: doc.HasForm(),
	}
	if result.HasForm {
		fields, err := doc.Fields()
		if err != nil {
			return nil, err
		}
		result.FieldCount = len(fields)
	}
	return result, nil
}

// FormFields lists the fields of a PDF, or one field when req.Name is set
func (s *Service) FormFields(req FormFieldsRequest) (*FormFieldsResult, error) {
	doc, path, _, err := s.open(req.Path, req.Password)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var fields []filler.FormField
	if req.Name != "" {
		field, err := doc.Field(req.Name)
		if err != nil {
			return nil, err
		}
		fields = []filler.FormField{field}
	} else {
		fields, err = doc.Fields()
		if err != nil {
			return nil, err
		}
	}

	return &FormFieldsResult{
		Path:       path,
		Fields:     fields,
		TotalCount: len(fields),
	}, nil
}

// FormFill applies the requested changes and writes the result. Changes are
// best-effort: failures are reported per field and the rest still apply.
func (s *Service) FormFill(req FormFillRequest) (*FormFillResult, error) {
	doc, path, _, err := s.open(req.Path, req.Password)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = DefaultOutputPath(path)
	}
	outputPath, err = s.pathValidator.ValidateOutputPath(outputPath)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	result := &FormFillResult{Path: path, OutputPath: outputPath}
	record := func(name string, err error) {
		if err == nil {
			result.Applied++
			return
		}
		result.Failed = append(result.Failed, FieldFailure{
			Name:  name,
			Kind:  pdferrors.KindOf(err).String(),
			Error: err.Error(),
		})
	}

	for _, v := range req.Values {
		record(v.Name, doc.SetFieldValue(v.Name, v.Value))
	}

	names := make([]string, 0, len(req.Checkboxes))
	for name := range req.Checkboxes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		record(name, doc.SetCheckbox(name, req.Checkboxes[name]))
	}

	if req.Flatten {
		if err := doc.Flatten(); err != nil {
			return nil, err
		}
		result.Flattened = true
	}

	if err := doc.SaveFile(outputPath); err != nil {
		return nil, err
	}
	if info, err := os.Stat(outputPath); err == nil {
		result.Size = info.Size()
	}

	if s.debug {
		log.Printf("Filled %s -> %s: %d applied, %d failed", path, outputPath, result.Applied, len(result.Failed))
	}
	return result, nil
}

// DefaultOutputPath returns "<dir>/<name>_filled.pdf" for the input path
func DefaultOutputPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), base+"_filled.pdf")
}

// FormRender renders one page of a PDF to PNG
func (s *Service) FormRender(req FormRenderRequest) (*FormRenderResult, error) {
	if req.Page < 1 {
		return nil, fmt.Errorf("page must be 1 or greater, got %d", req.Page)
	}
	if req.DPI > 0 && (req.DPI < filler.MinDPI || req.DPI > filler.MaxDPI) {
		return nil, fmt.Errorf("dpi must be between %d and %d, got %g", filler.MinDPI, filler.MaxDPI, req.DPI)
	}

	doc, path, _, err := s.open(req.Path, req.Password)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	dpi := req.DPI
	if dpi <= 0 {
		dpi = s.defaultDPI
	}

	data, err := doc.RenderPage(req.Page-1, dpi)
	if err != nil {
		return nil, err
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rendered page is not a valid PNG: %w", err)
	}

	result := &FormRenderResult{
		Path:   path,
		Page:   req.Page,
		DPI:    dpi,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   int64(len(data)),
		PNG:    data,
	}

	if req.OutputPath != "" {
		out, err := s.pathValidator.ValidateOutputPath(req.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write image: %w", err)
		}
		result.OutputPath = out
	}
	return result, nil
}
