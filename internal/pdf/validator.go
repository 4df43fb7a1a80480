package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// pdfHeader must appear near the start of every PDF file
var pdfHeader = []byte("%PDF-")

// headerWindow is how far into a file the header may start
const headerWindow = 1024

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ReadFile validates filePath and returns its contents
func (v *Validator) ReadFile(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	// The file may grow between Stat and Read.
	data, err := io.ReadAll(io.LimitReader(f, v.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > v.maxFileSize {
		return nil, fmt.Errorf("file too large: more than %d bytes", v.maxFileSize)
	}

	if !HasPDFHeader(data) {
		return nil, fmt.Errorf("invalid PDF file: missing %%PDF- header: %s", filePath)
	}
	return data, nil
}

// HasPDFHeader reports whether data starts, within the first kilobyte, with
// a PDF header.
func HasPDFHeader(data []byte) bool {
	if len(data) > headerWindow {
		data = data[:headerWindow]
	}
	return bytes.Contains(data, pdfHeader)
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}
