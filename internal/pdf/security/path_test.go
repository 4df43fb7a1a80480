package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestValidator(t *testing.T) (*PathValidator, string) {
	t.Helper()
	dir := t.TempDir()
	validator, err := NewPathValidator(dir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	return validator, dir
}

func TestNewPathValidator(t *testing.T) {
	if _, err := NewPathValidator(""); err == nil {
		t.Error("Expected error for empty directory")
	}

	validator, err := NewPathValidator("/non/existent/path")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if validator.GetConfiguredDirectory() != "/non/existent/path" {
		t.Errorf("GetConfiguredDirectory() = %s", validator.GetConfiguredDirectory())
	}
}

func TestPathValidator_ValidatePath(t *testing.T) {
	validator, dir := newTestValidator(t)

	subDir := filepath.Join(dir, "subdir")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"empty path", "", true},
		{"file in root", filepath.Join(dir, "form.pdf"), false},
		{"file in subdirectory", filepath.Join(subDir, "form.pdf"), false},
		{"the directory itself", dir, false},
		{"file outside directory", "/etc/passwd", true},
		{"parent directory traversal", filepath.Join(dir, "..", "outside.pdf"), true},
		{"dot segment", filepath.Join(dir, ".", "form.pdf"), false},
		{"sibling with shared prefix", dir + "-other/form.pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidatePath(tt.path)
			if tt.wantError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestPathValidator_Symlinks(t *testing.T) {
	validator, dir := newTestValidator(t)
	outside := t.TempDir()

	target := filepath.Join(dir, "target.pdf")
	if err := os.WriteFile(target, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create target file: %v", err)
	}
	inside := filepath.Join(dir, "inside.pdf")
	escape := filepath.Join(dir, "escape")
	if err := os.Symlink(target, inside); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(outside, escape); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if ok, err := validator.IsPathWithinDirectory(inside); err != nil || !ok {
		t.Errorf("symlink within directory: got %v, %v", ok, err)
	}
	if ok, err := validator.IsPathWithinDirectory(escape); err != nil || ok {
		t.Errorf("symlink escaping directory: got %v, %v", ok, err)
	}
	// A file that does not exist yet behind an escaping link.
	if ok, err := validator.IsPathWithinDirectory(filepath.Join(escape, "new.pdf")); err != nil || ok {
		t.Errorf("new file behind escaping symlink: got %v, %v", ok, err)
	}
}

func TestPathValidator_NormalizePath(t *testing.T) {
	validator, dir := newTestValidator(t)

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"empty path", "", true},
		{"relative path", "form.pdf", false},
		{"absolute path within directory", filepath.Join(dir, "form.pdf"), false},
		{"path with ..", "../outside.pdf", true},
		{"path with .", "./form.pdf", false},
		{"null bytes removed", "fo\x00rm.pdf", false},
		{"deep traversal", "../../../etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.NormalizePath(tt.path)
			if tt.wantError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !filepath.IsAbs(result) {
				t.Errorf("Expected absolute path but got: %s", result)
			}
			if !strings.HasPrefix(result, dir) {
				t.Errorf("Expected path to be within %s but got: %s", dir, result)
			}
			if strings.Contains(result, "\x00") {
				t.Errorf("Null byte survived normalization: %q", result)
			}
		})
	}
}

func TestPathValidator_ValidateOutputPath(t *testing.T) {
	validator, dir := newTestValidator(t)

	subDir := filepath.Join(dir, "out")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	got, err := validator.ValidateOutputPath("out/filled.pdf")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != filepath.Join(subDir, "filled.pdf") {
		t.Errorf("ValidateOutputPath() = %s", got)
	}

	if _, err := validator.ValidateOutputPath("missing/filled.pdf"); err == nil {
		t.Error("Expected error for missing parent directory")
	}
	if _, err := validator.ValidateOutputPath("out"); err == nil {
		t.Error("Expected error when the output path is a directory")
	}
	if _, err := validator.ValidateOutputPath("../filled.pdf"); err == nil {
		t.Error("Expected error for output outside directory")
	}
}

func TestPathValidator_ValidateDirectory(t *testing.T) {
	validator, dir := newTestValidator(t)

	subDir := filepath.Join(dir, "subdir")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	testFile := filepath.Join(dir, "form.pdf")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"valid subdirectory", subDir, false},
		{"file instead of directory", testFile, true},
		{"non-existent directory", filepath.Join(dir, "nonexistent"), false},
		{"directory outside bounds", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDirectory(tt.path)
			if tt.wantError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
