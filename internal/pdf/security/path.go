package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator keeps tool file access inside one configured directory
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	// The directory may not exist yet; config creates it on startup.
	return &PathValidator{
		configuredDirectory: configuredDirectory,
	}, nil
}

// GetConfiguredDirectory returns the configured directory path
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// ValidatePath checks that path lies within the configured directory
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	within, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}
	return nil
}

// IsPathWithinDirectory reports whether path, after cleaning and symlink
// resolution, lies within the configured directory.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(v.configuredDirectory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	dirs := []string{filepath.Clean(absDir)}
	if realDir, err := filepath.EvalSymlinks(absDir); err == nil && realDir != dirs[0] {
		dirs = append(dirs, realDir)
	}

	// Both the literal path and its resolved target must stay inside.
	for _, p := range []string{filepath.Clean(absPath), resolveExisting(absPath)} {
		if !withinAny(p, dirs) {
			return false, nil
		}
	}
	return true, nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of path,
// so paths of files that are about to be created resolve too.
func resolveExisting(path string) string {
	path = filepath.Clean(path)
	var rest []string
	for p := path; ; p = filepath.Dir(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved
		}
		parent := filepath.Dir(p)
		if parent == p {
			return path
		}
		rest = append(rest, filepath.Base(p))
	}
}

func withinAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		if path == dir {
			return true
		}
		prefix := dir
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// NormalizePath returns an absolute path inside the configured directory.
// Relative paths are taken relative to the configured directory.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// ValidateOutputPath normalizes a path a file is about to be written to. The
// file may not exist, but its parent directory must.
func (v *PathValidator) ValidateOutputPath(path string) (string, error) {
	normalized, err := v.NormalizePath(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(filepath.Dir(normalized))
	if err != nil {
		return "", fmt.Errorf("output directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output parent is not a directory: %s", filepath.Dir(normalized))
	}
	if fi, err := os.Stat(normalized); err == nil && fi.IsDir() {
		return "", fmt.Errorf("output path is a directory: %s", normalized)
	}
	return normalized, nil
}

// ValidateDirectory checks that dirPath lies within the configured directory
// and, when it exists, is a directory.
func (v *PathValidator) ValidateDirectory(dirPath string) error {
	if err := v.ValidatePath(dirPath); err != nil {
		return err
	}

	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dirPath)
	}
	return nil
}
