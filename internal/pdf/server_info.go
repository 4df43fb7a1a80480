package pdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-filler/internal/descriptions"
)

const (
	serverInfoCacheTTL = 5 * time.Minute
	scanMaxDepth       = 5
	scanFileLimit      = 100
	scanTimeLimit      = 3 * time.Second
)

// errScanLimit stops a walk that reached the file limit
var errScanLimit = errors.New("scan limit reached")

// DirectoryCache keeps directory scan results for a fixed time
type DirectoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	scan    *ScanResult
	updated time.Time
}

// ScanResult is the outcome of one directory scan
type ScanResult struct {
	Files     []FileInfo
	FromCache bool
	Truncated bool
	ScanTime  time.Duration
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached scan of dir, or nil when absent or expired
func (c *DirectoryCache) Get(dir string) *ScanResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[dir]
	if !ok || time.Since(entry.updated) > c.ttl {
		return nil
	}
	scan := *entry.scan
	scan.FromCache = true
	return &scan
}

// Set stores the scan of dir
func (c *DirectoryCache) Set(dir string, scan *ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dir] = cacheEntry{scan: scan, updated: time.Now()}
}

// Clear removes expired entries
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for dir, entry := range c.entries {
		if time.Since(entry.updated) > c.ttl {
			delete(c.entries, dir)
		}
	}
}

// Len returns the number of cached directories
func (c *DirectoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// DirectoryScanner finds PDF files with depth, count and time limits
type DirectoryScanner struct {
	maxDepth  int
	fileLimit int
	timeLimit time.Duration
	validator *Validator
}

// NewDirectoryScanner creates a scanner. Files failing validator are skipped.
func NewDirectoryScanner(maxDepth, fileLimit int, timeLimit time.Duration, validator *Validator) *DirectoryScanner {
	return &DirectoryScanner{
		maxDepth:  maxDepth,
		fileLimit: fileLimit,
		timeLimit: timeLimit,
		validator: validator,
	}
}

// Scan walks root. Hidden entries and symlinks are skipped.
func (s *DirectoryScanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{Files: []FileInfo{}}
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entries are skipped
			return nil //nolint:nilerr
		}
		if s.timeLimit > 0 && time.Since(start) > s.timeLimit {
			result.Truncated = true
			return errScanLimit
		}

		if path != root && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if entry.IsDir() {
			depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if s.maxDepth > 0 && depth >= s.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := entry.Info()
		if err != nil || s.validator.ValidateFileInfo(path, info) != nil {
			return nil //nolint:nilerr
		}

		result.Files = append(result.Files, FileInfo{
			Path:         path,
			Name:         entry.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		if s.fileLimit > 0 && len(result.Files) >= s.fileLimit {
			result.Truncated = true
			return errScanLimit
		}
		return nil
	})

	result.ScanTime = time.Since(start)
	if errors.Is(err, errScanLimit) {
		err = nil
	}
	return result, err
}

// PDFServerInfo builds server info responses
type PDFServerInfo struct {
	cache   *DirectoryCache
	scanner *DirectoryScanner
	service *Service
}

// NewPDFServerInfo creates a server info handler for service
func NewPDFServerInfo(service *Service) *PDFServerInfo {
	return &PDFServerInfo{
		cache:   NewDirectoryCache(serverInfoCacheTTL),
		scanner: NewDirectoryScanner(scanMaxDepth, scanFileLimit, scanTimeLimit, service.validator),
		service: service,
	}
}

// ServerInfo returns server information, tools and the forms found in
// defaultDirectory. Scans are cached.
func (s *Service) ServerInfo(ctx context.Context, _ ServerInfoRequest, serverName, version,
	defaultDirectory string,
) (*ServerInfoResult, error) {
	return s.serverInfo.GetServerInfo(ctx, serverName, version, defaultDirectory)
}

// GetServerInfo performs the server info lookup
func (p *PDFServerInfo) GetServerInfo(ctx context.Context, serverName, version,
	defaultDirectory string,
) (*ServerInfoResult, error) {
	dir := defaultDirectory
	if err := p.service.pathValidator.ValidateDirectory(dir); err != nil {
		dir = p.service.pathValidator.GetConfiguredDirectory()
	}

	scan := p.cache.Get(dir)
	if scan == nil {
		var err error
		scan, err = p.scanner.Scan(ctx, dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			scan = &ScanResult{Files: []FileInfo{}}
		}
		p.cache.Set(dir, scan)
	}

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  dir,
		MaxFileSize:       p.service.maxFileSize,
		DefaultDPI:        p.service.defaultDPI,
		AvailableTools:    availableTools(),
		DirectoryContents: scan.Files,
		Truncated:         scan.Truncated,
		UsageGuidance:     p.usageGuidance(),
	}, nil
}

// ClearCache clears expired cache entries
func (p *PDFServerInfo) ClearCache() {
	p.cache.Clear()
}

func availableTools() []ToolInfo {
	const pathParam = "path (required): path to the PDF file, absolute or relative to the configured directory"
	return []ToolInfo{
		{
			Name:        "pdf_form_info",
			Description: descriptions.GetToolDescription("pdf_form_info"),
			Usage:       "Use this tool first to see page count, title, author and whether the PDF has form fields.",
			Parameters:  pathParam + ", password (optional)",
		},
		{
			Name:        "pdf_form_fields",
			Description: descriptions.GetToolDescription("pdf_form_fields"),
			Usage:       "Use this tool to learn field names, types, current values, options and positions.",
			Parameters:  pathParam + ", password (optional), name (optional): return only this field",
		},
		{
			Name:        "pdf_form_fill",
			Description: descriptions.GetToolDescription("pdf_form_fill"),
			Usage:       "Use this tool to set field values and save the filled form to a new file.",
			Parameters: pathParam + ", values (optional): object of field name to value, " +
				"checkboxes (optional): object of field name to true/false, flatten (optional), " +
				"output_path (optional), password (optional)",
		},
		{
			Name:        "pdf_form_render",
			Description: descriptions.GetToolDescription("pdf_form_render"),
			Usage:       "Use this tool to look at a page, for example to check filled values.",
			Parameters: pathParam + ", page (optional, default 1), dpi (optional), " +
				"output_path (optional): also write the PNG here, password (optional)",
		},
		{
			Name:        "pdf_server_info",
			Description: descriptions.GetToolDescription("pdf_server_info"),
			Usage:       "Use this tool to get server information and the forms available in the configured directory.",
			Parameters:  "No parameters required",
		},
	}
}

func (p *PDFServerInfo) usageGuidance() string {
	return fmt.Sprintf(`PDF Form Server Usage Guide:

1. DISCOVER:
   - Use 'pdf_server_info' to list the PDF files in the configured directory
   - Use 'pdf_form_info' to check whether a file has fillable fields

2. INSPECT:
   - Use 'pdf_form_fields' to get field names, types, values and options
   - Use the full_name of a field when filling

3. FILL:
   - Use 'pdf_form_fill' with a values object; choice fields accept only listed options
   - Checkboxes and radio buttons take true/false (also 1, yes, on or the export value)
   - Failed fields are reported individually; the others are still saved

4. CHECK:
   - Use 'pdf_form_render' on the filled file to see the result as an image

IMPORTANT NOTES:
- Paths must be inside %s
- The server can handle files up to %dMB
- Pages are numbered from 1; the default render resolution is %.0f dpi`,
		p.service.pathValidator.GetConfiguredDirectory(),
		p.service.maxFileSize/(1024*1024),
		p.service.defaultDPI)
}
