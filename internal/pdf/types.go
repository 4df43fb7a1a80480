package pdf

import "github.com/a3tai/mcp-pdf-filler/internal/pdf/filler"

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// FormInfoRequest asks for a summary of one PDF
type FormInfoRequest struct {
	Path     string `json:"path"`
	Password string `json:"password,omitempty"`
}

// FormFieldsRequest asks for the fields of one PDF. When Name is set only
// that field is returned.
type FormFieldsRequest struct {
	Path     string `json:"path"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty"`
}

// FormFillRequest describes a set of changes to apply to a form.
// OutputPath defaults to "<name>_filled.pdf" next to the input.
type FormFillRequest struct {
	Path       string              `json:"path"`
	Password   string              `json:"password,omitempty"`
	OutputPath string              `json:"output_path,omitempty"`
	Values     []filler.FieldValue `json:"values,omitempty"`
	Checkboxes map[string]bool     `json:"checkboxes,omitempty"`
	Flatten    bool                `json:"flatten,omitempty"`
}

// FormRenderRequest asks for one page as PNG. Page is 1-based; a zero DPI
// uses the server default.
type FormRenderRequest struct {
	Path       string  `json:"path"`
	Password   string  `json:"password,omitempty"`
	Page       int     `json:"page"`
	DPI        float64 `json:"dpi,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
}

// ServerInfoRequest represents a request to get server information and capabilities
type ServerInfoRequest struct{}

// Response Types

// FormInfoResult summarizes a PDF
type FormInfoResult struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	Pages      int    `json:"pages"`
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
	HasForm    bool   `json:"has_form"`
	FieldCount int    `json:"field_count"`
}

// FormFieldsResult lists the fields of a PDF
type FormFieldsResult struct {
	Path       string             `json:"path"`
	Fields     []filler.FormField `json:"fields"`
	TotalCount int                `json:"total_count"`
}

// FieldFailure records one change that could not be applied
type FieldFailure struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// FormFillResult reports the outcome of a fill
type FormFillResult struct {
	Path       string         `json:"path"`
	OutputPath string         `json:"output_path"`
	Applied    int            `json:"applied"`
	Failed     []FieldFailure `json:"failed,omitempty"`
	Flattened  bool           `json:"flattened"`
	Size       int64          `json:"size"`
}

// FormRenderResult carries a rendered page
type FormRenderResult struct {
	Path       string  `json:"path"`
	Page       int     `json:"page"`
	DPI        float64 `json:"dpi"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Size       int64   `json:"size"`
	OutputPath string  `json:"output_path,omitempty"`
	PNG        []byte  `json:"-"`
}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	DefaultDPI        float64    `json:"default_dpi"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	Truncated         bool       `json:"truncated,omitempty"`
	UsageGuidance     string     `json:"usage_guidance"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}
