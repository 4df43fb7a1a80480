package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-filler/internal/config"
	"github.com/a3tai/mcp-pdf-filler/internal/descriptions"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/filler"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP transport
const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool set is fixed
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	pathParam := mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the PDF file, absolute or relative to the configured directory"),
	)
	passwordParam := mcp.WithString("password",
		mcp.Description("Password of an encrypted PDF"),
	)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_info")),
		pathParam,
		passwordParam,
	), s.handleFormInfo)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_fields",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_fields")),
		pathParam,
		passwordParam,
		mcp.WithString("name",
			mcp.Description("Return only the field with this name"),
		),
	), s.handleFormFields)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_fill",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_fill")),
		pathParam,
		passwordParam,
		mcp.WithObject("values",
			mcp.Description("Field name to value. Choice fields take one of their options, "+
				"checkboxes and radios take true/false"),
		),
		mcp.WithObject("checkboxes",
			mcp.Description("Field name to checked state"),
		),
		mcp.WithBoolean("flatten",
			mcp.Description("Mark the filled form as flattened"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the filled PDF (default: <name>_filled.pdf next to the input)"),
		),
	), s.handleFormFill)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_form_render",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_form_render")),
		pathParam,
		passwordParam,
		mcp.WithNumber("page",
			mcp.Description("Page number, starting at 1 (default 1)"),
		),
		mcp.WithNumber("dpi",
			mcp.Description("Render resolution between 18 and 600 (default: server setting)"),
		),
		mcp.WithString("output_path",
			mcp.Description("Also write the PNG to this path"),
		),
	), s.handleFormRender)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	), s.handleServerInfo)
}

// Handler functions
func (s *Server) handleFormInfo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.FormInfo(pdf.FormInfoRequest{
		Path:     path,
		Password: request.GetString("password", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFormInfoResult(result)), nil
}

func (s *Server) handleFormFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.FormFields(pdf.FormFieldsRequest{
		Path:     path,
		Password: request.GetString("password", ""),
		Name:     request.GetString("name", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFormFieldsResult(result)), nil
}

func (s *Server) handleFormFill(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	values, err := fieldValues(args["values"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	checkboxes, err := checkboxStates(args["checkboxes"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(values) == 0 && len(checkboxes) == 0 && !request.GetBool("flatten", false) {
		return mcp.NewToolResultError("nothing to fill: provide values, checkboxes or flatten"), nil
	}

	result, err := s.pdfService.FormFill(pdf.FormFillRequest{
		Path:       path,
		Password:   request.GetString("password", ""),
		OutputPath: request.GetString("output_path", ""),
		Values:     values,
		Checkboxes: checkboxes,
		Flatten:    request.GetBool("flatten", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFormFillResult(result)), nil
}

func (s *Server) handleFormRender(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.FormRender(pdf.FormRenderRequest{
		Path:       path,
		Password:   request.GetString("password", ""),
		Page:       request.GetInt("page", 1),
		DPI:        request.GetFloat("dpi", 0),
		OutputPath: request.GetString("output_path", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Page %d of %s rendered at %.0f dpi: %dx%d pixels, %d bytes",
		result.Page, result.Path, result.DPI, result.Width, result.Height, result.Size)
	if result.OutputPath != "" {
		text += fmt.Sprintf("\nSaved to: %s", result.OutputPath)
	}
	return mcp.NewToolResultImage(text, base64.StdEncoding.EncodeToString(result.PNG), "image/png"), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(ctx, pdf.ServerInfoRequest{},
		s.config.ServerName, s.config.Version, s.config.PDFDirectory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatServerInfoResult(result)), nil
}

// fieldValues turns a {"name": value} argument into ordered field values.
// Scalars are accepted and formatted; names are sorted for a stable order.
func fieldValues(arg interface{}) ([]filler.FieldValue, error) {
	if arg == nil {
		return nil, nil
	}
	m, ok := arg.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("values must be an object of field name to value")
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]filler.FieldValue, 0, len(m))
	for _, name := range names {
		switch v := m[name].(type) {
		case string:
			values = append(values, filler.FieldValue{Name: name, Value: v})
		case bool, float64, int, int64:
			values = append(values, filler.FieldValue{Name: name, Value: fmt.Sprint(v)})
		default:
			return nil, fmt.Errorf("value of field %q must be a string, number or boolean", name)
		}
	}
	return values, nil
}

// checkboxStates turns a {"name": bool} argument into a map
func checkboxStates(arg interface{}) (map[string]bool, error) {
	if arg == nil {
		return nil, nil
	}
	m, ok := arg.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("checkboxes must be an object of field name to boolean")
	}

	states := make(map[string]bool, len(m))
	for name, v := range m {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("checkbox %q must be true or false", name)
		}
		states[name] = b
	}
	return states, nil
}

// Formatting functions
func formatFormInfoResult(result *pdf.FormInfoResult) string {
	text := "PDF Form Information\n"
	text += fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	if result.Title != "" {
		text += fmt.Sprintf("Title: %s\n", result.Title)
	}
	if result.Author != "" {
		text += fmt.Sprintf("Author: %s\n", result.Author)
	}
	if result.HasForm {
		text += fmt.Sprintf("Form: yes, %d field(s)\n", result.FieldCount)
	} else {
		text += "Form: no interactive form\n"
	}
	return text
}

func formatFormFieldsResult(result *pdf.FormFieldsResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d field(s) in %s\n", result.TotalCount, result.Path)

	for i, f := range result.Fields {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1, f.FullName, f.Type)
		fmt.Fprintf(&b, "   Value: %q\n", f.Value)
		if f.DefaultValue != "" {
			fmt.Fprintf(&b, "   Default: %q\n", f.DefaultValue)
		}
		if len(f.Options) > 0 {
			fmt.Fprintf(&b, "   Options: %s\n", strings.Join(f.Options, ", "))
		}
		if f.Type.IsButton() {
			fmt.Fprintf(&b, "   Export value: %s, checked: %t\n", f.ExportValue, f.IsChecked)
		}
		var flags []string
		if f.ReadOnly {
			flags = append(flags, "read-only")
		}
		if f.Required {
			flags = append(flags, "required")
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, "   Flags: %s\n", strings.Join(flags, ", "))
		}
		if f.PageIndex >= 0 {
			fmt.Fprintf(&b, "   Page %d at (%.1f, %.1f), %.1fx%.1f\n",
				f.PageIndex+1, f.X, f.Y, f.Width, f.Height)
		}
	}
	return b.String()
}

func formatFormFillResult(result *pdf.FormFillResult) string {
	text := fmt.Sprintf("Filled form saved to: %s\n", result.OutputPath)
	text += fmt.Sprintf("Source: %s\n", result.Path)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Fields applied: %d\n", result.Applied)
	if result.Flattened {
		text += "Flattened: yes\n"
	}
	if len(result.Failed) > 0 {
		text += fmt.Sprintf("Fields failed: %d\n", len(result.Failed))
		for _, f := range result.Failed {
			text += fmt.Sprintf("  • %s [%s]: %s\n", f.Name, f.Kind, f.Error)
		}
	}
	return text
}

func formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🖼️  Default Render DPI: %.0f\n\n", result.DefaultDPI)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		if result.Truncated {
			text += "   (scan truncated)\n"
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode serves MCP over stdin/stdout until ctx is done or stdin closes
func (s *Server) runStdioMode(ctx context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF form MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.Default())
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting PDF form MCP server on http://%s/sse", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return ctx.Err()
	}
}
