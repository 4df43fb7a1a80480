package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/raster"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort           = 8080
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultMaxFileSize    = 100 * 1024 * 1024 // 100MB
	DefaultDPI            = 150
	DefaultPNGCompression = "default"

	// Render resolution limits
	MinDPI = 18
	MaxDPI = 600

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the PDF form filler MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory string

	// Form filling and rendering
	DPI            int    // default render resolution
	TempDir        string // staging directory for saves
	PNGCompression string // default, none, speed or best

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:           ModeStdio, // Default to stdio mode for MCP compatibility
		Host:           DefaultHost,
		Port:           DefaultPort,
		PDFDirectory:   currentDir,
		DPI:            DefaultDPI,
		TempDir:        os.TempDir(),
		PNGCompression: DefaultPNGCompression,
		Version:        "1.0.0",
		ServerName:     "mcp-pdf-filler",
		LogLevel:       DefaultLogLevel,
		MaxFileSize:    DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, p := range []*string{&cfg.PDFDirectory, &cfg.TempDir} {
		if *p == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*p); err == nil {
			*p = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("MCP_PDF_FILLER")
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("dpi", cfg.DPI)
	viper.SetDefault("tempdir", cfg.TempDir)
	viper.SetDefault("pngcompression", cfg.PNGCompression)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF forms")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("dpi", cfg.DPI, "Default page render resolution")
	pflag.String("tempdir", cfg.TempDir, "Directory used to stage saved documents")
	pflag.String("pngcompression", cfg.PNGCompression, "PNG compression (default, none, speed, best)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "loglevel", "maxfilesize",
		"dpi", "tempdir", "pngcompression",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Filler - A Model Context Protocol server for filling PDF forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                    "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/forms      # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dpi=96 --pngcompression=best           # smaller previews\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_MODE            Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_HOST            Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_PORT            Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_DIR             PDF directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_LOGLEVEL        Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_MAXFILESIZE     Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_DPI             Default render resolution\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_TEMPDIR         Staging directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FILLER_PNGCOMPRESSION  PNG compression\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.DPI = viper.GetInt("dpi")
	cfg.TempDir = viper.GetString("tempdir")
	cfg.PNGCompression = viper.GetString("pngcompression")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if err := ensureDir(c.PDFDirectory); err != nil {
		return fmt.Errorf("PDF directory: %w", err)
	}

	// Validate staging directory
	if c.TempDir == "" {
		return errors.New("temp directory cannot be empty")
	}
	if err := ensureDir(c.TempDir); err != nil {
		return fmt.Errorf("temp directory: %w", err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate render settings
	if c.DPI < MinDPI || c.DPI > MaxDPI {
		return fmt.Errorf("dpi must be between %d and %d", MinDPI, MaxDPI)
	}
	if _, err := raster.ParseCompression(c.PNGCompression); err != nil {
		return fmt.Errorf("invalid png compression: %s (must be one of: default, none, speed, best)", c.PNGCompression)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ensureDir creates dir when it does not exist.
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access %s: %w", dir, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"DPI: %d, TempDir: %s, PNGCompression: %s}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize, c.DPI, c.TempDir, c.PNGCompression)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
