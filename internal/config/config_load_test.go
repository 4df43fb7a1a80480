package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var envVars = []string{
	"MCP_PDF_FILLER_MODE",
	"MCP_PDF_FILLER_HOST",
	"MCP_PDF_FILLER_PORT",
	"MCP_PDF_FILLER_DIR",
	"MCP_PDF_FILLER_LOGLEVEL",
	"MCP_PDF_FILLER_MAXFILESIZE",
	"MCP_PDF_FILLER_DPI",
	"MCP_PDF_FILLER_TEMPDIR",
	"MCP_PDF_FILLER_PNGCOMPRESSION",
}

// resetFlags gives every test a fresh flag set and viper instance
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	viper.Reset()
}

func clearEnvVars() {
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

// withArgs runs LoadFromFlags with the given arguments and restores the
// process state afterwards.
func withArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	})

	os.Args = append([]string{"mcp-pdf-filler"}, args...)
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	clearEnvVars()
	cfg, err := withArgs(t, "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, ModeStdio)
	}
	if cfg.DPI != DefaultDPI {
		t.Errorf("LoadFromFlags() DPI = %v, want %v", cfg.DPI, DefaultDPI)
	}
	if cfg.PNGCompression != DefaultPNGCompression {
		t.Errorf("LoadFromFlags() PNGCompression = %v, want %v", cfg.PNGCompression, DefaultPNGCompression)
	}
	if cfg.TempDir == "" {
		t.Error("LoadFromFlags() TempDir should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(*Config) bool
	}{
		{
			name:  "server mode with host and port",
			args:  []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(c *Config) bool { return c.IsServerMode() && c.Address() == "0.0.0.0:9090" },
		},
		{
			name:  "debug logging",
			args:  []string{"--loglevel=debug"},
			check: func(c *Config) bool { return c.IsDebug() },
		},
		{
			name:  "custom max file size",
			args:  []string{"--maxfilesize=50000000"},
			check: func(c *Config) bool { return c.MaxFileSize == 50000000 },
		},
		{
			name:  "render settings",
			args:  []string{"--dpi=96", "--pngcompression=best"},
			check: func(c *Config) bool { return c.DPI == 96 && c.PNGCompression == "best" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			args := append([]string{"--dir=" + t.TempDir(), "--tempdir=" + t.TempDir()}, tt.args...)
			cfg, err := withArgs(t, args...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("LoadFromFlags() unexpected config: %s", cfg)
			}
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	tempDir := t.TempDir()
	os.Setenv("MCP_PDF_FILLER_MODE", "server")
	os.Setenv("MCP_PDF_FILLER_PORT", "3000")
	os.Setenv("MCP_PDF_FILLER_DIR", tempDir)
	os.Setenv("MCP_PDF_FILLER_LOGLEVEL", "warn")
	os.Setenv("MCP_PDF_FILLER_DPI", "200")
	os.Setenv("MCP_PDF_FILLER_TEMPDIR", tempDir)

	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Mode/Port = %v/%v, want server/3000", cfg.Mode, cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want warn", cfg.LogLevel)
	}
	if cfg.DPI != 200 {
		t.Errorf("LoadFromFlags() DPI = %v, want 200", cfg.DPI)
	}
	if cfg.TempDir != tempDir {
		t.Errorf("LoadFromFlags() TempDir = %v, want %v", cfg.TempDir, tempDir)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	os.Setenv("MCP_PDF_FILLER_MODE", "server")
	os.Setenv("MCP_PDF_FILLER_DPI", "200")

	cfg, err := withArgs(t, "--mode=stdio", "--dpi=72", "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want stdio (should override env)", cfg.Mode)
	}
	if cfg.DPI != 72 {
		t.Errorf("LoadFromFlags() DPI = %v, want 72 (should override env)", cfg.DPI)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"log level", []string{"--loglevel=invalid"}, "invalid log level"},
		{"dpi", []string{"--dpi=5"}, "dpi must be between"},
		{"compression", []string{"--pngcompression=huge"}, "invalid png compression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			_, err := withArgs(t, append(tt.args, "--dir="+t.TempDir())...)
			if err == nil {
				t.Fatalf("LoadFromFlags() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	clearEnvVars()
	_, err := withArgs(t, "--version")
	if err == nil || err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want 'version requested'", err)
	}
}
