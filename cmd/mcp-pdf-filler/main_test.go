package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/a3tai/mcp-pdf-filler/internal/config"
)

// captureStdout returns everything fn writes to os.Stdout
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func setBuildInfo(t *testing.T, v, bt, gc string) {
	t.Helper()
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version, buildTime, gitCommit = v, bt, gc
	t.Cleanup(func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	})
}

func TestPrintVersion(t *testing.T) {
	setBuildInfo(t, "1.2.3", "2024-03-01_10:30:00", "abc123")

	output := captureStdout(t, printVersion)

	for _, expected := range []string{
		"MCP PDF Filler",
		"Version: 1.2.3",
		"Build Time: 2024-03-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing %q\nActual output:\n%s", expected, output)
		}
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	setBuildInfo(t, "dev", "unknown", "unknown")

	output := captureStdout(t, printVersion)

	for _, expected := range []string{"Version: dev", "Build Time: unknown", "Git Commit: unknown"} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing %q\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: "stdio", LogLevel: "debug"})
	if log.Writer() != os.Stderr {
		t.Error("stdio debug mode should log to stderr")
	}

	setupLogging(&config.Config{Mode: "stdio", LogLevel: "info"})
	if log.Writer() != io.Discard {
		t.Error("stdio mode without debug should discard logs")
	}

	log.SetOutput(originalOutput)
	setupLogging(&config.Config{Mode: "server", LogLevel: "info"})
	if want := log.LstdFlags | log.Lshortfile; log.Flags() != want {
		t.Errorf("server mode flags = %v, want %v", log.Flags(), want)
	}
}

func TestNewService(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	cfg.TempDir = t.TempDir()
	cfg.DPI = 96
	cfg.PNGCompression = "best"

	service, err := newService(cfg)
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	if service.DefaultDPI() != 96 {
		t.Errorf("DefaultDPI() = %v, want 96", service.DefaultDPI())
	}
	if service.GetMaxFileSize() != cfg.MaxFileSize {
		t.Errorf("GetMaxFileSize() = %d, want %d", service.GetMaxFileSize(), cfg.MaxFileSize)
	}

	cfg.PNGCompression = "ultra"
	if _, err := newService(cfg); err == nil {
		t.Error("newService() should reject an unknown compression level")
	}
}
