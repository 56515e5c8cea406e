package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/drummonds/pdfbridge/bridge"
	"github.com/drummonds/pdfbridge/raster"
)

func TestCheckLibrary_ValidPath(t *testing.T) {
	tempDir := t.TempDir()
	lib := filepath.Join(tempDir, "libpdfium.so")

	file, err := os.Create(lib)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	file.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := checkLibrary(lib, logger); err != nil {
		t.Errorf("Expected no error with valid path, got: %v", err)
	}
}

func TestCheckLibrary_InvalidPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := checkLibrary("/nonexistent/path/to/libpdfium.so", logger); err == nil {
		t.Error("Expected error with invalid path, got nil")
	}
	if err := checkLibrary(t.TempDir(), logger); err == nil {
		t.Error("Expected error for a directory, got nil")
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PDFIUM_LIBRARY", "SERVER_PORT", "DATABASE_TYPE", "ALREADY_CLOSED", "RENDER_DPI",
		"RENDER_ANNOTATIONS", "CANVAS_COLOR", "PAGE_COLOR", "PREVIEW_BACKEND", "THUMBNAIL_WIDTH"} {
		t.Setenv(key, "")
	}
	cfg := Load(slog.New(slog.DiscardHandler))

	if cfg.ListenAddrPort != "8000" {
		t.Errorf("Expected port 8000, got %s", cfg.ListenAddrPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("Expected sqlite database, got %s", cfg.DatabaseType)
	}
	if cfg.AlreadyClosed != bridge.AlreadyClosedError {
		t.Errorf("Expected AlreadyClosedError, got %v", cfg.AlreadyClosed)
	}
	if cfg.DPI != 72 || !cfg.Annotations {
		t.Errorf("Unexpected render defaults: %+v", cfg.RenderConfig)
	}
	if cfg.CanvasColor != 0xFF848484 || cfg.PageColor != 0xFFFFFFFF {
		t.Errorf("Unexpected colors %#x %#x", uint32(cfg.CanvasColor), uint32(cfg.PageColor))
	}
	if cfg.PreviewBackend != PreviewNative || cfg.ThumbnailWidth != 256 {
		t.Errorf("Unexpected preview settings: %s %d", cfg.PreviewBackend, cfg.ThumbnailWidth)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALREADY_CLOSED", "ignore")
	t.Setenv("RENDER_DPI", "150")
	t.Setenv("RENDER_ANNOTATIONS", "false")
	t.Setenv("CANVAS_COLOR", "#102030")
	t.Setenv("PAGE_COLOR", "not-a-color")
	t.Setenv("PREVIEW_BACKEND", "FITZ")
	cfg := Load(slog.New(slog.DiscardHandler))

	if cfg.AlreadyClosed != bridge.AlreadyClosedIgnore {
		t.Errorf("Expected AlreadyClosedIgnore, got %v", cfg.AlreadyClosed)
	}
	if cfg.DPI != 150 || cfg.Annotations {
		t.Errorf("Render overrides not applied: %+v", cfg.RenderConfig)
	}
	if cfg.CanvasColor != 0xFF102030 {
		t.Errorf("Expected canvas 0xFF102030, got %#x", uint32(cfg.CanvasColor))
	}
	if cfg.PageColor != 0xFFFFFFFF {
		t.Errorf("Invalid page color should fall back, got %#x", uint32(cfg.PageColor))
	}
	if cfg.PreviewBackend != PreviewFitz {
		t.Errorf("Expected fitz backend, got %s", cfg.PreviewBackend)
	}

	opts := cfg.Options()
	if opts != (raster.Options{CanvasColor: 0xFF102030, PageColor: 0xFFFFFFFF}) {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestLoadRejectsBadDPI(t *testing.T) {
	t.Setenv("RENDER_DPI", "-3")
	t.Setenv("PREVIEW_BACKEND", "chrome")
	cfg := Load(slog.New(slog.DiscardHandler))
	if cfg.DPI != 72 {
		t.Errorf("Expected DPI fallback to 72, got %d", cfg.DPI)
	}
	if cfg.PreviewBackend != PreviewNative {
		t.Errorf("Expected native backend fallback, got %s", cfg.PreviewBackend)
	}
}
