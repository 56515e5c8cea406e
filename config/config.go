package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/drummonds/pdfbridge/bridge"
	"github.com/drummonds/pdfbridge/raster"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Preview backends for thumbnails.
const (
	PreviewNative = "native"
	PreviewWasm   = "wasm"
	PreviewFitz   = "fitz"
)

// BridgeConfig contains all of the server settings
type BridgeConfig struct {
	PDFiumLibrary string // empty means search the default library names

	ListenAddrIP   string
	ListenAddrPort string

	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	DatabasePath     string

	AlreadyClosed bridge.AlreadyClosedBehavior

	RenderConfig

	IdleDocumentMinutes int
	ThumbnailWidth      int
	PreviewBackend      string
	UploadLimitMB       int
}

// RenderConfig stores the defaults used when the API renders pages
type RenderConfig struct {
	DPI         int
	Annotations bool
	CanvasColor raster.Color
	PageColor   raster.Color
}

// Options converts the render defaults into compositor options.
func (r RenderConfig) Options() raster.Options {
	return raster.Options{Annotations: r.Annotations, CanvasColor: r.CanvasColor, PageColor: r.PageColor}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvColor gets an ARGB color variable with a default value
func getEnvColor(key string, defaultValue raster.Color, logger *slog.Logger) raster.Color {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	c, err := raster.ParseColor(value)
	if err != nil {
		logger.Warn("Invalid color, using default", "key", key, "value", value, "error", err)
		return defaultValue
	}
	return c
}

// Setup loads configuration and returns BridgeConfig and Logger
func Setup() (BridgeConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	cfg := Load(logger)

	fmt.Println("\n========================================")
	fmt.Println("   pdfbridge - PDF rendering service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", cfg.ListenAddrIP, cfg.ListenAddrPort)
	if cfg.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "pdfbridge.log"))
	fmt.Println("Initializing...")

	return cfg, logger
}

// Load reads the settings from the environment without touching .env files
// or the global logger.
func Load(logger *slog.Logger) BridgeConfig {
	cfg := BridgeConfig{}

	cfg.PDFiumLibrary = getEnv("PDFIUM_LIBRARY", "")

	// Server configuration
	cfg.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	cfg.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	cfg.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	cfg.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	cfg.DatabasePort = getEnv("DATABASE_PORT", "5432")
	cfg.DatabaseUser = getEnv("DATABASE_USER", "pdfbridge")
	cfg.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	cfg.DatabaseDbname = getEnv("DATABASE_NAME", "pdfbridge")
	cfg.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")
	cfg.DatabasePath = filepath.ToSlash(getEnv("DATABASE_PATH", "pdfbridge.db"))

	logger.Info("Database configuration loaded", "type", cfg.DatabaseType)

	cfg.AlreadyClosed = bridge.ParseAlreadyClosed(getEnv("ALREADY_CLOSED", "error"))

	// Render defaults
	cfg.DPI = getEnvInt("RENDER_DPI", 72)
	if cfg.DPI <= 0 {
		logger.Warn("RENDER_DPI must be positive, using 72", "value", cfg.DPI)
		cfg.DPI = 72
	}
	cfg.Annotations = getEnvBool("RENDER_ANNOTATIONS", true)
	cfg.CanvasColor = getEnvColor("CANVAS_COLOR", 0xFF848484, logger)
	cfg.PageColor = getEnvColor("PAGE_COLOR", 0xFFFFFFFF, logger)

	cfg.IdleDocumentMinutes = getEnvInt("IDLE_DOCUMENT_MINUTES", 30)
	cfg.ThumbnailWidth = getEnvInt("THUMBNAIL_WIDTH", 256)
	cfg.UploadLimitMB = getEnvInt("UPLOAD_LIMIT_MB", 64)

	cfg.PreviewBackend = strings.ToLower(getEnv("PREVIEW_BACKEND", PreviewNative))
	switch cfg.PreviewBackend {
	case PreviewNative, PreviewWasm, PreviewFitz:
	default:
		logger.Warn("Unknown preview backend, using native", "backend", cfg.PreviewBackend)
		cfg.PreviewBackend = PreviewNative
	}

	if cfg.PDFiumLibrary != "" {
		if err := checkLibrary(cfg.PDFiumLibrary, logger); err != nil {
			logger.Warn("Configured PDFium library not found, loading will fail", "path", cfg.PDFiumLibrary)
		}
	}

	return cfg
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "pdfbridge.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	if getEnv("LOG_FORMAT", "text") == "json" {
		return slog.New(slog.NewJSONHandler(logWriter, handlerOptions))
	}
	return slog.New(slog.NewTextHandler(logWriter, handlerOptions))
}

// checkLibrary verifies that a shared library exists at the given path
func checkLibrary(path string, logger *slog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		logger.Error("Cannot find PDFium library at location specified", "path", path)
		return err
	}
	if info.IsDir() {
		logger.Error("PDFium library path is a directory", "path", path)
		return fmt.Errorf("%s is a directory", path)
	}
	logger.Debug("PDFium library found", "path", path)
	return nil
}
