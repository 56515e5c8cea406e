package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/drummonds/pdfbridge/bridge"
	config "github.com/drummonds/pdfbridge/config"
	database "github.com/drummonds/pdfbridge/database"
	engine "github.com/drummonds/pdfbridge/engine"
	"github.com/drummonds/pdfbridge/engine/pdfrenderer"
	"github.com/drummonds/pdfbridge/native"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

// newEcho builds the echo instance with JSON errors for the API
func newEcho(cfg config.BridgeConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code == http.StatusNotFound && strings.HasPrefix(c.Request().URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	if cfg.UploadLimitMB > 0 {
		// leave room for the multipart envelope; the handler checks the file itself
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.UploadLimitMB+1)))
	}
	return e
}

func main() {
	serverConfig, logger := config.Setup()
	injectGlobals(logger) //inject the logger into all of the packages

	var paths []string
	if serverConfig.PDFiumLibrary != "" {
		paths = append(paths, serverConfig.PDFiumLibrary)
	}
	lib, err := native.Load(paths...)
	if err != nil {
		Logger.Error("Unable to load PDFium", "error", err)
		os.Exit(1)
	}
	defer lib.Close()
	Logger.Info("PDFium loaded", "path", lib.Path())

	pdf := bridge.New(lib, bridge.NewGuard(lib, Logger),
		bridge.WithLogger(Logger),
		bridge.WithAlreadyClosed(serverConfig.AlreadyClosed))
	defer func() {
		if err := pdf.Close(); err != nil {
			Logger.Error("Bridge did not close cleanly", "error", err)
		}
	}()

	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		Logger.Error("Unable to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	Logger.Info("Database setup complete")

	renderer, err := pdfrenderer.NewRenderer(serverConfig.PreviewBackend, pdf, serverConfig.RenderConfig)
	if err != nil {
		Logger.Error("Unable to create preview renderer", "backend", serverConfig.PreviewBackend, "error", err)
		os.Exit(1)
	}
	defer renderer.Close()

	e := newEcho(serverConfig)
	serverHandler := engine.NewServerHandler(pdf, db, e, serverConfig, renderer)
	serverHandler.RegisterRoutes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serverHandler.StartupChecks(ctx); err != nil {
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("Startup checks complete")
	scheduler := serverHandler.InitializeSchedules()
	defer scheduler.Stop()

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- startServer(e, &serverConfig) }()

	select {
	case err := <-serverErr:
		if err != nil {
			Logger.Error("Failed to start server", "error", err)
		}
	case <-ctx.Done():
		Logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			Logger.Error("HTTP server did not shut down cleanly", "error", err)
		}
	}

	if err := serverHandler.CloseAll(context.Background()); err != nil {
		Logger.Error("Unable to close all documents", "error", err)
	}
}

// startServer tries successive ports while the requested one is taken
func startServer(e *echo.Echo, serverConfig *config.BridgeConfig) error {
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		err := e.Start(addr)
		switch {
		case errors.Is(err, http.ErrServerClosed):
			return nil
		case err != nil && isAddressInUse(err):
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)
		case err != nil:
			return err
		default:
			return nil
		}
	}
	return fmt.Errorf("no free port in %s..%s after %d attempts", startPort, serverConfig.ListenAddrPort, maxRetries)
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use")
}
