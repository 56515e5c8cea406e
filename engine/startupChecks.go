package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/drummonds/pdfbridge/config"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks(ctx context.Context) error {
	if err := serverHandler.catalogChecks(ctx); err != nil {
		return err
	}
	if err := serverHandler.guardChecks(); err != nil {
		return err
	}
	previewChecks(serverHandler.Config)
	return nil
}

// catalogChecks marks catalog entries left open by a previous run as
// closed; their handles died with that process
func (serverHandler *ServerHandler) catalogChecks(ctx context.Context) error {
	n, err := serverHandler.DB.CloseAllOpen(ctx, time.Now())
	if err != nil {
		Logger.Error("Unable to reset catalog", "error", err)
		return err
	}
	if n > 0 {
		Logger.Info("Marked stale catalog entries closed", "count", n)
	}
	return nil
}

// guardChecks initializes and tears down the engine once so a broken
// library fails at startup rather than on the first upload
func (serverHandler *ServerHandler) guardChecks() error {
	guard := serverHandler.Bridge.Guard()
	if guard.Count() != 0 {
		return fmt.Errorf("library guard held %d references before startup", guard.Count())
	}
	guard.Acquire()
	guard.Release()
	Logger.Info("PDF engine initialized and released")
	return nil
}

func previewChecks(cfg config.BridgeConfig) {
	switch cfg.PreviewBackend {
	case config.PreviewWasm:
		Logger.Info("Thumbnails rendered with PDFium WebAssembly")
	case config.PreviewFitz:
		Logger.Info("Thumbnails rendered with MuPDF")
	default:
		Logger.Info("Thumbnails rendered with the native library")
	}
	if cfg.ThumbnailWidth <= 0 {
		Logger.Warn("Thumbnail width must be positive, requests without width will fail", "width", cfg.ThumbnailWidth)
	}
}
