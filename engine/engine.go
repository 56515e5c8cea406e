package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/drummonds/pdfbridge/bridge"
	"github.com/drummonds/pdfbridge/config"
	"github.com/drummonds/pdfbridge/database"
	"github.com/drummonds/pdfbridge/engine/pdfrenderer"
	"github.com/drummonds/pdfbridge/raster"
)

// maxRenderSide bounds the pixel size of a rendered page.
const maxRenderSide = 8192

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	Bridge   *bridge.Bridge
	DB       database.Repository
	Echo     *echo.Echo
	Config   config.BridgeConfig
	Renderer pdfrenderer.Renderer

	mu   sync.Mutex
	docs map[ulid.ULID]*openDocument
	now  func() time.Time
}

// openDocument is a catalog entry with a live bridge handle. The bytes are
// kept for the thumbnail backends that open their own copy.
type openDocument struct {
	id     ulid.ULID
	name   string
	handle bridge.Handle
	data   []byte
}

// NewServerHandler wires the bridge, catalog and renderer together
func NewServerHandler(b *bridge.Bridge, db database.Repository, e *echo.Echo, cfg config.BridgeConfig, r pdfrenderer.Renderer) *ServerHandler {
	return &ServerHandler{
		Bridge:   b,
		DB:       db,
		Echo:     e,
		Config:   cfg,
		Renderer: r,
		docs:     make(map[ulid.ULID]*openDocument),
		now:      time.Now,
	}
}

// errDocumentClosed is returned for catalog entries whose handle is gone.
var errDocumentClosed = fmt.Errorf("document is closed: %w", bridge.ErrInvalidHandle)

// httpStatus maps bridge, raster and catalog errors to a status code
func httpStatus(err error) int {
	switch {
	case errors.Is(err, bridge.ErrPassword),
		errors.Is(err, bridge.ErrEmptyInput),
		errors.Is(err, bridge.ErrFormat),
		errors.Is(err, bridge.ErrInvalidRange),
		errors.Is(err, raster.ErrInvalidSurface),
		errors.Is(err, raster.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrInvalidHandle),
		errors.Is(err, bridge.ErrPageLoad),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrResourceInUse):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// openUpload opens data on the bridge and records it in the catalog along
// with its metadata and per-page statistics.
func (serverHandler *ServerHandler) openUpload(ctx context.Context, name string, data []byte, password string) (*database.Document, error) {
	if prev, err := serverHandler.DB.GetOpenDocumentByHash(ctx, database.CalculateHash(data)); err == nil && prev != nil {
		Logger.Info("Same file already open, opening another copy", "name", name, "existing", prev.ULID)
	}
	handle, err := serverHandler.Bridge.OpenBytes(data, password)
	if err != nil {
		return nil, err
	}
	doc, err := serverHandler.catalog(ctx, name, data, handle)
	if err != nil {
		serverHandler.Bridge.CloseDocument(handle)
		return nil, err
	}

	serverHandler.mu.Lock()
	serverHandler.docs[doc.ULID] = &openDocument{id: doc.ULID, name: name, handle: handle, data: data}
	serverHandler.mu.Unlock()
	Logger.Info("Opened document", "id", doc.ULID, "name", name, "handle", handle, "pages", doc.PageCount)
	return doc, nil
}

func (serverHandler *ServerHandler) catalog(ctx context.Context, name string, data []byte, handle bridge.Handle) (*database.Document, error) {
	meta, err := serverHandler.Bridge.Metadata(handle)
	if err != nil {
		return nil, err
	}
	doc, err := database.NewDocument(name, data, uint64(handle), serverHandler.now())
	if err != nil {
		return nil, err
	}
	doc.PageCount = meta.PageCount
	doc.Title = meta.Title
	doc.Author = meta.Author
	doc.Producer = meta.Producer
	if err := serverHandler.DB.SaveDocument(ctx, doc); err != nil {
		Logger.Error("Unable to save document to catalog", "name", name, "error", err)
		return nil, err
	}

	counts, err := serverHandler.Bridge.PageCharCounts(handle)
	if err != nil {
		Logger.Warn("Some pages could not be read", "id", doc.ULID, "error", err)
	}
	stats := make([]database.PageStat, len(counts))
	for i, n := range counts {
		w, h, err := serverHandler.Bridge.PageSizeByIndex(handle, i, 72)
		if err != nil {
			w, h = -1, -1
		}
		stats[i] = database.PageStat{PageIndex: i, CharCount: n, Width: float64(w), Height: float64(h)}
	}
	if err := serverHandler.DB.SavePageStats(ctx, doc.ULID, stats); err != nil {
		Logger.Error("Unable to save page statistics", "id", doc.ULID, "error", err)
		// the caller closes the handle, so the catalog entry must not stay open
		if closeErr := serverHandler.DB.MarkClosed(ctx, doc.ULID, serverHandler.now()); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, err
	}
	return doc, nil
}

// lookup resolves an API id to its open document and records the access
func (serverHandler *ServerHandler) lookup(ctx context.Context, idStr string) (*openDocument, error) {
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", idStr, bridge.ErrInvalidRange)
	}
	serverHandler.mu.Lock()
	od, ok := serverHandler.docs[id]
	serverHandler.mu.Unlock()
	if !ok {
		if _, err := serverHandler.DB.GetDocument(ctx, id); err != nil {
			return nil, err
		}
		return nil, errDocumentClosed
	}
	if err := serverHandler.DB.TouchDocument(ctx, id, serverHandler.now()); err != nil {
		Logger.Warn("Unable to record document access", "id", id, "error", err)
	}
	return od, nil
}

// closeDocument releases the bridge handle and marks the catalog entry closed
func (serverHandler *ServerHandler) closeDocument(ctx context.Context, id ulid.ULID) error {
	serverHandler.mu.Lock()
	od, ok := serverHandler.docs[id]
	delete(serverHandler.docs, id)
	serverHandler.mu.Unlock()
	if !ok {
		return errDocumentClosed
	}

	var result *multierror.Error
	if err := serverHandler.Bridge.CloseDocument(od.handle); err != nil {
		result = multierror.Append(result, err)
	}
	if err := serverHandler.DB.MarkClosed(ctx, id, serverHandler.now()); err != nil {
		result = multierror.Append(result, err)
	}
	Logger.Info("Closed document", "id", id, "name", od.name)
	return result.ErrorOrNil()
}

// reapIdleDocuments closes documents not accessed for IdleDocumentMinutes
func (serverHandler *ServerHandler) reapIdleDocuments(ctx context.Context) (int, error) {
	cutoff := serverHandler.now().Add(-time.Duration(serverHandler.Config.IdleDocumentMinutes) * time.Minute)
	idle, err := serverHandler.DB.GetIdleDocuments(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	closed := 0
	var result *multierror.Error
	for _, doc := range idle {
		err := serverHandler.closeDocument(ctx, doc.ULID)
		if errors.Is(err, errDocumentClosed) {
			// catalog entry from a handle this process never owned
			err = serverHandler.DB.MarkClosed(ctx, doc.ULID, serverHandler.now())
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", doc.ULID, err))
			continue
		}
		closed++
	}
	if closed > 0 {
		Logger.Info("Closed idle documents", "count", closed, "idle_minutes", serverHandler.Config.IdleDocumentMinutes)
	}
	return closed, result.ErrorOrNil()
}

// CloseAll closes every open document, used at shutdown
func (serverHandler *ServerHandler) CloseAll(ctx context.Context) error {
	serverHandler.mu.Lock()
	ids := make([]ulid.ULID, 0, len(serverHandler.docs))
	for id := range serverHandler.docs {
		ids = append(ids, id)
	}
	serverHandler.mu.Unlock()

	var result *multierror.Error
	for _, id := range ids {
		if err := serverHandler.closeDocument(ctx, id); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// renderSize works out the output size. With neither width nor height the
// page is drawn at dpi; with one of them the other follows the page's
// aspect ratio.
func renderSize(page bridge.Size, width, height, dpi int) (int, int, error) {
	if page.Width <= 0 || page.Height <= 0 {
		return 0, 0, fmt.Errorf("page has no area: %w", bridge.ErrInvalidRange)
	}
	switch {
	case width <= 0 && height <= 0:
		width, height = page.Pixels(dpi)
	case height <= 0:
		height = int(math.Round(float64(width) * page.Height / page.Width))
	case width <= 0:
		width = int(math.Round(float64(height) * page.Width / page.Height))
	}
	if width <= 0 || height <= 0 || width > maxRenderSide || height > maxRenderSide {
		return 0, 0, fmt.Errorf("render size %dx%d outside 1..%d: %w", width, height, maxRenderSide, bridge.ErrInvalidRange)
	}
	return width, height, nil
}

// fitPage centers the page in a width x height surface, keeping its aspect
// ratio. Uncovered borders get the canvas color.
func fitPage(page bridge.Size, width, height int) raster.Placement {
	scale := math.Min(float64(width)/page.Width, float64(height)/page.Height)
	w := max(1, int(math.Round(page.Width*scale)))
	h := max(1, int(math.Round(page.Height*scale)))
	return raster.Placement{X: (width - w) / 2, Y: (height - h) / 2, W: w, H: h}
}
