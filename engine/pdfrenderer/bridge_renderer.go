package pdfrenderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/drummonds/pdfbridge/bridge"
	"github.com/drummonds/pdfbridge/config"
	"github.com/drummonds/pdfbridge/raster"
)

// BridgeRenderer renders through the libpdfium bridge (purego, no CGo)
type BridgeRenderer struct {
	bridge *bridge.Bridge
	opts   raster.Options
}

// NewBridgeRenderer creates a renderer that opens a private document per call
func NewBridgeRenderer(b *bridge.Bridge, opts config.RenderConfig) *BridgeRenderer {
	return &BridgeRenderer{bridge: b, opts: opts.Options()}
}

// RenderPage opens data, draws the page at dpi and closes the document again
func (r *BridgeRenderer) RenderPage(data []byte, pageIndex int, dpi int) (img image.Image, err error) {
	doc, err := r.bridge.OpenBytes(data, "")
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer func() {
		err = errors.Join(err, r.bridge.CloseDocument(doc))
	}()

	page, err := r.bridge.LoadPage(doc, pageIndex)
	if err != nil {
		return nil, fmt.Errorf("unable to load page %d: %w", pageIndex, err)
	}
	rgba, err := RenderHandle(r.bridge, page, dpi, r.opts)
	if err != nil {
		return nil, err
	}
	return rgba, nil
}

// RenderHandle draws an already open page at dpi into a new RGBA image.
func RenderHandle(b *bridge.Bridge, page bridge.Handle, dpi int, opts raster.Options) (*image.RGBA, error) {
	w, h, err := b.PageSizePixels(page, dpi)
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("page renders to an empty %dx%d image", w, h)
	}
	surface := raster.NewSurface(w, h, raster.FormatRGBA8888)
	if err := b.RenderPage(page, surface, raster.Placement{W: w, H: h}, opts); err != nil {
		return nil, fmt.Errorf("unable to render page: %w", err)
	}
	return surface.Image()
}

// Close is a no-op; the bridge is owned by the caller
func (r *BridgeRenderer) Close() error {
	return nil
}
