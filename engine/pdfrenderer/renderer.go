package pdfrenderer

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/drummonds/pdfbridge/bridge"
	"github.com/drummonds/pdfbridge/config"
)

// Renderer defines the interface for PDF page to image conversion
type Renderer interface {
	// RenderPage rasterizes one page of an in-memory PDF at dpi
	RenderPage(data []byte, pageIndex int, dpi int) (image.Image, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates the renderer for the configured preview backend.
// The native backend renders through b.
func NewRenderer(backend string, b *bridge.Bridge, opts config.RenderConfig) (Renderer, error) {
	switch backend {
	case config.PreviewNative, "":
		return NewBridgeRenderer(b, opts), nil
	case config.PreviewWasm:
		return NewPDFiumRenderer()
	case config.PreviewFitz:
		return NewFitzRenderer()
	}
	return nil, fmt.Errorf("unknown preview backend %q", backend)
}

// Thumbnail renders a page and scales it to width pixels, keeping the
// aspect ratio.
func Thumbnail(r Renderer, data []byte, pageIndex, dpi, width int) (image.Image, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid thumbnail width %d", width)
	}
	img, err := r.RenderPage(data, pageIndex, dpi)
	if err != nil {
		return nil, err
	}
	return Scale(img, width), nil
}

// Scale resizes img to width pixels, keeping the aspect ratio.
func Scale(img image.Image, width int) image.Image {
	if img.Bounds().Dx() == width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}
