package pdfrenderer

import (
	"errors"
	"image/color"
	"testing"

	"github.com/drummonds/pdfbridge/bridge"
	"github.com/drummonds/pdfbridge/config"
	"github.com/drummonds/pdfbridge/native/nativetest"
)

func newBridge() (*bridge.Bridge, *nativetest.Engine) {
	eng := nativetest.New()
	return bridge.New(eng, bridge.NewGuard(eng, nil)), eng
}

func TestBridgeRendererRendersPage(t *testing.T) {
	b, eng := newBridge()
	d := nativetest.Doc{Pages: []nativetest.PageSpec{
		{Width: 72, Height: 144, Color: 0xFFFFFFFF},
		{Width: 144, Height: 72, Color: 0xFF0000FF},
	}}
	r, err := NewRenderer(config.PreviewNative, b, config.RenderConfig{DPI: 72})
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Close()

	img, err := r.RenderPage(nativetest.Marshal(d), 1, 144)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if img.Bounds().Dx() != 288 || img.Bounds().Dy() != 144 {
		t.Errorf("Expected 288x144 image, got %v", img.Bounds())
	}
	got := color.RGBAModel.Convert(img.At(10, 10)).(color.RGBA)
	if got != (color.RGBA{B: 0xFF, A: 0xFF}) {
		t.Errorf("Expected blue pixel, got %v", got)
	}
	if docs, pages, _, _, _, bitmaps, _ := eng.Live(); docs+pages+bitmaps != 0 {
		t.Errorf("Renderer leaked engine objects: docs=%d pages=%d bitmaps=%d", docs, pages, bitmaps)
	}
	if b.Guard().Count() != 0 {
		t.Errorf("Guard count %d after render", b.Guard().Count())
	}
}

func TestBridgeRendererErrors(t *testing.T) {
	b, eng := newBridge()
	r := NewBridgeRenderer(b, config.RenderConfig{})

	if _, err := r.RenderPage([]byte("not a pdf"), 0, 72); !errors.Is(err, bridge.ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
	if _, err := r.RenderPage(nativetest.Marshal(nativetest.NewDoc(1)), 3, 72); !errors.Is(err, bridge.ErrPageLoad) {
		t.Errorf("Expected ErrPageLoad, got %v", err)
	}
	if docs, _, _, _, _, _, _ := eng.Live(); docs != 0 {
		t.Errorf("Failed render left %d documents open", docs)
	}
}

func TestThumbnail(t *testing.T) {
	b, _ := newBridge()
	r := NewBridgeRenderer(b, config.RenderConfig{})
	data := nativetest.Marshal(nativetest.NewDoc(1))

	img, err := Thumbnail(r, data, 0, 72, 100)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if img.Bounds().Dx() != 100 {
		t.Errorf("Expected width 100, got %d", img.Bounds().Dx())
	}
	// 612x792 points keeps its aspect ratio
	if h := img.Bounds().Dy(); h < 128 || h > 130 {
		t.Errorf("Expected height near 129, got %d", h)
	}

	if _, err := Thumbnail(r, data, 0, 72, 0); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := NewRenderer("ghostscript", nil, config.RenderConfig{}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
