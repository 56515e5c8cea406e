package bridge

import (
	"errors"
	"image/color"
	"testing"

	"github.com/drummonds/pdfbridge/native/nativetest"
	"github.com/drummonds/pdfbridge/raster"
)

func TestRenderPagesStopsAtInvalidHandle(t *testing.T) {
	b, eng := newTestBridge(t)
	d := nativetest.Doc{Pages: []nativetest.PageSpec{
		{Width: 10, Height: 10, Color: 0xFFFF0000},
		{Width: 10, Height: 10, Color: 0xFF00FF00},
		{Width: 10, Height: 10, Color: 0xFF0000FF},
	}}
	doc := openDoc(t, b, d)
	pages, err := b.LoadPages(doc, 0, 2)
	if err != nil {
		t.Fatalf("LoadPages failed: %v", err)
	}
	b.ClosePage(pages[1])

	s := raster.NewSurface(30, 10, raster.FormatRGBA8888)
	layer := func(h Handle, x float32) Layer {
		return Layer{Page: h, Matrix: raster.Matrix{ScaleX: 1, ScaleY: 1, TransX: x}, Clip: raster.FullClip(s)}
	}
	err = b.RenderPages(s, []Layer{layer(pages[0], 0), layer(pages[1], 10), layer(pages[2], 20)}, raster.Options{CanvasColor: 0xFF808080})

	var re *RenderError
	if !errors.As(err, &re) || re.Index != 1 {
		t.Fatalf("RenderPages error = %v, want RenderError at layer 1", err)
	}
	if !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("RenderError does not wrap ErrInvalidHandle: %v", err)
	}
	if got := s.At(5, 5); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Errorf("Layer before the failure = %v, want red", got)
	}
	grey := color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	for _, x := range []int{15, 25} {
		if got := s.At(x, 5); got != grey {
			t.Errorf("Pixel %d = %v, want untouched canvas", x, got)
		}
	}
	if _, _, _, _, _, bitmaps, _ := eng.Live(); bitmaps != 0 {
		t.Errorf("Frame not finished: %d bitmaps live", bitmaps)
	}
}

func TestRenderPagesAllLayers(t *testing.T) {
	b, _ := newTestBridge(t)
	d := nativetest.Doc{Pages: []nativetest.PageSpec{
		{Width: 10, Height: 10, Color: 0xFFFF0000},
		{Width: 10, Height: 10, Color: 0xFF0000FF},
	}}
	doc := openDoc(t, b, d)
	pages, _ := b.LoadPages(doc, 0, 1)

	s := raster.NewSurface(20, 10, raster.FormatRGB565)
	err := b.RenderPages(s, []Layer{
		{Page: pages[0], Matrix: raster.Matrix{ScaleX: 1, ScaleY: 1}, Clip: raster.FullClip(s)},
		{Page: pages[1], Matrix: raster.Matrix{ScaleX: 1, ScaleY: 1, TransX: 10}, Clip: raster.FullClip(s)},
	}, raster.Options{})
	if err != nil {
		t.Fatalf("RenderPages failed: %v", err)
	}
	if got := s.At(2, 2); got.R != 0xFF || got.B != 0 {
		t.Errorf("Left page = %v, want red", got)
	}
	if got := s.At(12, 2); got.B != 0xFF || got.R != 0 {
		t.Errorf("Right page = %v, want blue", got)
	}
}

func TestRenderPageErrors(t *testing.T) {
	b, _ := newTestBridge(t)
	doc := openDoc(t, b, nativetest.NewDoc(1))
	page, _ := b.LoadPage(doc, 0)

	s := raster.NewSurface(8, 8, raster.FormatRGBA8888)
	if err := b.RenderPage(page, s, raster.Placement{W: 8, H: 8}, raster.Options{}); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if got := s.At(3, 3); got != (color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Errorf("Rendered pixel = %v, want white", got)
	}

	bad := &raster.Surface{Width: 8, Height: 8, Stride: 32, Format: raster.FormatRGBA8888, Pix: make([]byte, 10)}
	if err := b.RenderPage(page, bad, raster.Placement{W: 8, H: 8}, raster.Options{}); !errors.Is(err, raster.ErrInvalidSurface) {
		t.Errorf("Short surface = %v, want ErrInvalidSurface", err)
	}
	if err := b.RenderPage(page, s, raster.Placement{W: 0, H: 8}, raster.Options{}); !errors.Is(err, raster.ErrRender) {
		t.Errorf("Empty placement = %v, want ErrRender", err)
	}
	b.ClosePage(page)
	if err := b.RenderPage(page, s, raster.Placement{W: 8, H: 8}, raster.Options{}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Closed page = %v, want ErrInvalidHandle", err)
	}
	if err := b.RenderPageMatrix(page, s, raster.Matrix{ScaleX: 1, ScaleY: 1}, raster.FullClip(s), raster.Options{}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Closed page matrix = %v, want ErrInvalidHandle", err)
	}
}

func TestRenderPageMatrixWithAnnotations(t *testing.T) {
	b, eng := newTestBridge(t)
	d := nativetest.Doc{Pages: []nativetest.PageSpec{{Width: 20, Height: 20, Color: 0xFFFFFFFF, FormColor: 0xFF00FF00}}}
	doc := openDoc(t, b, d)
	page, _ := b.LoadPage(doc, 0)

	s := raster.NewSurface(10, 10, raster.FormatRGBA8888)
	err := b.RenderPageMatrix(page, s, raster.Matrix{ScaleX: 0.5, ScaleY: 0.5}, raster.FullClip(s), raster.Options{Annotations: true})
	if err != nil {
		t.Fatalf("RenderPageMatrix failed: %v", err)
	}
	if got := s.At(4, 4); got != (color.RGBA{G: 0xFF, A: 0xFF}) {
		t.Errorf("Pixel = %v, want form layer", got)
	}
	if _, _, _, _, _, _, forms := eng.Live(); forms != 0 {
		t.Errorf("%d form environments left open", forms)
	}
}
