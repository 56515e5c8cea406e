package raster

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/drummonds/pdfbridge/native"
	"github.com/drummonds/pdfbridge/native/nativetest"
)

func openPage(t *testing.T, spec nativetest.PageSpec) (*nativetest.Engine, native.Document, native.Page) {
	t.Helper()
	eng := nativetest.New()
	doc := eng.LoadMemDocument(nativetest.Marshal(nativetest.Doc{Pages: []nativetest.PageSpec{spec}}), "")
	if doc == 0 {
		t.Fatalf("Failed to open fake document: %v", eng.GetLastError())
	}
	page := eng.LoadPage(doc, 0)
	if page == 0 {
		t.Fatalf("Failed to load fake page")
	}
	return eng, doc, page
}

func TestLetterboxKeepsCanvasColorOnBorders(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 612, Height: 792, Color: 0xFFFF0000})
	s := NewSurface(100, 100, FormatRGBA8888)

	f, err := NewCompositor(eng, nil).Begin(s, Options{CanvasColor: 0xFF0000FF, PageColor: 0xFFFFFFFF})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := f.DrawPage(doc, page, Placement{X: 25, Y: 10, W: 50, H: 80}); err != nil {
		t.Fatalf("DrawPage failed: %v", err)
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	blue := color.RGBA{B: 0xFF, A: 0xFF}
	red := color.RGBA{R: 0xFF, A: 0xFF}
	for _, pt := range [][2]int{{0, 0}, {24, 50}, {75, 50}, {50, 9}, {50, 90}, {99, 99}} {
		if got := s.At(pt[0], pt[1]); got != blue {
			t.Errorf("Border pixel %v = %v, want canvas %v", pt, got, blue)
		}
	}
	for _, pt := range [][2]int{{25, 10}, {50, 50}, {74, 89}} {
		if got := s.At(pt[0], pt[1]); got != red {
			t.Errorf("Page pixel %v = %v, want %v", pt, got, red)
		}
	}
}

func TestRenderStaysInsideSurface(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 100, Height: 100, Color: 0xFF00FF00})
	const width, height, stride = 20, 10, 20*4 + 8
	pix := make([]byte, stride*height+16)
	for i := range pix {
		pix[i] = 0xAB
	}
	s := &Surface{Width: width, Height: height, Stride: stride, Format: FormatRGBA8888, Pix: pix}

	f, err := NewCompositor(eng, nil).Begin(s, Options{CanvasColor: 0xFF000000, PageColor: 0xFFFFFFFF})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := f.DrawPage(doc, page, Placement{X: -10, Y: -10, W: 200, H: 50}); err != nil {
		t.Fatalf("DrawPage failed: %v", err)
	}
	f.Finish()

	for y := 0; y < height; y++ {
		for i := width * 4; i < stride; i++ {
			if pix[y*stride+i] != 0xAB {
				t.Fatalf("Row %d padding byte %d overwritten", y, i)
			}
		}
	}
	for i := stride * height; i < len(pix); i++ {
		if pix[i] != 0xAB {
			t.Fatalf("Byte %d past the last row overwritten", i)
		}
	}
	if got := s.At(0, 0); got != (color.RGBA{G: 0xFF, A: 0xFF}) {
		t.Errorf("Corner pixel = %v, want page green", got)
	}
}

func TestPageColorShowsThroughTransparentPage(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 10, Height: 10})
	s := NewSurface(4, 4, FormatRGBA8888)

	f, err := NewCompositor(eng, nil).Begin(s, Options{PageColor: 0xFF112233})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	f.DrawPage(doc, page, Placement{W: 4, H: 4})
	f.Finish()

	want := []byte{0x11, 0x22, 0x33, 0xFF}
	if got := s.Pix[:4]; string(got) != string(want) {
		t.Errorf("Fill bytes = % x, want % x", got, want)
	}
}

func TestNoCanvasFillWhenPageCoversSurface(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 10, Height: 10, Color: 0xFFFFFFFF})
	s := NewSurface(8, 8, FormatRGBA8888)

	f, _ := NewCompositor(eng, nil).Begin(s, Options{CanvasColor: 0xFF848484})
	f.DrawPage(doc, page, Placement{W: 8, H: 8})
	f.Finish()

	for _, call := range eng.Calls() {
		if strings.HasPrefix(call, "fill") {
			t.Errorf("Unexpected canvas fill %q", call)
		}
	}
}

func TestRGB565Surface(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 10, Height: 10, Color: 0xFF8040F8})
	s := NewSurface(6, 3, FormatRGB565)

	f, err := NewCompositor(eng, nil).Begin(s, Options{CanvasColor: 0xFF0000FF})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := f.DrawPage(doc, page, Placement{X: 0, Y: 0, W: 3, H: 3}); err != nil {
		t.Fatalf("DrawPage failed: %v", err)
	}
	f.Finish()

	page565 := uint16(0x80>>3)<<11 | uint16(0x40>>2)<<5 | uint16(0xF8>>3)
	canvas565 := uint16(0x1F)
	at := func(x, y int) uint16 {
		off := y*s.Stride + 2*x
		return uint16(s.Pix[off]) | uint16(s.Pix[off+1])<<8
	}
	if got := at(1, 1); got != page565 {
		t.Errorf("Page pixel = %#04x, want %#04x", got, page565)
	}
	if got := at(4, 1); got != canvas565 {
		t.Errorf("Canvas pixel = %#04x, want %#04x", got, canvas565)
	}
}

func TestRGB565UntouchedPixelsSurvive(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 10, Height: 10, Color: 0xFFFFFFFF})
	s := NewSurface(4, 1, FormatRGB565)
	s.Pix[6], s.Pix[7] = 0x34, 0x12

	f, _ := NewCompositor(eng, nil).Begin(s, Options{})
	f.DrawPage(doc, page, Placement{W: 2, H: 1})
	f.Finish()

	if s.Pix[6] != 0x34 || s.Pix[7] != 0x12 {
		t.Errorf("Untouched pixel changed to % x", s.Pix[6:8])
	}
	if s.Pix[0] != 0xFF || s.Pix[1] != 0xFF {
		t.Errorf("Rendered pixel = % x, want ff ff", s.Pix[0:2])
	}
}

func TestFormLayerDrawnAfterContent(t *testing.T) {
	for _, matrix := range []bool{false, true} {
		name := "placement"
		if matrix {
			name = "matrix"
		}
		t.Run(name, func(t *testing.T) {
			eng, doc, page := openPage(t, nativetest.PageSpec{Width: 10, Height: 10, Color: 0xFFFF0000, FormColor: 0xFF00FF00})
			s := NewSurface(10, 10, FormatRGBA8888)
			f, err := NewCompositor(eng, nil).Begin(s, Options{Annotations: true})
			if err != nil {
				t.Fatalf("Begin failed: %v", err)
			}
			if matrix {
				err = f.DrawPageMatrix(doc, page, Matrix{ScaleX: 1, ScaleY: 1}, FullClip(s))
			} else {
				err = f.DrawPage(doc, page, Placement{W: 10, H: 10})
			}
			if err != nil {
				t.Fatalf("Draw failed: %v", err)
			}
			f.Finish()

			calls := eng.Calls()
			var order []string
			for _, c := range calls {
				order = append(order, strings.Fields(c)[0]+" "+strings.Fields(c)[1])
			}
			renderAt, drawAt := -1, -1
			for i, c := range calls {
				if strings.HasPrefix(c, "render") {
					renderAt = i
					if !strings.Contains(c, "flags=0x11") {
						t.Errorf("Render flags in %q, want reverse byte order and annotations", c)
					}
				}
				if strings.HasPrefix(c, "form draw") {
					drawAt = i
				}
			}
			if renderAt < 0 || drawAt < renderAt {
				t.Fatalf("Form layer not drawn after content: %v", order)
			}
			if got := s.At(5, 5); got != (color.RGBA{G: 0xFF, A: 0xFF}) {
				t.Errorf("Pixel = %v, want form green on top", got)
			}
			if _, _, _, _, _, bitmaps, forms := eng.Live(); bitmaps != 0 || forms != 0 {
				t.Errorf("Leaked %d bitmaps and %d form environments", bitmaps, forms)
			}
		})
	}
}

func TestMatrixRespectsClip(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 100, Height: 100, Color: 0xFFFF0000})
	s := NewSurface(64, 64, FormatRGBA8888)

	f, _ := NewCompositor(eng, nil).Begin(s, Options{CanvasColor: 0xFF000000, PageColor: 0xFFFFFFFF})
	err := f.DrawPageMatrix(doc, page, Matrix{ScaleX: 0.5, ScaleY: 0.5, TransX: 10, TransY: 10}, Clip{Right: 30, Bottom: 30})
	if err != nil {
		t.Fatalf("DrawPageMatrix failed: %v", err)
	}
	f.Finish()

	if got := s.At(29, 29); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Errorf("Inside clip = %v, want page red", got)
	}
	if got := s.At(35, 35); got != (color.RGBA{A: 0xFF}) {
		t.Errorf("Outside clip = %v, want canvas black", got)
	}
}

func TestMatrixTileKeepsPixelsOutsideClip(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 64, Height: 64, Color: 0xFFFF0000})
	s := NewSurface(64, 64, FormatRGBA8888)
	for i := range s.Pix {
		s.Pix[i] = 0x11
	}

	f, _ := NewCompositor(eng, nil).Begin(s, Options{CanvasColor: 0xFF0000FF, PageColor: 0xFFFFFFFF})
	err := f.DrawPageMatrix(doc, page, Matrix{ScaleX: 1, ScaleY: 1}, Clip{Right: 16, Bottom: 16})
	if err != nil {
		t.Fatalf("DrawPageMatrix failed: %v", err)
	}
	f.Finish()

	if got := s.At(8, 8); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Errorf("Inside clip = %v, want page red", got)
	}
	// the page covers the canvas, so nothing outside the tile is filled
	untouched := color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0x11}
	for _, pt := range [][2]int{{16, 16}, {40, 40}, {63, 0}, {0, 63}} {
		if got := s.At(pt[0], pt[1]); got != untouched {
			t.Errorf("Pixel %v outside clip = %v, want %v", pt, got, untouched)
		}
	}
}

func TestFrameFinishIsIdempotent(t *testing.T) {
	eng, doc, page := openPage(t, nativetest.PageSpec{Width: 10, Height: 10})
	f, err := NewCompositor(eng, nil).Begin(NewSurface(2, 2, FormatRGB565), Options{})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("First Finish: %v", err)
	}
	if err := f.Finish(); err != nil {
		t.Fatalf("Second Finish: %v", err)
	}
	if err := f.DrawPage(doc, page, Placement{W: 1, H: 1}); !errors.Is(err, ErrRender) {
		t.Errorf("Draw after Finish = %v, want ErrRender", err)
	}
}

func TestBeginRejectsBadSurfaces(t *testing.T) {
	eng := nativetest.New()
	c := NewCompositor(eng, nil)
	tests := []struct {
		name    string
		surface *Surface
		want    error
	}{
		{"nil", nil, ErrInvalidSurface},
		{"format", &Surface{Width: 1, Height: 1, Stride: 4, Format: Format(9), Pix: make([]byte, 4)}, ErrUnsupportedFormat},
		{"short buffer", &Surface{Width: 4, Height: 4, Stride: 16, Format: FormatRGBA8888, Pix: make([]byte, 60)}, ErrInvalidSurface},
		{"stride", &Surface{Width: 4, Height: 1, Stride: 4, Format: FormatRGB565, Pix: make([]byte, 8)}, ErrInvalidSurface},
		{"empty", &Surface{Format: FormatRGBA8888}, ErrInvalidSurface},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Begin(tt.surface, Options{}); !errors.Is(err, tt.want) {
				t.Errorf("Begin() error = %v, want %v", err, tt.want)
			}
		})
	}
}
