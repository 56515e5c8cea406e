package raster

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/drummonds/pdfbridge/native"
)

// Options control fills and the annotation layer of a frame.
type Options struct {
	Annotations bool
	// CanvasColor fills the whole surface once, before the first page,
	// when that page does not cover it.
	CanvasColor Color
	// PageColor fills each page's area before its content is drawn.
	PageColor Color
}

// Placement positions a page in device pixels.
type Placement struct {
	X, Y, W, H int
}

// Matrix is a scale and translate transform from page points to pixels.
type Matrix struct {
	ScaleX, ScaleY float32
	TransX, TransY float32
}

// Clip is a rectangle in device pixels.
type Clip struct {
	Left, Top, Right, Bottom float32
}

// FullClip covers a whole surface.
func FullClip(s *Surface) Clip {
	return Clip{Right: float32(s.Width), Bottom: float32(s.Height)}
}

// Compositor renders pages into surfaces through a native.Rasterizer.
// It does no locking; callers serialize engine access.
type Compositor struct {
	eng    native.Rasterizer
	logger *slog.Logger
}

// NewCompositor returns a compositor; a nil logger discards output.
func NewCompositor(eng native.Rasterizer, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compositor{eng: eng, logger: logger}
}

// Frame is one composition onto a surface. Pages are drawn in call order;
// Finish commits the result.
type Frame struct {
	c       *Compositor
	surface *Surface
	opts    Options
	flags   int

	bmp           native.Bitmap
	scratch       []byte
	scratchStride int

	drawn    bool
	finished bool
}

// Begin wraps surface as an engine bitmap. RGBA surfaces are rendered in
// place; 565 surfaces go through a 24-bit scratch buffer seeded with the
// current pixels.
func (c *Compositor) Begin(surface *Surface, opts Options) (*Frame, error) {
	if err := surface.Validate(); err != nil {
		return nil, err
	}
	f := &Frame{c: c, surface: surface, opts: opts, flags: native.FlagReverseByteOrder}
	if opts.Annotations {
		f.flags |= native.FlagAnnot
	}
	switch surface.Format {
	case FormatRGBA8888:
		f.bmp = c.eng.BitmapCreateEx(surface.Width, surface.Height, native.BitmapBGRA, surface.Pix, surface.Stride)
	case FormatRGB565:
		f.scratchStride = surface.Width * 3
		f.scratch = make([]byte, f.scratchStride*surface.Height)
		rgb565ToRGB(f.scratch, f.scratchStride, surface.Pix, surface.Stride, surface.Width, surface.Height)
		f.bmp = c.eng.BitmapCreateEx(surface.Width, surface.Height, native.BitmapBGR, f.scratch, f.scratchStride)
	}
	if f.bmp == 0 {
		return nil, fmt.Errorf("%w: cannot wrap %dx%d %v surface", ErrRender, surface.Width, surface.Height, surface.Format)
	}
	c.logger.Debug("Frame started", "width", surface.Width, "height", surface.Height, "format", surface.Format.String())
	return f, nil
}

type area struct{ x0, y0, x1, y1 int }

func (a area) intersect(b area) area {
	return area{max(a.x0, b.x0), max(a.y0, b.y0), min(a.x1, b.x1), min(a.y1, b.y1)}
}

func (a area) empty() bool { return a.x0 >= a.x1 || a.y0 >= a.y1 }

func (a area) covers(b area) bool {
	return a.x0 <= b.x0 && a.y0 <= b.y0 && a.x1 >= b.x1 && a.y1 >= b.y1
}

func (f *Frame) canvas() area { return area{0, 0, f.surface.Width, f.surface.Height} }

// prepare runs the canvas and page background fills for a page drawn at
// dst. The canvas is filled only when dst leaves part of it uncovered; the
// page background is limited to bg.
func (f *Frame) prepare(dst, bg area) {
	canvas := f.canvas()
	if !f.drawn && f.opts.CanvasColor != 0 && !dst.covers(canvas) {
		f.c.eng.BitmapFillRect(f.bmp, 0, 0, canvas.x1, canvas.y1, f.opts.CanvasColor.swapRB())
	}
	f.drawn = true
	if f.opts.PageColor == 0 {
		return
	}
	bg = bg.intersect(canvas)
	if bg.empty() {
		return
	}
	f.c.eng.BitmapFillRect(f.bmp, bg.x0, bg.y0, bg.x1-bg.x0, bg.y1-bg.y0, f.opts.PageColor.swapRB())
}

func (f *Frame) check() error {
	if f.finished {
		return fmt.Errorf("%w: frame already finished", ErrRender)
	}
	return nil
}

// overlayForms draws form field appearances over the page content.
func (f *Frame) overlayForms(doc native.Document, page native.Page, x, y, w, h int) {
	form := f.c.eng.InitFormFillEnvironment(doc)
	if form == 0 {
		f.c.logger.Warn("Form fill environment unavailable, skipping form layer")
		return
	}
	f.c.eng.FFLDraw(form, f.bmp, page, x, y, w, h, 0, f.flags)
	f.c.eng.ExitFormFillEnvironment(form)
}

// DrawPage renders page into the rectangle p.
func (f *Frame) DrawPage(doc native.Document, page native.Page, p Placement) error {
	if err := f.check(); err != nil {
		return err
	}
	if p.W <= 0 || p.H <= 0 {
		return fmt.Errorf("%w: empty placement %dx%d", ErrRender, p.W, p.H)
	}
	dst := area{p.X, p.Y, p.X + p.W, p.Y + p.H}
	f.prepare(dst, dst)
	f.c.eng.RenderPageBitmap(f.bmp, page, p.X, p.Y, p.W, p.H, 0, f.flags)
	if f.opts.Annotations {
		f.overlayForms(doc, page, p.X, p.Y, p.W, p.H)
	}
	return nil
}

// DrawPageMatrix renders page through m, limited to clip.
func (f *Frame) DrawPageMatrix(doc native.Document, page native.Page, m Matrix, clip Clip) error {
	if err := f.check(); err != nil {
		return err
	}
	if m.ScaleX <= 0 || m.ScaleY <= 0 {
		return fmt.Errorf("%w: non-positive scale %gx%g", ErrRender, m.ScaleX, m.ScaleY)
	}
	width := f.c.eng.GetPageWidth(page) * float64(m.ScaleX)
	height := f.c.eng.GetPageHeight(page) * float64(m.ScaleY)
	x := int(math.Round(float64(m.TransX)))
	y := int(math.Round(float64(m.TransY)))
	w, h := int(math.Round(width)), int(math.Round(height))

	dst := area{x, y, x + w, y + h}
	clipArea := area{
		int(math.Floor(float64(clip.Left))), int(math.Floor(float64(clip.Top))),
		int(math.Ceil(float64(clip.Right))), int(math.Ceil(float64(clip.Bottom))),
	}
	f.prepare(dst, dst.intersect(clipArea))

	nm := native.Matrix{A: m.ScaleX, D: m.ScaleY, E: m.TransX, F: m.TransY}
	nc := native.RectF{Left: clip.Left, Top: clip.Top, Right: clip.Right, Bottom: clip.Bottom}
	f.c.eng.RenderPageBitmapWithMatrix(f.bmp, page, &nm, &nc, f.flags)
	if f.opts.Annotations {
		f.overlayForms(doc, page, x, y, w, h)
	}
	return nil
}

// Finish converts the scratch buffer into a 565 surface and releases the
// engine bitmap. Calling it again does nothing.
func (f *Frame) Finish() error {
	if f.finished {
		return nil
	}
	f.finished = true
	if f.scratch != nil {
		s := f.surface
		RGBTo565(s.Pix, s.Stride, f.scratch, f.scratchStride, s.Width, s.Height)
		f.scratch = nil
	}
	f.c.eng.BitmapDestroy(f.bmp)
	f.bmp = 0
	return nil
}
