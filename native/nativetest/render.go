package nativetest

import (
	"fmt"
	"math"

	"github.com/drummonds/pdfbridge/native"
)

func bytesPerPixel(format int) int {
	switch format {
	case native.BitmapGray:
		return 1
	case native.BitmapBGR:
		return 3
	case native.BitmapBGRx, native.BitmapBGRA:
		return 4
	}
	return 0
}

func (e *Engine) BitmapCreateEx(width, height, format int, buf []byte, stride int) native.Bitmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	bpp := bytesPerPixel(format)
	if width <= 0 || height <= 0 || bpp == 0 || stride < width*bpp || len(buf) < stride*(height-1)+width*bpp {
		return 0
	}
	h := native.Bitmap(e.alloc())
	e.bitmaps[h] = &bitmap{width: width, height: height, format: format, stride: stride, pix: buf}
	return h
}

func (e *Engine) bitmap(h native.Bitmap) *bitmap {
	b, ok := e.bitmaps[h]
	if !ok {
		panic(fmt.Sprintf("nativetest: unknown bitmap %#x", h))
	}
	return b
}

func (e *Engine) BitmapDestroy(h native.Bitmap) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bitmap(h)
	delete(e.bitmaps, h)
}

type rect struct{ x0, y0, x1, y1 int }

func (r rect) intersect(o rect) rect {
	r.x0, r.y0 = max(r.x0, o.x0), max(r.y0, o.y0)
	r.x1, r.y1 = min(r.x1, o.x1), min(r.y1, o.y1)
	return r
}

// set writes an 0xAARRGGBB color. The engine's native order is B,G,R,A;
// reverse byte order swaps red and blue.
func (b *bitmap) set(x, y int, color uint32, reverse bool) {
	a, r, g, bl := byte(color>>24), byte(color>>16), byte(color>>8), byte(color)
	if reverse {
		r, bl = bl, r
	}
	off := y*b.stride + x*bytesPerPixel(b.format)
	switch b.format {
	case native.BitmapBGR:
		b.pix[off], b.pix[off+1], b.pix[off+2] = bl, g, r
	case native.BitmapBGRx, native.BitmapBGRA:
		b.pix[off], b.pix[off+1], b.pix[off+2], b.pix[off+3] = bl, g, r, a
	case native.BitmapGray:
		b.pix[off] = byte((uint32(r) + uint32(g) + uint32(bl)) / 3)
	}
}

func (b *bitmap) fill(area rect, color uint32, reverse bool) {
	area = area.intersect(rect{0, 0, b.width, b.height})
	for y := area.y0; y < area.y1; y++ {
		for x := area.x0; x < area.x1; x++ {
			b.set(x, y, color, reverse)
		}
	}
}

func (e *Engine) BitmapFillRect(h native.Bitmap, left, top, width, height int, color uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("fill %d,%d %dx%d %08x", left, top, width, height, color)
	e.bitmap(h).fill(rect{left, top, left + width, top + height}, color, false)
}

func (e *Engine) RenderPageBitmap(h native.Bitmap, p native.Page, startX, startY, sizeX, sizeY, rotate, flags int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("render %d,%d %dx%d flags=%#x", startX, startY, sizeX, sizeY, flags)
	spec := e.page(p).spec
	if spec.Color>>24 == 0 {
		return
	}
	e.bitmap(h).fill(rect{startX, startY, startX + sizeX, startY + sizeY}, spec.Color, flags&native.FlagReverseByteOrder != 0)
}

func (e *Engine) RenderPageBitmapWithMatrix(h native.Bitmap, p native.Page, m *native.Matrix, clip *native.RectF, flags int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("render matrix %g,%g %gx%g flags=%#x", m.E, m.F, m.A, m.D, flags)
	spec := e.page(p).spec
	if spec.Color>>24 == 0 {
		return
	}
	area := rect{
		x0: int(math.Round(float64(m.E))),
		y0: int(math.Round(float64(m.F))),
		x1: int(math.Round(float64(m.E) + spec.Width*float64(m.A))),
		y1: int(math.Round(float64(m.F) + spec.Height*float64(m.D))),
	}
	if clip != nil {
		area = area.intersect(rect{
			int(math.Floor(float64(clip.Left))), int(math.Floor(float64(clip.Top))),
			int(math.Ceil(float64(clip.Right))), int(math.Ceil(float64(clip.Bottom))),
		})
	}
	e.bitmap(h).fill(area, spec.Color, flags&native.FlagReverseByteOrder != 0)
}

func (e *Engine) InitFormFillEnvironment(doc native.Document) native.FormHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.document(doc)
	h := native.FormHandle(e.alloc())
	e.forms[h] = doc
	e.record("form init")
	return h
}

func (e *Engine) ExitFormFillEnvironment(form native.FormHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.forms[form]; !ok {
		panic(fmt.Sprintf("nativetest: exit of unknown form environment %#x", form))
	}
	delete(e.forms, form)
	e.record("form exit")
}

func (e *Engine) FFLDraw(form native.FormHandle, h native.Bitmap, p native.Page, startX, startY, sizeX, sizeY, rotate, flags int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.forms[form]; !ok {
		panic(fmt.Sprintf("nativetest: draw with unknown form environment %#x", form))
	}
	e.record("form draw %d,%d %dx%d", startX, startY, sizeX, sizeY)
	spec := e.page(p).spec
	if spec.FormColor>>24 == 0 {
		return
	}
	e.bitmap(h).fill(rect{startX, startY, startX + sizeX, startY + sizeY}, spec.FormColor, flags&native.FlagReverseByteOrder != 0)
}
