package bridge

import (
	"fmt"

	"github.com/drummonds/pdfbridge/native"
)

// Size is a page size in points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pixels converts the size at dpi, truncating like the engine's callers do.
func (s Size) Pixels(dpi int) (int, int) {
	return int(s.Width * float64(dpi) / 72), int(s.Height * float64(dpi) / 72)
}

// Rect is a rectangle in page points (origin bottom left) or device pixels,
// depending on the call.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func rectF(r native.RectF) Rect {
	return Rect{Left: float64(r.Left), Top: float64(r.Top), Right: float64(r.Right), Bottom: float64(r.Bottom)}
}

// Viewport describes where a page is drawn on a device, as passed to the
// engine's coordinate mapping calls. Rotate counts quarter turns clockwise.
type Viewport struct {
	StartX, StartY int
	SizeX, SizeY   int
	Rotate         int
}

// Link is a link annotation on a page.
type Link struct {
	Bounds        Rect   `json:"bounds"`
	DestPageIndex int    `json:"dest_page_index"`
	URI           string `json:"uri,omitempty"`
}

func (b *Bridge) PageSize(h Handle) (Size, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page("page size", h)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: b.eng.GetPageWidth(p.page), Height: b.eng.GetPageHeight(p.page)}, nil
}

func (b *Bridge) PageSizePixels(h Handle, dpi int) (int, int, error) {
	s, err := b.PageSize(h)
	if err != nil {
		return 0, 0, err
	}
	w, ht := s.Pixels(dpi)
	return w, ht, nil
}

// PageSizeByIndex reads a page size in pixels without loading the page.
func (b *Bridge) PageSizeByIndex(doc Handle, index, dpi int) (int, int, error) {
	const op = "page size by index"
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document(op, doc)
	if err != nil {
		return 0, 0, err
	}
	w, h, ok := b.eng.GetPageSizeByIndex(d.doc, index)
	if !ok {
		return 0, 0, &Error{Op: op, Handle: doc, Err: fmt.Errorf("index %d: %w", index, ErrPageLoad)}
	}
	pw, ph := Size{Width: w, Height: h}.Pixels(dpi)
	return pw, ph, nil
}

// PageRotation returns 0-3 quarter turns.
func (b *Bridge) PageRotation(h Handle) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page("page rotation", h)
	if err != nil {
		return 0, err
	}
	return b.eng.GetPageRotation(p.page), nil
}

// missingBox is returned for a box the page does not define.
var missingBox = Rect{Left: -1, Top: -1, Right: -1, Bottom: -1}

func (b *Bridge) PageBox(h Handle, box native.Box) (Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page("page box", h)
	if err != nil {
		return missingBox, err
	}
	r, ok := b.eng.GetPageBox(p.page, box)
	if !ok {
		return missingBox, nil
	}
	return rectF(r), nil
}

func (b *Bridge) PageBoundingBox(h Handle) (Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page("page bounding box", h)
	if err != nil {
		return missingBox, err
	}
	r, ok := b.eng.GetPageBoundingBox(p.page)
	if !ok {
		return missingBox, nil
	}
	return rectF(r), nil
}

// PageLinks lists the link annotations of a page with their resolved
// destinations.
func (b *Bridge) PageLinks(h Handle) ([]Link, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page("page links", h)
	if err != nil {
		return nil, err
	}
	var links []Link
	pos := 0
	for {
		l, ok := b.eng.LinkEnumerate(p.page, &pos)
		if !ok {
			break
		}
		r, _ := b.eng.LinkGetAnnotRect(l)
		links = append(links, Link{
			Bounds:        rectF(r),
			DestPageIndex: b.linkDest(p.doc, l),
			URI:           b.linkURI(p.doc, l),
		})
	}
	return links, nil
}

// LinkAtPoint returns the link under device point (x, y), or zero.
func (b *Bridge) LinkAtPoint(h Handle, vp Viewport, x, y int) (native.Link, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page("link at point", h)
	if err != nil {
		return 0, err
	}
	px, py, ok := b.eng.DeviceToPage(p.page, vp.StartX, vp.StartY, vp.SizeX, vp.SizeY, vp.Rotate, x, y)
	if !ok {
		return 0, nil
	}
	return b.eng.LinkAtPoint(p.page, px, py), nil
}

func (b *Bridge) PageToDevice(h Handle, vp Viewport, pageX, pageY float64) (int, int, error) {
	const op = "page to device"
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page(op, h)
	if err != nil {
		return 0, 0, err
	}
	x, y, ok := b.eng.PageToDevice(p.page, vp.StartX, vp.StartY, vp.SizeX, vp.SizeY, vp.Rotate, pageX, pageY)
	if !ok {
		return 0, 0, opError(op, h, ErrInvalidRange)
	}
	return x, y, nil
}

func (b *Bridge) DeviceToPage(h Handle, vp Viewport, deviceX, deviceY int) (float64, float64, error) {
	const op = "device to page"
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page(op, h)
	if err != nil {
		return 0, 0, err
	}
	x, y, ok := b.eng.DeviceToPage(p.page, vp.StartX, vp.StartY, vp.SizeX, vp.SizeY, vp.Rotate, deviceX, deviceY)
	if !ok {
		return 0, 0, opError(op, h, ErrInvalidRange)
	}
	return x, y, nil
}

// RectToDevice maps a page rectangle to device pixels.
func (b *Bridge) RectToDevice(h Handle, vp Viewport, r Rect) (Rect, error) {
	left, top, err := b.PageToDevice(h, vp, r.Left, r.Top)
	if err != nil {
		return Rect{}, err
	}
	right, bottom, err := b.PageToDevice(h, vp, r.Right, r.Bottom)
	if err != nil {
		return Rect{}, err
	}
	return Rect{Left: float64(left), Top: float64(top), Right: float64(right), Bottom: float64(bottom)}, nil
}

// RectToPage maps a device rectangle to page points.
func (b *Bridge) RectToPage(h Handle, vp Viewport, r Rect) (Rect, error) {
	left, top, err := b.DeviceToPage(h, vp, int(r.Left), int(r.Top))
	if err != nil {
		return Rect{}, err
	}
	right, bottom, err := b.DeviceToPage(h, vp, int(r.Right), int(r.Bottom))
	if err != nil {
		return Rect{}, err
	}
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}, nil
}
