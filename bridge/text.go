package bridge

import "fmt"

// Sentinels returned by CharIndexAtPos.
const (
	NoCharAtPos    = -1
	CharIndexError = -3
)

// Range is a run of characters on a text page.
type Range struct {
	Start int `json:"start"`
	Count int `json:"count"`
}

// LoadTextPage opens the text layer of a page. A page has one text page;
// loading it again returns the same handle with another reference.
func (b *Bridge) LoadTextPage(page Handle) (Handle, error) {
	const op = "load text page"
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page(op, page)
	if err != nil {
		return 0, err
	}
	if p.text != nil {
		p.text.refs++
		return p.text.handle, nil
	}
	nt := b.eng.TextLoadPage(p.page)
	if nt == 0 {
		return 0, opError(op, page, ErrPageLoad)
	}
	t := &textPage{
		text:  nt,
		page:  p,
		refs:  1,
		finds: make(map[Handle]*find),
		links: make(map[Handle]*webLinks),
	}
	t.handle = b.arena.put(kindTextPage, t)
	p.text = t
	return t.handle, nil
}

func (b *Bridge) CloseTextPage(h Handle) error {
	const op = "close text page"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, h)
	if err != nil {
		return b.closed(op, h)
	}
	t.refs--
	if t.refs <= 0 {
		b.closeTextPage(t)
	}
	return nil
}

func (b *Bridge) closeTextPage(t *textPage) {
	for _, f := range t.finds {
		b.closeFind(f)
	}
	for _, l := range t.links {
		b.closeWebLinks(l)
	}
	b.eng.TextClosePage(t.text)
	b.arena.remove(t.handle)
	t.page.text = nil
}

func (b *Bridge) CountChars(text Handle) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage("count chars", text)
	if err != nil {
		return 0, err
	}
	return b.eng.TextCountChars(t.text), nil
}

func (b *Bridge) charIndex(op string, t *textPage, index int) error {
	if index < 0 || index >= b.eng.TextCountChars(t.text) {
		return &Error{Op: op, Handle: t.handle, Err: fmt.Errorf("char %d: %w", index, ErrInvalidRange)}
	}
	return nil
}

// Unicode returns the code point of character index.
func (b *Bridge) Unicode(text Handle, index int) (rune, error) {
	const op = "unicode"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return 0, err
	}
	if err := b.charIndex(op, t, index); err != nil {
		return 0, err
	}
	return b.eng.TextGetUnicode(t.text, index), nil
}

// CharBox returns the tight glyph box of a character in page points.
func (b *Bridge) CharBox(text Handle, index int) (Rect, error) {
	const op = "char box"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return Rect{}, err
	}
	left, right, bottom, top, ok := b.eng.TextGetCharBox(t.text, index)
	if !ok {
		return Rect{}, &Error{Op: op, Handle: text, Err: fmt.Errorf("char %d: %w", index, ErrInvalidRange)}
	}
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}, nil
}

// LooseCharBox returns the box of a character including font ascent and
// descent.
func (b *Bridge) LooseCharBox(text Handle, index int) (Rect, error) {
	const op = "loose char box"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return Rect{}, err
	}
	r, ok := b.eng.TextGetLooseCharBox(t.text, index)
	if !ok {
		return Rect{}, &Error{Op: op, Handle: text, Err: fmt.Errorf("char %d: %w", index, ErrInvalidRange)}
	}
	return rectF(r), nil
}

// CharIndexAtPos returns the character nearest (x, y) within the
// tolerances, NoCharAtPos, or CharIndexError.
func (b *Bridge) CharIndexAtPos(text Handle, x, y, xTolerance, yTolerance float64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage("char index at pos", text)
	if err != nil {
		return CharIndexError, err
	}
	return b.eng.TextGetCharIndexAtPos(t.text, x, y, xTolerance, yTolerance), nil
}

// Text extracts count characters starting at start.
func (b *Bridge) Text(text Handle, start, count int) (string, error) {
	const op = "text"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return "", err
	}
	total := b.eng.TextCountChars(t.text)
	if start < 0 || count < 0 || start > total {
		return "", &Error{Op: op, Handle: text, Err: fmt.Errorf("%d+%d: %w", start, count, ErrInvalidRange)}
	}
	if start+count > total {
		count = total - start
	}
	if count == 0 {
		return "", nil
	}
	// Surrogate pairs take two units per character.
	buf := make([]uint16, 2*count+1)
	n := b.eng.TextGetText(t.text, start, count, buf)
	if n <= 0 {
		return "", nil
	}
	return decodeUnits(buf[:n]), nil
}

// AllText extracts every character of the text page.
func (b *Bridge) AllText(text Handle) (string, error) {
	n, err := b.CountChars(text)
	if err != nil {
		return "", err
	}
	return b.Text(text, 0, n)
}

// BoundedText extracts the characters inside r, given in page points.
func (b *Bridge) BoundedText(text Handle, r Rect) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage("bounded text", text)
	if err != nil {
		return "", err
	}
	n := b.eng.TextGetBoundedText(t.text, r.Left, r.Top, r.Right, r.Bottom, nil)
	if n <= 0 {
		return "", nil
	}
	buf := make([]uint16, n+1)
	n = b.eng.TextGetBoundedText(t.text, r.Left, r.Top, r.Right, r.Bottom, buf)
	return decodeUnits(buf[:n]), nil
}

// CountRects returns the number of highlight rectangles covering a
// character range. A count of -1 runs to the end of the page.
func (b *Bridge) CountRects(text Handle, start, count int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage("count rects", text)
	if err != nil {
		return 0, err
	}
	return b.eng.TextCountRects(t.text, start, count), nil
}

// TextRect returns rectangle index of the last CountRects call.
func (b *Bridge) TextRect(text Handle, index int) (Rect, error) {
	const op = "text rect"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return Rect{}, err
	}
	left, top, right, bottom, ok := b.eng.TextGetRect(t.text, index)
	if !ok {
		return Rect{}, &Error{Op: op, Handle: text, Err: fmt.Errorf("rect %d: %w", index, ErrInvalidRange)}
	}
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}, nil
}

func (b *Bridge) rangeRects(t *textPage, start, count int) []Rect {
	n := b.eng.TextCountRects(t.text, start, count)
	rects := make([]Rect, 0, n)
	for i := 0; i < n; i++ {
		left, top, right, bottom, ok := b.eng.TextGetRect(t.text, i)
		if ok {
			rects = append(rects, Rect{Left: left, Top: top, Right: right, Bottom: bottom})
		}
	}
	return rects
}

// RectsForRanges returns the highlight rectangles of every range, in order.
func (b *Bridge) RectsForRanges(text Handle, ranges []Range) ([]Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage("rects for ranges", text)
	if err != nil {
		return nil, err
	}
	var rects []Rect
	for _, r := range ranges {
		rects = append(rects, b.rangeRects(t, r.Start, r.Count)...)
	}
	return rects, nil
}

func (b *Bridge) FontSize(text Handle, index int) (float64, error) {
	const op = "font size"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return 0, err
	}
	if err := b.charIndex(op, t, index); err != nil {
		return 0, err
	}
	return b.eng.TextGetFontSize(t.text, index), nil
}
