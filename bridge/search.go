package bridge

import (
	"fmt"

	"github.com/drummonds/pdfbridge/native"
)

type FindFlags struct {
	MatchCase      bool
	MatchWholeWord bool
	// Consecutive lets matches overlap.
	Consecutive bool
}

func (f FindFlags) bits() int {
	flags := 0
	if f.MatchCase {
		flags |= native.MatchCase
	}
	if f.MatchWholeWord {
		flags |= native.MatchWholeWord
	}
	if f.Consecutive {
		flags |= native.Consecutive
	}
	return flags
}

// Match is one search hit with its highlight rectangles.
type Match struct {
	Index int    `json:"index"`
	Count int    `json:"count"`
	Rects []Rect `json:"rects,omitempty"`
}

// FindStart begins a search for query at character start. Advance it with
// FindNext before reading a result.
func (b *Bridge) FindStart(text Handle, query string, flags FindFlags, start int) (Handle, error) {
	const op = "find start"
	if query == "" {
		return 0, opError(op, text, ErrEmptyInput)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return 0, err
	}
	if start < 0 || start > b.eng.TextCountChars(t.text) {
		return 0, &Error{Op: op, Handle: text, Err: fmt.Errorf("start %d: %w", start, ErrInvalidRange)}
	}
	s := b.eng.TextFindStart(t.text, query, flags.bits(), start)
	if s == 0 {
		return 0, opError(op, text, ErrInvalidRange)
	}
	f := &find{search: s, text: t}
	f.handle = b.arena.put(kindFind, f)
	t.finds[f.handle] = f
	return f.handle, nil
}

// FindNext moves to the next match and reports whether there was one.
func (b *Bridge) FindNext(h Handle) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.find("find next", h)
	if err != nil {
		return false, err
	}
	return b.eng.TextFindNext(f.search), nil
}

func (b *Bridge) FindPrev(h Handle) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.find("find prev", h)
	if err != nil {
		return false, err
	}
	return b.eng.TextFindPrev(f.search), nil
}

// FindResult returns the current match.
func (b *Bridge) FindResult(h Handle) (Match, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.find("find result", h)
	if err != nil {
		return Match{}, err
	}
	return Match{Index: b.eng.TextGetSchResultIndex(f.search), Count: b.eng.TextGetSchCount(f.search)}, nil
}

// FindAll advances through the remaining matches, collecting each with its
// rectangles.
func (b *Bridge) FindAll(h Handle) ([]Match, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.find("find all", h)
	if err != nil {
		return nil, err
	}
	var matches []Match
	for b.eng.TextFindNext(f.search) {
		m := Match{Index: b.eng.TextGetSchResultIndex(f.search), Count: b.eng.TextGetSchCount(f.search)}
		m.Rects = b.rangeRects(f.text, m.Index, m.Count)
		matches = append(matches, m)
	}
	return matches, nil
}

func (b *Bridge) CloseFind(h Handle) error {
	const op = "close find"
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.find(op, h)
	if err != nil {
		return b.closed(op, h)
	}
	b.closeFind(f)
	return nil
}

func (b *Bridge) closeFind(f *find) {
	b.eng.TextFindClose(f.search)
	b.arena.remove(f.handle)
	delete(f.text.finds, f.handle)
}

// LoadWebLinks detects URLs in the text of a page.
func (b *Bridge) LoadWebLinks(text Handle) (Handle, error) {
	const op = "load web links"
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.textPage(op, text)
	if err != nil {
		return 0, err
	}
	pl := b.eng.LinkLoadWebLinks(t.text)
	if pl == 0 {
		return 0, opError(op, text, ErrPageLoad)
	}
	l := &webLinks{links: pl, text: t}
	l.handle = b.arena.put(kindWebLinks, l)
	t.links[l.handle] = l
	return l.handle, nil
}

func (b *Bridge) CountWebLinks(h Handle) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.webLinks("count web links", h)
	if err != nil {
		return 0, err
	}
	return b.eng.LinkCountWebLinks(l.links), nil
}

func (b *Bridge) webLinkIndex(op string, l *webLinks, index int) error {
	if index < 0 || index >= b.eng.LinkCountWebLinks(l.links) {
		return &Error{Op: op, Handle: l.handle, Err: fmt.Errorf("link %d: %w", index, ErrInvalidRange)}
	}
	return nil
}

func (b *Bridge) WebLinkURL(h Handle, index int) (string, error) {
	const op = "web link url"
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.webLinks(op, h)
	if err != nil {
		return "", err
	}
	if err := b.webLinkIndex(op, l, index); err != nil {
		return "", err
	}
	n := b.eng.LinkGetURL(l.links, index, nil)
	if n <= 1 {
		return "", nil
	}
	buf := make([]uint16, n)
	n = b.eng.LinkGetURL(l.links, index, buf)
	return decodeUnits(buf[:n]), nil
}

func (b *Bridge) WebLinkRects(h Handle, index int) ([]Rect, error) {
	const op = "web link rects"
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.webLinks(op, h)
	if err != nil {
		return nil, err
	}
	if err := b.webLinkIndex(op, l, index); err != nil {
		return nil, err
	}
	n := b.eng.LinkCountRects(l.links, index)
	rects := make([]Rect, 0, n)
	for i := 0; i < n; i++ {
		left, top, right, bottom, ok := b.eng.LinkGetRect(l.links, index, i)
		if ok {
			rects = append(rects, Rect{Left: left, Top: top, Right: right, Bottom: bottom})
		}
	}
	return rects, nil
}

func (b *Bridge) WebLinkTextRange(h Handle, index int) (Range, error) {
	const op = "web link text range"
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.webLinks(op, h)
	if err != nil {
		return Range{}, err
	}
	start, count, ok := b.eng.LinkGetTextRange(l.links, index)
	if !ok {
		return Range{}, &Error{Op: op, Handle: h, Err: fmt.Errorf("link %d: %w", index, ErrInvalidRange)}
	}
	return Range{Start: start, Count: count}, nil
}

func (b *Bridge) CloseWebLinks(h Handle) error {
	const op = "close web links"
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.webLinks(op, h)
	if err != nil {
		return b.closed(op, h)
	}
	b.closeWebLinks(l)
	return nil
}

func (b *Bridge) closeWebLinks(l *webLinks) {
	b.eng.LinkCloseWebLinks(l.links)
	b.arena.remove(l.handle)
	delete(l.text.links, l.handle)
}
