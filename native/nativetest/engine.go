package nativetest

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"

	"github.com/drummonds/pdfbridge/native"
)

type document struct {
	spec      *Doc
	bookmarks []native.Bookmark
}

type page struct {
	doc  native.Document
	spec *PageSpec
}

type textPage struct {
	page  native.Page
	runes []rune
	rects []native.RectF
}

type search struct {
	text    native.TextPage
	matches []int
	length  int
	cursor  int
}

type webLinks struct {
	text  native.TextPage
	spans [][2]int
	urls  []string
}

type bitmap struct {
	width, height, format, stride int
	pix                           []byte
}

type bookmarkNode struct {
	doc         native.Document
	spec        *BookmarkSpec
	firstChild  native.Bookmark
	nextSibling native.Bookmark
}

type link struct {
	page native.Page
	spec LinkSpec
}

// Engine is an in-memory native.Engine. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	inits, destroys int
	loads           int
	lastErr         native.ErrorCode
	next            uintptr
	calls           []string

	docs      map[native.Document]*document
	pages     map[native.Page]*page
	texts     map[native.TextPage]*textPage
	searches  map[native.Search]*search
	webLinks  map[native.PageLink]*webLinks
	bitmaps   map[native.Bitmap]*bitmap
	forms     map[native.FormHandle]native.Document
	bookmarks map[native.Bookmark]*bookmarkNode
	links     map[native.Link]*link
	dests     map[native.Dest]int
	actions   map[native.Action]string
}

var _ native.Engine = (*Engine)(nil)

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		next:      0x1000,
		docs:      make(map[native.Document]*document),
		pages:     make(map[native.Page]*page),
		texts:     make(map[native.TextPage]*textPage),
		searches:  make(map[native.Search]*search),
		webLinks:  make(map[native.PageLink]*webLinks),
		bitmaps:   make(map[native.Bitmap]*bitmap),
		forms:     make(map[native.FormHandle]native.Document),
		bookmarks: make(map[native.Bookmark]*bookmarkNode),
		links:     make(map[native.Link]*link),
		dests:     make(map[native.Dest]int),
		actions:   make(map[native.Action]string),
	}
}

func (e *Engine) alloc() uintptr {
	e.next += 0x10
	return e.next
}

func (e *Engine) record(format string, args ...any) {
	e.calls = append(e.calls, fmt.Sprintf(format, args...))
}

// Inits reports how many times InitLibrary ran.
func (e *Engine) Inits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inits
}

// Destroys reports how many times DestroyLibrary ran.
func (e *Engine) Destroys() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroys
}

// Loads reports how many document loads reached the engine.
func (e *Engine) Loads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

// Calls returns the render, fill and form calls seen so far.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// ResetCalls clears the call log.
func (e *Engine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// Live reports the engine objects still open.
func (e *Engine) Live() (docs, pages, texts, searches, links, bitmaps, forms int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.docs), len(e.pages), len(e.texts), len(e.searches), len(e.webLinks), len(e.bitmaps), len(e.forms)
}

func (e *Engine) InitLibrary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inits++
}

func (e *Engine) DestroyLibrary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroys++
}

func (e *Engine) GetLastError() native.ErrorCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) open(data []byte, password string) native.Document {
	e.loads++
	spec, code := parse(data)
	if code != native.ErrSuccess {
		e.lastErr = code
		return 0
	}
	if spec.Password != "" && spec.Password != password {
		e.lastErr = native.ErrPassword
		return 0
	}
	e.lastErr = native.ErrSuccess
	h := native.Document(e.alloc())
	d := &document{spec: spec}
	e.docs[h] = d
	d.bookmarks = e.buildOutline(h, spec.Outline)
	return h
}

func (e *Engine) buildOutline(doc native.Document, specs []BookmarkSpec) []native.Bookmark {
	var all []native.Bookmark
	var prev *bookmarkNode
	for i := range specs {
		h := native.Bookmark(e.alloc())
		node := &bookmarkNode{doc: doc, spec: &specs[i]}
		e.bookmarks[h] = node
		all = append(all, h)
		if prev != nil {
			prev.nextSibling = h
		}
		prev = node
		children := e.buildOutline(doc, specs[i].Children)
		if len(specs[i].Children) > 0 {
			node.firstChild = children[0]
		}
		all = append(all, children...)
	}
	return all
}

func (e *Engine) LoadMemDocument(data []byte, password string) native.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open(data, password)
}

func (e *Engine) LoadCustomDocument(access *native.FileAccess, password string) native.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	if access == nil || access.Length == 0 {
		e.loads++
		e.lastErr = native.ErrFile
		return 0
	}
	data := make([]byte, access.Length)
	const block = 4096
	for pos := uint64(0); pos < access.Length; pos += block {
		end := pos + block
		if end > access.Length {
			end = access.Length
		}
		if !access.GetBlock(pos, data[pos:end]) {
			e.loads++
			e.lastErr = native.ErrFile
			return 0
		}
	}
	return e.open(data, password)
}

func (e *Engine) CloseDocument(doc native.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[doc]
	if !ok {
		panic(fmt.Sprintf("nativetest: close of unknown document %#x", doc))
	}
	for _, bm := range d.bookmarks {
		delete(e.bookmarks, bm)
	}
	delete(e.docs, doc)
}

func (e *Engine) document(doc native.Document) *Doc {
	d, ok := e.docs[doc]
	if !ok {
		panic(fmt.Sprintf("nativetest: unknown document %#x", doc))
	}
	return d.spec
}

func (e *Engine) GetPageCount(doc native.Document) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.document(doc).Pages)
}

func (e *Engine) GetPageSizeByIndex(doc native.Document, index int) (float64, float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec := e.document(doc)
	if index < 0 || index >= len(spec.Pages) {
		return 0, 0, false
	}
	return spec.Pages[index].Width, spec.Pages[index].Height, true
}

func (e *Engine) SaveAsCopy(doc native.Document, write func(block []byte) bool, flags int) bool {
	e.mu.Lock()
	spec := *e.document(doc)
	e.mu.Unlock()
	if spec.SaveFails {
		return false
	}
	if flags == native.SaveRemoveSecurity {
		spec.Password = ""
	}
	out := Marshal(spec)
	const chunk = 7
	for len(out) > 0 {
		n := chunk
		if n > len(out) {
			n = len(out)
		}
		if !write(out[:n]) {
			return false
		}
		out = out[n:]
	}
	return true
}

// utf16Bytes encodes s as UTF-16LE followed by a two byte terminator.
func utf16Bytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 0, 2*len(units)+2)
	for _, u := range units {
		b = append(b, byte(u), byte(u>>8))
	}
	return append(b, 0, 0)
}

func fill(src, buf []byte) int {
	if len(buf) >= len(src) {
		copy(buf, src)
	}
	return len(src)
}

func (e *Engine) GetMetaText(doc native.Document, tag string, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fill(utf16Bytes(e.document(doc).Meta[tag]), buf)
}

func (e *Engine) BookmarkFirstChild(doc native.Document, parent native.Bookmark) native.Bookmark {
	e.mu.Lock()
	defer e.mu.Unlock()
	if parent == 0 {
		d := e.docs[doc]
		if d == nil || len(d.bookmarks) == 0 {
			return 0
		}
		return d.bookmarks[0]
	}
	if node, ok := e.bookmarks[parent]; ok {
		return node.firstChild
	}
	return 0
}

func (e *Engine) BookmarkNextSibling(doc native.Document, bookmark native.Bookmark) native.Bookmark {
	e.mu.Lock()
	defer e.mu.Unlock()
	if node, ok := e.bookmarks[bookmark]; ok {
		return node.nextSibling
	}
	return 0
}

func (e *Engine) BookmarkGetTitle(bookmark native.Bookmark, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	node, ok := e.bookmarks[bookmark]
	if !ok {
		return 0
	}
	return fill(utf16Bytes(node.spec.Title), buf)
}

func (e *Engine) BookmarkGetDest(doc native.Document, bookmark native.Bookmark) native.Dest {
	e.mu.Lock()
	defer e.mu.Unlock()
	node, ok := e.bookmarks[bookmark]
	if !ok || node.spec.Page < 0 {
		return 0
	}
	h := native.Dest(e.alloc())
	e.dests[h] = node.spec.Page
	return h
}

func (e *Engine) DestGetPageIndex(doc native.Document, dest native.Dest) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index, ok := e.dests[dest]; ok {
		return index
	}
	return -1
}

func (e *Engine) LoadPage(doc native.Document, index int) native.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec := e.document(doc)
	if index < 0 || index >= len(spec.Pages) || spec.Pages[index].Broken {
		e.lastErr = native.ErrPage
		return 0
	}
	h := native.Page(e.alloc())
	p := spec.Pages[index]
	e.pages[h] = &page{doc: doc, spec: &p}
	return h
}

func (e *Engine) ClosePage(p native.Page) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pages[p]; !ok {
		panic(fmt.Sprintf("nativetest: close of unknown page %#x", p))
	}
	delete(e.pages, p)
}

func (e *Engine) DeletePage(doc native.Document, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec := e.document(doc)
	if index < 0 || index >= len(spec.Pages) {
		return
	}
	spec.Pages = append(spec.Pages[:index:index], spec.Pages[index+1:]...)
}

func (e *Engine) page(p native.Page) *page {
	pg, ok := e.pages[p]
	if !ok {
		panic(fmt.Sprintf("nativetest: unknown page %#x", p))
	}
	return pg
}

func (e *Engine) GetPageWidth(p native.Page) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page(p).spec.Width
}

func (e *Engine) GetPageHeight(p native.Page) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page(p).spec.Height
}

func (e *Engine) GetPageRotation(p native.Page) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page(p).spec.Rotation
}

func (e *Engine) GetPageBox(p native.Page, box native.Box) (native.RectF, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec := e.page(p).spec
	if box != native.BoxMedia && box != native.BoxCrop {
		return native.RectF{}, false
	}
	return native.RectF{Left: 0, Top: float32(spec.Height), Right: float32(spec.Width), Bottom: 0}, true
}

func (e *Engine) GetPageBoundingBox(p native.Page) (native.RectF, bool) {
	return e.GetPageBox(p, native.BoxMedia)
}

func (e *Engine) PageToDevice(p native.Page, startX, startY, sizeX, sizeY, rotate int, pageX, pageY float64) (int, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec := e.page(p).spec
	x := float64(startX) + pageX/spec.Width*float64(sizeX)
	y := float64(startY) + (spec.Height-pageY)/spec.Height*float64(sizeY)
	return int(x + 0.5), int(y + 0.5), true
}

func (e *Engine) DeviceToPage(p native.Page, startX, startY, sizeX, sizeY, rotate, deviceX, deviceY int) (float64, float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec := e.page(p).spec
	if sizeX == 0 || sizeY == 0 {
		return 0, 0, false
	}
	x := float64(deviceX-startX) / float64(sizeX) * spec.Width
	y := spec.Height - float64(deviceY-startY)/float64(sizeY)*spec.Height
	return x, y, true
}

func (e *Engine) LinkEnumerate(p native.Page, pos *int) (native.Link, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec := e.page(p).spec
	if *pos < 0 || *pos >= len(spec.Links) {
		return 0, false
	}
	h := native.Link(e.alloc())
	e.links[h] = &link{page: p, spec: spec.Links[*pos]}
	*pos++
	return h, true
}

func (e *Engine) LinkAtPoint(p native.Page, x, y float64) native.Link {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.page(p).spec.Links {
		r := l.Rect
		if x >= float64(r.Left) && x <= float64(r.Right) && y >= float64(r.Bottom) && y <= float64(r.Top) {
			h := native.Link(e.alloc())
			e.links[h] = &link{page: p, spec: l}
			return h
		}
	}
	return 0
}

func (e *Engine) LinkGetDest(doc native.Document, l native.Link) native.Dest {
	e.mu.Lock()
	defer e.mu.Unlock()
	lk, ok := e.links[l]
	if !ok || lk.spec.DestPage < 0 {
		return 0
	}
	h := native.Dest(e.alloc())
	e.dests[h] = lk.spec.DestPage
	return h
}

func (e *Engine) LinkGetAction(l native.Link) native.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	lk, ok := e.links[l]
	if !ok || lk.spec.URI == "" {
		return 0
	}
	h := native.Action(e.alloc())
	e.actions[h] = lk.spec.URI
	return h
}

func (e *Engine) ActionGetURIPath(doc native.Document, action native.Action, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	uri, ok := e.actions[action]
	if !ok {
		return 0
	}
	return fill(append([]byte(uri), 0), buf)
}

func (e *Engine) LinkGetAnnotRect(l native.Link) (native.RectF, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lk, ok := e.links[l]
	if !ok {
		return native.RectF{}, false
	}
	return lk.spec.Rect, true
}

func (e *Engine) TextLoadPage(p native.Page) native.TextPage {
	e.mu.Lock()
	defer e.mu.Unlock()
	pg := e.page(p)
	h := native.TextPage(e.alloc())
	e.texts[h] = &textPage{page: p, runes: []rune(pg.spec.Text)}
	return h
}

func (e *Engine) TextClosePage(text native.TextPage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.texts[text]; !ok {
		panic(fmt.Sprintf("nativetest: close of unknown text page %#x", text))
	}
	delete(e.texts, text)
}

func (e *Engine) text(text native.TextPage) *textPage {
	t, ok := e.texts[text]
	if !ok {
		panic(fmt.Sprintf("nativetest: unknown text page %#x", text))
	}
	return t
}

func (e *Engine) TextCountChars(text native.TextPage) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.text(text).runes)
}

func (e *Engine) TextGetUnicode(text native.TextPage, index int) rune {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	if index < 0 || index >= len(t.runes) {
		return 0
	}
	return t.runes[index]
}

// charBox is the tight box of the character at index on a page of the given
// height.
func charBox(height float64, index int) (left, right, bottom, top float64) {
	left = float64(CharAdvance * (index % CharsPerLine))
	right = left + CharWidth
	top = height - float64(LineHeight*(index/CharsPerLine))
	bottom = top - CharHeight
	return
}

func (e *Engine) pageHeight(t *textPage) float64 {
	return e.page(t.page).spec.Height
}

func (e *Engine) TextGetCharBox(text native.TextPage, index int) (left, right, bottom, top float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	if index < 0 || index >= len(t.runes) {
		return 0, 0, 0, 0, false
	}
	left, right, bottom, top = charBox(e.pageHeight(t), index)
	return left, right, bottom, top, true
}

func (e *Engine) TextGetLooseCharBox(text native.TextPage, index int) (native.RectF, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	if index < 0 || index >= len(t.runes) {
		return native.RectF{}, false
	}
	left, _, _, top := charBox(e.pageHeight(t), index)
	return native.RectF{
		Left:   float32(left),
		Top:    float32(top + 1),
		Right:  float32(left + CharAdvance),
		Bottom: float32(top - LineHeight + 1),
	}, true
}

func (e *Engine) TextGetCharIndexAtPos(text native.TextPage, x, y, xTolerance, yTolerance float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	h := e.pageHeight(t)
	for i := range t.runes {
		left, right, bottom, top := charBox(h, i)
		if x >= left-xTolerance && x <= right+xTolerance && y >= bottom-yTolerance && y <= top+yTolerance {
			return i
		}
	}
	return -1
}

func (e *Engine) TextGetText(text native.TextPage, start, count int, buf []uint16) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	if len(buf) == 0 || start < 0 || start >= len(t.runes) {
		return 0
	}
	end := start + count
	if count < 0 || end > len(t.runes) {
		end = len(t.runes)
	}
	units := utf16.Encode(t.runes[start:end])
	if len(units) > len(buf)-1 {
		units = units[:len(buf)-1]
	}
	n := copy(buf, units)
	buf[n] = 0
	return n + 1
}

func (e *Engine) TextGetBoundedText(text native.TextPage, left, top, right, bottom float64, buf []uint16) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	h := e.pageHeight(t)
	var runes []rune
	for i, r := range t.runes {
		l, rt, b, tp := charBox(h, i)
		cx, cy := (l+rt)/2, (b+tp)/2
		if cx >= left && cx <= right && cy >= bottom && cy <= top {
			runes = append(runes, r)
		}
	}
	units := utf16.Encode(runes)
	if buf == nil {
		return len(units)
	}
	return copy(buf, units)
}

func (e *Engine) TextCountRects(text native.TextPage, start, count int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	t.rects = lineRects(e.pageHeight(t), len(t.runes), start, count)
	return len(t.rects)
}

// lineRects returns one rectangle per grid line covered by the range.
func lineRects(height float64, total, start, count int) []native.RectF {
	if start < 0 || start >= total {
		return nil
	}
	end := start + count
	if count < 0 || end > total {
		end = total
	}
	var rects []native.RectF
	for i := start; i < end; {
		lineEnd := (i/CharsPerLine + 1) * CharsPerLine
		if lineEnd > end {
			lineEnd = end
		}
		left, _, bottom, top := charBox(height, i)
		_, right, _, _ := charBox(height, lineEnd-1)
		rects = append(rects, native.RectF{Left: float32(left), Top: float32(top), Right: float32(right), Bottom: float32(bottom)})
		i = lineEnd
	}
	return rects
}

func (e *Engine) TextGetRect(text native.TextPage, index int) (left, top, right, bottom float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	if index < 0 || index >= len(t.rects) {
		return 0, 0, 0, 0, false
	}
	r := t.rects[index]
	return float64(r.Left), float64(r.Top), float64(r.Right), float64(r.Bottom), true
}

func (e *Engine) TextGetFontSize(text native.TextPage, index int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	if index < 0 || index >= len(t.runes) {
		return 0
	}
	return FontSize
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func (e *Engine) TextFindStart(text native.TextPage, query string, flags, start int) native.Search {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	q := []rune(query)
	if len(q) == 0 {
		return 0
	}
	hay := t.runes
	if flags&native.MatchCase == 0 {
		hay = []rune(strings.ToLower(string(t.runes)))
		q = []rune(strings.ToLower(query))
	}
	if start < 0 {
		start = 0
	}
	s := &search{text: text, length: len(q), cursor: -1}
	for i := start; i+len(q) <= len(hay); i++ {
		if string(hay[i:i+len(q)]) != string(q) {
			continue
		}
		if flags&native.MatchWholeWord != 0 {
			if i > 0 && isWordRune(hay[i-1]) {
				continue
			}
			if end := i + len(q); end < len(hay) && isWordRune(hay[end]) {
				continue
			}
		}
		s.matches = append(s.matches, i)
		if flags&native.Consecutive == 0 {
			i += len(q) - 1
		}
	}
	h := native.Search(e.alloc())
	e.searches[h] = s
	return h
}

func (e *Engine) search(h native.Search) *search {
	s, ok := e.searches[h]
	if !ok {
		panic(fmt.Sprintf("nativetest: unknown search %#x", h))
	}
	return s
}

func (e *Engine) TextFindNext(h native.Search) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.search(h)
	if s.cursor+1 >= len(s.matches) {
		return false
	}
	s.cursor++
	return true
}

func (e *Engine) TextFindPrev(h native.Search) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.search(h)
	if s.cursor <= 0 {
		return false
	}
	s.cursor--
	return true
}

func (e *Engine) TextGetSchResultIndex(h native.Search) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.search(h)
	if s.cursor < 0 {
		return 0
	}
	return s.matches[s.cursor]
}

func (e *Engine) TextGetSchCount(h native.Search) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.search(h).cursor < 0 {
		return 0
	}
	return e.search(h).length
}

func (e *Engine) TextFindClose(h native.Search) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.searches[h]; !ok {
		panic(fmt.Sprintf("nativetest: close of unknown search %#x", h))
	}
	delete(e.searches, h)
}

func (e *Engine) LinkLoadWebLinks(text native.TextPage) native.PageLink {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.text(text)
	wl := &webLinks{text: text}
	start := -1
	for i := 0; i <= len(t.runes); i++ {
		if i < len(t.runes) && !unicode.IsSpace(t.runes[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			word := string(t.runes[start:i])
			if strings.HasPrefix(word, "http://") || strings.HasPrefix(word, "https://") {
				wl.spans = append(wl.spans, [2]int{start, i - start})
				wl.urls = append(wl.urls, word)
			}
		}
		start = -1
	}
	h := native.PageLink(e.alloc())
	e.webLinks[h] = wl
	return h
}

func (e *Engine) webLinksOf(h native.PageLink) *webLinks {
	wl, ok := e.webLinks[h]
	if !ok {
		panic(fmt.Sprintf("nativetest: unknown web links %#x", h))
	}
	return wl
}

func (e *Engine) LinkCountWebLinks(h native.PageLink) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.webLinksOf(h).urls)
}

func (e *Engine) LinkGetURL(h native.PageLink, index int, buf []uint16) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	wl := e.webLinksOf(h)
	if index < 0 || index >= len(wl.urls) {
		return 0
	}
	units := append(utf16.Encode([]rune(wl.urls[index])), 0)
	if buf == nil {
		return len(units)
	}
	n := copy(buf, units)
	if n > 0 {
		buf[n-1] = 0
	}
	return n
}

func (e *Engine) LinkCountRects(h native.PageLink, index int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	wl := e.webLinksOf(h)
	if index < 0 || index >= len(wl.spans) {
		return 0
	}
	t := e.text(wl.text)
	return len(lineRects(e.pageHeight(t), len(t.runes), wl.spans[index][0], wl.spans[index][1]))
}

func (e *Engine) LinkGetRect(h native.PageLink, linkIndex, rectIndex int) (left, top, right, bottom float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wl := e.webLinksOf(h)
	if linkIndex < 0 || linkIndex >= len(wl.spans) {
		return 0, 0, 0, 0, false
	}
	t := e.text(wl.text)
	rects := lineRects(e.pageHeight(t), len(t.runes), wl.spans[linkIndex][0], wl.spans[linkIndex][1])
	if rectIndex < 0 || rectIndex >= len(rects) {
		return 0, 0, 0, 0, false
	}
	r := rects[rectIndex]
	return float64(r.Left), float64(r.Top), float64(r.Right), float64(r.Bottom), true
}

func (e *Engine) LinkGetTextRange(h native.PageLink, index int) (int, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wl := e.webLinksOf(h)
	if index < 0 || index >= len(wl.spans) {
		return 0, 0, false
	}
	return wl.spans[index][0], wl.spans[index][1], true
}

func (e *Engine) LinkCloseWebLinks(h native.PageLink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.webLinks[h]; !ok {
		panic(fmt.Sprintf("nativetest: close of unknown web links %#x", h))
	}
	delete(e.webLinks, h)
}
