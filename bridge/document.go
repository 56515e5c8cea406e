package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/drummonds/pdfbridge/native"
)

// SaveMode selects how SaveAsCopy serializes a document.
type SaveMode int

const (
	SaveIncremental    SaveMode = native.SaveIncremental
	SaveNoIncremental  SaveMode = native.SaveNoIncremental
	SaveRemoveSecurity SaveMode = native.SaveRemoveSecurity
)

// ParseSaveMode accepts "incremental", "full" and "nosecurity".
func ParseSaveMode(s string) (SaveMode, error) {
	switch s {
	case "incremental":
		return SaveIncremental, nil
	case "", "full":
		return SaveNoIncremental, nil
	case "nosecurity":
		return SaveRemoveSecurity, nil
	}
	return 0, fmt.Errorf("bridge: unknown save mode %q", s)
}

// OpenBytes opens a document from a private copy of data.
func (b *Bridge) OpenBytes(data []byte, password string) (Handle, error) {
	const op = "open bytes"
	if len(data) == 0 {
		return 0, opError(op, 0, ErrEmptyInput)
	}
	d := &document{data: bytes.Clone(data)}
	return b.open(op, d, func() native.Document {
		return b.eng.LoadMemDocument(d.data, password)
	})
}

// OpenReader opens a document of size bytes read through r with positioned
// reads. r must stay readable until the document is closed.
func (b *Bridge) OpenReader(r io.ReaderAt, size int64, password string) (Handle, error) {
	return b.openReader("open reader", r, size, password, nil)
}

// OpenFile opens the file at path; the file stays open until the document is
// closed.
func (b *Bridge) OpenFile(path, password string) (Handle, error) {
	const op = "open file"
	f, err := os.Open(path)
	if err != nil {
		return 0, opError(op, 0, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, opError(op, 0, err)
	}
	h, err := b.openReader(op, f, info.Size(), password, f)
	if err != nil {
		f.Close()
	}
	return h, err
}

func (b *Bridge) openReader(op string, r io.ReaderAt, size int64, password string, closer io.Closer) (Handle, error) {
	if size <= 0 {
		return 0, opError(op, 0, ErrEmptyInput)
	}
	access := &native.FileAccess{
		Length: uint64(size),
		GetBlock: func(position uint64, buf []byte) bool {
			n, err := r.ReadAt(buf, int64(position))
			return n == len(buf) && (err == nil || errors.Is(err, io.EOF))
		},
	}
	d := &document{access: access}
	h, err := b.open(op, d, func() native.Document {
		return b.eng.LoadCustomDocument(access, password)
	})
	if err == nil {
		d.closer = closer
	}
	return h, err
}

func (b *Bridge) open(op string, d *document, load func() native.Document) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guard.Acquire()
	d.doc = load()
	if d.doc == 0 {
		err := classifyOpen(op, b.eng.GetLastError())
		b.guard.Release()
		b.logger.Warn("Failed to open document", "op", op, "error", err)
		return 0, err
	}
	d.pages = make(map[int]*page)
	d.handle = b.arena.put(kindDocument, d)
	b.logger.Debug("Opened document", "handle", d.handle.String(), "pages", b.eng.GetPageCount(d.doc))
	return d.handle, nil
}

// CloseDocument closes the document and every handle derived from it.
func (b *Bridge) CloseDocument(h Handle) error {
	const op = "close document"
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document(op, h)
	if err != nil {
		return b.closed(op, h)
	}
	return b.closeDocument(d)
}

func (b *Bridge) closeDocument(d *document) error {
	for _, p := range d.pages {
		b.closePage(p)
	}
	b.eng.CloseDocument(d.doc)
	b.arena.remove(d.handle)
	d.data = nil
	b.guard.Release()
	b.logger.Debug("Closed document", "handle", d.handle.String())
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			return opError("close document", d.handle, err)
		}
	}
	return nil
}

func (b *Bridge) PageCount(doc Handle) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("page count", doc)
	if err != nil {
		return 0, err
	}
	return b.eng.GetPageCount(d.doc), nil
}

// LoadPage opens the page at index. Loading an index that is already open
// returns the same handle and takes another reference on it.
func (b *Bridge) LoadPage(doc Handle, index int) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("load page", doc)
	if err != nil {
		return 0, err
	}
	p, err := b.loadPage(d, index)
	if err != nil {
		return 0, err
	}
	return p.handle, nil
}

func (b *Bridge) loadPage(d *document, index int) (*page, error) {
	if p, ok := d.pages[index]; ok {
		p.refs++
		return p, nil
	}
	np := b.eng.LoadPage(d.doc, index)
	if np == 0 {
		return nil, &Error{Op: "load page", Handle: d.handle, Err: fmt.Errorf("index %d: %w", index, ErrPageLoad)}
	}
	p := &page{page: np, index: index, doc: d, refs: 1}
	p.handle = b.arena.put(kindPage, p)
	d.pages[index] = p
	return p, nil
}

// LoadPages opens pages from through to inclusive. If any page fails, the
// references taken by this call are dropped and no handles are returned.
func (b *Bridge) LoadPages(doc Handle, from, to int) ([]Handle, error) {
	const op = "load pages"
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document(op, doc)
	if err != nil {
		return nil, err
	}
	if to < from {
		return nil, &Error{Op: op, Handle: doc, Err: fmt.Errorf("%d..%d: %w", from, to, ErrInvalidRange)}
	}
	if n := b.eng.GetPageCount(d.doc); from < 0 || to >= n {
		index := from
		if from >= 0 {
			index = max(from, n)
		}
		return nil, &Error{Op: op, Handle: doc, Err: fmt.Errorf("index %d of %d: %w", index, n, ErrPageLoad)}
	}
	loaded := make([]*page, 0, to-from+1)
	for i := from; i <= to; i++ {
		p, err := b.loadPage(d, i)
		if err != nil {
			for _, lp := range loaded {
				b.releasePage(lp)
			}
			return nil, err
		}
		loaded = append(loaded, p)
	}
	handles := make([]Handle, len(loaded))
	for i, p := range loaded {
		handles[i] = p.handle
	}
	return handles, nil
}

// ClosePage drops one reference; the page and its text page close when the
// last reference goes.
func (b *Bridge) ClosePage(h Handle) error {
	const op = "close page"
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.page(op, h)
	if err != nil {
		return b.closed(op, h)
	}
	b.releasePage(p)
	return nil
}

// ClosePages closes every handle, reporting each failure.
func (b *Bridge) ClosePages(handles []Handle) error {
	var result *multierror.Error
	for _, h := range handles {
		if err := b.ClosePage(h); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (b *Bridge) releasePage(p *page) {
	p.refs--
	if p.refs <= 0 {
		b.closePage(p)
	}
}

func (b *Bridge) closePage(p *page) {
	if p.text != nil {
		b.closeTextPage(p.text)
	}
	b.eng.ClosePage(p.page)
	b.arena.remove(p.handle)
	delete(p.doc.pages, p.index)
}

// DeletePage removes the page at index from the document. It fails with
// ErrResourceInUse while that page is open; open pages after it shift down.
func (b *Bridge) DeletePage(doc Handle, index int) error {
	const op = "delete page"
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document(op, doc)
	if err != nil {
		return err
	}
	if index < 0 || index >= b.eng.GetPageCount(d.doc) {
		return &Error{Op: op, Handle: doc, Err: fmt.Errorf("index %d: %w", index, ErrInvalidRange)}
	}
	if _, open := d.pages[index]; open {
		return &Error{Op: op, Handle: doc, Err: fmt.Errorf("page %d is open: %w", index, ErrResourceInUse)}
	}
	b.eng.DeletePage(d.doc, index)
	pages := make(map[int]*page, len(d.pages))
	for i, p := range d.pages {
		if i > index {
			p.index = i - 1
		}
		pages[p.index] = p
	}
	d.pages = pages
	return nil
}

// SaveAsCopy streams the document to w. The engine holds the bridge lock
// while writing, so w must not call back into the bridge.
func (b *Bridge) SaveAsCopy(doc Handle, w io.Writer, mode SaveMode) error {
	const op = "save"
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document(op, doc)
	if err != nil {
		return err
	}
	var writeErr error
	ok := b.eng.SaveAsCopy(d.doc, func(block []byte) bool {
		if _, err := w.Write(block); err != nil {
			writeErr = err
			return false
		}
		return true
	}, int(mode))
	if writeErr != nil {
		return writeErr
	}
	if !ok {
		return opError(op, doc, ErrSave)
	}
	return nil
}

// MetaText returns a document information entry such as "Title", or "" when
// it is absent.
func (b *Bridge) MetaText(doc Handle, tag string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("meta text", doc)
	if err != nil {
		return "", err
	}
	return b.metaText(d, tag), nil
}

func (b *Bridge) metaText(d *document, tag string) string {
	n := b.eng.GetMetaText(d.doc, tag, nil)
	if n <= 2 {
		return ""
	}
	buf := make([]byte, n)
	b.eng.GetMetaText(d.doc, tag, buf)
	return decodeUTF16LE(buf)
}

// Meta is the document information dictionary.
type Meta struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Subject      string `json:"subject"`
	Keywords     string `json:"keywords"`
	Creator      string `json:"creator"`
	Producer     string `json:"producer"`
	CreationDate string `json:"creation_date"`
	ModDate      string `json:"mod_date"`
	PageCount    int    `json:"page_count"`
}

func (b *Bridge) Metadata(doc Handle) (Meta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("metadata", doc)
	if err != nil {
		return Meta{}, err
	}
	return Meta{
		Title:        b.metaText(d, "Title"),
		Author:       b.metaText(d, "Author"),
		Subject:      b.metaText(d, "Subject"),
		Keywords:     b.metaText(d, "Keywords"),
		Creator:      b.metaText(d, "Creator"),
		Producer:     b.metaText(d, "Producer"),
		CreationDate: b.metaText(d, "CreationDate"),
		ModDate:      b.metaText(d, "ModDate"),
		PageCount:    b.eng.GetPageCount(d.doc),
	}, nil
}

// PageCharCounts returns the character count of every page, loading each
// page and its text transiently. A page that cannot be loaded gets -1 and
// its error is collected; the scan continues.
func (b *Bridge) PageCharCounts(doc Handle) ([]int, error) {
	const op = "page char counts"
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document(op, doc)
	if err != nil {
		return nil, err
	}
	counts := make([]int, b.eng.GetPageCount(d.doc))
	var result *multierror.Error
	for i := range counts {
		n, err := b.charCount(d, i)
		if err != nil {
			result = multierror.Append(result, &Error{Op: op, Handle: doc, Err: err})
		}
		counts[i] = n
	}
	return counts, result.ErrorOrNil()
}

func (b *Bridge) charCount(d *document, index int) (int, error) {
	p := b.eng.LoadPage(d.doc, index)
	if p == 0 {
		return -1, fmt.Errorf("page %d: %w", index, ErrPageLoad)
	}
	defer b.eng.ClosePage(p)
	t := b.eng.TextLoadPage(p)
	if t == 0 {
		return -1, fmt.Errorf("text of page %d: %w", index, ErrPageLoad)
	}
	defer b.eng.TextClosePage(t)
	return b.eng.TextCountChars(t), nil
}
