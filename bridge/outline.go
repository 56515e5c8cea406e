package bridge

import "github.com/drummonds/pdfbridge/native"

// maxOutlineDepth bounds TableOfContents on malformed, cyclic outlines.
const maxOutlineDepth = 16

// FirstChildBookmark returns the first child of parent, or of the outline
// root when parent is zero. Zero means there is none.
func (b *Bridge) FirstChildBookmark(doc Handle, parent native.Bookmark) (native.Bookmark, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("first child bookmark", doc)
	if err != nil {
		return 0, err
	}
	return b.eng.BookmarkFirstChild(d.doc, parent), nil
}

func (b *Bridge) NextSiblingBookmark(doc Handle, bookmark native.Bookmark) (native.Bookmark, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("next sibling bookmark", doc)
	if err != nil {
		return 0, err
	}
	if bookmark == 0 {
		return 0, nil
	}
	return b.eng.BookmarkNextSibling(d.doc, bookmark), nil
}

func (b *Bridge) BookmarkTitle(doc Handle, bookmark native.Bookmark) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.document("bookmark title", doc); err != nil {
		return "", err
	}
	return b.bookmarkTitle(bookmark), nil
}

func (b *Bridge) bookmarkTitle(bookmark native.Bookmark) string {
	if bookmark == 0 {
		return ""
	}
	n := b.eng.BookmarkGetTitle(bookmark, nil)
	if n <= 2 {
		return ""
	}
	buf := make([]byte, n)
	b.eng.BookmarkGetTitle(bookmark, buf)
	return decodeUTF16LE(buf)
}

// BookmarkDestIndex returns the target page of bookmark, or -1.
func (b *Bridge) BookmarkDestIndex(doc Handle, bookmark native.Bookmark) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("bookmark destination", doc)
	if err != nil {
		return -1, err
	}
	return b.bookmarkDest(d, bookmark), nil
}

func (b *Bridge) bookmarkDest(d *document, bookmark native.Bookmark) int {
	if bookmark == 0 {
		return -1
	}
	dest := b.eng.BookmarkGetDest(d.doc, bookmark)
	if dest == 0 {
		return -1
	}
	return b.eng.DestGetPageIndex(d.doc, dest)
}

// OutlineEntry is one node of the table of contents.
type OutlineEntry struct {
	Title     string         `json:"title"`
	PageIndex int            `json:"page_index"`
	Children  []OutlineEntry `json:"children,omitempty"`
}

// TableOfContents walks the whole outline.
func (b *Bridge) TableOfContents(doc Handle) ([]OutlineEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("table of contents", doc)
	if err != nil {
		return nil, err
	}
	seen := make(map[native.Bookmark]bool)
	return b.outline(d, 0, 0, seen), nil
}

func (b *Bridge) outline(d *document, parent native.Bookmark, depth int, seen map[native.Bookmark]bool) []OutlineEntry {
	if depth >= maxOutlineDepth {
		return nil
	}
	var entries []OutlineEntry
	for bm := b.eng.BookmarkFirstChild(d.doc, parent); bm != 0 && !seen[bm]; bm = b.eng.BookmarkNextSibling(d.doc, bm) {
		seen[bm] = true
		entries = append(entries, OutlineEntry{
			Title:     b.bookmarkTitle(bm),
			PageIndex: b.bookmarkDest(d, bm),
			Children:  b.outline(d, bm, depth+1, seen),
		})
	}
	return entries
}

// LinkDestIndex returns the target page of a link annotation, or -1.
func (b *Bridge) LinkDestIndex(doc Handle, link native.Link) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("link destination", doc)
	if err != nil {
		return -1, err
	}
	return b.linkDest(d, link), nil
}

func (b *Bridge) linkDest(d *document, link native.Link) int {
	if link == 0 {
		return -1
	}
	dest := b.eng.LinkGetDest(d.doc, link)
	if dest == 0 {
		return -1
	}
	return b.eng.DestGetPageIndex(d.doc, dest)
}

// LinkURI returns the URI action of a link annotation, or "".
func (b *Bridge) LinkURI(doc Handle, link native.Link) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.document("link uri", doc)
	if err != nil {
		return "", err
	}
	return b.linkURI(d, link), nil
}

func (b *Bridge) linkURI(d *document, link native.Link) string {
	if link == 0 {
		return ""
	}
	action := b.eng.LinkGetAction(link)
	if action == 0 {
		return ""
	}
	n := b.eng.ActionGetURIPath(d.doc, action, nil)
	if n <= 1 {
		return ""
	}
	buf := make([]byte, n)
	b.eng.ActionGetURIPath(d.doc, action, buf)
	return string(buf[:n-1])
}
