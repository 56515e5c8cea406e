// Package bridge owns PDF engine resources on behalf of callers.
//
// Documents, pages, text pages, searches and web link collections are
// handed out as opaque Handles. Every call validates its handle, so a
// stale or foreign handle fails with ErrInvalidHandle instead of reaching
// the engine. Parents close their children: closing a document closes its
// pages, closing a page closes its text page, and closing a text page
// closes its searches and web links.
//
// The engine is not thread safe. A Bridge serializes every engine call
// behind one mutex, so it may be shared between goroutines.
package bridge

import (
	"io"
	"log/slog"
	"sync"

	"github.com/drummonds/pdfbridge/native"
	"github.com/drummonds/pdfbridge/raster"
)

// AlreadyClosedBehavior selects what closing an already closed handle does.
type AlreadyClosedBehavior int

const (
	AlreadyClosedError AlreadyClosedBehavior = iota
	AlreadyClosedIgnore
)

// ParseAlreadyClosed accepts "error" and "ignore"; anything else is
// AlreadyClosedError.
func ParseAlreadyClosed(s string) AlreadyClosedBehavior {
	if s == "ignore" {
		return AlreadyClosedIgnore
	}
	return AlreadyClosedError
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger; nil keeps the discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithAlreadyClosed sets how closing an already closed handle is reported.
func WithAlreadyClosed(behavior AlreadyClosedBehavior) Option {
	return func(b *Bridge) { b.alreadyClosed = behavior }
}

type Bridge struct {
	mu            sync.Mutex
	eng           native.Engine
	guard         *Guard
	compositor    *raster.Compositor
	arena         arena
	logger        *slog.Logger
	alreadyClosed AlreadyClosedBehavior
}

type document struct {
	handle Handle
	doc    native.Document
	data   []byte
	access *native.FileAccess
	closer io.Closer
	pages  map[int]*page
}

type page struct {
	handle Handle
	page   native.Page
	index  int
	doc    *document
	refs   int
	text   *textPage
}

type textPage struct {
	handle Handle
	text   native.TextPage
	page   *page
	refs   int
	finds  map[Handle]*find
	links  map[Handle]*webLinks
}

type find struct {
	handle Handle
	search native.Search
	text   *textPage
}

type webLinks struct {
	handle Handle
	links  native.PageLink
	text   *textPage
}

// New returns a bridge over eng. Each open document holds one guard
// reference.
func New(eng native.Engine, guard *Guard, opts ...Option) *Bridge {
	b := &Bridge{
		eng:    eng,
		guard:  guard,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.compositor = raster.NewCompositor(eng, b.logger)
	return b
}

func (b *Bridge) Guard() *Guard { return b.guard }

// Stats counts live handles by kind.
type Stats struct {
	Documents int `json:"documents"`
	Pages     int `json:"pages"`
	TextPages int `json:"text_pages"`
	Finds     int `json:"finds"`
	WebLinks  int `json:"web_links"`
	GuardRefs int `json:"guard_refs"`
}

func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Documents: b.arena.count(kindDocument),
		Pages:     b.arena.count(kindPage),
		TextPages: b.arena.count(kindTextPage),
		Finds:     b.arena.count(kindFind),
		WebLinks:  b.arena.count(kindWebLinks),
		GuardRefs: b.guard.Count(),
	}
}

// Close closes every open document.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var docs []*document
	for _, s := range b.arena.slots {
		if d, ok := s.obj.(*document); ok {
			docs = append(docs, d)
		}
	}
	for _, d := range docs {
		b.closeDocument(d)
	}
	if len(docs) > 0 {
		b.logger.Info("Closed open documents", "count", len(docs))
	}
	return nil
}

// closed handles a close of a handle that no longer resolves.
func (b *Bridge) closed(op string, h Handle) error {
	if b.alreadyClosed == AlreadyClosedIgnore {
		b.logger.Debug("Ignoring close of closed handle", "op", op, "handle", h.String())
		return nil
	}
	return opError(op, h, ErrInvalidHandle)
}

func (b *Bridge) document(op string, h Handle) (*document, error) {
	obj, ok := b.arena.get(h, kindDocument)
	if !ok {
		return nil, opError(op, h, ErrInvalidHandle)
	}
	return obj.(*document), nil
}

func (b *Bridge) page(op string, h Handle) (*page, error) {
	obj, ok := b.arena.get(h, kindPage)
	if !ok {
		return nil, opError(op, h, ErrInvalidHandle)
	}
	return obj.(*page), nil
}

func (b *Bridge) textPage(op string, h Handle) (*textPage, error) {
	obj, ok := b.arena.get(h, kindTextPage)
	if !ok {
		return nil, opError(op, h, ErrInvalidHandle)
	}
	return obj.(*textPage), nil
}

func (b *Bridge) find(op string, h Handle) (*find, error) {
	obj, ok := b.arena.get(h, kindFind)
	if !ok {
		return nil, opError(op, h, ErrInvalidHandle)
	}
	return obj.(*find), nil
}

func (b *Bridge) webLinks(op string, h Handle) (*webLinks, error) {
	obj, ok := b.arena.get(h, kindWebLinks)
	if !ok {
		return nil, opError(op, h, ErrInvalidHandle)
	}
	return obj.(*webLinks), nil
}
