// Package nativetest provides an in-memory native.Engine. Documents are JSON
// descriptions behind a magic prefix; pages render as flat colored rectangles
// and text is laid out on a fixed character grid so tests can predict every
// box and pixel.
package nativetest

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/drummonds/pdfbridge/native"
)

// Magic prefixes every fake document.
const Magic = "%FAKEPDF\n"

// Character grid used by the text layer.
const (
	CharsPerLine = 50
	CharAdvance  = 10
	CharWidth    = 8
	LineHeight   = 12
	CharHeight   = 10
	FontSize     = 10
)

// Doc describes a fake document.
type Doc struct {
	Password string            `json:"password,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
	Pages    []PageSpec        `json:"pages"`
	Outline  []BookmarkSpec    `json:"outline,omitempty"`
	// SaveFails makes SaveAsCopy report failure.
	SaveFails bool `json:"save_fails,omitempty"`
}

// PageSpec describes a page. Color is 0xAARRGGBB; a zero alpha renders
// nothing. FormColor, when set, is painted over the page by FFLDraw.
type PageSpec struct {
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Rotation  int        `json:"rotation,omitempty"`
	Text      string     `json:"text,omitempty"`
	Color     uint32     `json:"color,omitempty"`
	FormColor uint32     `json:"form_color,omitempty"`
	Broken    bool       `json:"broken,omitempty"`
	Links     []LinkSpec `json:"links,omitempty"`
}

// LinkSpec is a link annotation in page coordinates. DestPage -1 means no
// destination.
type LinkSpec struct {
	Rect     native.RectF `json:"rect"`
	DestPage int          `json:"dest_page"`
	URI      string       `json:"uri,omitempty"`
}

// BookmarkSpec is one outline entry. Page -1 means no destination.
type BookmarkSpec struct {
	Title    string         `json:"title"`
	Page     int            `json:"page"`
	Children []BookmarkSpec `json:"children,omitempty"`
}

// Marshal encodes d in the fake document format.
func Marshal(d Doc) []byte {
	body, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	return append([]byte(Magic), body...)
}

// NewDoc returns a document with n Letter pages, each carrying a short line
// of text and an opaque white background.
func NewDoc(n int) Doc {
	d := Doc{Meta: map[string]string{"Title": "Fake document", "Producer": "nativetest"}}
	for i := 0; i < n; i++ {
		d.Pages = append(d.Pages, PageSpec{
			Width:  612,
			Height: 792,
			Text:   "Page " + strings.Repeat("x", i) + " hello world",
			Color:  0xFFFFFFFF,
		})
	}
	return d
}

func parse(data []byte) (*Doc, native.ErrorCode) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, native.ErrFormat
	}
	d := &Doc{}
	if err := json.Unmarshal(data[len(Magic):], d); err != nil {
		return nil, native.ErrFormat
	}
	return d, native.ErrSuccess
}
