package bridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/drummonds/pdfbridge/native/nativetest"
)

func openText(t *testing.T, b *Bridge, text string) (doc, page, tp Handle) {
	t.Helper()
	d := nativetest.NewDoc(1)
	d.Pages[0].Text = text
	doc = openDoc(t, b, d)
	page, err := b.LoadPage(doc, 0)
	if err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	tp, err = b.LoadTextPage(page)
	if err != nil {
		t.Fatalf("LoadTextPage failed: %v", err)
	}
	return doc, page, tp
}

func TestCharCountMatchesUnicodeIteration(t *testing.T) {
	b, _ := newTestBridge(t)
	const content = "Grüße, 世界! Ünïcödé text ✓ over more than fifty characters so it wraps lines."
	_, _, text := openText(t, b, content)

	n, err := b.CountChars(text)
	if err != nil {
		t.Fatalf("CountChars failed: %v", err)
	}
	var runes []rune
	for i := 0; i < n; i++ {
		r, err := b.Unicode(text, i)
		if err != nil {
			t.Fatalf("Unicode(%d) failed: %v", i, err)
		}
		runes = append(runes, r)
	}
	if len(runes) != n || string(runes) != content {
		t.Errorf("Iterated %q (%d), want %q", string(runes), n, content)
	}
	if _, err := b.Unicode(text, n); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Unicode(count) = %v, want ErrInvalidRange", err)
	}
}

func TestTextExtraction(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _, text := openText(t, b, "hello wide world")

	got, err := b.Text(text, 6, 4)
	if err != nil || got != "wide" {
		t.Errorf("Text(6, 4) = %q, %v", got, err)
	}
	if got, _ := b.Text(text, 11, 100); got != "world" {
		t.Errorf("Text past the end = %q", got)
	}
	if all, _ := b.AllText(text); all != "hello wide world" {
		t.Errorf("AllText = %q", all)
	}
	if _, err := b.Text(text, -1, 2); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Text(-1) = %v", err)
	}

	// first five glyphs sit at x 0..48 on the top line
	bounded, err := b.BoundedText(text, Rect{Left: 0, Top: 792, Right: 49, Bottom: 770})
	if err != nil || bounded != "hello" {
		t.Errorf("BoundedText = %q, %v", bounded, err)
	}
}

func TestCharGeometry(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _, text := openText(t, b, strings.Repeat("a", 60))

	box, err := b.CharBox(text, 51)
	if err != nil {
		t.Fatalf("CharBox failed: %v", err)
	}
	want := Rect{Left: 10, Right: 18, Top: 780, Bottom: 770}
	if box != want {
		t.Errorf("CharBox(51) = %+v, want %+v", box, want)
	}
	loose, err := b.LooseCharBox(text, 0)
	if err != nil || loose.Top <= 792-1 || loose.Bottom >= 782 {
		t.Errorf("LooseCharBox(0) = %+v, %v", loose, err)
	}
	if _, err := b.CharBox(text, 60); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("CharBox(60) = %v", err)
	}

	if idx, _ := b.CharIndexAtPos(text, 14, 775, 0, 0); idx != 51 {
		t.Errorf("CharIndexAtPos = %d, want 51", idx)
	}
	if idx, _ := b.CharIndexAtPos(text, 600, 10, 1, 1); idx != NoCharAtPos {
		t.Errorf("CharIndexAtPos off text = %d", idx)
	}
	if size, _ := b.FontSize(text, 3); size != nativetest.FontSize {
		t.Errorf("FontSize = %v", size)
	}
}

func TestRectsForRanges(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _, text := openText(t, b, strings.Repeat("b", 120))

	n, err := b.CountRects(text, 40, 20)
	if err != nil || n != 2 {
		t.Fatalf("CountRects(40, 20) = %d, %v", n, err)
	}
	r, err := b.TextRect(text, 1)
	if err != nil || r.Left != 0 || r.Right != 98 {
		t.Errorf("TextRect(1) = %+v, %v", r, err)
	}
	rects, err := b.RectsForRanges(text, []Range{{Start: 0, Count: 5}, {Start: 45, Count: 60}})
	if err != nil {
		t.Fatalf("RectsForRanges failed: %v", err)
	}
	if len(rects) != 4 {
		t.Errorf("RectsForRanges returned %d rects, want 4", len(rects))
	}
}

func TestTextPageReferenceCounting(t *testing.T) {
	b, eng := newTestBridge(t)
	doc, page, text := openText(t, b, "abc")
	again, _ := b.LoadTextPage(page)
	if again != text {
		t.Fatalf("Second LoadTextPage gave a new handle")
	}
	b.CloseTextPage(text)
	if _, err := b.CountChars(again); err != nil {
		t.Fatalf("Text page closed while referenced: %v", err)
	}
	b.CloseTextPage(again)
	if _, err := b.CountChars(again); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Text page open after last close: %v", err)
	}
	b.CloseDocument(doc)
	assertNoLeaks(t, eng)
}

func TestSearch(t *testing.T) {
	b, eng := newTestBridge(t)
	doc, _, text := openText(t, b, "Go go gopher GO")

	tests := []struct {
		name  string
		flags FindFlags
		want  []int
	}{
		{"any case", FindFlags{}, []int{0, 3, 6, 13}},
		{"match case", FindFlags{MatchCase: true}, []int{3, 6}},
		{"whole word", FindFlags{MatchWholeWord: true}, []int{0, 3, 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			find, err := b.FindStart(text, "go", tt.flags, 0)
			if err != nil {
				t.Fatalf("FindStart failed: %v", err)
			}
			defer b.CloseFind(find)
			matches, err := b.FindAll(find)
			if err != nil {
				t.Fatalf("FindAll failed: %v", err)
			}
			if len(matches) != len(tt.want) {
				t.Fatalf("Got %d matches %+v, want %v", len(matches), matches, tt.want)
			}
			for i, m := range matches {
				if m.Index != tt.want[i] || m.Count != 2 || len(m.Rects) != 1 {
					t.Errorf("Match %d = %+v, want index %d", i, m, tt.want[i])
				}
			}
		})
	}

	find, _ := b.FindStart(text, "go", FindFlags{}, 1)
	if ok, _ := b.FindNext(find); !ok {
		t.Fatal("FindNext found nothing")
	}
	if m, _ := b.FindResult(find); m.Index != 3 {
		t.Errorf("First match from 1 at %d, want 3", m.Index)
	}
	b.FindNext(find)
	if ok, _ := b.FindPrev(find); !ok {
		t.Error("FindPrev failed")
	}
	if m, _ := b.FindResult(find); m.Index != 3 {
		t.Errorf("FindPrev moved to %d, want 3", m.Index)
	}
	if _, err := b.FindStart(text, "", FindFlags{}, 0); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Empty query = %v", err)
	}
	if _, err := b.FindStart(text, "go", FindFlags{}, 99); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Start past end = %v", err)
	}
	b.CloseDocument(doc)
	assertNoLeaks(t, eng)
}

func TestWebLinks(t *testing.T) {
	b, eng := newTestBridge(t)
	doc, _, text := openText(t, b, "see https://example.com/a and http://go.dev now")

	links, err := b.LoadWebLinks(text)
	if err != nil {
		t.Fatalf("LoadWebLinks failed: %v", err)
	}
	n, _ := b.CountWebLinks(links)
	if n != 2 {
		t.Fatalf("CountWebLinks = %d, want 2", n)
	}
	if url, _ := b.WebLinkURL(links, 1); url != "http://go.dev" {
		t.Errorf("WebLinkURL(1) = %q", url)
	}
	r, err := b.WebLinkTextRange(links, 0)
	if err != nil || r != (Range{Start: 4, Count: 21}) {
		t.Errorf("WebLinkTextRange(0) = %+v, %v", r, err)
	}
	rects, err := b.WebLinkRects(links, 0)
	if err != nil || len(rects) != 1 {
		t.Errorf("WebLinkRects(0) = %v, %v", rects, err)
	}
	if _, err := b.WebLinkURL(links, 2); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("WebLinkURL(2) = %v", err)
	}
	if err := b.CloseWebLinks(links); err != nil {
		t.Errorf("CloseWebLinks failed: %v", err)
	}
	if err := b.CloseWebLinks(links); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Second CloseWebLinks = %v", err)
	}
	b.CloseDocument(doc)
	assertNoLeaks(t, eng)
}
