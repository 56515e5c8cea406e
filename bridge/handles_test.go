package bridge

import "testing"

func TestArenaRejectsStaleHandles(t *testing.T) {
	var a arena
	h1 := a.put(kindDocument, "first")
	if h1 == 0 {
		t.Fatal("put returned the zero handle")
	}
	if obj, ok := a.get(h1, kindDocument); !ok || obj != "first" {
		t.Fatalf("get(h1) = %v, %v", obj, ok)
	}
	a.remove(h1)
	if _, ok := a.get(h1, kindDocument); ok {
		t.Fatal("Removed handle still resolves")
	}

	h2 := a.put(kindDocument, "second")
	if h2.slot() != h1.slot() {
		t.Fatalf("Slot not reused: %v then %v", h1, h2)
	}
	if h2 == h1 {
		t.Fatal("Reused slot kept the same generation")
	}
	if _, ok := a.get(h1, kindDocument); ok {
		t.Error("Stale handle resolves to the new object")
	}
	a.remove(h1)
	if _, ok := a.get(h2, kindDocument); !ok {
		t.Error("Removing a stale handle dropped the live one")
	}
}

func TestArenaChecksKind(t *testing.T) {
	var a arena
	h := a.put(kindPage, 1)
	if _, ok := a.get(h, kindDocument); ok {
		t.Error("Page handle resolved as a document")
	}
	forged := makeHandle(kindDocument, h.generation(), h.slot())
	if _, ok := a.get(forged, kindDocument); ok {
		t.Error("Forged kind resolved")
	}
	if _, ok := a.get(0, kindPage); ok {
		t.Error("Zero handle resolved")
	}
	if _, ok := a.get(makeHandle(kindPage, 1, 99), kindPage); ok {
		t.Error("Out of range slot resolved")
	}
}

func TestHandleLayout(t *testing.T) {
	h := makeHandle(kindFind, 0xABCDEF, 42)
	if h.kind() != kindFind || h.generation() != 0xABCDEF || h.slot() != 42 {
		t.Errorf("Round trip gave kind %v gen %#x slot %d", h.kind(), h.generation(), h.slot())
	}
	if got := h.String(); got != "find#42.11259375" {
		t.Errorf("String() = %q", got)
	}
}

func TestArenaCount(t *testing.T) {
	var a arena
	a.put(kindDocument, 1)
	p := a.put(kindPage, 2)
	a.put(kindPage, 3)
	a.remove(p)
	if a.count(kindPage) != 1 || a.count(kindDocument) != 1 {
		t.Errorf("count = %d pages, %d documents", a.count(kindPage), a.count(kindDocument))
	}
}
