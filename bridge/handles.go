package bridge

import "fmt"

// Handle is an opaque reference to a bridge-owned engine resource. It packs
// the resource kind (8 bits), a generation (24 bits) and a slot index
// (32 bits). Zero is never valid.
type Handle uint64

type kind uint8

const (
	kindDocument kind = iota + 1
	kindPage
	kindTextPage
	kindFind
	kindWebLinks
)

func (k kind) String() string {
	switch k {
	case kindDocument:
		return "doc"
	case kindPage:
		return "page"
	case kindTextPage:
		return "text"
	case kindFind:
		return "find"
	case kindWebLinks:
		return "weblinks"
	}
	return "invalid"
}

const generationMask = 1<<24 - 1

func makeHandle(k kind, gen uint32, slot uint32) Handle {
	return Handle(uint64(k)<<56 | uint64(gen&generationMask)<<32 | uint64(slot))
}

func (h Handle) kind() kind          { return kind(h >> 56) }
func (h Handle) generation() uint32 { return uint32(h>>32) & generationMask }
func (h Handle) slot() uint32       { return uint32(h) }

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d.%d", h.kind(), h.slot(), h.generation())
}

type slot struct {
	gen  uint32
	kind kind
	obj  any
}

// arena maps handles to live objects. Freed slots are reused with a bumped
// generation so stale handles never resolve.
type arena struct {
	slots []slot
	free  []uint32
}

func (a *arena) put(k kind, obj any) Handle {
	var i uint32
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		i = uint32(len(a.slots) - 1)
	}
	s := &a.slots[i]
	s.gen = (s.gen + 1) & generationMask
	if s.gen == 0 {
		s.gen = 1
	}
	s.kind = k
	s.obj = obj
	return makeHandle(k, s.gen, i)
}

func (a *arena) get(h Handle, k kind) (any, bool) {
	if h == 0 || h.kind() != k {
		return nil, false
	}
	i := h.slot()
	if int(i) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[i]
	if s.obj == nil || s.kind != k || s.gen != h.generation() {
		return nil, false
	}
	return s.obj, true
}

func (a *arena) remove(h Handle) {
	i := h.slot()
	if int(i) >= len(a.slots) || a.slots[i].gen != h.generation() || a.slots[i].obj == nil {
		return
	}
	a.slots[i].obj = nil
	a.slots[i].kind = 0
	a.free = append(a.free, i)
}

func (a *arena) count(k kind) int {
	n := 0
	for _, s := range a.slots {
		if s.obj != nil && s.kind == k {
			n++
		}
	}
	return n
}
