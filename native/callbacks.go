package native

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// C memory never holds Go pointers: loader and writer callbacks receive a
// small integer id that is resolved through this registry.
var (
	registryMu sync.RWMutex
	registry   = make(map[uintptr]any)
	nextID     uintptr = 1
)

func register(v any) uintptr {
	registryMu.Lock()
	defer registryMu.Unlock()
	id := nextID
	nextID++
	registry[id] = v
	return id
}

func lookup(id uintptr) any {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[id]
}

func unregister(id uintptr) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, id)
}

// purego limits the number of callbacks a process may create, so the two
// trampolines are created once and shared by every document.
var (
	callbackOnce       sync.Once
	getBlockCallback   uintptr
	writeBlockCallback uintptr
)

func initCallbacks() {
	callbackOnce.Do(func() {
		getBlockCallback = purego.NewCallback(getBlock)
		writeBlockCallback = purego.NewCallback(writeBlock)
	})
}

// fileAccess mirrors FPDF_FILEACCESS.
type fileAccess struct {
	fileLen  uint64
	getBlock uintptr
	param    uintptr
}

// fileWrite mirrors FPDF_FILEWRITE with the registry id appended, the
// engine hands the struct pointer back to WriteBlock.
type fileWrite struct {
	version    int32
	_          int32
	writeBlock uintptr
	id         uintptr
}

func getBlock(param uintptr, position uintptr, buf unsafe.Pointer, size uintptr) uintptr {
	access, ok := lookup(param).(*FileAccess)
	if !ok || access.GetBlock == nil || buf == nil {
		return 0
	}
	if access.GetBlock(uint64(position), unsafe.Slice((*byte)(buf), int(size))) {
		return 1
	}
	return 0
}

func writeBlock(this unsafe.Pointer, data unsafe.Pointer, size uintptr) uintptr {
	fw := (*fileWrite)(this)
	write, ok := lookup(fw.id).(func([]byte) bool)
	if !ok {
		return 0
	}
	var block []byte
	if size > 0 && data != nil {
		block = unsafe.Slice((*byte)(data), int(size))
	}
	if write(block) {
		return 1
	}
	return 0
}
