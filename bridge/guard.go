package bridge

import (
	"log/slog"
	"sync"

	"github.com/drummonds/pdfbridge/native"
)

// Guard reference counts engine initialization. The engine is initialized
// on the first Acquire and destroyed when the last reference is released.
type Guard struct {
	mu     sync.Mutex
	count  int
	eng    native.Lifecycle
	logger *slog.Logger
}

// NewGuard returns a guard with no references; a nil logger discards output.
func NewGuard(eng native.Lifecycle, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{eng: eng, logger: logger}
}

// Acquire takes a reference, initializing the engine on the first one.
func (g *Guard) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.count == 0 {
		g.logger.Debug("Initializing PDF engine")
		g.eng.InitLibrary()
	}
	g.count++
}

// Release drops one reference. A release with no references is ignored.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.count == 0 {
		g.logger.Warn("Guard released with no references")
		return
	}
	g.count--
	if g.count == 0 {
		g.logger.Debug("Destroying PDF engine")
		g.eng.DestroyLibrary()
	}
}

// Count returns the number of references held.
func (g *Guard) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}
