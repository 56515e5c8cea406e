package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when no catalog entry matches.
var ErrNotFound = errors.New("database: document not found")

// Document is one opened PDF as recorded in the catalog
type Document struct {
	ULID       ulid.ULID // public id used in API paths
	Name       string
	Hash       string // sha256 of the uploaded bytes
	Size       int64
	PageCount  int
	Title      string
	Author     string
	Producer   string
	Handle     uint64 // live bridge handle, 0 once closed
	OpenedAt   time.Time
	LastAccess time.Time
	ClosedAt   *time.Time
}

// Open reports whether the document still has a live bridge handle.
func (d *Document) Open() bool {
	return d.Handle != 0 && d.ClosedAt == nil
}

// PageStat holds the per-page figures gathered when a document is opened
type PageStat struct {
	PageIndex int     `json:"page_index"`
	CharCount int     `json:"char_count"` // -1 when the page could not be read
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.New(slog.DiscardHandler)

// Repository defines database operations
type Repository interface {
	Close() error
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id ulid.ULID) (*Document, error)
	GetOpenDocumentByHash(ctx context.Context, hash string) (*Document, error)
	GetNewestDocuments(ctx context.Context, limit int) ([]Document, error)
	GetIdleDocuments(ctx context.Context, lastAccessBefore time.Time) ([]Document, error)
	TouchDocument(ctx context.Context, id ulid.ULID, at time.Time) error
	MarkClosed(ctx context.Context, id ulid.ULID, at time.Time) error
	CloseAllOpen(ctx context.Context, at time.Time) (int, error)
	DeleteDocument(ctx context.Context, id ulid.ULID) error
	SavePageStats(ctx context.Context, id ulid.ULID, stats []PageStat) error
	GetPageStats(ctx context.Context, id ulid.ULID) ([]PageStat, error)
}

// CalculateHash returns the hex sha256 of data.
func CalculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CalculateULID creates a ULID for the given time. The shared monotonic
// entropy keeps ids unique within one millisecond.
func CalculateULID(t time.Time) (ulid.ULID, error) {
	return ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
}

// NewDocument builds a catalog entry for bytes just opened as handle.
func NewDocument(name string, data []byte, handle uint64, now time.Time) (*Document, error) {
	id, err := CalculateULID(now)
	if err != nil {
		Logger.Error("Cannot generate ULID", "name", name, "error", err)
		return nil, err
	}
	return &Document{
		ULID:       id,
		Name:       name,
		Hash:       CalculateHash(data),
		Size:       int64(len(data)),
		Handle:     handle,
		OpenedAt:   now,
		LastAccess: now,
	}, nil
}
