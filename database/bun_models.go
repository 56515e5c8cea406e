package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunDocument represents the documents table for Bun ORM
type BunDocument struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         int64      `bun:"id,pk,autoincrement"`
	ULID       string     `bun:"ulid,notnull,unique"` // Stored as string in DB
	Name       string     `bun:"name,notnull"`
	Hash       string     `bun:"hash,notnull"`
	Size       int64      `bun:"size,notnull"`
	PageCount  int        `bun:"page_count,notnull"`
	Title      string     `bun:"title,nullzero"`
	Author     string     `bun:"author,nullzero"`
	Producer   string     `bun:"producer,nullzero"`
	Handle     int64      `bun:"handle,notnull"`
	OpenedAt   time.Time  `bun:"opened_at,notnull"`
	LastAccess time.Time  `bun:"last_access,notnull"`
	ClosedAt   *time.Time `bun:"closed_at,nullzero"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

// ToDocument converts BunDocument to Document
func (bd *BunDocument) ToDocument() (*Document, error) {
	parsedULID, err := ulid.Parse(bd.ULID)
	if err != nil {
		return nil, err
	}

	return &Document{
		ULID:       parsedULID,
		Name:       bd.Name,
		Hash:       bd.Hash,
		Size:       bd.Size,
		PageCount:  bd.PageCount,
		Title:      bd.Title,
		Author:     bd.Author,
		Producer:   bd.Producer,
		Handle:     uint64(bd.Handle),
		OpenedAt:   bd.OpenedAt,
		LastAccess: bd.LastAccess,
		ClosedAt:   bd.ClosedAt,
	}, nil
}

// FromDocument converts Document to BunDocument
func FromDocument(doc *Document) *BunDocument {
	return &BunDocument{
		ULID:       doc.ULID.String(),
		Name:       doc.Name,
		Hash:       doc.Hash,
		Size:       doc.Size,
		PageCount:  doc.PageCount,
		Title:      doc.Title,
		Author:     doc.Author,
		Producer:   doc.Producer,
		Handle:     int64(doc.Handle),
		OpenedAt:   doc.OpenedAt,
		LastAccess: doc.LastAccess,
		ClosedAt:   doc.ClosedAt,
	}
}

// BunPageStat represents the page_stats table for Bun ORM
type BunPageStat struct {
	bun.BaseModel `bun:"table:page_stats,alias:ps"`

	DocumentULID string  `bun:"document_ulid,pk"`
	PageIndex    int     `bun:"page_index,pk"`
	CharCount    int     `bun:"char_count,notnull"`
	Width        float64 `bun:"width,notnull"`
	Height       float64 `bun:"height,notnull"`
}

// ToPageStat converts BunPageStat to PageStat
func (bps *BunPageStat) ToPageStat() PageStat {
	return PageStat{
		PageIndex: bps.PageIndex,
		CharCount: bps.CharCount,
		Width:     bps.Width,
		Height:    bps.Height,
	}
}
