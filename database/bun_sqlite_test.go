package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/drummonds/pdfbridge/config"
)

func newTestRepository(t *testing.T) *BunDB {
	t.Helper()
	db, err := NewRepository(config.BridgeConfig{DatabaseType: "sqlite", DatabasePath: "memory:" + ulid.Make().String()})
	if err != nil {
		t.Fatalf("Failed to open sqlite repository: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBunSQLiteDatabase(t *testing.T) {
	ctx := context.Background()
	db := newTestRepository(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	doc, err := NewDocument("report.pdf", []byte("%PDF-1.7 test"), 0x0100000100000000, now)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	doc.PageCount = 3
	doc.Title = "Quarterly report"

	t.Run("Create and retrieve document", func(t *testing.T) {
		if err := db.SaveDocument(ctx, doc); err != nil {
			t.Fatalf("Failed to save document: %v", err)
		}
		got, err := db.GetDocument(ctx, doc.ULID)
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}
		if got.Name != doc.Name || got.PageCount != 3 || got.Title != doc.Title {
			t.Errorf("Retrieved %+v, want %+v", got, doc)
		}
		if got.Handle != doc.Handle || !got.Open() {
			t.Errorf("Expected open document with handle %#x, got %#x", doc.Handle, got.Handle)
		}
		if !got.OpenedAt.Equal(now) {
			t.Errorf("Expected opened at %v, got %v", now, got.OpenedAt)
		}
	})

	t.Run("Lookup by hash", func(t *testing.T) {
		got, err := db.GetOpenDocumentByHash(ctx, CalculateHash([]byte("%PDF-1.7 test")))
		if err != nil || got == nil || got.ULID != doc.ULID {
			t.Fatalf("GetOpenDocumentByHash = %v, %v", got, err)
		}
		none, err := db.GetOpenDocumentByHash(ctx, "missing")
		if err != nil || none != nil {
			t.Errorf("Expected nil for unknown hash, got %v, %v", none, err)
		}
	})

	t.Run("Idle documents", func(t *testing.T) {
		idle, err := db.GetIdleDocuments(ctx, now.Add(time.Minute))
		if err != nil || len(idle) != 1 {
			t.Fatalf("Expected 1 idle document, got %d (%v)", len(idle), err)
		}
		if err := db.TouchDocument(ctx, doc.ULID, now.Add(2*time.Minute)); err != nil {
			t.Fatalf("TouchDocument failed: %v", err)
		}
		idle, _ = db.GetIdleDocuments(ctx, now.Add(time.Minute))
		if len(idle) != 0 {
			t.Errorf("Touched document still idle")
		}
	})

	t.Run("Page stats", func(t *testing.T) {
		stats := []PageStat{
			{PageIndex: 0, CharCount: 120, Width: 612, Height: 792},
			{PageIndex: 1, CharCount: -1, Width: 612, Height: 792},
			{PageIndex: 2, CharCount: 7, Width: 595, Height: 842},
		}
		if err := db.SavePageStats(ctx, doc.ULID, stats); err != nil {
			t.Fatalf("SavePageStats failed: %v", err)
		}
		// a second save replaces the rows
		if err := db.SavePageStats(ctx, doc.ULID, stats); err != nil {
			t.Fatalf("SavePageStats again failed: %v", err)
		}
		got, err := db.GetPageStats(ctx, doc.ULID)
		if err != nil {
			t.Fatalf("GetPageStats failed: %v", err)
		}
		if len(got) != 3 || got[1].CharCount != -1 || got[2].Height != 842 {
			t.Errorf("GetPageStats = %+v", got)
		}
	})

	t.Run("Close and delete", func(t *testing.T) {
		if err := db.MarkClosed(ctx, doc.ULID, now.Add(time.Hour)); err != nil {
			t.Fatalf("MarkClosed failed: %v", err)
		}
		got, _ := db.GetDocument(ctx, doc.ULID)
		if got.Open() || got.Handle != 0 {
			t.Errorf("Document still open after MarkClosed: %+v", got)
		}
		if err := db.MarkClosed(ctx, doc.ULID, now); !errors.Is(err, ErrNotFound) {
			t.Errorf("Second MarkClosed = %v, want ErrNotFound", err)
		}
		if err := db.DeleteDocument(ctx, doc.ULID); err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if _, err := db.GetDocument(ctx, doc.ULID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetDocument after delete = %v", err)
		}
		if stats, _ := db.GetPageStats(ctx, doc.ULID); len(stats) != 0 {
			t.Errorf("Page stats survived delete: %+v", stats)
		}
	})
}

func TestCloseAllOpen(t *testing.T) {
	ctx := context.Background()
	db := newTestRepository(t)
	now := time.Now().UTC()

	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		doc, err := NewDocument(name, []byte(name), uint64(i+1), now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("NewDocument failed: %v", err)
		}
		if err := db.SaveDocument(ctx, doc); err != nil {
			t.Fatalf("Failed to save document: %v", err)
		}
	}

	newest, err := db.GetNewestDocuments(ctx, 2)
	if err != nil || len(newest) != 2 || newest[0].Name != "c.pdf" {
		t.Fatalf("GetNewestDocuments = %+v, %v", newest, err)
	}

	n, err := db.CloseAllOpen(ctx, now)
	if err != nil || n != 3 {
		t.Fatalf("CloseAllOpen = %d, %v", n, err)
	}
	idle, _ := db.GetIdleDocuments(ctx, now.Add(time.Hour))
	if len(idle) != 0 {
		t.Errorf("Closed documents reported idle: %d", len(idle))
	}
}

func TestUnknownDatabaseType(t *testing.T) {
	if _, err := NewRepository(config.BridgeConfig{DatabaseType: "storm"}); err == nil {
		t.Error("Expected error for unknown database type")
	}
}

func TestSqliteDSN(t *testing.T) {
	if got := sqliteDSN("memory:abc"); got != "file:abc?mode=memory&cache=shared" {
		t.Errorf("sqliteDSN(memory) = %q", got)
	}
	if got := sqliteDSN("data/catalog.db"); got != "file:data/catalog.db?cache=shared&mode=rwc" {
		t.Errorf("sqliteDSN(file) = %q", got)
	}
}
