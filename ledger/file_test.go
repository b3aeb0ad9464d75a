package ledger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &FileStore{Path: filepath.Join(t.TempDir(), "sent.json"), Logger: logger}
}

func TestFileStore_InitializesAbsentFile(t *testing.T) {
	store := newFileStore(t)

	sent, err := store.IsSent(context.Background(), "Tênis X|09:00|2024-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent {
		t.Fatalf("fresh ledger must report not sent")
	}

	data, err := os.ReadFile(store.Path)
	if err != nil {
		t.Fatalf("ledger file should have been created: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty list initialization, got %q", string(data))
	}
}

func TestFileStore_RecordRoundTripKeepsOrder(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	keys := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		keys = append(keys, fmt.Sprintf("Produto %d|09:00|2024-01-01", i))
	}
	for _, k := range keys {
		if err := store.Record(ctx, k); err != nil {
			t.Fatalf("Record(%q): %v", k, err)
		}
	}

	for _, k := range keys {
		sent, err := store.IsSent(ctx, k)
		if err != nil || !sent {
			t.Fatalf("IsSent(%q) expected true, got (%v, %v)", k, sent, err)
		}
	}
	if sent, _ := store.IsSent(ctx, "Produto 0|10:00|2024-01-01"); sent {
		t.Fatalf("different slot time must be a different key")
	}
	if sent, _ := store.IsSent(ctx, "Produto 0|09:00|2024-01-02"); sent {
		t.Fatalf("different day must be a different key")
	}

	// Another store over the same path sees the same state: the file is the
	// source of truth, not any in-process cache.
	other := &FileStore{Path: store.Path, Logger: store.Logger}
	if sent, err := other.IsSent(ctx, keys[4]); err != nil || !sent {
		t.Fatalf("second store should read the same ledger (%v, %v)", sent, err)
	}
}

func TestFileStore_CorruptFileFailsOpen(t *testing.T) {
	store := newFileStore(t)
	if err := os.WriteFile(store.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	sent, err := store.IsSent(context.Background(), "any")
	if err != nil {
		t.Fatalf("corrupt ledger must not return an error, got %v", err)
	}
	if sent {
		t.Fatalf("corrupt ledger must read as empty")
	}

	// Recording after corruption starts a fresh list.
	if err := store.Record(context.Background(), "k1"); err != nil {
		t.Fatalf("Record after corruption: %v", err)
	}
	if sent, _ := store.IsSent(context.Background(), "k1"); !sent {
		t.Fatalf("expected k1 recorded after reset")
	}
}
