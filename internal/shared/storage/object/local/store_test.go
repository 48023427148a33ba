package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"analysis-backend/internal/shared/storage/object"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mimeType, err := store.Save(ctx, "session-1", "notes.txt", strings.NewReader("plain words here"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len("plain words here")) {
		t.Fatalf("unexpected size %d", size)
	}
	if !strings.HasPrefix(mimeType, "text/plain") {
		t.Fatalf("unexpected mime %q", mimeType)
	}
	if !strings.HasSuffix(key, "_notes.txt") {
		t.Fatalf("unexpected key %q", key)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "plain words here" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveWithKeyOverwrites(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	key := "exports/s-1/e-1.txt"

	if _, err := store.SaveWithKey(ctx, key, "text/plain", strings.NewReader("first")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.SaveWithKey(ctx, key, "text/plain", strings.NewReader("second")); err != nil {
		t.Fatalf("save: %v", err)
	}
	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	if _, err := store.Open(ctx, "../secret"); err == nil {
		t.Fatalf("expected traversal rejection")
	}
	if _, err := store.SaveWithKey(ctx, "/abs/path", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected absolute key rejection")
	}
	if _, _, _, err := store.Save(ctx, "s", "../x.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected bad file name rejection")
	}
}

func TestDeleteAndReadString(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	key := "exports/s1/a.txt"
	if _, err := store.SaveWithKey(ctx, key, "text/plain", strings.NewReader("twelve bytes")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if got, err := object.ReadString(ctx, store, key, 64); err != nil || got != "twelve bytes" {
		t.Fatalf("ReadString = %q, %v", got, err)
	}
	if _, err := object.ReadString(ctx, store, key, 4); !errors.Is(err, object.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, key); err == nil {
		t.Fatalf("expected open to fail after delete")
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}
