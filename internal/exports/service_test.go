package exports

import (
	"context"
	"errors"
	"testing"
	"time"

	"analysis-backend/internal/shared/storage/object/local"
)

func TestSaveListOpen(t *testing.T) {
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &Service{
		Store: local.New(t.TempDir()),
		Repo:  NewMemoryRepo(),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
	ctx := context.Background()

	first, err := svc.Save(ctx, Export{SessionID: "s-1", Status: "stopped", UnitsProcessed: 5, UnitsTotal: 12}, "partial")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.StorageKey != "exports/s-1/"+first.ID+".txt" || first.SizeBytes != int64(len("partial")) {
		t.Fatalf("unexpected export %+v", first)
	}
	if first.Complete() {
		t.Fatalf("5 of 12 is not complete")
	}
	second, err := svc.Save(ctx, Export{SessionID: "s-1", Status: "completed", UnitsProcessed: 12, UnitsTotal: 12}, "full")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := svc.List(ctx, "s-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	exp, content, err := svc.Open(ctx, first.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if content != "partial" || exp.Status != "stopped" {
		t.Fatalf("unexpected open result %+v %q", exp, content)
	}
}

func TestSaveValidationAndMissing(t *testing.T) {
	svc := &Service{Store: local.New(t.TempDir()), Repo: NewMemoryRepo()}
	if _, err := svc.Save(context.Background(), Export{}, "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.Open(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
