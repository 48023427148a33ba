package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{
		ID:             "doc-1",
		SessionID:      "session-1",
		FileName:       "essay.pdf",
		MimeType:       "application/pdf",
		SizeBytes:      2048,
		WordCount:      350,
		StorageKey:     "ns/abc_essay.pdf",
		TextStorageKey: "ns/abc_essay.pdf.extracted.txt",
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ID, doc.SessionID, doc.FileName, doc.MimeType, doc.SizeBytes, doc.WordCount, doc.StorageKey, doc.TextStorageKey, doc.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT .* FROM documents").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "session_id", "file_name", "mime_type", "size_bytes", "word_count", "storage_key", "text_storage_key", "created_at"}).
		AddRow("doc-2", "session-1", "b.txt", "text/plain", int64(10), 2, "k2", "k2.extracted.txt", now).
		AddRow("doc-1", "session-1", "a.txt", "text/plain", int64(20), 4, "k1", "k1.extracted.txt", now.Add(-time.Minute))
	mock.ExpectQuery("SELECT .* FROM documents\\s+WHERE session_id = \\$1\\s+ORDER BY created_at DESC").
		WithArgs("session-1").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	docs, err := repo.ListBySession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-2" || docs[1].WordCount != 4 {
		t.Fatalf("unexpected docs %+v", docs)
	}
}

func TestPGRepoDeleteBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	rows := sqlmock.NewRows([]string{"id", "session_id", "file_name", "mime_type", "size_bytes", "word_count", "storage_key", "text_storage_key", "created_at"}).
		AddRow("doc-1", "session-1", "a.txt", "text/plain", int64(20), 4, "k1", "k1.extracted.txt", time.Now().UTC())
	mock.ExpectQuery("DELETE FROM documents\\s+WHERE session_id = \\$1\\s+RETURNING").
		WithArgs("session-1").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	removed, err := repo.DeleteBySession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("DeleteBySession: %v", err)
	}
	if len(removed) != 1 || removed[0].TextStorageKey != "k1.extracted.txt" {
		t.Fatalf("unexpected removed rows %+v", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
