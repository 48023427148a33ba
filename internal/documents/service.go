package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"analysis-backend/internal/chunking"
	"analysis-backend/internal/extract"
	"analysis-backend/internal/shared/storage/object"
	"analysis-backend/internal/shared/telemetry"
)

// maxTextBytes bounds reads of stored extracted text.
const maxTextBytes = 32 << 20

// Service contains business logic for documents.
type Service struct {
	Store object.ObjectStore
	Repo  DocumentsRepo
	Now   func() time.Time
}

// Upload reads an uploaded file, extracts its text, stores the original and
// an .extracted.txt copy, and records the document. Extraction runs before
// anything is stored so rejected files leave no trace.
func (s *Service) Upload(ctx context.Context, sessionID, fileName, mimeType string, r io.Reader) (Document, string, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" || strings.TrimSpace(sessionID) == "" {
		return Document{}, "", ErrInvalidInput
	}

	data, err := io.ReadAll(io.LimitReader(r, extract.MaxBytes+1))
	if err != nil {
		return Document{}, "", fmt.Errorf("read upload: %w", err)
	}
	text, err := extract.FromBytes(ctx, data, mimeType, fileName)
	if err != nil {
		return Document{}, "", err
	}

	storageKey, size, sniffed, err := s.Store.Save(ctx, sessionID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, "", fmt.Errorf("store original: %w", err)
	}
	textKey := storageKey + ".extracted.txt"
	if _, err := s.Store.SaveWithKey(ctx, textKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("document.object_delete_failed", map[string]any{
				"session_id":  sessionID,
				"storage_key": storageKey,
				"error":       delErr.Error(),
			})
		}
		return Document{}, "", fmt.Errorf("store extracted text: %w", err)
	}

	normalized := extract.NormalizeMimeType(mimeType, fileName, data)
	if normalized == "" {
		normalized = sniffed
	}
	doc := Document{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		FileName:       fileName,
		MimeType:       normalized,
		SizeBytes:      size,
		WordCount:      chunking.WordCount(text),
		StorageKey:     storageKey,
		TextStorageKey: textKey,
		CreatedAt:      s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, "", err
	}

	telemetry.Info("document.uploaded", map[string]any{
		"session_id":  sessionID,
		"document_id": doc.ID,
		"mime_type":   doc.MimeType,
		"size_bytes":  doc.SizeBytes,
		"word_count":  doc.WordCount,
	})
	return doc, text, nil
}

// List returns a session's documents, newest first.
func (s *Service) List(ctx context.Context, sessionID string) ([]Document, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListBySession(ctx, sessionID)
}

// Text returns the stored extracted text of a document.
func (s *Service) Text(ctx context.Context, documentID string) (string, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}
	text, err := object.ReadString(ctx, s.Store, doc.TextStorageKey, maxTextBytes)
	if err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return text, nil
}

// DeleteSession drops a session's document records and their stored objects.
// Object removal is best effort once the records are gone.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, ErrInvalidInput
	}
	removed, err := s.Repo.DeleteBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	for _, doc := range removed {
		for _, key := range []string{doc.StorageKey, doc.TextStorageKey} {
			if err := s.Store.Delete(ctx, key); err != nil {
				telemetry.Warn("document.object_delete_failed", map[string]any{
					"session_id":  sessionID,
					"document_id": doc.ID,
					"storage_key": key,
					"error":       err.Error(),
				})
			}
		}
	}
	if len(removed) > 0 {
		telemetry.Info("document.session_deleted", map[string]any{
			"session_id": sessionID,
			"documents":  len(removed),
		})
	}
	return len(removed), nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
