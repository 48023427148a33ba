package exports

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"analysis-backend/internal/shared/storage/object"
	"analysis-backend/internal/shared/telemetry"
)

const maxExportBytes = 64 << 20

// Service persists assembled documents.
type Service struct {
	Store object.ObjectStore
	Repo  ExportsRepo
	Now   func() time.Time
}

// Save writes content to the object store and records exp. ID, StorageKey,
// SizeBytes and CreatedAt are filled in.
func (s *Service) Save(ctx context.Context, exp Export, content string) (Export, error) {
	if strings.TrimSpace(exp.SessionID) == "" {
		return Export{}, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	exp.ID = uuid.NewString()
	exp.StorageKey = path.Join("exports", exp.SessionID, exp.ID+".txt")
	exp.CreatedAt = s.now()

	size, err := s.Store.SaveWithKey(ctx, exp.StorageKey, "text/plain; charset=utf-8", strings.NewReader(content))
	if err != nil {
		return Export{}, fmt.Errorf("store export: %w", err)
	}
	exp.SizeBytes = size

	if err := s.Repo.Create(ctx, exp); err != nil {
		return Export{}, err
	}
	telemetry.Info("export.saved", map[string]any{
		"session_id":      exp.SessionID,
		"export_id":       exp.ID,
		"status":          exp.Status,
		"units_processed": exp.UnitsProcessed,
		"units_total":     exp.UnitsTotal,
		"size_bytes":      exp.SizeBytes,
	})
	return exp, nil
}

// List returns a session's exports, newest first.
func (s *Service) List(ctx context.Context, sessionID string) ([]Export, error) {
	return s.Repo.ListBySession(ctx, sessionID)
}

// Open returns the export record and its content.
func (s *Service) Open(ctx context.Context, id string) (Export, string, error) {
	exp, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Export{}, "", err
	}
	content, err := object.ReadString(ctx, s.Store, exp.StorageKey, maxExportBytes)
	if err != nil {
		return Export{}, "", fmt.Errorf("read export: %w", err)
	}
	return exp, content, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
