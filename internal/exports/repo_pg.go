package exports

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements ExportsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const exportColumns = `id, session_id, analysis_type, provider, status, units_processed, units_total, storage_key, size_bytes, created_at`

// Create inserts an export row.
func (r *PGRepo) Create(ctx context.Context, exp Export) error {
	const query = `
INSERT INTO exports (` + exportColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.ExecContext(
		ctx,
		query,
		exp.ID,
		exp.SessionID,
		exp.AnalysisType,
		exp.Provider,
		exp.Status,
		exp.UnitsProcessed,
		exp.UnitsTotal,
		exp.StorageKey,
		exp.SizeBytes,
		exp.CreatedAt,
	)
	return err
}

// GetByID fetches an export by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Export, error) {
	const query = `
SELECT ` + exportColumns + `
FROM exports
WHERE id = $1`
	exp, err := scanExport(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Export{}, ErrNotFound
		}
		return Export{}, err
	}
	return exp, nil
}

// ListBySession lists a session's exports, newest first.
func (r *PGRepo) ListBySession(ctx context.Context, sessionID string) ([]Export, error) {
	const query = `
SELECT ` + exportColumns + `
FROM exports
WHERE session_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Export, 0)
	for rows.Next() {
		exp, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExport(row rowScanner) (Export, error) {
	var exp Export
	err := row.Scan(
		&exp.ID,
		&exp.SessionID,
		&exp.AnalysisType,
		&exp.Provider,
		&exp.Status,
		&exp.UnitsProcessed,
		&exp.UnitsTotal,
		&exp.StorageKey,
		&exp.SizeBytes,
		&exp.CreatedAt,
	)
	return exp, err
}

var _ ExportsRepo = (*PGRepo)(nil)
