package server

import (
	"context"
	"database/sql"
	"fmt"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/documents"
	"analysis-backend/internal/exports"
	"analysis-backend/internal/llm"
	"analysis-backend/internal/sessions"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/storage/db"
	"analysis-backend/internal/shared/storage/object"
	localstore "analysis-backend/internal/shared/storage/object/local"
	s3store "analysis-backend/internal/shared/storage/object/s3"
	"analysis-backend/internal/shared/telemetry"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	DB        *sql.DB
	Store     object.ObjectStore
	Documents *documents.Service
	Exports   *exports.Service
	Sessions  *sessions.Registry
}

// Close releases the database pool.
func (d Deps) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// BuildDeps wires storage, repositories and the session registry. Without a
// reachable database the repositories fall back to memory.
func BuildDeps(ctx context.Context, cfg config.Config, providers *llm.Registry) (Deps, error) {
	store, err := NewObjectStore(ctx, cfg)
	if err != nil {
		return Deps{}, err
	}

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			telemetry.Error("db.connect_failed", map[string]any{"error": err.Error(), "fallback": "memory"})
		} else if err := db.RunMigrations(ctx, conn); err != nil {
			telemetry.Error("db.migrate_failed", map[string]any{"error": err.Error(), "fallback": "memory"})
			_ = conn.Close()
		} else {
			sqlDB = conn
		}
	}

	var docRepo documents.DocumentsRepo = documents.NewMemoryRepo()
	var exportRepo exports.ExportsRepo = exports.NewMemoryRepo()
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
		exportRepo = &exports.PGRepo{DB: sqlDB}
	}
	docSvc := &documents.Service{Store: store, Repo: docRepo}
	exportSvc := &exports.Service{Store: store, Repo: exportRepo}

	analysisType, err := analyses.ParseType(cfg.AnalysisType)
	if err != nil {
		return Deps{}, fmt.Errorf("ANALYSIS_TYPE: %w", err)
	}
	registry := sessions.NewRegistry(sessions.Options{
		MaxWordsPerChunk: cfg.MaxWordsPerChunk,
		AnalysisType:     analysisType,
		Provider:         cfg.LLM.Provider,
		Providers:        providers,
		MaxAttempts:      cfg.LLM.MaxAttempts,
		RetryBaseDelay:   cfg.LLM.RetryBaseDelay,
		Exports:          exportSvc,
	})

	return Deps{
		DB:        sqlDB,
		Store:     store,
		Documents: docSvc,
		Exports:   exportSvc,
		Sessions:  registry,
	}, nil
}

// NewObjectStore returns the configured object store.
func NewObjectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		return store, nil
	}
	return localstore.New(cfg.LocalStoreDir), nil
}
