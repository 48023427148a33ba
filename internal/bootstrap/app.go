package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"analysis-backend/internal/llm"
	"analysis-backend/internal/llm/providers"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/server"
)

// App holds shared dependencies for the HTTP and Lambda entry points.
type App struct {
	Config    config.Config
	Providers *llm.Registry
	Deps      server.Deps
	Router    *gin.Engine
}

// Build prepares providers, storage and the session registry, then wires the
// router on top of them.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	registry, err := providers.FromConfig(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}
	deps, err := server.BuildDeps(ctx, cfg, registry)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}

	return &App{
		Config:    cfg,
		Providers: registry,
		Deps:      deps,
		Router:    server.NewRouter(cfg, deps),
	}, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return a.Deps.Close()
}
