package exports

import "context"

// ExportsRepo defines persistence operations for exports.
type ExportsRepo interface {
	Create(ctx context.Context, exp Export) error
	GetByID(ctx context.Context, id string) (Export, error)
	ListBySession(ctx context.Context, sessionID string) ([]Export, error)
}
