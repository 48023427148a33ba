package documents

import "context"

// DocumentsRepo defines persistence operations for documents.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	ListBySession(ctx context.Context, sessionID string) ([]Document, error)
	// DeleteBySession removes a session's documents and returns what it removed.
	DeleteBySession(ctx context.Context, sessionID string) ([]Document, error)
}
