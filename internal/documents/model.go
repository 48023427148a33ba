package documents

import "time"

// Document is an uploaded source file whose extracted text seeded a session.
type Document struct {
	ID             string
	SessionID      string
	FileName       string
	MimeType       string
	SizeBytes      int64
	WordCount      int
	StorageKey     string
	TextStorageKey string
	CreatedAt      time.Time
}
