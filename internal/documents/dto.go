package documents

import (
	"time"

	"github.com/samber/lo"
)

// DocumentResponse is the JSON shape of an uploaded source document. Storage
// keys stay internal.
type DocumentResponse struct {
	DocumentID string    `json:"documentId"`
	SessionID  string    `json:"sessionId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	WordCount  int       `json:"wordCount"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID: doc.ID,
		SessionID:  doc.SessionID,
		FileName:   doc.FileName,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		WordCount:  doc.WordCount,
		UploadedAt: doc.CreatedAt,
	}
}

// ToResponses keeps the input order and never returns nil.
func ToResponses(docs []Document) []DocumentResponse {
	if len(docs) == 0 {
		return []DocumentResponse{}
	}
	return lo.Map(docs, func(doc Document, _ int) DocumentResponse { return ToResponse(doc) })
}
