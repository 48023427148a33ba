package sessions

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/chunking"
)

const chunkPreviewRunes = 120

// ChunkSummary is a chunk without its full content.
type ChunkSummary struct {
	ID        string `json:"id"`
	Order     int    `json:"order"`
	WordCount int    `json:"wordCount"`
	Selected  bool   `json:"selected"`
	Preview   string `json:"preview"`
}

// View is the session state returned by the HTTP API.
type View struct {
	ID               string                `json:"id"`
	DocumentID       string                `json:"documentId,omitempty"`
	ChunkingRequired bool                  `json:"chunkingRequired"`
	TotalWords       int                   `json:"totalWords"`
	SelectedWords    int                   `json:"selectedWords"`
	ChunkCount       int                   `json:"chunkCount"`
	SelectedCount    int                   `json:"selectedCount"`
	Chunks           []ChunkSummary        `json:"chunks"`
	AnalysisType     analyses.AnalysisType `json:"analysisType"`
	Provider         string                `json:"provider"`
	Analysis         analyses.Snapshot     `json:"analysis"`
	LastExportID     string                `json:"lastExportId,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:               s.id,
		DocumentID:       s.documentID,
		ChunkingRequired: s.chunkingRequired,
		TotalWords:       s.totalWords,
		SelectedWords:    s.totalWords,
		Chunks:           []ChunkSummary{},
		AnalysisType:     s.analysisType,
		Provider:         s.provider,
		Analysis:         s.snapshotLocked(),
		CreatedAt:        s.createdAt,
	}
	if s.store != nil {
		chunks := s.store.Chunks()
		v.Chunks = lo.Map(chunks, func(c chunking.TextChunk, _ int) ChunkSummary { return summarize(c) })
		v.ChunkCount = len(chunks)
		v.SelectedCount = lo.CountBy(chunks, func(c chunking.TextChunk) bool { return c.Selected })
		v.SelectedWords = s.store.SelectedWordCount()
	}
	if s.lastExport != nil {
		v.LastExportID = s.lastExport.ID
	}
	return v
}

func summarize(c chunking.TextChunk) ChunkSummary {
	preview := []rune(strings.TrimSpace(c.Content))
	if len(preview) > chunkPreviewRunes {
		preview = append(preview[:chunkPreviewRunes], '…')
	}
	return ChunkSummary{
		ID:        c.ID,
		Order:     c.Order,
		WordCount: c.WordCount,
		Selected:  c.Selected,
		Preview:   string(preview),
	}
}
