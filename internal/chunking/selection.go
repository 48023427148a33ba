package chunking

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Store holds the chunks of one input and their selection flags. Only
// Selected ever changes after construction. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	chunks []TextChunk
	byID   map[string]int
}

// NewStore copies chunks into a store ordered by Order.
func NewStore(chunks []TextChunk) *Store {
	owned := make([]TextChunk, len(chunks))
	copy(owned, chunks)
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].Order < owned[j].Order })

	byID := make(map[string]int, len(owned))
	for i, c := range owned {
		byID[c.ID] = i
	}
	return &Store{chunks: owned, byID: byID}
}

// Toggle flips the selection flag of one chunk and returns the new value.
func (s *Store) Toggle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrChunkNotFound, id)
	}
	s.chunks[i].Selected = !s.chunks[i].Selected
	return s.chunks[i].Selected, nil
}

// SelectAll marks every chunk selected.
func (s *Store) SelectAll() {
	s.setAll(true)
}

// SelectNone clears every selection flag.
func (s *Store) SelectNone() {
	s.setAll(false)
}

func (s *Store) setAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chunks {
		s.chunks[i].Selected = selected
	}
}

// Chunks returns a copy of all chunks in ascending order.
func (s *Store) Chunks() []TextChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TextChunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Len reports the number of chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// SelectedChunks returns the selected chunks in ascending order.
func (s *Store) SelectedChunks() []TextChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.chunks, func(c TextChunk, _ int) bool { return c.Selected })
}

// SelectedWordCount sums the word counts of the selected chunks.
func (s *Store) SelectedWordCount() int {
	return lo.SumBy(s.SelectedChunks(), func(c TextChunk) int { return c.WordCount })
}

// TotalWordCount sums the word counts of all chunks.
func (s *Store) TotalWordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.SumBy(s.chunks, func(c TextChunk) int { return c.WordCount })
}
