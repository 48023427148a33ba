package analyses

import (
	"fmt"
	"sort"
)

// ChunkRef names one expected input of a result. ID is empty for unchunked
// input.
type ChunkRef struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// Entry is one unit output.
type Entry struct {
	Phase  Phase    `json:"phase"`
	Chunk  ChunkRef `json:"chunk"`
	Output string   `json:"output"`
}

type entryKey struct {
	phase   Phase
	chunkID string
}

// Result maps (phase, chunk) to output text in insertion order. Once sealed it
// rejects writes.
type Result struct {
	chunks  []ChunkRef
	entries []Entry
	index   map[entryKey]int
	sealed  bool
}

// NewResult creates an empty result expecting the given chunks.
func NewResult(chunks []ChunkRef) *Result {
	owned := make([]ChunkRef, len(chunks))
	copy(owned, chunks)
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].Order < owned[j].Order })
	return &Result{
		chunks: owned,
		index:  make(map[entryKey]int),
	}
}

// Append stores the output for (phase, chunk).
func (r *Result) Append(phase Phase, chunk ChunkRef, output string) error {
	if r.sealed {
		return ErrResultSealed
	}
	key := entryKey{phase: phase, chunkID: chunk.ID}
	if _, exists := r.index[key]; exists {
		return fmt.Errorf("%w: duplicate output for phase %s chunk %q", ErrInvalidArgument, phase, chunk.ID)
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, Entry{Phase: phase, Chunk: chunk, Output: output})
	return nil
}

// Get returns the output for (phase, chunkID).
func (r *Result) Get(phase Phase, chunkID string) (string, bool) {
	i, ok := r.index[entryKey{phase: phase, chunkID: chunkID}]
	if !ok {
		return "", false
	}
	return r.entries[i].Output, true
}

// Entries returns outputs in insertion order.
func (r *Result) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Chunks returns the expected chunks in ascending order.
func (r *Result) Chunks() []ChunkRef {
	out := make([]ChunkRef, len(r.chunks))
	copy(out, r.chunks)
	return out
}

// Chunked reports whether the result covers explicit chunks rather than the
// whole text.
func (r *Result) Chunked() bool {
	for _, c := range r.chunks {
		if c.ID != "" {
			return true
		}
	}
	return false
}

func (r *Result) Len() int { return len(r.entries) }

func (r *Result) Seal() { r.sealed = true }

func (r *Result) Sealed() bool { return r.sealed }

// Clone returns an independent copy with the same sealed state.
func (r *Result) Clone() *Result {
	c := NewResult(r.chunks)
	c.entries = r.Entries()
	for k, v := range r.index {
		c.index[k] = v
	}
	c.sealed = r.sealed
	return c
}
