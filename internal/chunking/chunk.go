package chunking

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultMaxWords is both the chunk ceiling and the word count above which
// input gets chunked at all.
const DefaultMaxWords = 1000

// lookbackDivisor bounds how far back (as a fraction of the ceiling) a chunk
// end may move to land on a sentence or paragraph boundary.
const lookbackDivisor = 10

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrChunkNotFound   = errors.New("chunk not found")
)

// TextChunk is a contiguous, independently selectable slice of the source text.
type TextChunk struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
	Selected  bool   `json:"selected"`
	Order     int    `json:"order"`
}

type wordSpan struct {
	start int
	end   int
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Split cuts text into chunks of at most maxWords words. Cuts only fall on
// whitespace and the whitespace at a cut stays with the preceding chunk, so
// concatenating Content in Order reproduces text exactly.
func Split(text string, maxWords int) ([]TextChunk, error) {
	if maxWords <= 0 {
		return nil, fmt.Errorf("%w: maxWordsPerChunk must be positive, got %d", ErrInvalidArgument, maxWords)
	}
	if text == "" {
		return []TextChunk{}, nil
	}

	words := scanWords(text)
	if len(words) <= maxWords {
		return []TextChunk{newChunk(text, len(words), 0)}, nil
	}

	lookback := maxWords / lookbackDivisor
	var chunks []TextChunk
	cut := 0
	first := 0
	for first < len(words) {
		last := first + maxWords
		if last >= len(words) {
			chunks = append(chunks, newChunk(text[cut:], len(words)-first, len(chunks)))
			break
		}
		last = preferBoundary(text, words, first, last, lookback)
		next := words[last].start
		chunks = append(chunks, newChunk(text[cut:next], last-first, len(chunks)))
		cut = next
		first = last
	}
	return chunks, nil
}

func newChunk(content string, words, order int) TextChunk {
	return TextChunk{
		ID:        uuid.NewString(),
		Content:   content,
		WordCount: words,
		Selected:  true,
		Order:     order,
	}
}

func scanWords(text string) []wordSpan {
	var spans []wordSpan
	inWord := false
	start := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				spans = append(spans, wordSpan{start: start, end: i})
				inWord = false
			}
			continue
		}
		if !inWord {
			start = i
			inWord = true
		}
	}
	if inWord {
		spans = append(spans, wordSpan{start: start, end: len(text)})
	}
	return spans
}

// preferBoundary returns the index of the first word of the next chunk. It
// starts from the hard limit and walks back at most lookback words looking for
// a word that closes a sentence or paragraph.
func preferBoundary(text string, words []wordSpan, first, limit, lookback int) int {
	for next := limit; next > first+1 && limit-next <= lookback; next-- {
		prev := words[next-1]
		if endsSentence(text[prev.start:prev.end]) || paragraphBreak(text[prev.end:words[next].start]) {
			return next
		}
	}
	return limit
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, `"')]}»”’`)
	if trimmed == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(trimmed)
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func paragraphBreak(gap string) bool {
	return strings.Count(gap, "\n") >= 2
}
