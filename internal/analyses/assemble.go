package analyses

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// Assemble renders the result as one document: phases in sequence order,
// chunks in ascending order within each phase. Units without output get a
// missing marker, so partial jobs still export. The output depends only on
// the arguments.
func Assemble(result *Result, phases []Phase) string {
	if result == nil {
		result = NewResult(nil)
	}
	chunks := result.Chunks()
	if len(chunks) == 0 {
		chunks = []ChunkRef{{}}
	}
	chunked := result.Chunked()

	var b strings.Builder
	missing := 0
	for pi, phase := range phases {
		if len(phases) > 1 {
			fmt.Fprintf(&b, "## Phase %d of %d: %s\n\n", pi+1, len(phases), phase.Title())
		} else {
			fmt.Fprintf(&b, "## %s\n\n", phase.Title())
		}
		for ci, chunk := range chunks {
			if chunked {
				fmt.Fprintf(&b, "### Section %d of %d\n\n", ci+1, len(chunks))
			}
			output, ok := result.Get(phase, chunk.ID)
			if !ok {
				missing++
				b.WriteString(missingMarker(phase, ci, len(chunks), chunked))
				b.WriteString("\n\n")
				continue
			}
			b.WriteString(strings.TrimRight(output, " \t\r\n"))
			b.WriteString("\n\n")
		}
	}

	total := len(phases) * len(chunks)
	if missing > 0 {
		fmt.Fprintf(&b, "---\n\nIncomplete export: %d of %d units missing.\n", missing, total)
	}
	return b.String()
}

func missingMarker(phase Phase, chunkIndex, chunkCount int, chunked bool) string {
	if chunked {
		return fmt.Sprintf("[MISSING: %s, section %d of %d not completed]", phase.Title(), chunkIndex+1, chunkCount)
	}
	return fmt.Sprintf("[MISSING: %s not completed]", phase.Title())
}

// MissingUnits counts units of phases that have no output in result.
func MissingUnits(result *Result, phases []Phase) int {
	if result == nil {
		result = NewResult(nil)
	}
	chunks := result.Chunks()
	if len(chunks) == 0 {
		chunks = []ChunkRef{{}}
	}
	missing := 0
	for _, phase := range phases {
		for _, chunk := range chunks {
			if _, ok := result.Get(phase, chunk.ID); !ok {
				missing++
			}
		}
	}
	return missing
}

// RenderHTML converts an assembled document to HTML.
func RenderHTML(document string) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(document), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
