package llm

import (
	"context"
	"fmt"
	"strings"

	"analysis-backend/internal/chunking"
)

// EchoClient is a deterministic offline provider for development and tests.
type EchoClient struct{}

// RunUnit summarizes the unit without calling a model.
func (EchoClient) RunUnit(ctx context.Context, input UnitInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) on section %d of %d: %d words reviewed.",
		input.Phase.Title(), input.AnalysisType, input.ChunkIndex+1, input.ChunkCount, chunking.WordCount(input.Text))
	if input.PriorOutput != "" {
		fmt.Fprintf(&b, " Builds on %d words of prior output.", chunking.WordCount(input.PriorOutput))
	}
	return b.String(), nil
}

var _ Client = EchoClient{}
