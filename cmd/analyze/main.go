package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/samber/lo"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/chunking"
	"analysis-backend/internal/extract"
	"analysis-backend/internal/llm/providers"
	"analysis-backend/internal/sessions"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	inPath := flag.String("in", "", "Path to a txt, pdf, doc or docx file (default stdin)")
	analysisType := flag.String("type", cfg.AnalysisType, "Analysis type")
	provider := flag.String("provider", cfg.LLM.Provider, "LLM provider")
	maxWords := flag.Int("max-words", cfg.MaxWordsPerChunk, "Chunk ceiling in words")
	selectFlag := flag.String("select", "", "Comma separated chunk numbers to analyze, 1-based (default all)")
	outPath := flag.String("out", "", "Path to write the assembled result (default stdout)")
	html := flag.Bool("html", false, "Write HTML instead of text")
	flag.Parse()

	telemetry.Configure(os.Stderr, "warn")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := readInput(ctx, *inPath)
	if err != nil {
		exitErr(err.Error())
	}

	registry, err := providers.FromConfig(ctx, cfg.LLM)
	if err != nil {
		exitErr(err.Error())
	}
	s := sessions.New("cli", sessions.Options{
		MaxWordsPerChunk: *maxWords,
		Provider:         *provider,
		Providers:        registry,
		MaxAttempts:      cfg.LLM.MaxAttempts,
		RetryBaseDelay:   cfg.LLM.RetryBaseDelay,
	})
	if err := s.Configure(*analysisType, *provider); err != nil {
		exitErr(err.Error())
	}
	if err := s.LoadText(text); err != nil {
		exitErr(err.Error())
	}
	if s.ChunkingRequired() {
		if err := applySelection(s, *selectFlag); err != nil {
			exitErr(err.Error())
		}
		fmt.Fprintf(os.Stderr, "text split into %d sections\n", len(s.Chunks()))
	}

	id, updates := s.Subscribe()
	defer s.Unsubscribe(id)
	if err := s.StartAnalysis(context.Background()); err != nil {
		exitErr(err.Error())
	}

	final := follow(ctx, s, updates)

	document, err := s.DownloadResult()
	if err != nil {
		exitErr(err.Error())
	}
	if *html {
		if document, err = analyses.RenderHTML(document); err != nil {
			exitErr(err.Error())
		}
	}
	if err := writeOutput(*outPath, document); err != nil {
		exitErr(err.Error())
	}
	if final.Status == analyses.StatusFailed {
		exitErr("analysis failed: " + final.FailureReason)
	}
}

// follow prints progress until the job ends. An interrupt stops the job and
// the partial result is still written.
func follow(ctx context.Context, s *sessions.Session, updates <-chan analyses.Snapshot) analyses.Snapshot {
	var last analyses.Snapshot
	interrupted := ctx.Done()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return last
			}
			last = snap
			fmt.Fprintf(os.Stderr, "\r%-9s %3.0f%%  %d/%d units  phase %d/%d  remaining %s   ",
				snap.Status, snap.Progress*100, snap.UnitsProcessed, snap.UnitsTotal,
				snap.PhaseIndex+1, snap.PhaseCount, snap.EstimatedRemaining)
			if snap.Status.Terminal() {
				fmt.Fprintln(os.Stderr)
				_ = s.Wait(context.Background())
				return snap
			}
		case <-interrupted:
			interrupted = nil
			fmt.Fprintln(os.Stderr, "\nstopping after the current unit…")
			if err := s.StopAnalysis(); err != nil && !errors.Is(err, analyses.ErrInvalidTransition) {
				fmt.Fprintf(os.Stderr, "stop: %v\n", err)
			}
		}
	}
}

func readInput(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, extract.MaxBytes+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return extract.FromBytes(ctx, data, extract.MimeText, "stdin.txt")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return extract.FromBytes(ctx, data, "", filepath.Base(path))
}

func applySelection(s *sessions.Session, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	chunks := s.Chunks()
	numbers, err := parseSelection(raw, len(chunks))
	if err != nil {
		return err
	}
	s.SelectNone()
	for _, n := range numbers {
		chunk, _ := lo.Find(chunks, func(c chunking.TextChunk) bool { return c.Order == n-1 })
		if _, err := s.Toggle(chunk.ID); err != nil {
			return err
		}
	}
	return nil
}

// parseSelection parses "1,3,5" into unique section numbers within 1..count.
func parseSelection(raw string, count int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid section %q", part)
		}
		if n < 1 || n > count {
			return nil, fmt.Errorf("section %d out of range 1..%d", n, count)
		}
		out = append(out, n)
	}
	out = lo.Uniq(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("no sections selected")
	}
	return out, nil
}

func writeOutput(path, document string) error {
	if strings.TrimSpace(path) == "" {
		_, err := io.WriteString(os.Stdout, document)
		return err
	}
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
