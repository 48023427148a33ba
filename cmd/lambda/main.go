package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/samber/lo"

	"analysis-backend/internal/bootstrap"
	"analysis-backend/internal/chunking"
	"analysis-backend/internal/sessions"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/telemetry"
)

const (
	// deadlineMargin is reserved for stopping the job and saving its export.
	deadlineMargin = 15 * time.Second
	exportGrace    = 10 * time.Second
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

// Request is the direct-invoke payload.
type Request struct {
	Text         string `json:"text"`
	AnalysisType string `json:"analysisType,omitempty"`
	Provider     string `json:"provider,omitempty"`
	// Sections are 1-based chunk numbers; empty analyzes every chunk.
	Sections []int `json:"sections,omitempty"`
}

type Response struct {
	SessionID      string `json:"sessionId"`
	Status         string `json:"status"`
	UnitsProcessed int    `json:"unitsProcessed"`
	UnitsTotal     int    `json:"unitsTotal"`
	FailureReason  string `json:"failureReason,omitempty"`
	ExportID       string `json:"exportId,omitempty"`
	Document       string `json:"document"`
}

func initApp() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	built, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, req Request) (Response, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return Response{}, initErr
	}
	return analyze(ctx, app.Deps.Sessions, req)
}

// analyze runs one session to a terminal state. A job still running close to
// the invocation deadline is stopped and its partial result returned.
func analyze(ctx context.Context, reg *sessions.Registry, req Request) (Response, error) {
	s := reg.Create()
	defer func() { _ = reg.Delete(s.ID()) }()

	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = sessions.WithRequestID(ctx, lc.AwsRequestID)
	}
	if err := s.Configure(req.AnalysisType, req.Provider); err != nil {
		return Response{}, err
	}
	if err := s.LoadText(req.Text); err != nil {
		return Response{}, err
	}
	if err := selectSections(s, req.Sections); err != nil {
		return Response{}, err
	}
	if err := s.StartAnalysis(ctx); err != nil {
		return Response{}, err
	}

	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if deadline, ok := ctx.Deadline(); ok {
		waitCtx, cancel = context.WithDeadline(ctx, deadline.Add(-deadlineMargin))
	}
	defer cancel()
	if err := s.Wait(waitCtx); err != nil {
		telemetry.Warn("lambda.deadline_stop", map[string]any{"session_id": s.ID()})
		// Close stops the job and cancels the in-flight provider call. The
		// export of the partial result still saves.
		s.Close()
		graceCtx, cancelGrace := context.WithTimeout(context.WithoutCancel(ctx), exportGrace)
		defer cancelGrace()
		_ = s.Wait(graceCtx)
	}

	snap := s.Snapshot()
	document, err := s.DownloadResult()
	if err != nil {
		return Response{}, err
	}
	resp := Response{
		SessionID:      s.ID(),
		Status:         string(snap.Status),
		UnitsProcessed: snap.UnitsProcessed,
		UnitsTotal:     snap.UnitsTotal,
		FailureReason:  snap.FailureReason,
		Document:       document,
	}
	if exp, ok := s.LastExport(); ok {
		resp.ExportID = exp.ID
	}
	return resp, nil
}

func selectSections(s *sessions.Session, sections []int) error {
	if len(sections) == 0 || !s.ChunkingRequired() {
		return nil
	}
	chunks := s.Chunks()
	s.SelectNone()
	for _, n := range lo.Uniq(sections) {
		chunk, ok := lo.Find(chunks, func(c chunking.TextChunk) bool { return c.Order == n-1 })
		if !ok {
			return fmt.Errorf("section %d out of range 1..%d", n, len(chunks))
		}
		if _, err := s.Toggle(chunk.ID); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
