package sessions

import (
	"context"
	"time"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/exports"
	"analysis-backend/internal/llm"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/telemetry"
)

const exportSaveTimeout = 30 * time.Second

// run drives job one unit at a time. The provider call happens outside the
// session lock; the outcome is reported under it.
func (s *Session) run(ctx context.Context, job *analyses.Job, client llm.Client, done chan struct{}) {
	defer close(done)
	stopWake := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stopWake()

	for {
		s.mu.Lock()
		for job.Status() == analyses.StatusPaused && ctx.Err() == nil {
			s.cond.Wait()
		}
		if ctx.Err() != nil {
			s.stopForShutdownLocked(job)
		}
		if job.Status() != analyses.StatusRunning {
			s.mu.Unlock()
			break
		}
		unit, ok := job.NextUnit()
		if !ok {
			s.mu.Unlock()
			break
		}
		prior, _ := job.PriorOutput(unit)
		s.mu.Unlock()

		output, err := client.RunUnit(ctx, llm.UnitInput{
			AnalysisType: job.Type(),
			Phase:        unit.Phase,
			PhaseIndex:   unit.PhaseIndex,
			PhaseCount:   unit.PhaseCount,
			ChunkIndex:   unit.InputIndex,
			ChunkCount:   unit.InputCount,
			Text:         unit.Input.Text,
			PriorOutput:  prior,
		})

		s.mu.Lock()
		s.reportLocked(ctx, job, output, err)
		s.mu.Unlock()
	}

	s.finish(ctx, job)
}

func (s *Session) reportLocked(ctx context.Context, job *analyses.Job, output string, callErr error) {
	prev := job.Status()
	if prev != analyses.StatusRunning && prev != analyses.StatusPaused {
		// Stopped while the call was in flight: the output is dropped.
		return
	}

	switch {
	case callErr != nil && ctx.Err() != nil:
		s.stopForShutdownLocked(job)
		return
	case callErr != nil:
		if err := job.ReportFailure(sanitizeError(callErr)); err != nil {
			telemetry.Error("analysis.report_failed", map[string]any{"session_id": s.id, "error": err.Error()})
		}
	default:
		if err := job.ReportUnitComplete(output); err != nil {
			_ = job.ReportFailure(err.Error())
		} else {
			metrics.IncUnitsCompleted()
		}
	}
	s.logTransitionLocked(ctx, job, prev)
	s.publishLocked()
}

func (s *Session) stopForShutdownLocked(job *analyses.Job) {
	prev := job.Status()
	if prev != analyses.StatusRunning && prev != analyses.StatusPaused {
		return
	}
	if err := job.Stop(); err == nil {
		s.logTransitionLocked(context.Background(), job, prev)
		s.publishLocked()
	}
}

// finish records metrics for the terminal job and saves its export.
func (s *Session) finish(ctx context.Context, job *analyses.Job) {
	s.mu.Lock()
	if !job.Status().Terminal() {
		s.stopForShutdownLocked(job)
	}
	snap := job.Snapshot()
	document := analyses.Assemble(job.Result(), job.Phases())
	elapsed := job.Elapsed()
	s.mu.Unlock()

	switch snap.Status {
	case analyses.StatusCompleted:
		metrics.IncAnalysisCompleted()
		metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	case analyses.StatusFailed:
		metrics.IncAnalysisFailed()
	case analyses.StatusStopped:
		metrics.IncAnalysisStopped()
	}

	if s.opts.Exports == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportSaveTimeout)
	defer cancel()
	exp, err := s.opts.Exports.Save(saveCtx, exports.Export{
		SessionID:      s.id,
		AnalysisType:   string(snap.AnalysisType),
		Provider:       snap.Provider,
		Status:         string(snap.Status),
		UnitsProcessed: snap.UnitsProcessed,
		UnitsTotal:     snap.UnitsTotal,
	}, document)
	if err != nil {
		telemetry.Error("analysis.export_failed", map[string]any{
			"session_id": s.id,
			"request_id": requestIDFromContext(ctx),
			"error":      err.Error(),
		})
		return
	}

	s.mu.Lock()
	if s.job == job {
		s.lastExport = &exp
	}
	s.mu.Unlock()
	telemetry.Info("analysis.exported", map[string]any{
		"session_id": s.id,
		"export_id":  exp.ID,
		"complete":   exp.Complete(),
	})
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow readers only see the newest snapshot.
func (s *Session) Subscribe() (int, <-chan analyses.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan analyses.Snapshot, 1)
	if s.closed {
		close(ch)
		return -1, ch
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	return id, ch
}

func (s *Session) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
