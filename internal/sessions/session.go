package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/chunking"
	"analysis-backend/internal/exports"
	"analysis-backend/internal/llm"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/telemetry"
)

// ExportSaver persists the assembled document of a finished job.
type ExportSaver interface {
	Save(ctx context.Context, exp exports.Export, content string) (exports.Export, error)
}

// Options configures new sessions.
type Options struct {
	MaxWordsPerChunk int
	AnalysisType     analyses.AnalysisType
	Provider         string
	Providers        *llm.Registry
	MaxAttempts      uint
	RetryBaseDelay   time.Duration
	Exports          ExportSaver
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxWordsPerChunk <= 0 {
		o.MaxWordsPerChunk = chunking.DefaultMaxWords
	}
	if o.AnalysisType == "" {
		o.AnalysisType = analyses.TypeCognitive
	}
	if typ, err := analyses.ParseType(string(o.AnalysisType)); err == nil {
		o.AnalysisType = typ
	}
	if o.Providers == nil {
		o.Providers = llm.NewRegistry()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session owns one text, its chunk selection and at most one analysis job.
// It is the only caller of the job's unit reporting operations; readers get
// snapshots.
type Session struct {
	id   string
	opts Options

	mu   sync.Mutex
	cond *sync.Cond

	loaded           bool
	text             string
	totalWords       int
	chunkingRequired bool
	store            *chunking.Store
	documentID       string

	analysisType analyses.AnalysisType
	provider     string

	job    *analyses.Job
	cancel context.CancelFunc
	done   chan struct{}
	closed bool

	subs    map[int]chan analyses.Snapshot
	nextSub int

	lastExport *exports.Export
	createdAt  time.Time
	touchedAt  time.Time
}

// New creates an empty session.
func New(id string, opts Options) *Session {
	opts = opts.withDefaults()
	now := opts.Now()
	s := &Session{
		id:           id,
		opts:         opts,
		analysisType: opts.AnalysisType,
		provider:     opts.Provider,
		subs:         make(map[int]chan analyses.Snapshot),
		createdAt:    now,
		touchedAt:    now,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Session) ID() string { return s.id }

// LoadText replaces the session text. Text above the word threshold is split
// into chunks that all start selected.
func (s *Session) LoadText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotFound
	}
	if s.activeLocked() {
		return ErrJobActive
	}

	words := chunking.WordCount(text)
	var store *chunking.Store
	required := words > s.opts.MaxWordsPerChunk
	if required {
		chunks, err := chunking.Split(text, s.opts.MaxWordsPerChunk)
		if err != nil {
			return err
		}
		store = chunking.NewStore(chunks)
	}

	s.loaded = true
	s.text = text
	s.totalWords = words
	s.chunkingRequired = required
	s.store = store
	s.job = nil
	s.lastExport = nil
	s.touchLocked()
	return nil
}

// AttachDocument records the uploaded document the text came from.
func (s *Session) AttachDocument(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentID = documentID
}

func (s *Session) ChunkingRequired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkingRequired
}

// Chunks returns the chunks with their selection flags, or nil when the text
// is analyzed whole.
func (s *Session) Chunks() []chunking.TextChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Chunks()
}

// Toggle flips the selection of one chunk. Selection changes never affect a
// job that already started.
func (s *Session) Toggle(chunkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return false, fmt.Errorf("%w: %s", chunking.ErrChunkNotFound, chunkID)
	}
	s.touchLocked()
	return s.store.Toggle(chunkID)
}

func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		s.store.SelectAll()
		s.touchLocked()
	}
}

func (s *Session) SelectNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		s.store.SelectNone()
		s.touchLocked()
	}
}

// Configure sets the analysis type and provider for the next job. Empty
// values keep the current setting.
func (s *Session) Configure(analysisType, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotFound
	}
	if s.activeLocked() {
		return ErrJobActive
	}
	typ := s.analysisType
	if analysisType != "" {
		parsed, err := analyses.ParseType(analysisType)
		if err != nil {
			return err
		}
		typ = parsed
	}
	name := s.provider
	if provider != "" {
		if !s.opts.Providers.Has(provider) {
			return fmt.Errorf("%w: %s", llm.ErrUnknownProvider, provider)
		}
		name = provider
	}
	s.analysisType = typ
	s.provider = name
	s.touchLocked()
	return nil
}

// StartAnalysis creates a job over the effective input and runs it in the
// background, one provider call at a time.
func (s *Session) StartAnalysis(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotFound
	}
	if !s.loaded {
		return ErrNoInput
	}
	if s.activeLocked() {
		return ErrJobActive
	}
	client, err := s.opts.Providers.Get(s.provider)
	if err != nil {
		return err
	}
	inputs, err := s.effectiveInputLocked()
	if err != nil {
		return err
	}

	job := analyses.NewJob(analyses.JobConfig{
		Type:     s.analysisType,
		Provider: s.provider,
		Inputs:   inputs,
		Now:      s.opts.Now,
	})
	if err := job.Start(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(backgroundWithRequestID(ctx))
	s.job = job
	s.cancel = cancel
	s.done = make(chan struct{})
	s.lastExport = nil
	s.touchLocked()

	metrics.IncAnalysisStarted()
	s.logTransitionLocked(runCtx, job, analyses.StatusIdle)
	s.publishLocked()

	retrying := newRetryingClient(client, s.provider, s.id, s.opts.MaxAttempts, s.opts.RetryBaseDelay)
	go s.run(runCtx, job, retrying, s.done)
	return nil
}

func (s *Session) PauseAnalysis() error {
	return s.control("pause", (*analyses.Job).Pause)
}

func (s *Session) ResumeAnalysis() error {
	return s.control("resume", (*analyses.Job).Resume)
}

// StopAnalysis ends the job. A provider call already in flight finishes but
// its output is discarded.
func (s *Session) StopAnalysis() error {
	return s.control("stop", (*analyses.Job).Stop)
}

func (s *Session) control(op string, transition func(*analyses.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return fmt.Errorf("%w: no analysis to %s", analyses.ErrInvalidTransition, op)
	}
	prev := s.job.Status()
	if err := transition(s.job); err != nil {
		return err
	}
	s.logTransitionLocked(context.Background(), s.job, prev)
	s.touchLocked()
	s.cond.Broadcast()
	s.publishLocked()
	return nil
}

// Snapshot returns the current job view. Without a job it reports idle with
// the configured type and provider.
func (s *Session) Snapshot() analyses.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// DownloadResult assembles whatever the job produced so far. Partial jobs
// carry missing markers.
func (s *Session) DownloadResult() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil || s.job.Status() == analyses.StatusIdle {
		return "", ErrNoResult
	}
	return analyses.Assemble(s.job.Result(), s.job.Phases()), nil
}

// LastExport returns the export saved for the latest finished job.
func (s *Session) LastExport() (exports.Export, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastExport == nil {
		return exports.Export{}, false
	}
	return *s.lastExport, true
}

// Wait blocks until the background run of the current job has finished,
// including its export.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports whether a job is running, paused, or still finishing its
// last provider call.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// Close stops any active job and releases subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.job != nil {
		prev := s.job.Status()
		if prev == analyses.StatusRunning || prev == analyses.StatusPaused {
			if err := s.job.Stop(); err == nil {
				s.logTransitionLocked(context.Background(), s.job, prev)
				s.publishLocked()
			}
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.cond.Broadcast()
}

func (s *Session) activeLocked() bool {
	if s.job != nil {
		if st := s.job.Status(); st == analyses.StatusRunning || st == analyses.StatusPaused {
			return true
		}
	}
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Session) effectiveInputLocked() ([]analyses.Input, error) {
	if s.store == nil {
		return []analyses.Input{{
			Text:      s.text,
			WordCount: s.totalWords,
		}}, nil
	}
	selected := s.store.SelectedChunks()
	if len(selected) == 0 {
		return nil, analyses.ErrNoSelection
	}
	inputs := make([]analyses.Input, 0, len(selected))
	for _, chunk := range selected {
		inputs = append(inputs, analyses.Input{
			ChunkID:   chunk.ID,
			Order:     chunk.Order,
			Text:      chunk.Content,
			WordCount: chunk.WordCount,
		})
	}
	return inputs, nil
}

func (s *Session) snapshotLocked() analyses.Snapshot {
	if s.job != nil {
		return s.job.Snapshot()
	}
	return analyses.Snapshot{
		Status:             analyses.StatusIdle,
		AnalysisType:       s.analysisType,
		Provider:           s.provider,
		EstimatedRemaining: "calculating…",
	}
}

func (s *Session) touchLocked() {
	s.touchedAt = s.opts.Now()
}

func (s *Session) logTransitionLocked(ctx context.Context, job *analyses.Job, prev analyses.Status) {
	next := job.Status()
	if next == prev {
		return
	}
	snap := job.Snapshot()
	fields := map[string]any{
		"session_id":        s.id,
		"request_id":        requestIDFromContext(ctx),
		"status_transition": string(prev) + "->" + string(next),
		"analysis_type":     snap.AnalysisType,
		"provider":          snap.Provider,
		"units_processed":   snap.UnitsProcessed,
		"units_total":       snap.UnitsTotal,
	}
	if next == analyses.StatusFailed {
		fields["failure_reason"] = snap.FailureReason
		telemetry.Error("analysis.status", fields)
		return
	}
	telemetry.Info("analysis.status", fields)
}
