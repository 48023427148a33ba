package analyses

import (
	"fmt"
	"strings"
	"time"
)

const estimateCalculating = "calculating…"

// JobConfig describes one run before it starts.
type JobConfig struct {
	Type     AnalysisType
	Provider string
	Inputs   []Input
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Job tracks one multi-phase analysis run. It is not safe for concurrent use;
// the owner serializes access.
type Job struct {
	analysisType AnalysisType
	provider     string
	inputs       []Input
	now          func() time.Time

	phases         []Phase
	status         Status
	phaseIndex     int
	unitsProcessed int
	unitsTotal     int
	failureReason  string

	startedAt     time.Time
	resumedAt     time.Time
	activeElapsed time.Duration

	result *Result
}

// NewJob returns an idle job. Validation happens in Start.
func NewJob(cfg JobConfig) *Job {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	inputs := make([]Input, len(cfg.Inputs))
	copy(inputs, cfg.Inputs)
	return &Job{
		analysisType: cfg.Type,
		provider:     strings.TrimSpace(cfg.Provider),
		inputs:       inputs,
		now:          now,
		status:       StatusIdle,
		phaseIndex:   -1,
	}
}

// Start moves an idle job to running.
func (j *Job) Start() error {
	if j.status != StatusIdle {
		return j.transitionErr("start")
	}
	typ, err := ParseType(string(j.analysisType))
	if err != nil {
		return err
	}
	if j.provider == "" {
		return fmt.Errorf("%w: provider is required", ErrInvalidArgument)
	}
	if len(j.inputs) == 0 {
		return fmt.Errorf("%w: effective input is empty", ErrInvalidArgument)
	}
	words := 0
	for _, in := range j.inputs {
		words += in.WordCount
	}
	if words == 0 {
		return fmt.Errorf("%w: effective input has no words", ErrInvalidArgument)
	}

	j.analysisType = typ
	j.phases = PhaseSequence(typ)
	j.unitsTotal = len(j.phases) * len(j.inputs)
	j.unitsProcessed = 0
	j.phaseIndex = 0

	refs := make([]ChunkRef, 0, len(j.inputs))
	for _, in := range j.inputs {
		refs = append(refs, ChunkRef{ID: in.ChunkID, Order: in.Order})
	}
	j.result = NewResult(refs)

	now := j.now()
	j.startedAt = now
	j.resumedAt = now
	j.status = StatusRunning
	return nil
}

// Pause freezes progress accounting. Output already received is kept.
func (j *Job) Pause() error {
	if j.status != StatusRunning {
		return j.transitionErr("pause")
	}
	j.activeElapsed += j.now().Sub(j.resumedAt)
	j.status = StatusPaused
	return nil
}

// Resume returns a paused job to running. A job whose last unit landed while
// paused completes immediately.
func (j *Job) Resume() error {
	if j.status != StatusPaused {
		return j.transitionErr("resume")
	}
	j.resumedAt = j.now()
	j.status = StatusRunning
	if j.unitsProcessed == j.unitsTotal {
		j.complete()
	}
	return nil
}

// Stop cancels the job. Results produced so far remain exportable.
func (j *Job) Stop() error {
	if j.status != StatusRunning && j.status != StatusPaused {
		return j.transitionErr("stop")
	}
	j.freezeClock()
	j.status = StatusStopped
	j.result.Seal()
	return nil
}

// ReportUnitComplete records the output of the current unit and advances the
// phase when its last input lands.
func (j *Job) ReportUnitComplete(output string) error {
	if j.status != StatusRunning && j.status != StatusPaused {
		return j.transitionErr("report unit")
	}
	unit, ok := j.NextUnit()
	if !ok {
		return fmt.Errorf("%w: no unit outstanding", ErrInvalidTransition)
	}
	ref := ChunkRef{ID: unit.Input.ChunkID, Order: unit.Input.Order}
	if err := j.result.Append(unit.Phase, ref, output); err != nil {
		return err
	}
	j.unitsProcessed++
	if j.unitsProcessed%len(j.inputs) == 0 {
		j.phaseIndex++
	}
	if j.unitsProcessed == j.unitsTotal && j.status == StatusRunning {
		j.complete()
	}
	return nil
}

// ReportFailure fails the job and keeps partial results for export.
func (j *Job) ReportFailure(reason string) error {
	if j.status != StatusRunning && j.status != StatusPaused {
		return j.transitionErr("fail")
	}
	j.freezeClock()
	j.failureReason = strings.TrimSpace(reason)
	j.status = StatusFailed
	j.result.Seal()
	return nil
}

// NextUnit returns the unit awaiting output, if any.
func (j *Job) NextUnit() (Unit, bool) {
	if j.status != StatusRunning && j.status != StatusPaused {
		return Unit{}, false
	}
	if j.unitsProcessed >= j.unitsTotal {
		return Unit{}, false
	}
	inputIndex := j.unitsProcessed % len(j.inputs)
	phaseIndex := j.unitsProcessed / len(j.inputs)
	return Unit{
		Index:      j.unitsProcessed,
		Phase:      j.phases[phaseIndex],
		PhaseIndex: phaseIndex,
		PhaseCount: len(j.phases),
		Input:      j.inputs[inputIndex],
		InputIndex: inputIndex,
		InputCount: len(j.inputs),
	}, true
}

// PriorOutput returns the previous phase's output for the input of u.
func (j *Job) PriorOutput(u Unit) (string, bool) {
	if u.PhaseIndex == 0 || j.result == nil {
		return "", false
	}
	return j.result.Get(j.phases[u.PhaseIndex-1], u.Input.ChunkID)
}

func (j *Job) Status() Status { return j.status }

func (j *Job) Type() AnalysisType { return j.analysisType }

func (j *Job) Provider() string { return j.provider }

// Phases returns the phase sequence; empty before Start.
func (j *Job) Phases() []Phase {
	out := make([]Phase, len(j.phases))
	copy(out, j.phases)
	return out
}

// Progress is unitsProcessed / unitsTotal, 0 before start.
func (j *Job) Progress() float64 {
	if j.unitsTotal == 0 {
		return 0
	}
	return float64(j.unitsProcessed) / float64(j.unitsTotal)
}

// Elapsed is the active (unpaused) running time.
func (j *Job) Elapsed() time.Duration {
	if j.status == StatusRunning {
		return j.activeElapsed + j.now().Sub(j.resumedAt)
	}
	return j.activeElapsed
}

// EstimatedRemaining extrapolates the per-unit rate so far. ok is false while
// no unit has completed.
func (j *Job) EstimatedRemaining() (time.Duration, bool) {
	if j.unitsProcessed == 0 || j.unitsTotal == 0 {
		return 0, false
	}
	if j.status == StatusCompleted {
		return 0, true
	}
	perUnit := j.Elapsed() / time.Duration(j.unitsProcessed)
	return perUnit * time.Duration(j.unitsTotal-j.unitsProcessed), true
}

// Result returns a copy of the accumulated output.
func (j *Job) Result() *Result {
	if j.result == nil {
		return NewResult(nil)
	}
	return j.result.Clone()
}

// Snapshot captures the current state for readers.
func (j *Job) Snapshot() Snapshot {
	snap := Snapshot{
		Status:             j.status,
		AnalysisType:       j.analysisType,
		Provider:           j.provider,
		PhaseIndex:         j.phaseIndex,
		PhaseCount:         len(j.phases),
		UnitsProcessed:     j.unitsProcessed,
		UnitsTotal:         j.unitsTotal,
		Progress:           j.Progress(),
		EstimatedRemaining: estimateCalculating,
		FailureReason:      j.failureReason,
	}
	if j.phaseIndex >= 0 && j.phaseIndex < len(j.phases) {
		snap.Phase = j.phases[j.phaseIndex]
	}
	if !j.startedAt.IsZero() {
		started := j.startedAt.UTC()
		snap.StartedAt = &started
	}
	if remaining, ok := j.EstimatedRemaining(); ok {
		ms := remaining.Milliseconds()
		snap.EstimatedRemainingMs = &ms
		snap.EstimatedRemaining = remaining.Round(time.Second).String()
	}
	return snap
}

func (j *Job) complete() {
	j.freezeClock()
	j.status = StatusCompleted
	j.result.Seal()
}

func (j *Job) freezeClock() {
	if j.status == StatusRunning {
		j.activeElapsed += j.now().Sub(j.resumedAt)
		j.resumedAt = j.now()
	}
}

func (j *Job) transitionErr(op string) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, j.status)
}
