package analyses

import (
	"fmt"
	"strings"
)

// AnalysisType selects which analysis runs and how many phases it has.
type AnalysisType string

const (
	TypeCognitive                       AnalysisType = "cognitive"
	TypePsychological                   AnalysisType = "psychological"
	TypePsychopathological              AnalysisType = "psychopathological"
	TypeComprehensiveCognitive          AnalysisType = "comprehensive-cognitive"
	TypeComprehensivePsychological      AnalysisType = "comprehensive-psychological"
	TypeComprehensivePsychopathological AnalysisType = "comprehensive-psychopathological"
)

// Phase identifies one stage of an analysis.
type Phase string

const (
	PhaseAnalysis    Phase = "analysis"
	PhaseInitial     Phase = "initial"
	PhasePushback    Phase = "pushback"
	PhaseCalibration Phase = "calibration"
	PhaseSynthesis   Phase = "synthesis"
)

var allTypes = []AnalysisType{
	TypeCognitive,
	TypePsychological,
	TypePsychopathological,
	TypeComprehensiveCognitive,
	TypeComprehensivePsychological,
	TypeComprehensivePsychopathological,
}

var phaseTitles = map[Phase]string{
	PhaseAnalysis:    "Analysis",
	PhaseInitial:     "Initial assessment",
	PhasePushback:    "Pushback review",
	PhaseCalibration: "Calibration",
	PhaseSynthesis:   "Final synthesis",
}

// Types lists the supported analysis types.
func Types() []AnalysisType {
	out := make([]AnalysisType, len(allTypes))
	copy(out, allTypes)
	return out
}

// ParseType normalizes and validates an analysis type string.
func ParseType(raw string) (AnalysisType, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	if normalized == "" {
		return "", fmt.Errorf("%w: analysis type is required", ErrInvalidArgument)
	}
	for _, t := range allTypes {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown analysis type %q", ErrInvalidArgument, raw)
}

// Comprehensive reports whether t runs the multi-phase sequence.
func (t AnalysisType) Comprehensive() bool {
	return strings.HasPrefix(string(t), "comprehensive-")
}

// Base returns the single-phase type a comprehensive type builds on.
func (t AnalysisType) Base() AnalysisType {
	return AnalysisType(strings.TrimPrefix(string(t), "comprehensive-"))
}

// PhaseSequence returns the ordered phases for t.
func PhaseSequence(t AnalysisType) []Phase {
	if t.Comprehensive() {
		return []Phase{PhaseInitial, PhasePushback, PhaseCalibration, PhaseSynthesis}
	}
	return []Phase{PhaseAnalysis}
}

// Title is the human readable phase name used in exports.
func (p Phase) Title() string {
	if title, ok := phaseTitles[p]; ok {
		return title
	}
	return string(p)
}
