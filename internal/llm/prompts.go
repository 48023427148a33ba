package llm

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	"analysis-backend/internal/analyses"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

func promptFile(name string) string {
	data, err := promptFiles.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		panic(fmt.Sprintf("llm: missing embedded prompt %s", name))
	}
	return string(data)
}

var (
	basePrompts = map[analyses.AnalysisType]string{
		analyses.TypeCognitive:          promptFile("cognitive"),
		analyses.TypePsychological:      promptFile("psychological"),
		analyses.TypePsychopathological: promptFile("psychopathological"),
	}
	phasePrompts = map[analyses.Phase]string{
		analyses.PhaseAnalysis:    promptFile("phase_analysis"),
		analyses.PhaseInitial:     promptFile("phase_initial"),
		analyses.PhasePushback:    promptFile("phase_pushback"),
		analyses.PhaseCalibration: promptFile("phase_calibration"),
		analyses.PhaseSynthesis:   promptFile("phase_synthesis"),
	}
)

// BuildPrompt returns the system and user messages for one unit.
func BuildPrompt(input UnitInput) (system string, user string) {
	base, ok := basePrompts[input.AnalysisType.Base()]
	if !ok {
		base = basePrompts[analyses.TypeCognitive]
	}
	phase := phasePrompts[input.Phase]

	chunkCount := input.ChunkCount
	if chunkCount <= 0 {
		chunkCount = 1
	}
	replacer := strings.NewReplacer(
		"{{PHASE_TITLE}}", input.Phase.Title(),
		"{{PHASE_NUMBER}}", strconv.Itoa(input.PhaseIndex+1),
		"{{PHASE_COUNT}}", strconv.Itoa(max(input.PhaseCount, 1)),
		"{{SECTION_NUMBER}}", strconv.Itoa(input.ChunkIndex+1),
		"{{SECTION_COUNT}}", strconv.Itoa(chunkCount),
	)
	system = strings.TrimSpace(replacer.Replace(base + "\n\n" + phase))

	var b strings.Builder
	if chunkCount > 1 {
		fmt.Fprintf(&b, "The text below is section %d of %d of a longer document.\n\n", input.ChunkIndex+1, chunkCount)
	}
	b.WriteString("Text:\n")
	b.WriteString(input.Text)
	if strings.TrimSpace(input.PriorOutput) != "" {
		b.WriteString("\n\nPrevious phase output for this text:\n")
		b.WriteString(input.PriorOutput)
	}
	return system, b.String()
}
