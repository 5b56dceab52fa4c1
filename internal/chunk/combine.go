package chunk

import (
	"strings"
)

// safetyFactor and defaultExpansionFactor implement 4.D's translation
// budget derivation: "budget is derived from the target model's output
// token limit multiplied by a safety factor (0.8) and divided by a
// per-model expansion factor (default 1.2)".
const (
	safetyFactor           = 0.8
	defaultExpansionFactor = 1.2
)

// modelExpansionFactors holds per-model output expansion ratios (e.g. a
// model whose translations run longer than the source needs a smaller
// effective budget). Unlisted models use defaultExpansionFactor.
var modelExpansionFactors = map[string]float64{}

// TranslationBudget returns the token budget to target when chunking
// text for translation by model, derived from its output token limit.
func TranslationBudget(model string, outputTokenLimit int) int {
	factor := defaultExpansionFactor
	if f, ok := modelExpansionFactors[model]; ok {
		factor = f
	}
	return int(float64(outputTokenLimit) * safetyFactor / factor)
}

// Combine reassembles translated chunks into a single document: the
// first chunk is kept verbatim (it carries the document's leading
// header), and each subsequent chunk drops its leading document header
// and is appended starting at its first "##" section, per 4.D's combine
// step.
func Combine(translatedChunks []string) string {
	if len(translatedChunks) == 0 {
		return ""
	}
	if len(translatedChunks) == 1 {
		return translatedChunks[0]
	}

	var sb strings.Builder
	sb.WriteString(translatedChunks[0])

	for _, chunkText := range translatedChunks[1:] {
		trimmed := fromFirstSection(chunkText)
		if trimmed == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(trimmed)
	}
	return sb.String()
}

// fromFirstSection returns chunkText starting at its first "##"
// section boundary, dropping any leading document-level header (a
// single "#" line) that a per-chunk translation may have re-emitted.
func fromFirstSection(chunkText string) string {
	loc := headerRe.FindStringIndex(chunkText)
	if loc == nil {
		return strings.TrimSpace(chunkText)
	}
	return chunkText[loc[0]:]
}
