package usecase

import (
	"strings"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

// filterByScore keeps passages with score >= floor. A passage without a
// score always passes: absence is not zero. Order is preserved.
func filterByScore(passages []domain.Passage, floor float64) []domain.Passage {
	out := make([]domain.Passage, 0, len(passages))
	for _, p := range passages {
		if p.Score != nil && *p.Score < floor {
			continue
		}
		out = append(out, p)
	}
	return out
}

// filterByLanguage drops passages whose declared language mismatches the
// requested one. Pass-through when no language is requested or when the
// partition is support, which is not split by language. Passages without a
// language tag are kept so the synthesizer can judge relevance itself.
func filterByLanguage(passages []domain.Passage, partition domain.PartitionID, language domain.Language) []domain.Passage {
	if language == "" || partition == domain.PartitionSupport {
		return passages
	}
	out := make([]domain.Passage, 0, len(passages))
	for _, p := range passages {
		tag := passageLanguageTag(p.Metadata)
		if tag == "" || tag == string(language) {
			out = append(out, p)
		}
	}
	return out
}

// tagPartition stamps the originating partition on every passage.
func tagPartition(passages []domain.Passage, partition domain.PartitionID) []domain.Passage {
	for i := range passages {
		passages[i].Partition = partition
	}
	return passages
}

func passageLanguageTag(metadata map[string]string) string {
	if metadata == nil {
		return ""
	}
	if tag := strings.TrimSpace(metadata["lang"]); tag != "" {
		return tag
	}
	return strings.TrimSpace(metadata["language"])
}
