package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/core/ports"
)

const (
	maxTopK       = 50
	maxScoreFloor = 1.0
)

// RoutingConfig is the immutable routing state shared by the ask and search
// usecases: the routing policy, the partition-to-knowledge-base mapping and
// the retrieval defaults.
type RoutingConfig struct {
	Policy            domain.RoutingPolicy
	Partitions        map[domain.PartitionID]string
	DefaultTopK       int
	DefaultScoreFloor float64
}

// normalizeLanguage maps a raw detector or caller code onto the closed
// supported set. Any zh-prefixed code collapses to the single supported
// Chinese variant; en/fr/de pass through; everything else is the default.
func normalizeLanguage(code string) domain.Language {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return domain.DefaultLanguage
	}
	if strings.HasPrefix(code, "zh") {
		return domain.LangChinese
	}
	switch domain.Language(code) {
	case domain.LangEnglish, domain.LangFrench, domain.LangGerman:
		return domain.Language(code)
	}
	return domain.DefaultLanguage
}

func classifyLanguage(detector ports.LanguageDetector, policy domain.RoutingPolicy, text string) domain.Language {
	if detector == nil {
		return policy.DefaultLanguage
	}
	raw, ok := detector.DetectCode(text)
	if !ok {
		return policy.DefaultLanguage
	}
	return normalizeLanguage(raw)
}

// routePartition applies the routing rules in order. Rule order is
// significant: non-default-language content is never split off to the
// support partition, even when it contains a support signal.
func routePartition(policy domain.RoutingPolicy, language domain.Language, text string) domain.PartitionID {
	if language != policy.DefaultLanguage {
		return domain.PartitionGeneral
	}
	lowered := strings.ToLower(text)
	for _, signal := range policy.SupportSignals {
		if signal != "" && strings.Contains(lowered, signal) {
			return domain.PartitionSupport
		}
	}
	return domain.PartitionGeneral
}

// resolve turns a raw query into an effective routing decision plus the
// backing knowledge-base id. A forced unknown partition is a validation
// error naming the id; a forced unknown language silently normalizes.
func (rc RoutingConfig) resolve(detector ports.LanguageDetector, q domain.Query) (domain.SearchRouting, string, error) {
	var language domain.Language
	if q.Language != "" {
		language = normalizeLanguage(q.Language)
	} else {
		language = classifyLanguage(detector, rc.Policy, q.Text)
	}

	partition := q.PartitionID
	if partition != "" {
		if _, ok := rc.Partitions[partition]; !ok {
			return domain.SearchRouting{}, "", domain.WrapError(
				domain.ErrInvalidInput,
				"resolve partition",
				fmt.Errorf("unknown partitionId %q", partition),
			)
		}
	} else {
		partition = routePartition(rc.Policy, language, q.Text)
	}

	topK := q.TopK
	if topK <= 0 {
		topK = rc.DefaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	floor := rc.DefaultScoreFloor
	if q.ScoreFloor != nil {
		floor = *q.ScoreFloor
	}
	if floor < 0 {
		floor = 0
	}
	if floor > maxScoreFloor {
		floor = maxScoreFloor
	}

	routing := domain.SearchRouting{
		PartitionID: partition,
		Language:    language,
		TopK:        topK,
		ScoreFloor:  floor,
	}
	return routing, rc.Partitions[partition], nil
}
