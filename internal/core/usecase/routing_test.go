package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]domain.Language{
		"en":      domain.LangEnglish,
		"fr":      domain.LangFrench,
		"de":      domain.LangGerman,
		"DE":      domain.LangGerman,
		"zh":      domain.LangChinese,
		"zh-Hant": domain.LangChinese,
		"zh-TW":   domain.LangChinese,
		"zh-cn":   domain.LangChinese,
		"es":      domain.LangEnglish,
		"ru":      domain.LangEnglish,
		"":        domain.LangEnglish,
		"  ":      domain.LangEnglish,
	}
	for raw, want := range cases {
		if got := normalizeLanguage(raw); got != want {
			t.Fatalf("normalizeLanguage(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestRoutePartitionNonDefaultLanguageAlwaysGeneral(t *testing.T) {
	policy := domain.DefaultRoutingPolicy()
	for _, lang := range []domain.Language{domain.LangFrench, domain.LangGerman, domain.LangChinese} {
		// A support signal in non-default-language text must not split it off.
		got := routePartition(policy, lang, "error: broken ticket cannot")
		if got != domain.PartitionGeneral {
			t.Fatalf("routePartition(%s) = %s, want general", lang, got)
		}
	}
}

func TestRoutePartitionSupportSignals(t *testing.T) {
	policy := domain.DefaultRoutingPolicy()
	cases := []struct {
		text string
		want domain.PartitionID
	}{
		{"How do I fix a broken screen?", domain.PartitionSupport},
		{"my label printer is NOT WORKING", domain.PartitionSupport},
		{"I need an RMA for this parcel", domain.PartitionSupport},
		{"What is the company mission?", domain.PartitionGeneral},
		{"Tell me about pricing plans", domain.PartitionGeneral},
	}
	for _, tc := range cases {
		if got := routePartition(policy, domain.LangEnglish, tc.text); got != tc.want {
			t.Fatalf("routePartition(en, %q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestRoutePartitionMatchesSubstringsNotWords(t *testing.T) {
	policy := domain.DefaultRoutingPolicy()
	// "screening" contains the signal "screen"; substring matching is the
	// documented behavior, not an accident.
	if got := routePartition(policy, domain.LangEnglish, "what is the screening process"); got != domain.PartitionSupport {
		t.Fatalf("expected substring match to route to support, got %s", got)
	}
}

type fixedDetector struct {
	code string
	ok   bool
}

func (d fixedDetector) DetectCode(string) (string, bool) { return d.code, d.ok }

func testRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Policy: domain.DefaultRoutingPolicy(),
		Partitions: map[domain.PartitionID]string{
			domain.PartitionGeneral: "kb-general",
			domain.PartitionSupport: "kb-support",
		},
		DefaultTopK:       8,
		DefaultScoreFloor: 0,
	}
}

func TestResolveUnknownPartitionNamesTheID(t *testing.T) {
	rc := testRoutingConfig()
	_, _, err := rc.resolve(fixedDetector{code: "en", ok: true}, domain.Query{
		Text:        "hello",
		PartitionID: "archive",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), `"archive"`) {
		t.Fatalf("expected error to name the partition id, got %v", err)
	}
}

func TestResolveDefaultsAndClamps(t *testing.T) {
	rc := testRoutingConfig()

	routing, kbID, err := rc.resolve(fixedDetector{code: "en", ok: true}, domain.Query{Text: "hello"})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if routing.TopK != 8 || routing.ScoreFloor != 0 {
		t.Fatalf("expected defaults topK=8 floor=0, got %d/%v", routing.TopK, routing.ScoreFloor)
	}
	if kbID != "kb-general" {
		t.Fatalf("expected kb-general, got %s", kbID)
	}

	floor := 7.5
	routing, _, err = rc.resolve(fixedDetector{code: "en", ok: true}, domain.Query{
		Text:       "hello",
		TopK:       999,
		ScoreFloor: &floor,
	})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if routing.TopK != maxTopK {
		t.Fatalf("expected topK clamped to %d, got %d", maxTopK, routing.TopK)
	}
	if routing.ScoreFloor != maxScoreFloor {
		t.Fatalf("expected floor clamped to %v, got %v", maxScoreFloor, routing.ScoreFloor)
	}
}

func TestResolveForcedLanguageSkipsDetection(t *testing.T) {
	rc := testRoutingConfig()
	// The detector would say French; the forced value wins and unsupported
	// values silently collapse to the default.
	routing, _, err := rc.resolve(fixedDetector{code: "fr", ok: true}, domain.Query{
		Text:     "bonjour",
		Language: "ja",
	})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if routing.Language != domain.LangEnglish {
		t.Fatalf("expected forced unsupported language to normalize to en, got %s", routing.Language)
	}
}

func TestResolveDetectionFailureFallsBackToDefault(t *testing.T) {
	rc := testRoutingConfig()
	routing, _, err := rc.resolve(fixedDetector{ok: false}, domain.Query{Text: "12345 !!!"})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if routing.Language != domain.DefaultLanguage {
		t.Fatalf("expected default language, got %s", routing.Language)
	}
}
