// Package langdetect classifies query text into the small set of languages
// the knowledge base is partitioned by.
package langdetect

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Detector wraps a statistical language detector restricted to the
// languages the routing layer understands. Restricting the candidate set
// keeps short queries from being misread as exotic languages.
type Detector struct {
	inner lingua.LanguageDetector
}

func New() *Detector {
	inner := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.French,
			lingua.German,
			lingua.Chinese,
		).
		Build()
	return &Detector{inner: inner}
}

// DetectCode returns the lowercased ISO 639-1 code of the detected
// language. ok is false when the detector cannot commit to a language, in
// which case the caller falls back to its default.
func (d *Detector) DetectCode(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	language, ok := d.inner.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}
