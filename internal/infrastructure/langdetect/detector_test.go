package langdetect

import "testing"

func TestDetectCodeKnownLanguages(t *testing.T) {
	detector := New()

	cases := []struct {
		text string
		want string
	}{
		{"How do I reset my password for the admin console?", "en"},
		{"Comment puis-je réinitialiser mon mot de passe administrateur ?", "fr"},
		{"Wie kann ich mein Administratorpasswort zurücksetzen?", "de"},
		{"我要如何重設管理員密碼？", "zh"},
	}
	for _, tc := range cases {
		got, ok := detector.DetectCode(tc.text)
		if !ok {
			t.Fatalf("DetectCode(%q) not ok", tc.text)
		}
		if got != tc.want {
			t.Fatalf("DetectCode(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestDetectCodeEmptyInput(t *testing.T) {
	if _, ok := New().DetectCode("   "); ok {
		t.Fatalf("blank input must not classify")
	}
}
