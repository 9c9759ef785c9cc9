package domain

// RoutingPolicy drives language-based partition routing. It is loaded once at
// startup and never mutated.
type RoutingPolicy struct {
	DefaultLanguage Language
	SupportSignals  []string
}

// DefaultSupportSignals is the built-in support-intent keyword set. Matching
// is by substring on the lower-cased query text, not by whole word.
func DefaultSupportSignals() []string {
	return []string{
		"issue", "error", "didn't", "doesn't", "failed", "cannot", "can't",
		"how do i fix", "troubleshoot", "support", "screen", "label", "rma",
		"ticket", "won't", "not working", "handle that", "broken",
	}
}

func DefaultRoutingPolicy() RoutingPolicy {
	return RoutingPolicy{
		DefaultLanguage: DefaultLanguage,
		SupportSignals:  DefaultSupportSignals(),
	}
}
