package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

// passageSnippetBudget bounds the characters of passage text placed into the
// synthesis prompt.
const passageSnippetBudget = 400

const noRelevantAnswer = "I couldn't find anything relevant in the knowledge base for that."

const fallbackCitationTitle = "Source"

const synthesisFraming = "You are a precise enterprise assistant. You receive the user's question, " +
	"knowledge base excerpts, and an optional pre-baked answer. Answer ONLY using " +
	"the knowledge base information. Add short inline citations like [1], [2] in " +
	"the order of the excerpts below. If nothing relevant is found, say so clearly " +
	"and suggest a follow-up. Keep answers concise."

// buildSynthesisPrompt assembles the single grounded generation prompt. The
// reference order is the citation contract: entry [i] here is citation ref i
// in the final result.
func buildSynthesisPrompt(question string, passages []domain.Passage, prebaked string) string {
	refs := make([]string, 0, len(passages))
	for i, p := range passages {
		title := p.Title
		if title == "" {
			title = fallbackCitationTitle
		}
		snippet := strings.ReplaceAll(p.Text, "\n", " ")
		if runes := []rune(snippet); len(runes) > passageSnippetBudget {
			snippet = string(runes[:passageSnippetBudget])
		}
		head := fmt.Sprintf("[%d] %s", i+1, title)
		if p.URL != "" {
			head += " - " + p.URL
		}
		refs = append(refs, head+"\n"+snippet)
	}
	refBlock := "(no citations)"
	if len(refs) > 0 {
		refBlock = strings.Join(refs, "\n\n")
	}

	var b strings.Builder
	b.WriteString(synthesisFraming)
	b.WriteString("\n\nUser question:\n")
	b.WriteString(question)
	b.WriteString("\n\nKnowledge base excerpts:\n")
	b.WriteString(refBlock)
	b.WriteString("\n\nIf there is a pre-baked KB answer, it follows between <kb_answer> tags.\n<kb_answer>\n")
	b.WriteString(prebaked)
	b.WriteString("\n</kb_answer>\n\n")
	b.WriteString("Write the best possible answer using ONLY the KB information. Keep it concise, and add inline [n] citations.\n")
	return b.String()
}

// buildCitations derives the 1-based citation list from the passages used in
// synthesis, in the same order.
func buildCitations(passages []domain.Passage) []domain.Citation {
	citations := make([]domain.Citation, 0, len(passages))
	for i, p := range passages {
		title := p.Title
		if title == "" {
			title = fallbackCitationTitle
		}
		citations = append(citations, domain.Citation{
			Ref:   i + 1,
			Title: title,
			URL:   p.URL,
			Score: p.Score,
		})
	}
	return citations
}

// truncateNote caps delivery-error annotations at 200 characters.
func truncateNote(note string) string {
	const maxNote = 200
	runes := []rune(note)
	if len(runes) <= maxNote {
		return note
	}
	return string(runes[:maxNote])
}
