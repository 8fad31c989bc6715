// Package prompt renders the instructions sent to the chat model for one question.
package prompt

import (
	"fmt"
	"strings"

	"github.com/bull/portfolio-buddy/internal/document"
)

// DefaultMaxContextChars keeps the context block near 3000 tokens (4 chars ≈ 1 token).
const DefaultMaxContextChars = 12000

const separator = "---------------------"

// Persona describes who the assistant is and on whose behalf it speaks.
type Persona struct {
	AssistantName string // "Buddy"
	OwnerName     string // First name used in answers: "Jane"
	Pronoun       string // Possessive pronoun for the owner: "her", "his", "their"
	ContactEmail  string // Optional; offered when the answer is unknown
}

// Prompt is a rendered system instruction plus user message.
type Prompt struct {
	System string
	User   string

	// ContextChunks is how many of the given chunks fit in the context budget.
	ContextChunks int
}

// Build renders the prompt for question using chunks as context, most relevant first.
// The question is inserted verbatim. Whole chunks are dropped from the end once
// maxContextChars is exceeded; the first chunk is cut rather than dropped.
// A maxContextChars of zero or less disables the limit.
func Build(persona Persona, question string, chunks []document.Chunk, maxContextChars int) Prompt {
	persona = withDefaults(persona)

	contextBlock, used := renderContext(chunks, maxContextChars)

	var user strings.Builder
	user.WriteString("Context information is below.\n")
	user.WriteString(separator + "\n")
	user.WriteString(contextBlock)
	user.WriteString("\n" + separator + "\n")
	user.WriteString("Given the context information and not prior knowledge, answer the question: ")
	user.WriteString(question)

	return Prompt{
		System:        renderSystem(persona),
		User:          user.String(),
		ContextChunks: used,
	}
}

func withDefaults(p Persona) Persona {
	if p.AssistantName == "" {
		p.AssistantName = "Buddy"
	}
	if p.OwnerName == "" {
		p.OwnerName = "the candidate"
	}
	if p.Pronoun == "" {
		p.Pronoun = "their"
	}
	return p
}

func renderSystem(p Persona) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an AI assistant dedicated to assisting %s in %s job search "+
		"by providing recruiters with relevant and concise information.\n",
		p.AssistantName, p.OwnerName, p.Pronoun)

	sb.WriteString("If you do not know the answer, politely admit it and let recruiters know how to contact ")
	sb.WriteString(p.OwnerName)
	sb.WriteString(" to get more information directly")
	if p.ContactEmail != "" {
		fmt.Fprintf(&sb, " (email: %s)", p.ContactEmail)
	}
	sb.WriteString(".\n")

	fmt.Fprintf(&sb, "Don't put %q or a line break in front of your answer.", p.AssistantName)
	return sb.String()
}

// renderContext joins chunk contents until the budget is spent.
func renderContext(chunks []document.Chunk, maxChars int) (string, int) {
	if len(chunks) == 0 {
		return "(no relevant sections found)", 0
	}

	var sb strings.Builder
	used := 0
	for i, c := range chunks {
		text := c.Content
		sep := ""
		if i > 0 {
			sep = "\n\n"
		}

		if maxChars > 0 && sb.Len()+len(sep)+len(text) > maxChars {
			if i == 0 {
				sb.WriteString(truncate(text, maxChars))
				used = 1
			}
			break
		}

		sb.WriteString(sep)
		sb.WriteString(text)
		used++
	}
	return sb.String(), used
}

// truncate cuts s to at most maxBytes bytes without splitting a UTF-8 sequence.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return s[:cut]
}
