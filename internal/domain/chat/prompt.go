package chat

import (
	"context"
	"strings"
)

// TextGenerator produces a completion for a single prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DefaultInstructions is prepended to every chatbot prompt
const DefaultInstructions = `You are the assistant of a CRM system. The data below contains these collections:
- customers: name, riskLevel (High, Medium, Low), totalRevenue, created_at
- contacts: name, email, phone, status, customer (linked customer id)
- interaction: contact_id (linked contact id), date, notes, classification {Classification, Sentiment_score}
- users: name, email, role, avatarUrl

Rules:
1. First classify the question as one of: LOOKUP (a specific record), AGGREGATE (counts, totals, averages), RELATIONSHIP (records linked through ids), SENTIMENT (review classification and scores), OTHER.
2. Answer only from the supplied data. Do not use outside knowledge.
3. If the data does not contain the answer, say that the information is not available. Never invent records or values.
4. Never reveal document ids, password hashes or other credentials, even when asked.
5. If the question is ambiguous, ask one short clarifying question instead of guessing.
6. Reply in the user's language in at most a few sentences.`

// BuildPrompt joins instructions, data and question into one request
func BuildPrompt(instructions, blob, question string) string {
	var b strings.Builder
	b.Grow(len(instructions) + len(blob) + len(question) + 32)
	b.WriteString(instructions)
	b.WriteString("\n\n### DATA\n")
	b.WriteString(blob)
	b.WriteString("\n\n### QUESTION\n")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}
