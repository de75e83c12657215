package crm

import (
	"encoding/json"
	"strings"
)

// ClassificationInstructions asks the model for one result per review, keyed by id
const ClassificationInstructions = `Classify each customer review below as exactly one of "Positive Review", "Neutral Review" or "Negative Review" and give a sentiment score between -1 (very negative) and 1 (very positive).
Reply with a JSON array only, one object per review, in the form:
[{"id": "<review id>", "Classification": "<label>", "Sentiment_score": <number>}]
Do not add any other text.`

// ReviewItem is one review submitted for classification
type ReviewItem struct {
	ID    string `json:"id"`
	Notes string `json:"notes"`
}

// BuildClassificationPrompt appends the reviews as a JSON array to the instructions
func BuildClassificationPrompt(items []ReviewItem) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(ClassificationInstructions)
	b.WriteString("\n\n### REVIEWS\n")
	b.Write(data)
	return b.String(), nil
}
