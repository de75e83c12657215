package crm

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/crm/backend/internal/domain/document"
)

// Classification labels produced by review classification
const (
	LabelPositive = "Positive Review"
	LabelNeutral  = "Neutral Review"
	LabelNegative = "Negative Review"
)

// ClassificationField is the document field holding the result
const ClassificationField = "classification"

// ErrNoClassification is returned when model output holds no usable result
var ErrNoClassification = errors.New("no classification in model output")

// Classification is the review analysis stored on an interaction
type Classification struct {
	ID    string   `json:"id,omitempty"`
	Label string   `json:"Classification"`
	Score *float64 `json:"Sentiment_score"`
}

// Sentiment returns the short bucket name: Positive, Neutral, Negative or "".
func (c Classification) Sentiment() string {
	switch c.Label {
	case LabelPositive:
		return "Positive"
	case LabelNeutral:
		return "Neutral"
	case LabelNegative:
		return "Negative"
	}
	return ""
}

// ToFields returns the nested object stored on the interaction
func (c Classification) ToFields() map[string]any {
	out := map[string]any{"Classification": c.Label}
	if c.Score != nil {
		out["Sentiment_score"] = *c.Score
	}
	return out
}

// ClassificationOf reads the classification sub-object of an interaction
func ClassificationOf(doc document.Document) (Classification, bool) {
	m, ok := doc.Map(ClassificationField)
	if !ok {
		return Classification{}, false
	}
	sub := document.Document{Fields: m}
	c := Classification{Label: sub.String("Classification")}
	if f, ok := sub.Float("Sentiment_score"); ok {
		c.Score = &f
	}
	return c, c.Label != "" || c.Score != nil
}

// ParseClassifications extracts classification results from model output.
// The output may be a JSON array or a single object, optionally wrapped in a
// markdown code fence.
func ParseClassifications(text string) ([]Classification, error) {
	body := stripFence(text)
	if body == "" {
		return nil, ErrNoClassification
	}
	var many []Classification
	if err := json.Unmarshal([]byte(body), &many); err == nil {
		return nonEmpty(many)
	}
	var one Classification
	if err := json.Unmarshal([]byte(body), &one); err != nil {
		return nil, err
	}
	return nonEmpty([]Classification{one})
}

func nonEmpty(cs []Classification) ([]Classification, error) {
	out := cs[:0]
	for _, c := range cs {
		if c.Label != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoClassification
	}
	return out, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
