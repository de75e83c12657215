package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/internal/domain/document"
)

func TestParseClassifications(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		out, err := ParseClassifications(`[{"id":"a","Classification":"Positive Review","Sentiment_score":0.8}]`)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "a", out[0].ID)
		assert.Equal(t, "Positive", out[0].Sentiment())
	})

	t.Run("single object in a fence", func(t *testing.T) {
		out, err := ParseClassifications("```json\n{\"Classification\":\"Negative Review\",\"Sentiment_score\":-0.4}\n```")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, LabelNegative, out[0].Label)
		assert.Equal(t, -0.4, *out[0].Score)
	})

	t.Run("prose", func(t *testing.T) {
		_, err := ParseClassifications("I think it is positive")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseClassifications("  ")
		assert.ErrorIs(t, err, ErrNoClassification)
	})

	t.Run("objects without a label are dropped", func(t *testing.T) {
		_, err := ParseClassifications(`[{"id":"a"}]`)
		assert.ErrorIs(t, err, ErrNoClassification)
	})
}

func TestClassificationOf(t *testing.T) {
	_, ok := ClassificationOf(document.Document{Fields: document.Fields{}})
	assert.False(t, ok)

	c, ok := ClassificationOf(document.Document{Fields: document.Fields{
		"classification": map[string]any{"Classification": LabelNeutral},
	}})
	assert.True(t, ok)
	assert.Equal(t, "Neutral", c.Sentiment())
	assert.Nil(t, c.Score)
}

func TestClassification_ToFields(t *testing.T) {
	score := 0.5
	fields := Classification{Label: LabelPositive, Score: &score}.ToFields()

	assert.Equal(t, LabelPositive, fields["Classification"])
	assert.Equal(t, 0.5, fields["Sentiment_score"])
}
