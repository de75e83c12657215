package crm

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/internal/domain/document"
)

func review(id, date, label string, score float64, created string) document.Document {
	fields := document.Fields{"date": date, "notes": "notes " + id, "created_at": created}
	if label != "" {
		fields["classification"] = map[string]any{"Classification": label, "Sentiment_score": score}
	}
	return document.Document{ID: id, Fields: fields}
}

func reviews() []document.Document {
	return []document.Document{
		review("i1", "2024-03-01", LabelPositive, 0.9, "2024-03-01T09:00:00Z"),
		review("i2", "2024-03-01", LabelNegative, -0.6, "2024-03-01T10:00:00Z"),
		review("i3", "2024-03-02", LabelNeutral, 0.1, "2024-03-02T08:00:00Z"),
		review("i4", "2024-03-02", "", 0, "2024-03-02T11:00:00Z"),
		review("i5", "2024-02-28", LabelPositive, 0.7, "2024-02-28T12:00:00Z"),
	}
}

func TestCountSentiments(t *testing.T) {
	counts := CountSentiments(reviews())

	assert.Equal(t, SentimentCounts{Positive: 2, Neutral: 1, Negative: 1}, counts)
	assert.Equal(t, 4, counts.Total())
}

func TestSentimentTrends_GroupedNewestFirst(t *testing.T) {
	trends := SentimentTrends(reviews())

	require.Len(t, trends, 3)
	assert.Equal(t, "2024-03-02", trends[0].Date)
	assert.Equal(t, 1, trends[0].Neutral)
	assert.Equal(t, "2024-03-01", trends[1].Date)
	assert.Equal(t, 1, trends[1].Positive)
	assert.Equal(t, 1, trends[1].Negative)
	assert.Equal(t, "2024-02-28", trends[2].Date)
}

func TestRecentReviews(t *testing.T) {
	recent := RecentReviews(reviews(), 2)

	require.Len(t, recent, 2)
	assert.Equal(t, "i3", recent[0].ID)
	assert.Equal(t, "i2", recent[1].ID)
	assert.Equal(t, LabelNegative, recent[1].Sentiment)
	assert.Equal(t, -0.6, recent[1].Score)
	assert.True(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Equal(*recent[1].CreatedAt))
}

func TestSummarizeRevenue(t *testing.T) {
	summary := SummarizeRevenue([]CustomerView{
		{ID: "a", RiskLevel: "High", TotalRevenue: decimal.RequireFromString("100.10")},
		{ID: "b", RiskLevel: "High", TotalRevenue: decimal.RequireFromString("0.20")},
		{ID: "c", RiskLevel: "", TotalRevenue: decimal.NewFromInt(5)},
	})

	assert.True(t, decimal.RequireFromString("105.30").Equal(summary.Total))
	assert.True(t, decimal.RequireFromString("100.30").Equal(summary.ByRisk["High"]))
	assert.True(t, decimal.NewFromInt(5).Equal(summary.ByRisk[FallbackNA]))
	assert.Equal(t, 3, summary.Customers)
}

func TestBuildClassificationPrompt(t *testing.T) {
	p, err := BuildClassificationPrompt([]ReviewItem{{ID: "i1", Notes: "Great service"}})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, ClassificationInstructions))
	assert.Contains(t, p, `[{"id":"i1","notes":"Great service"}]`)
	assert.Contains(t, p, LabelNeutral)
}
