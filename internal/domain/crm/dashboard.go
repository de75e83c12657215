package crm

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/document"
)

// SentimentCounts is the overall review breakdown
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (c *SentimentCounts) add(sentiment string) {
	switch sentiment {
	case "Positive":
		c.Positive++
	case "Neutral":
		c.Neutral++
	case "Negative":
		c.Negative++
	}
}

// Total returns the number of counted reviews
func (c SentimentCounts) Total() int {
	return c.Positive + c.Neutral + c.Negative
}

// CountSentiments tallies the classification labels of interactions.
// Unclassified interactions and unknown labels are ignored.
func CountSentiments(interactions []document.Document) SentimentCounts {
	var counts SentimentCounts
	for _, doc := range interactions {
		if c, ok := ClassificationOf(doc); ok {
			counts.add(c.Sentiment())
		}
	}
	return counts
}

// SentimentTrend is the breakdown for one interaction date
type SentimentTrend struct {
	Date string `json:"date"`
	SentimentCounts
}

// SentimentTrends groups classified interactions by their date field,
// newest date first
func SentimentTrends(interactions []document.Document) []SentimentTrend {
	byDate := make(map[string]*SentimentTrend)
	for _, doc := range interactions {
		c, ok := ClassificationOf(doc)
		if !ok || c.Sentiment() == "" {
			continue
		}
		date := doc.StringOr("date", FallbackDate)
		trend, ok := byDate[date]
		if !ok {
			trend = &SentimentTrend{Date: date}
			byDate[date] = trend
		}
		trend.add(c.Sentiment())
	}

	out := make([]SentimentTrend, 0, len(byDate))
	for _, trend := range byDate {
		out = append(out, *trend)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, iok := document.ParseTime(out[i].Date)
		tj, jok := document.ParseTime(out[j].Date)
		if iok && jok && !ti.Equal(tj) {
			return ti.After(tj)
		}
		if iok != jok {
			return iok
		}
		return out[i].Date > out[j].Date
	})
	return out
}

// RecentReview is one entry of the recent feedback widget
type RecentReview struct {
	ID        string     `json:"id"`
	Review    string     `json:"review"`
	Sentiment string     `json:"sentiment"`
	Score     float64    `json:"score"`
	CreatedAt *time.Time `json:"created_at"`
}

// RecentReviews returns up to limit classified interactions, most recently created first
func RecentReviews(interactions []document.Document, limit int) []RecentReview {
	type entry struct {
		review RecentReview
		at     time.Time
	}
	entries := make([]entry, 0, len(interactions))
	for _, doc := range interactions {
		c, ok := ClassificationOf(doc)
		if !ok {
			continue
		}
		at, ok := doc.Time("created_at")
		if !ok {
			at = doc.CreatedAt
		}
		r := RecentReview{
			ID:        doc.ID,
			Review:    doc.String("notes"),
			Sentiment: c.Label,
		}
		if r.Sentiment == "" {
			r.Sentiment = "Unknown"
		}
		if c.Score != nil {
			r.Score = *c.Score
		}
		if !at.IsZero() {
			t := at
			r.CreatedAt = &t
		}
		entries = append(entries, entry{review: r, at: at})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]RecentReview, len(entries))
	for i, e := range entries {
		out[i] = e.review
	}
	return out
}

// RevenueSummary totals customer revenue overall and per risk level
type RevenueSummary struct {
	Total     decimal.Decimal            `json:"total"`
	ByRisk    map[string]decimal.Decimal `json:"by_risk"`
	Customers int                        `json:"customers"`
}

// SummarizeRevenue adds up totalRevenue. Customers without a risk level count under N/A.
func SummarizeRevenue(customers []CustomerView) RevenueSummary {
	summary := RevenueSummary{
		Total:     decimal.Zero,
		ByRisk:    make(map[string]decimal.Decimal),
		Customers: len(customers),
	}
	for _, c := range customers {
		summary.Total = summary.Total.Add(c.TotalRevenue)
		level := strings.TrimSpace(c.RiskLevel)
		if level == "" {
			level = FallbackNA
		}
		summary.ByRisk[level] = summary.ByRisk[level].Add(c.TotalRevenue)
	}
	return summary
}
