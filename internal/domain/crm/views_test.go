package crm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
)

func TestNewInteractionView_Fallbacks(t *testing.T) {
	v := NewInteractionView(document.Document{ID: "i1", Fields: document.Fields{}})

	assert.Equal(t, FallbackNotes, v.Notes)
	assert.Equal(t, FallbackDate, v.Date)
	assert.Equal(t, FallbackNA, v.Classification)
	assert.Nil(t, v.SentimentScore)
	assert.False(t, v.Classified)
}

func TestNewInteractionView_WithClassification(t *testing.T) {
	v := NewInteractionView(document.Document{ID: "i1", Fields: document.Fields{
		"contact_id": "c1",
		"date":       "2024-02-01",
		"notes":      "Great call",
		"classification": map[string]any{
			"Classification":  LabelPositive,
			"Sentiment_score": 0.9,
		},
	}})

	assert.Equal(t, "c1", v.ContactID)
	assert.Equal(t, LabelPositive, v.Classification)
	require.NotNil(t, v.SentimentScore)
	assert.Equal(t, 0.9, *v.SentimentScore)
	assert.True(t, v.Classified)
	assert.Equal(t, 2024, v.SortTime().Year())
}

func TestNewCustomerView(t *testing.T) {
	v := NewCustomerView(document.Document{ID: "c1", Fields: document.Fields{
		"name":         "Acme",
		"riskLevel":    "High",
		"totalRevenue": "1500.25",
		"created_at":   "2024-01-01T00:00:00Z",
	}})

	assert.Equal(t, "Acme", v.Name)
	assert.True(t, decimal.RequireFromString("1500.25").Equal(v.TotalRevenue))
	require.NotNil(t, v.CreatedAt)

	empty := NewCustomerView(document.Document{ID: "c2", Fields: document.Fields{}})
	assert.True(t, empty.TotalRevenue.IsZero())
	assert.Nil(t, empty.CreatedAt)
	assert.Equal(t, FallbackNA, empty.Name)
}

func TestCustomerIDOf(t *testing.T) {
	assert.Equal(t, "1", CustomerIDOf(document.Document{Fields: document.Fields{"customer": map[string]any{"id": "1"}}}))
	assert.Equal(t, "2", CustomerIDOf(document.Document{Fields: document.Fields{"customer_id": "2"}}))
	assert.Equal(t, "3", CustomerIDOf(document.Document{Fields: document.Fields{"customer": "3"}}))
	assert.Equal(t, "", CustomerIDOf(document.Document{Fields: document.Fields{}}))
}

func TestNewUserView_AvatarFallback(t *testing.T) {
	v := NewUserView(document.Document{ID: "u1", Fields: document.Fields{
		"name":          "Jane Doe",
		"password_hash": "secret",
	}})

	assert.Equal(t, AvatarBaseURL+"?seed=Jane+Doe", v.AvatarURL)

	custom := NewUserView(document.Document{ID: "u2", Fields: document.Fields{"name": "x", "avatarUrl": "https://img/x.png"}})
	assert.Equal(t, "https://img/x.png", custom.AvatarURL)
}

func TestResource_RedactAndWritable(t *testing.T) {
	users, err := LookupResource("users")
	require.NoError(t, err)

	doc := document.Document{ID: "u1", Fields: document.Fields{"name": "a", "password_hash": "h"}}
	redacted := users.Redact(doc)
	assert.NotContains(t, redacted.Fields, "password_hash")
	assert.Contains(t, doc.Fields, "password_hash")

	writable, err := users.Writable(document.Fields{"name": "a", "password_hash": "h"})
	require.NoError(t, err)
	assert.NotContains(t, writable, "password_hash")
	assert.Contains(t, writable, "name")

	for _, key := range []string{"role", "email"} {
		_, err = users.Writable(document.Fields{"name": "a", key: "x"})
		require.Error(t, err, key)
		assert.ErrorIs(t, err, shared.ErrForbidden, key)
	}
	assert.True(t, users.Managed)

	customers, err := LookupResource("customers")
	require.NoError(t, err)
	writable, err = customers.Writable(document.Fields{"email": "billing@acme.test"})
	require.NoError(t, err)
	assert.Contains(t, writable, "email")

	_, err = LookupResource("deals")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestRankCustomerRisk(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	customers := []CustomerView{
		{ID: "low", RiskLevel: "Low"},
		{ID: "high-1", RiskLevel: "High", CreatedAt: &created},
		{ID: "odd", RiskLevel: "Extreme"},
		{ID: "medium", RiskLevel: "Medium"},
		{ID: "high-2", RiskLevel: "High"},
	}

	ranked := RankCustomerRisk(customers, now, 4)

	require.Len(t, ranked, 4)
	assert.Equal(t, "high-1", ranked[0].ID)
	assert.Equal(t, "high-2", ranked[1].ID)
	assert.Equal(t, "medium", ranked[2].ID)
	assert.Equal(t, "low", ranked[3].ID)
	require.NotNil(t, ranked[0].DaysSinceCreation)
	assert.Equal(t, 10, *ranked[0].DaysSinceCreation)
	assert.Nil(t, ranked[1].DaysSinceCreation)
}
