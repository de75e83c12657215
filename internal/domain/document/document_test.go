package document

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDocument_StringOr(t *testing.T) {
	doc := Document{Fields: Fields{
		"name":  "  Acme  ",
		"blank": "   ",
		"count": float64(3),
	}}

	assert.Equal(t, "Acme", doc.StringOr("name", "N/A"))
	assert.Equal(t, "N/A", doc.StringOr("blank", "N/A"))
	assert.Equal(t, "N/A", doc.StringOr("missing", "N/A"))
	assert.Equal(t, "3", doc.String("count"))
}

func TestDocument_Float(t *testing.T) {
	doc := Document{Fields: Fields{"a": float64(1.5), "b": "2.25", "c": "x", "d": 4}}

	v, ok := doc.Float("a")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	v, ok = doc.Float("b")
	assert.True(t, ok)
	assert.Equal(t, 2.25, v)

	_, ok = doc.Float("c")
	assert.False(t, ok)

	v, ok = doc.Float("d")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestDocument_Decimal(t *testing.T) {
	doc := Document{Fields: Fields{"rev": "1200.50", "num": float64(10), "bad": "abc"}}

	assert.True(t, decimal.RequireFromString("1200.50").Equal(doc.Decimal("rev")))
	assert.True(t, decimal.NewFromInt(10).Equal(doc.Decimal("num")))
	assert.True(t, decimal.Zero.Equal(doc.Decimal("bad")))
	assert.True(t, decimal.Zero.Equal(doc.Decimal("missing")))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	got, ok := ParseTime("2024-05-01T10:30:00Z")
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = ParseTime(want)
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = ParseTime("2024-05-01")
	assert.True(t, ok)
	assert.Equal(t, 2024, got.Year())

	_, ok = ParseTime("yesterday")
	assert.False(t, ok)

	_, ok = ParseTime(nil)
	assert.False(t, ok)
}

func TestDocument_CloneIsolatesFields(t *testing.T) {
	doc := Document{ID: "1", Fields: Fields{"name": "a"}}
	clone := doc.Clone()
	delete(clone.Fields, "name")

	assert.Equal(t, "a", doc.Fields["name"])
}
