package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"very high", PriorityVeryHigh},
		{"Very High", PriorityVeryHigh},
		{"  very   high ", PriorityVeryHigh},
		{"HIGH", PriorityHigh},
		{"medium", PriorityMedium},
		{"low", PriorityLow},
		{"very low", PriorityVeryLow},
		{"urgent", PriorityUnknown},
		{"", PriorityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePriority(tt.in))
		})
	}
}

func TestPriority_RankOrdering(t *testing.T) {
	assert.Equal(t, 5, PriorityVeryHigh.Rank())
	assert.Equal(t, 1, PriorityVeryLow.Rank())
	assert.Equal(t, 0, PriorityUnknown.Rank())
	for i := 1; i < len(Known); i++ {
		assert.Greater(t, Known[i].Rank(), Known[i-1].Rank())
	}
}

func TestPriority_StyleDefinedForEveryValue(t *testing.T) {
	seen := map[Style]bool{}
	for _, p := range Known {
		s := p.Style()
		assert.NotEmpty(t, s.Color)
		assert.NotEmpty(t, s.Icon)
		assert.NotEqual(t, NeutralStyle, s, "known priority %s must not use the neutral style", p)
		seen[s] = true
	}
	assert.Len(t, seen, len(Known))
	assert.Equal(t, NeutralStyle, PriorityUnknown.Style())
	assert.Equal(t, NeutralStyle, ParsePriority("critical").Style())
}

func TestPriority_Label(t *testing.T) {
	assert.Equal(t, "All", PriorityVeryLow.Label())
	assert.Equal(t, "Low or higher", PriorityLow.Label())
	assert.Equal(t, "High or higher", PriorityHigh.Label())
	assert.Equal(t, "Very high", PriorityVeryHigh.Label())
	assert.Equal(t, "Unknown", PriorityUnknown.Label())
	assert.Equal(t, "Medium or higher", PriorityMedium.Label())
}

func TestOptions(t *testing.T) {
	opts := Options()
	assert.Len(t, opts, 5)
	assert.Equal(t, "very high", opts[0].Value)
	assert.Equal(t, "very low", opts[4].Value)
	assert.Equal(t, "All", opts[4].Label)
}
