package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crm/backend/internal/domain/document"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func sample() []Notification {
	return []Notification{
		{ID: "a", Priority: PriorityLow, Time: at(10, 0)},
		{ID: "b", Priority: PriorityVeryHigh, Time: at(12, 0)},
		{ID: "c", Priority: PriorityMedium, Time: at(11, 0)},
	}
}

func TestUnreadCount_MarkerBetweenNotifications(t *testing.T) {
	marker := ReadMarker{LastReadTime: ptr(at(10, 30))}

	assert.Equal(t, 2, UnreadCount(sample(), marker))
}

func TestUnreadCount_AbsentMarkerCountsEverything(t *testing.T) {
	assert.Equal(t, 3, UnreadCount(sample(), ReadMarker{}))
}

func TestUnreadCount_EqualTimeIsRead(t *testing.T) {
	marker := ReadMarker{LastReadTime: ptr(at(12, 0))}

	assert.Equal(t, 0, UnreadCount(sample(), marker))
}

func TestUnreadCount_MatchesPredicateForManyMarkers(t *testing.T) {
	ns := sample()
	markers := []*time.Time{nil, ptr(at(9, 0)), ptr(at(10, 0)), ptr(at(11, 30)), ptr(at(13, 0))}
	for _, m := range markers {
		want := 0
		for _, n := range ns {
			if m == nil || n.Time.After(*m) {
				want++
			}
		}
		assert.Equal(t, want, UnreadCount(ns, ReadMarker{LastReadTime: m}))
	}
}

func TestFilterByMinPriority(t *testing.T) {
	ns := append(sample(), Notification{ID: "x", Priority: PriorityUnknown, Time: at(9, 0)})

	t.Run("very low returns all", func(t *testing.T) {
		assert.Len(t, FilterByMinPriority(ns, PriorityVeryLow), 4)
	})

	t.Run("medium keeps medium and above", func(t *testing.T) {
		got := FilterByMinPriority(ns, PriorityMedium)
		ids := []string{}
		for _, n := range got {
			ids = append(ids, n.ID)
		}
		assert.ElementsMatch(t, []string{"b", "c"}, ids)
	})

	t.Run("very high keeps only very high", func(t *testing.T) {
		got := FilterByMinPriority(ns, PriorityVeryHigh)
		assert.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("filter does not change unread count", func(t *testing.T) {
		marker := ReadMarker{LastReadTime: ptr(at(10, 30))}
		_ = FilterByMinPriority(ns, PriorityVeryHigh)
		assert.Equal(t, 2, UnreadCount(ns, marker))
	})
}

func TestSortNewestFirst(t *testing.T) {
	ns := sample()
	sorted := SortNewestFirst(ns)

	assert.Equal(t, "b", sorted[0].ID)
	assert.Equal(t, "c", sorted[1].ID)
	assert.Equal(t, "a", sorted[2].ID)
	assert.Equal(t, "a", ns[0].ID, "input must not be reordered")
}

func TestFromDocument(t *testing.T) {
	doc := document.Document{ID: "n1", Fields: document.Fields{
		"title":    "Deal closed",
		"body":     "Acme signed",
		"priority": "Very High",
		"time":     "2024-03-01T12:00:00Z",
	}}

	n := FromDocument(doc)
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, PriorityVeryHigh, n.Priority)
	assert.Equal(t, "Very High", n.RawPriority)
	assert.True(t, at(12, 0).Equal(n.Time))
}

func TestFromDocument_UnknownPriorityAndBadTime(t *testing.T) {
	n := FromDocument(document.Document{ID: "n2", Fields: document.Fields{"priority": "asap", "time": "soon"}})

	assert.Equal(t, PriorityUnknown, n.Priority)
	assert.True(t, n.Time.IsZero())
	assert.True(t, ReadMarker{}.IsUnread(n))
	assert.False(t, ReadMarker{LastReadTime: ptr(at(0, 0))}.IsUnread(n))
}
