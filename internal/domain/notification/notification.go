// Package notification holds the read-state reconciliation rules for the
// notification panel and its unread badge.
package notification

import (
	"sort"
	"time"

	"github.com/crm/backend/internal/domain/document"
)

// Notification is an immutable message produced by the backend
type Notification struct {
	ID          string
	Title       string
	Body        string
	Priority    Priority
	RawPriority string
	Time        time.Time
}

// FromDocument builds a Notification from a stored document.
// An unparseable time yields the zero time.
func FromDocument(doc document.Document) Notification {
	raw := doc.String("priority")
	t, _ := doc.Time("time")
	return Notification{
		ID:          doc.ID,
		Title:       doc.String("title"),
		Body:        doc.String("body"),
		Priority:    ParsePriority(raw),
		RawPriority: raw,
		Time:        t,
	}
}

// FromDocuments converts a whole collection listing
func FromDocuments(docs []document.Document) []Notification {
	out := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}

// ToFields returns the stored representation
func (n Notification) ToFields() document.Fields {
	return document.Fields{
		"title":    n.Title,
		"body":     n.Body,
		"priority": n.Priority.String(),
		"time":     n.Time.UTC().Format(time.RFC3339Nano),
	}
}

// ReadMarker separates seen notifications from new ones for a user
type ReadMarker struct {
	LastReadTime *time.Time
}

// IsSet reports whether the user has ever closed the panel
func (m ReadMarker) IsSet() bool {
	return m.LastReadTime != nil
}

// IsUnread reports whether n is newer than the marker.
// Without a marker every notification is unread.
func (m ReadMarker) IsUnread(n Notification) bool {
	if m.LastReadTime == nil {
		return true
	}
	return n.Time.After(*m.LastReadTime)
}

// UnreadCount counts unread notifications over the full set
func UnreadCount(ns []Notification, marker ReadMarker) int {
	count := 0
	for _, n := range ns {
		if marker.IsUnread(n) {
			count++
		}
	}
	return count
}

// FilterByMinPriority keeps notifications ranked at least min.
// PriorityVeryLow (or an unset filter) keeps everything, including unknown priorities.
func FilterByMinPriority(ns []Notification, min Priority) []Notification {
	if min <= PriorityVeryLow {
		out := make([]Notification, len(ns))
		copy(out, ns)
		return out
	}
	out := make([]Notification, 0, len(ns))
	for _, n := range ns {
		if n.Priority.Rank() >= min.Rank() {
			out = append(out, n)
		}
	}
	return out
}

// SortNewestFirst returns a copy ordered by time, most recent first
func SortNewestFirst(ns []Notification) []Notification {
	out := make([]Notification, len(ns))
	copy(out, ns)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	return out
}

// Newest returns the latest notification time in the set
func Newest(ns []Notification) time.Time {
	var newest time.Time
	for _, n := range ns {
		if n.Time.After(newest) {
			newest = n.Time
		}
	}
	return newest
}
