package notification

import "time"

// Panel is a user's notification drawer. Notifications is the snapshot
// fetched when the panel was opened.
type Panel struct {
	Open          bool
	Notifications []Notification
	MinPriority   Priority
	OpenedAt      time.Time
}

// NewPanel returns a closed panel with no filter
func NewPanel() *Panel {
	return &Panel{MinPriority: PriorityVeryLow}
}

// Mount opens the panel with a freshly fetched set
func (p *Panel) Mount(ns []Notification, now time.Time) {
	p.Open = true
	p.Notifications = ns
	p.OpenedAt = now
}

// SetFilter changes the displayed minimum priority. Unknown resets to "all".
func (p *Panel) SetFilter(min Priority) {
	if !min.IsKnown() {
		min = PriorityVeryLow
	}
	p.MinPriority = min
}

// Visible returns the filtered list, newest first
func (p *Panel) Visible() []Notification {
	return SortNewestFirst(FilterByMinPriority(p.Notifications, p.MinPriority))
}

// CloseMarker returns the marker closing the panel would persist without
// changing the panel. The marker is never earlier than any fetched
// notification, so everything on screen becomes read even when a producer
// clock runs ahead. A panel that is not open returns false and no marker.
func (p *Panel) CloseMarker(now time.Time) (time.Time, bool) {
	if !p.Open {
		return time.Time{}, false
	}
	marker := now
	if newest := Newest(p.Notifications); newest.After(marker) {
		marker = newest
	}
	return marker, true
}

// Close transitions the panel from open to closed and returns the marker to persist
func (p *Panel) Close(now time.Time) (time.Time, bool) {
	marker, ok := p.CloseMarker(now)
	if ok {
		p.Open = false
	}
	return marker, ok
}
