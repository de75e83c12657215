// Package document defines the data-provider contract shared by every CRM
// feature: a collection of loosely typed documents addressed by id.
package document

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Collection names used across the application
const (
	CollectionCustomers     = "customers"
	CollectionContacts      = "contacts"
	CollectionInteractions  = "interaction"
	CollectionUsers         = "users"
	CollectionNotifications = "notifications"
)

// Fields holds the loosely typed payload of a document
type Fields map[string]any

// Document is a single record in a collection
type Document struct {
	ID         string    `json:"id"`
	Collection string    `json:"-"`
	Fields     Fields    `json:"fields"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Has reports whether the field is present and not nil
func (d Document) Has(key string) bool {
	v, ok := d.Fields[key]
	return ok && v != nil
}

// String returns the field as a string, or "" when absent or not textual
func (d Document) String(key string) string {
	return d.StringOr(key, "")
}

// StringOr returns the field as a trimmed string, or fallback when absent or blank
func (d Document) StringOr(key, fallback string) string {
	switch v := d.Fields[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return fallback
}

// Float returns the field as a float64 and whether it was numeric.
// Numeric strings are accepted because form inputs often store them that way.
func (d Document) Float(key string) (float64, bool) {
	switch v := d.Fields[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Decimal returns the field as a decimal, or zero when absent or malformed
func (d Document) Decimal(key string) decimal.Decimal {
	switch v := d.Fields[key].(type) {
	case string:
		if dec, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return dec
		}
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	}
	return decimal.Zero
}

// Time returns the field as a time. It accepts native timestamps and
// RFC3339 or date-only strings.
func (d Document) Time(key string) (time.Time, bool) {
	return ParseTime(d.Fields[key])
}

// Map returns a nested object field
func (d Document) Map(key string) (map[string]any, bool) {
	m, ok := d.Fields[key].(map[string]any)
	return m, ok
}

// Clone returns a deep-enough copy: the top-level field map is copied so
// callers may add or remove keys without touching the original.
func (d Document) Clone() Document {
	fields := make(Fields, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	d.Fields = fields
	return d
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTime converts a stored timestamp value into a time.Time
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	}
	return time.Time{}, false
}
