package crm

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/document"
)

// Fallback literals for absent or malformed fields
const (
	FallbackNA    = "N/A"
	FallbackNotes = "No notes available"
	FallbackDate  = "Unknown date"
)

// AvatarBaseURL is the generated-initials avatar service
const AvatarBaseURL = "https://api.dicebear.com/7.x/initials/svg"

// InteractionView is an interaction with display fallbacks applied
type InteractionView struct {
	ID             string   `json:"id"`
	ContactID      string   `json:"contact_id"`
	Date           string   `json:"date"`
	Notes          string   `json:"notes"`
	Classification string   `json:"classification"`
	SentimentScore *float64 `json:"sentiment_score"`
	Classified     bool     `json:"classified"`
	sortTime       time.Time
}

// NewInteractionView builds the view from a document
func NewInteractionView(doc document.Document) InteractionView {
	v := InteractionView{
		ID:             doc.ID,
		ContactID:      doc.StringOr("contact_id", FallbackNA),
		Date:           doc.StringOr("date", FallbackDate),
		Notes:          doc.StringOr("notes", FallbackNotes),
		Classification: FallbackNA,
	}
	v.sortTime, _ = doc.Time("date")
	if c, ok := ClassificationOf(doc); ok {
		v.Classified = true
		if c.Label != "" {
			v.Classification = c.Label
		}
		v.SentimentScore = c.Score
	}
	return v
}

// SortTime is the parsed interaction date (zero when unknown)
func (v InteractionView) SortTime() time.Time {
	return v.sortTime
}

// CustomerView is a customer with typed revenue
type CustomerView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	RiskLevel    string          `json:"riskLevel"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
}

// NewCustomerView builds the view from a document
func NewCustomerView(doc document.Document) CustomerView {
	v := CustomerView{
		ID:           doc.ID,
		Name:         doc.StringOr("name", FallbackNA),
		RiskLevel:    doc.StringOr("riskLevel", FallbackNA),
		TotalRevenue: doc.Decimal("totalRevenue"),
	}
	if t, ok := doc.Time("created_at"); ok {
		v.CreatedAt = &t
	}
	return v
}

// ContactView is a contact linked to a customer
type ContactView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Status     string `json:"status"`
	Title      string `json:"title"`
	CustomerID string `json:"customer_id"`
}

// NewContactView builds the view from a document. The customer link is
// either a plain id field or a nested {"id": ...} object.
func NewContactView(doc document.Document) ContactView {
	return ContactView{
		ID:         doc.ID,
		Name:       doc.StringOr("name", FallbackNA),
		Email:      doc.StringOr("email", FallbackNA),
		Phone:      doc.StringOr("phone", FallbackNA),
		Status:     doc.StringOr("status", FallbackNA),
		Title:      doc.StringOr("jobTitle", FallbackNA),
		CustomerID: CustomerIDOf(doc),
	}
}

// CustomerIDOf returns the linked customer id of a contact
func CustomerIDOf(doc document.Document) string {
	if id := doc.String("customer_id"); id != "" {
		return id
	}
	if m, ok := doc.Map("customer"); ok {
		if id, ok := m["id"].(string); ok {
			return id
		}
	}
	return doc.String("customer")
}

// UserView is a user without credentials
type UserView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl"`
}

// NewUserView builds the view from a document
func NewUserView(doc document.Document) UserView {
	name := doc.StringOr("name", FallbackNA)
	return UserView{
		ID:        doc.ID,
		Name:      name,
		Email:     doc.StringOr("email", FallbackNA),
		Role:      doc.StringOr("role", "user"),
		AvatarURL: doc.StringOr("avatarUrl", AvatarURL(name)),
	}
}

// AvatarURL returns the generated initials avatar for a name
func AvatarURL(name string) string {
	return AvatarBaseURL + "?seed=" + url.QueryEscape(name)
}
