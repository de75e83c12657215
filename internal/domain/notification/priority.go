package notification

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Priority is the closed set of notification priorities
type Priority int

// Priority values. The numeric value is the ordinal rank used by the filter.
const (
	PriorityUnknown  Priority = 0
	PriorityVeryLow  Priority = 1
	PriorityLow      Priority = 2
	PriorityMedium   Priority = 3
	PriorityHigh     Priority = 4
	PriorityVeryHigh Priority = 5
)

// Known lists every recognized priority from lowest to highest
var Known = []Priority{PriorityVeryLow, PriorityLow, PriorityMedium, PriorityHigh, PriorityVeryHigh}

// ParsePriority maps a stored value onto the enum. Matching ignores case and
// surrounding or repeated whitespace; anything else is PriorityUnknown.
func ParsePriority(s string) Priority {
	normalized := strings.Join(strings.Fields(cases.Fold().String(s)), " ")
	switch normalized {
	case "very low":
		return PriorityVeryLow
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	case "very high":
		return PriorityVeryHigh
	default:
		return PriorityUnknown
	}
}

// Rank returns the ordinal used for filtering (unknown ranks 0)
func (p Priority) Rank() int {
	return int(p)
}

// IsKnown reports whether the value is one of the five recognized levels
func (p Priority) IsKnown() bool {
	return p >= PriorityVeryLow && p <= PriorityVeryHigh
}

// String returns the canonical stored value
func (p Priority) String() string {
	switch p {
	case PriorityVeryLow:
		return "very low"
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityVeryHigh:
		return "very high"
	default:
		return "unknown"
	}
}

// Label returns the filter option label, e.g. "High or higher".
// Very low means no filter and is labeled "All"; the top level has nothing above it.
func (p Priority) Label() string {
	switch p {
	case PriorityVeryLow:
		return "All"
	case PriorityVeryHigh, PriorityUnknown:
		return sentenceCase(p.String())
	default:
		return sentenceCase(p.String()) + " or higher"
	}
}

// sentenceCase title-cases the first word only: "very high" becomes "Very high"
func sentenceCase(s string) string {
	first, rest, ok := strings.Cut(s, " ")
	// Casers keep state and are not shared
	first = cases.Title(language.English).String(first)
	if !ok {
		return first
	}
	return first + " " + rest
}

// Style is the visual treatment of a priority
type Style struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// NeutralStyle is used for unrecognized priorities
var NeutralStyle = Style{Color: "gray", Icon: "info-circle"}

// Style maps every priority value to its style
func (p Priority) Style() Style {
	switch p {
	case PriorityVeryHigh:
		return Style{Color: "red", Icon: "exclamation-circle"}
	case PriorityHigh:
		return Style{Color: "orange", Icon: "warning"}
	case PriorityMedium:
		return Style{Color: "gold", Icon: "info-circle"}
	case PriorityLow:
		return Style{Color: "green", Icon: "check-circle"}
	case PriorityVeryLow:
		return Style{Color: "blue", Icon: "minus-circle"}
	case PriorityUnknown:
		return NeutralStyle
	}
	return NeutralStyle
}

// Option is a selectable minimum-priority filter entry
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options returns the filter choices from highest to lowest
func Options() []Option {
	opts := make([]Option, 0, len(Known))
	for i := len(Known) - 1; i >= 0; i-- {
		opts = append(opts, Option{Value: Known[i].String(), Label: Known[i].Label()})
	}
	return opts
}
