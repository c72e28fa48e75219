package questionnaire

import "strings"

// Category is a sensory priority label from the closed set the questionnaire offers.
type Category string

const (
	Visual   Category = "visual"
	Culinary Category = "culinary"
	Nature   Category = "nature"
	Cultural Category = "cultural"
	Wellness Category = "wellness"
)

// Categories returns the closed set of sensory categories in their default order.
// The default order is also the tie-break order when two categories score the same.
func Categories() []Category {
	return []Category{Visual, Culinary, Nature, Cultural, Wellness}
}

// ParseCategory matches a label against the closed set, ignoring case and surrounding whitespace.
func ParseCategory(label string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(label)))
	for _, c := range Categories() {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }
