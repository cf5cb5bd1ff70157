package types

import "strings"

// Address is the denormalized shipping/billing snapshot stored on each order.
// It is copied at order-creation time, never referenced by id, so later edits
// to a customer's address book do not rewrite order history.
type Address struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Validate reports the first missing mandatory field, empty string when valid.
func (a Address) Validate() string {
	switch {
	case strings.TrimSpace(a.FullName) == "":
		return "full_name"
	case strings.TrimSpace(a.Line1) == "":
		return "line1"
	case strings.TrimSpace(a.City) == "":
		return "city"
	case strings.TrimSpace(a.State) == "":
		return "state"
	case strings.TrimSpace(a.PostalCode) == "":
		return "postal_code"
	}
	return ""
}

// NormalizedEmail returns the lowercased, trimmed contact email.
func (a Address) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(a.Email))
}

// JSONMap is a free-form jsonb payload (timeline metadata and the like).
type JSONMap map[string]any
