package domain

import (
	"strings"
	"time"
	"unicode"
)

// Company is a tracked organization. Identity is the CompanyDataset key;
// entries are mutated in place by status updates and never deleted by the
// pipeline itself.
type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Industry    string `json:"industry,omitempty"`
	Status      string `json:"status"`
	Source      string `json:"source,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Common company status values. The field is free-form; these are the ones
// the provider is known to emit.
const (
	StatusSignatory = "Signatory"
	StatusActive    = "Active"
	StatusUnknown   = "Unknown"
)

// CompanyDataset maps company id to company record. Keys are unique; order
// is irrelevant.
type CompanyDataset map[string]Company

// CompanyPatch is the unit applied by a status update: status, notes and the
// update marker change together or not at all.
type CompanyPatch struct {
	Status    string
	Notes     string
	UpdatedAt time.Time
}

// Slug derives a stable company id from its name: lowercased, runs of
// non-alphanumerics collapsed to single hyphens.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
