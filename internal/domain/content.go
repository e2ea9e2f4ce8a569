package domain

import "time"

// ContentType distinguishes the two kinds of generated content.
type ContentType string

const (
	ContentInsight        ContentType = "insight"
	ContentCompanyProfile ContentType = "company-profile"
)

// GeneratedContent is a content record produced by the composer and handed to
// the publisher. LinkedID ties a company profile to its company id so repeated
// generation updates the existing record instead of creating a duplicate.
type GeneratedContent struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	ContentType ContentType `json:"content_type"`
	Tags        []string    `json:"tags,omitempty"`
	LinkedID    string      `json:"linked_id,omitempty"`
	CreatedBy   string      `json:"created_by,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
}
