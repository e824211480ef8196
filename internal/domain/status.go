package domain

import "strings"

// Status represents the publishing lifecycle state of a book.
type Status string

const (
	// StatusDraft indicates content still being written by its author
	StatusDraft Status = "DRAFT"
	// StatusPending marks content submitted and waiting for review
	StatusPending Status = "PENDING"
	// StatusNeedsRevision marks content sent back to the author
	StatusNeedsRevision Status = "NEEDS_REVISION"
	// StatusApproved marks reviewed content waiting for production (standard mode only)
	StatusApproved Status = "APPROVED"
	// StatusPublished identifies content available to readers
	StatusPublished Status = "PUBLISHED"
	// StatusArchived marks content retained for history but hidden from readers
	StatusArchived Status = "ARCHIVED"
)

// Statuses lists every known status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusDraft,
		StatusPending,
		StatusNeedsRevision,
		StatusApproved,
		StatusPublished,
		StatusArchived,
	}
}

// ParseStatus normalises the supplied value and reports whether it is a known status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range Statuses() {
		if status == known {
			return status, true
		}
	}
	return status, false
}

func (s Status) String() string {
	return string(s)
}
