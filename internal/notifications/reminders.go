package notifications

import (
	"time"

	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// ReviewOverdueReminder addresses a stuck review to the escalation roles.
func ReviewOverdueReminder(book *books.Book, deadline time.Duration, roles []string) interfaces.SLAReminder {
	reminder := baseReminder(book, interfaces.ReminderReviewOverdue)
	reminder.DeadlineHours = deadline.Hours()
	reminder.Recipients.Roles = append([]string(nil), roles...)
	return reminder
}

// RevisionOverdueReminder nudges the author of a book waiting on revisions.
func RevisionOverdueReminder(book *books.Book, deadline time.Duration) interfaces.SLAReminder {
	reminder := baseReminder(book, interfaces.ReminderRevisionOverdue)
	reminder.DeadlineDays = deadline.Hours() / 24
	reminder.Recipients.AuthorID = book.AuthorID
	return reminder
}

func baseReminder(book *books.Book, kind string) interfaces.SLAReminder {
	return interfaces.SLAReminder{
		BookID: book.ID,
		Slug:   book.Slug,
		Title:  book.Title(),
		Type:   kind,
		Status: string(book.Status),
		Since:  book.UpdatedAt,
	}
}
