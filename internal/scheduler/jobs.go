package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

// SLA watcher job types.
const (
	JobTypeReviewDeadline   = "publishing.sla.review_deadline"
	JobTypeRevisionDeadline = "publishing.sla.revision_deadline"
)

// Payload keys shared by SLA watcher jobs.
const (
	PayloadBookID        = "book_id"
	PayloadVersion       = "version"
	PayloadStatus        = "status"
	PayloadEnteredAt     = "entered_at"
	PayloadDeadlineHours = "deadline_hours"
	PayloadScheduledBy   = "scheduled_by"
)

func ReviewDeadlineJobKey(id uuid.UUID) string {
	return "book:" + id.String() + ":sla:review"
}

func RevisionDeadlineJobKey(id uuid.UUID) string {
	return "book:" + id.String() + ":sla:revision"
}

// SLAWatch describes a deadline watcher for a book that just entered a
// watched status.
type SLAWatch struct {
	BookID      uuid.UUID
	Version     int
	Status      string
	EnteredAt   time.Time
	Deadline    time.Duration
	ScheduledBy string
}

// ReviewDeadlineSpec builds the job fired when a book stays in review past its deadline.
func ReviewDeadlineSpec(watch SLAWatch) interfaces.JobSpec {
	return watch.spec(JobTypeReviewDeadline, ReviewDeadlineJobKey(watch.BookID))
}

// RevisionDeadlineSpec builds the job fired when a revision request goes unanswered.
func RevisionDeadlineSpec(watch SLAWatch) interfaces.JobSpec {
	return watch.spec(JobTypeRevisionDeadline, RevisionDeadlineJobKey(watch.BookID))
}

func (w SLAWatch) spec(jobType, key string) interfaces.JobSpec {
	return interfaces.JobSpec{
		Key:   key,
		Type:  jobType,
		RunAt: w.EnteredAt.Add(w.Deadline),
		Payload: map[string]any{
			PayloadBookID:        w.BookID.String(),
			PayloadVersion:       w.Version,
			PayloadStatus:        w.Status,
			PayloadEnteredAt:     w.EnteredAt.UTC().Format(time.RFC3339Nano),
			PayloadDeadlineHours: w.Deadline.Hours(),
			PayloadScheduledBy:   w.ScheduledBy,
		},
		MaxAttempts: 1,
	}
}

// ParseSLAWatch reads an SLA watcher back from a job payload.
func ParseSLAWatch(job *interfaces.Job) (SLAWatch, error) {
	if job == nil || job.Payload == nil {
		return SLAWatch{}, fmt.Errorf("scheduler: missing payload")
	}
	raw, _ := job.Payload[PayloadBookID].(string)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return SLAWatch{}, fmt.Errorf("scheduler: invalid %s payload: %w", PayloadBookID, err)
	}
	watch := SLAWatch{BookID: id}
	watch.Version, _ = intValue(job.Payload[PayloadVersion])
	watch.Status, _ = job.Payload[PayloadStatus].(string)
	watch.ScheduledBy, _ = job.Payload[PayloadScheduledBy].(string)
	if hours, ok := floatValue(job.Payload[PayloadDeadlineHours]); ok {
		watch.Deadline = time.Duration(hours * float64(time.Hour))
	}
	if value, ok := job.Payload[PayloadEnteredAt].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
			watch.EnteredAt = parsed
		}
	}
	return watch, nil
}

func intValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func floatValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
