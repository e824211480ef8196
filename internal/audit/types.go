package audit

import (
	"errors"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EventType classifies ledger entries.
type EventType string

const (
	EventStatusChange     EventType = "STATUS_CHANGE"
	EventReviewAssigned   EventType = "REVIEW_ASSIGNED"
	EventFeedbackProvided EventType = "FEEDBACK_PROVIDED"
	EventSLAViolation     EventType = "SLA_VIOLATION"
	EventBulkOperation    EventType = "BULK_OPERATION"
	EventSystemAction     EventType = "SYSTEM_ACTION"
	EventUserAction       EventType = "USER_ACTION"
)

// ActionBulkOperation and ActionSLAViolation tag events that do not map to a workflow action.
const (
	ActionBulkOperation = "BULK_OPERATION"
	ActionSLAViolation  = "SLA_VIOLATION"
)

// SLA violation kinds recorded in event metadata.
const (
	ViolationReviewOverdue   = "REVIEW_OVERDUE"
	ViolationRevisionOverdue = "REVISION_OVERDUE"
)

// SystemActor is recorded as the actor of events raised by background jobs.
const SystemActor = "system"

// GenesisChecksum seeds the first link of every chain.
const GenesisChecksum = "genesis"

// DefaultQueryLimit is applied when QueryAuditEvents receives a non-positive limit.
const DefaultQueryLimit = 100

var (
	// ErrEventRequired indicates a nil event was handed to a writer.
	ErrEventRequired = errors.New("audit: event is required")
	// ErrActorRequired indicates a status change without an actor.
	ErrActorRequired = errors.New("audit: actor id is required")
	// ErrInvalidRange indicates a report window whose end precedes its start.
	ErrInvalidRange = errors.New("audit: period end precedes start")
	// ErrStaleStatus indicates an SLA violation for a status the book's chain has
	// already left.
	ErrStaleStatus = errors.New("audit: book chain has left the violated status")
)

// Event is an immutable ledger entry. Sequence and PrevChecksum link the
// event to its predecessor for the same book.
type Event struct {
	bun.BaseModel `bun:"table:audit_events,alias:ae"`

	ID           uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	EventType    EventType      `bun:"event_type,notnull" json:"eventType"`
	BookID       *uuid.UUID     `bun:"book_id,type:uuid" json:"bookId,omitempty"`
	ActorID      string         `bun:"actor_id,nullzero" json:"actorId,omitempty"`
	Action       string         `bun:"action,notnull" json:"action"`
	FromStatus   domain.Status  `bun:"from_status,nullzero" json:"fromStatus,omitempty"`
	ToStatus     domain.Status  `bun:"to_status,nullzero" json:"toStatus,omitempty"`
	Reason       string         `bun:"reason,nullzero" json:"reason,omitempty"`
	TemplateID   string         `bun:"template_id,nullzero" json:"templateId,omitempty"`
	Metadata     map[string]any `bun:"metadata,type:jsonb" json:"metadata"`
	Sequence     int64          `bun:"sequence,notnull" json:"sequence"`
	PrevChecksum string         `bun:"prev_checksum,notnull" json:"prevChecksum"`
	Checksum     string         `bun:"checksum,notnull" json:"checksum"`
	Timestamp    time.Time      `bun:"occurred_at,notnull" json:"timestamp"`
}

// Clone returns a deep enough copy for callers to mutate.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.BookID != nil {
		id := *e.BookID
		clone.BookID = &id
	}
	clone.Metadata = cloneMetadata(e.Metadata)
	return &clone
}

// EventData describes a status change to record.
type EventData struct {
	BookID     uuid.UUID
	ActorID    string
	Action     domain.Action
	FromStatus domain.Status
	ToStatus   domain.Status
	Reason     string
	TemplateID string
	Metadata   map[string]any
}

// BulkItemResult summarises one entry of a bulk operation.
type BulkItemResult struct {
	BookID  uuid.UUID `json:"bookId"`
	Success bool      `json:"success"`
	Errors  []string  `json:"errors,omitempty"`
}

// Filter narrows ledger queries. Zero values are ignored.
type Filter struct {
	BookID     *uuid.UUID
	ActorID    string
	Action     string
	FromStatus domain.Status
	ToStatus   domain.Status
	EventType  EventType
	TemplateID string
	FromDate   *time.Time
	ToDate     *time.Time
}

// Matches reports whether event satisfies every populated filter field.
func (f Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}
	if f.BookID != nil && (event.BookID == nil || *event.BookID != *f.BookID) {
		return false
	}
	if f.ActorID != "" && event.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && event.Action != f.Action {
		return false
	}
	if f.FromStatus != "" && event.FromStatus != f.FromStatus {
		return false
	}
	if f.ToStatus != "" && event.ToStatus != f.ToStatus {
		return false
	}
	if f.EventType != "" && event.EventType != f.EventType {
		return false
	}
	if f.TemplateID != "" && event.TemplateID != f.TemplateID {
		return false
	}
	if f.FromDate != nil && event.Timestamp.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && event.Timestamp.After(*f.ToDate) {
		return false
	}
	return true
}

// QueryResult is one page of ledger events.
type QueryResult struct {
	Events  []*Event `json:"events"`
	Total   int      `json:"total"`
	HasMore bool     `json:"hasMore"`
}

// IntegrityReport is the outcome of VerifyAuditIntegrity. Issues are descriptive
// and never returned as errors.
type IntegrityReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
	Events []*Event `json:"events"`
}

// ActorCount pairs an actor with the number of events they produced.
type ActorCount struct {
	ActorID string `json:"actorId"`
	Count   int    `json:"count"`
}

// TemplateCount pairs a rejection template with its usage count.
type TemplateCount struct {
	TemplateID string `json:"templateId"`
	Count      int    `json:"count"`
}

// ComplianceReport aggregates status changes over a period.
type ComplianceReport struct {
	PeriodStart           time.Time             `json:"periodStart"`
	PeriodEnd             time.Time             `json:"periodEnd"`
	TotalEvents           int                   `json:"totalEvents"`
	StatusDistribution    map[domain.Status]int `json:"statusDistribution"`
	ActionDistribution    map[string]int        `json:"actionDistribution"`
	AverageProcessingTime map[string]float64    `json:"averageProcessingTime"`
	SLAViolations         int                   `json:"slaViolations"`
	TopReviewers          []ActorCount          `json:"topReviewers"`
	RejectionReasons      []TemplateCount       `json:"rejectionReasons"`
}

// WorkflowEfficiency summarises how quickly content reaches publication.
type WorkflowEfficiency struct {
	AverageTimeToPublication float64  `json:"averageTimeToPublication"`
	BottleneckStages         []string `json:"bottleneckStages"`
	RejectionRate            float64  `json:"rejectionRate"`
}

// ReviewerPerformance summarises one reviewer's activity.
type ReviewerPerformance struct {
	ReviewerID        string  `json:"reviewerId"`
	ReviewCount       int     `json:"reviewCount"`
	AverageReviewTime float64 `json:"averageReviewTime"`
	RejectionRate     float64 `json:"rejectionRate"`
}

// ContentQuality summarises how often content passes review first time.
type ContentQuality struct {
	FirstPassApprovalRate float64  `json:"firstPassApprovalRate"`
	AverageRevisionCycles float64  `json:"averageRevisionCycles"`
	CommonIssues          []string `json:"commonIssues"`
}

// AnalyticsMetrics is derived from the status history of books published in a period.
type AnalyticsMetrics struct {
	PeriodStart         time.Time             `json:"periodStart"`
	PeriodEnd           time.Time             `json:"periodEnd"`
	PublishedBooks      int                   `json:"publishedBooks"`
	WorkflowEfficiency  WorkflowEfficiency    `json:"workflowEfficiency"`
	ReviewerPerformance []ReviewerPerformance `json:"reviewerPerformance"`
	ContentQuality      ContentQuality        `json:"contentQuality"`
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
