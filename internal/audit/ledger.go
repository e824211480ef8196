package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

// Ledger appends events through caller supplied writers and derives reports
// from the committed history.
type Ledger struct {
	reader Reader
	now    func() time.Time
	newID  func() uuid.UUID
	logger interfaces.Logger
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// WithLogger sets the ledger logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger builds a ledger reading committed events from reader.
func NewLedger(reader Reader, opts ...Option) *Ledger {
	l := &Ledger{
		reader: reader,
		now:    time.Now,
		newID:  uuid.New,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// CreateAuditEvent records a STATUS_CHANGE through w, normally the writer bound
// to the transaction that updates the book.
func (l *Ledger) CreateAuditEvent(ctx context.Context, w Writer, data EventData) (*Event, error) {
	if strings.TrimSpace(data.ActorID) == "" {
		return nil, ErrActorRequired
	}
	bookID := data.BookID
	event := &Event{
		EventType:  EventStatusChange,
		BookID:     &bookID,
		ActorID:    data.ActorID,
		Action:     string(data.Action),
		FromStatus: data.FromStatus,
		ToStatus:   data.ToStatus,
		Reason:     data.Reason,
		TemplateID: data.TemplateID,
		Metadata:   cloneMetadata(data.Metadata),
	}
	return l.append(ctx, w, event)
}

// CreateBulkAuditEvent records the outcome of a bulk operation. The event is not
// attached to a single book and starts its own chain.
func (l *Ledger) CreateBulkAuditEvent(ctx context.Context, w Writer, actorID, operation string, results []BulkItemResult) (*Event, error) {
	bookIDs := make([]string, 0, len(results))
	items := make([]map[string]any, 0, len(results))
	successful := 0
	for _, result := range results {
		bookIDs = append(bookIDs, result.BookID.String())
		if result.Success {
			successful++
		}
		item := map[string]any{
			"bookId":  result.BookID.String(),
			"success": result.Success,
		}
		if len(result.Errors) > 0 {
			item["errors"] = append([]string(nil), result.Errors...)
		}
		items = append(items, item)
	}

	event := &Event{
		EventType: EventBulkOperation,
		ActorID:   actorID,
		Action:    ActionBulkOperation,
		Metadata: map[string]any{
			"operation":  operation,
			"bookIds":    bookIDs,
			"totalBooks": len(results),
			"successful": successful,
			"failed":     len(results) - successful,
			"results":    items,
		},
	}
	return l.append(ctx, w, event)
}

// CreateSLAViolationEvent records that a book overstayed its review or revision deadline.
// The event joins the book's chain without changing its status, and fails with
// ErrStaleStatus when the latest event in w left status.
func (l *Ledger) CreateSLAViolationEvent(ctx context.Context, w Writer, bookID uuid.UUID, status domain.Status, violationType string, deadlineHours float64) (*Event, error) {
	id := bookID
	event := &Event{
		EventType:  EventSLAViolation,
		BookID:     &id,
		ActorID:    SystemActor,
		Action:     ActionSLAViolation,
		FromStatus: status,
		ToStatus:   status,
		Metadata: map[string]any{
			"violationType": violationType,
			"deadlineHours": deadlineHours,
		},
	}
	return l.append(ctx, w, event)
}

func (l *Ledger) append(ctx context.Context, w Writer, event *Event) (*Event, error) {
	if w == nil {
		return nil, fmt.Errorf("audit: writer is required")
	}
	event.ID = l.newID()
	event.Timestamp = l.timestamp()
	if event.EventType == EventSLAViolation {
		event.Metadata["detectedAt"] = event.Timestamp.Format(time.RFC3339Nano)
	}

	var previous *Event
	if event.BookID != nil {
		latest, err := w.LatestForBook(ctx, *event.BookID)
		if err != nil {
			return nil, err
		}
		previous = latest
	}
	if event.EventType == EventSLAViolation && previous != nil && previous.ToStatus != event.FromStatus {
		return nil, fmt.Errorf("%w: book %s is %s, violation is for %s", ErrStaleStatus, *event.BookID, previous.ToStatus, event.FromStatus)
	}
	if err := seal(event, previous); err != nil {
		return nil, err
	}
	if err := w.Insert(ctx, event); err != nil {
		return nil, err
	}

	l.logger.Debug("audit.event.appended",
		"event_id", event.ID,
		"event_type", event.EventType,
		"sequence", event.Sequence,
	)
	return event.Clone(), nil
}

// timestamp truncates to microseconds, the precision both sqlite and postgres keep.
func (l *Ledger) timestamp() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

// QueryAuditEvents returns one page of matching events, newest first.
func (l *Ledger) QueryAuditEvents(ctx context.Context, filter Filter, limit, offset int) (QueryResult, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if offset < 0 {
		offset = 0
	}
	events, total, err := l.reader.Query(ctx, filter, limit, offset)
	if err != nil {
		return QueryResult{}, err
	}
	if events == nil {
		events = []*Event{}
	}
	return QueryResult{
		Events:  events,
		Total:   total,
		HasMore: offset+len(events) < total,
	}, nil
}

// VerifyAuditIntegrity walks the book's chain in append order. Problems are
// reported as issues, never as errors; err is only set when the store fails.
func (l *Ledger) VerifyAuditIntegrity(ctx context.Context, bookID uuid.UUID) (IntegrityReport, error) {
	events, err := l.reader.ListForBook(ctx, bookID)
	if err != nil {
		return IntegrityReport{}, err
	}

	issues := []string{}
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if cur.Timestamp.Before(prev.Timestamp) {
			issues = append(issues, fmt.Sprintf("Timestamp out of order between events %s and %s", prev.ID, cur.ID))
		}
	}
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if prev.ToStatus != cur.FromStatus {
			issues = append(issues, fmt.Sprintf("Status gap between events: %s -> %s", prev.ToStatus, cur.FromStatus))
		}
	}

	expectedPrev := GenesisChecksum
	for i, event := range events {
		if event.Sequence != int64(i+1) {
			issues = append(issues, fmt.Sprintf("Sequence gap at event %s: expected %d, found %d", event.ID, i+1, event.Sequence))
		}
		if event.PrevChecksum != expectedPrev {
			issues = append(issues, fmt.Sprintf("Chain link broken at event %s", event.ID))
		}
		recomputed, err := ComputeChecksum(event.PrevChecksum, event)
		if err != nil || recomputed != event.Checksum {
			issues = append(issues, fmt.Sprintf("Checksum mismatch for event %s", event.ID))
		}
		expectedPrev = event.Checksum
	}

	report := IntegrityReport{
		Valid:  len(issues) == 0,
		Issues: issues,
		Events: events,
	}
	if report.Events == nil {
		report.Events = []*Event{}
	}
	if !report.Valid {
		l.logger.Warn("audit.integrity.violations",
			"book_id", bookID,
			"issues", len(issues),
		)
	}
	return report, nil
}

// ExportAuditEvents writes every matching event as one JSON document per line,
// oldest first, and returns the number written.
func (l *Ledger) ExportAuditEvents(ctx context.Context, filter Filter, out io.Writer) (int, error) {
	events, err := l.reader.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	encoder := json.NewEncoder(out)
	for idx, event := range events {
		if err := ctx.Err(); err != nil {
			return idx, err
		}
		if err := encoder.Encode(event); err != nil {
			return idx, fmt.Errorf("audit: export event %s: %w", event.ID, err)
		}
	}
	return len(events), nil
}
