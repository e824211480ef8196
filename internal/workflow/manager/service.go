package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/idempotency"
	"github.com/goliatone/go-publishing/internal/logging"
	pubscheduler "github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/goliatone/go-publishing/internal/workflow"
	"github.com/goliatone/go-publishing/pkg/interfaces"
	"github.com/google/uuid"
)

// Service is the only entry point allowed to change a book's status.
type Service interface {
	ExecuteTransition(ctx context.Context, req TransitionRequest) (TransitionResult, error)
	ExecuteBulkTransitions(ctx context.Context, req BulkRequest) (BulkResult, error)
	GetOverdueBooks(ctx context.Context) (OverdueBooks, error)
	SendSLAReminders(ctx context.Context) (ReminderSummary, error)
	GetAvailableActions(ctx context.Context, bookID uuid.UUID, role domain.Role) ([]workflow.TransitionRule, error)
	GetBook(ctx context.Context, id uuid.UUID) (*books.Book, error)
	CreateDraft(ctx context.Context, input books.DraftInput) (*books.Book, error)
	Mode(ctx context.Context) (domain.WorkflowMode, error)
}

// Notifier dispatches notifications without blocking the caller.
type Notifier interface {
	DispatchTransition(ctx context.Context, notification interfaces.TransitionNotification)
	DispatchReminder(ctx context.Context, reminder interfaces.SLAReminder)
}

// ModeResolver returns the deployment's current workflow mode.
type ModeResolver func(ctx context.Context) (domain.WorkflowMode, error)

type cacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

type ServiceOption func(*service)

// WithClock overrides the clock used to stamp transitions.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

type IDGenerator func() uuid.UUID

func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithMode fixes the workflow mode.
func WithMode(mode domain.WorkflowMode) ServiceOption {
	return func(s *service) {
		s.mode = func(context.Context) (domain.WorkflowMode, error) { return mode, nil }
	}
}

// WithModeResolver resolves the workflow mode on every transition.
func WithModeResolver(resolver ModeResolver) ServiceOption {
	return func(s *service) {
		if resolver != nil {
			s.mode = resolver
		}
	}
}

func WithSLAConfig(cfg SLAConfig) ServiceOption {
	return func(s *service) {
		s.sla = cfg
	}
}

// WithScheduler registers SLA watcher jobs on the supplied scheduler.
func WithScheduler(scheduler interfaces.Scheduler) ServiceOption {
	return func(s *service) {
		if scheduler != nil {
			s.scheduler = scheduler
		}
	}
}

// WithIdempotencyStore enables replay of results for repeated idempotency keys.
func WithIdempotencyStore(store idempotency.Store, window time.Duration) ServiceOption {
	return func(s *service) {
		s.idempotency = store
		if window > 0 {
			s.idempotencyWindow = window
		}
	}
}

func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	catalog           *workflow.Catalog
	books             books.Repository
	uow               storage.UnitOfWork
	ledger            *audit.Ledger
	scheduler         interfaces.Scheduler
	idempotency       idempotency.Store
	idempotencyWindow time.Duration
	notifier          Notifier
	mode              ModeResolver
	sla               SLAConfig
	logger            interfaces.Logger
	now               func() time.Time
	id                IDGenerator
}

// NewService wires the orchestrator. Without options it runs in STANDARD mode,
// drops SLA watchers and notifications, and does not replay idempotency keys.
func NewService(catalog *workflow.Catalog, bookRepo books.Repository, uow storage.UnitOfWork, ledger *audit.Ledger, opts ...ServiceOption) Service {
	s := &service{
		catalog:           catalog,
		books:             bookRepo,
		uow:               uow,
		ledger:            ledger,
		scheduler:         pubscheduler.NewDisabled(),
		idempotencyWindow: idempotency.DefaultWindow,
		notifier:          noopNotifier{},
		sla:               DefaultSLAConfig(),
		logger:            logging.NoOp(),
		now:               time.Now,
		id:                uuid.New,
	}
	WithMode(domain.WorkflowModeStandard)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// plan is a transition that passed validation and is ready to commit.
type plan struct {
	book     *books.Book
	mode     domain.WorkflowMode
	target   domain.Status
	warnings []string
}

func (s *service) ExecuteTransition(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	logger := logging.WithTransitionContext(s.logger, req.BookID.String(), string(req.Action), req.ActorID)

	key := ""
	if strings.TrimSpace(req.IdempotencyKey) != "" {
		key, _ = idempotency.Key(req.IdempotencyKey)
		if cached, ok := s.replay(ctx, key, logger); ok {
			return cached, nil
		}
	}

	p, failed, err := s.prepare(ctx, req)
	if err != nil {
		logger.Error("workflow.transition.failed", "error", err)
		return internalFailure(req.BookID, err), fmt.Errorf("%w: %w", ErrTransitionFailed, err)
	}
	if failed != nil {
		logger.Info("workflow.transition.rejected", "failure", failed.Failure, "errors", failed.Errors)
		return *failed, nil
	}

	result, err := s.commit(ctx, req, p)
	if err != nil {
		switch {
		case errors.Is(err, books.ErrVersionConflict):
			logger.Warn("workflow.transition.conflict", "version", p.book.Version)
			return failure(p.book, FailureVersionConflict, workflow.MessageVersionMismatch), nil
		case books.IsNotFound(err):
			return notFound(req.BookID), nil
		default:
			logger.Error("workflow.transition.failed", "error", err)
			return internalFailure(req.BookID, err), fmt.Errorf("%w: %w", ErrTransitionFailed, err)
		}
	}

	logger.Info("workflow.transition.committed",
		"from", p.book.Status,
		"to", result.NewStatus,
		"version", result.Version,
		"audit_event_id", result.AuditEventID,
	)

	if key != "" {
		s.remember(ctx, key, result, logger)
	}
	s.afterCommit(ctx, req, p, result)
	return result, nil
}

// prepare loads the book, resolves the target and validates the hypothetical
// post-transition state. A non-nil result means the transition was rejected.
func (s *service) prepare(ctx context.Context, req TransitionRequest) (*plan, *TransitionResult, error) {
	if req.BookID == uuid.Nil {
		r := rejected(uuid.Nil, "", 0, FailureValidation, []string{"Book ID is required"}, nil)
		return nil, &r, nil
	}
	if strings.TrimSpace(req.ActorID) == "" {
		r := rejected(req.BookID, "", 0, FailureValidation, []string{"Actor ID is required"}, nil)
		return nil, &r, nil
	}

	book, err := s.books.GetByID(ctx, req.BookID)
	if err != nil {
		if books.IsNotFound(err) {
			r := notFound(req.BookID)
			return nil, &r, nil
		}
		return nil, nil, err
	}

	mode, err := s.mode(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve workflow mode: %w", err)
	}

	target, ok := workflow.ResolveTarget(book.Status, req.Action, mode)
	if !ok {
		r := failure(book, FailureInvalidAction, fmt.Sprintf("Invalid action %s for status %s", req.Action, book.Status))
		return nil, &r, nil
	}

	tctx := workflow.TransitionContext{
		Role:           req.ActorRole,
		Mode:           mode,
		Status:         book.Status,
		CurrentVersion: book.Version,
		PublishedAt:    book.PublishedAt,
		Fields:         transitionFields(book, req),
		Metadata:       transitionMetadata(req),
	}
	validation := s.catalog.ValidateTransition(book.Status, target, req.Action, tctx)

	post := tctx
	post.Status = target
	post.PublishedAt = nil
	if target == domain.StatusPublished {
		now := s.now()
		post.PublishedAt = &now
	}
	combined := workflow.Merge(validation, workflow.CheckInvariants(post))
	if !combined.Valid {
		r := rejected(book.ID, book.Status, book.Version, FailureValidation, combined.Errors, combined.Warnings)
		return nil, &r, nil
	}

	return &plan{book: book, mode: mode, target: target, warnings: combined.Warnings}, nil, nil
}

// commit applies the status change, the audit event and the SLA watcher in one transaction.
func (s *service) commit(ctx context.Context, req TransitionRequest, p *plan) (TransitionResult, error) {
	now := s.now().UTC()
	expected := p.book.Version
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
	}
	update := books.StatusUpdate{
		ID:              p.book.ID,
		ExpectedVersion: expected,
		Status:          p.target,
		UpdatedAt:       now,
	}
	if p.target == domain.StatusPublished {
		update.IsPublished = true
		update.PublishedAt = &now
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		update.LastReviewComment = &reason
	}

	var (
		event     *audit.Event
		triggered bool
	)
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Books().UpdateStatus(ctx, update); err != nil {
			return err
		}
		var err error
		event, err = s.ledger.CreateAuditEvent(ctx, tx.Audit(), audit.EventData{
			BookID:     p.book.ID,
			ActorID:    req.ActorID,
			Action:     req.Action,
			FromStatus: p.book.Status,
			ToStatus:   p.target,
			Reason:     req.Reason,
			TemplateID: req.TemplateID,
			Metadata:   req.Metadata,
		})
		if err != nil {
			return err
		}
		triggered, err = s.scheduleSLA(ctx, p.book.ID, p.target, expected+1, now, req.ActorID)
		return err
	})
	if err != nil {
		return TransitionResult{}, err
	}

	eventID := event.ID
	return TransitionResult{
		Success:           true,
		BookID:            p.book.ID,
		NewStatus:         p.target,
		Version:           expected + 1,
		Errors:            []string{},
		Warnings:          nonNil(p.warnings),
		AuditEventID:      &eventID,
		SLAAlertTriggered: triggered,
	}, nil
}

func (s *service) afterCommit(ctx context.Context, req TransitionRequest, p *plan, result TransitionResult) {
	s.releaseSLA(ctx, p.book.ID, p.book.Status, p.target)

	if invalidator, ok := s.books.(cacheInvalidator); ok {
		if err := invalidator.InvalidateCache(ctx); err != nil {
			s.logger.Warn("workflow.cache.invalidate_failed", "error", err)
		}
	}

	s.notifier.DispatchTransition(ctx, interfaces.TransitionNotification{
		BookID:     p.book.ID,
		Slug:       p.book.Slug,
		Title:      p.book.Title(),
		AuthorID:   p.book.AuthorID,
		FromStatus: string(p.book.Status),
		ToStatus:   string(result.NewStatus),
		Action:     string(req.Action),
		ActorID:    req.ActorID,
		ActorRole:  string(req.ActorRole),
		Reason:     req.Reason,
		TemplateID: req.TemplateID,
		Version:    result.Version,
		OccurredAt: s.now().UTC(),
	})
}

func (s *service) replay(ctx context.Context, key string, logger interfaces.Logger) (TransitionResult, bool) {
	if s.idempotency == nil || key == "" {
		return TransitionResult{}, false
	}
	raw, ok, err := s.idempotency.Get(ctx, key)
	if err != nil {
		logger.Warn("workflow.idempotency.lookup_failed", "error", err)
		return TransitionResult{}, false
	}
	if !ok {
		return TransitionResult{}, false
	}
	var cached TransitionResult
	if err := json.Unmarshal(raw, &cached); err != nil {
		logger.Warn("workflow.idempotency.decode_failed", "error", err)
		return TransitionResult{}, false
	}
	logger.Debug("workflow.idempotency.replayed")
	return cached, true
}

func (s *service) remember(ctx context.Context, key string, result TransitionResult, logger interfaces.Logger) {
	if s.idempotency == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		logger.Warn("workflow.idempotency.encode_failed", "error", err)
		return
	}
	if err := s.idempotency.Set(ctx, key, raw, s.idempotencyWindow); err != nil {
		logger.Warn("workflow.idempotency.store_failed", "error", err)
	}
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*books.Book, error) {
	return s.books.GetByID(ctx, id)
}

func (s *service) CreateDraft(ctx context.Context, input books.DraftInput) (*books.Book, error) {
	if input.ID == uuid.Nil {
		input.ID = s.id()
	}
	record, err := books.NewDraft(input, s.now().UTC())
	if err != nil {
		return nil, err
	}
	created, err := s.books.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("workflow.draft.created", "book_id", created.ID, "slug", created.Slug, "author_id", created.AuthorID)
	return created, nil
}

func (s *service) GetAvailableActions(ctx context.Context, bookID uuid.UUID, role domain.Role) ([]workflow.TransitionRule, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	mode, err := s.mode(ctx)
	if err != nil {
		return nil, err
	}
	return s.catalog.GetValidTransitions(book.Status, role, mode), nil
}

func (s *service) Mode(ctx context.Context) (domain.WorkflowMode, error) {
	return s.mode(ctx)
}

func transitionFields(book *books.Book, req TransitionRequest) map[string]any {
	fields := make(map[string]any, len(book.Fields)+1)
	for key, value := range book.Fields {
		fields[key] = value
	}
	if req.Action == domain.ActionRequestRevision || req.Action == domain.ActionReject {
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			fields["revisionReason"] = reason
		}
	}
	return fields
}

func transitionMetadata(req TransitionRequest) map[string]any {
	meta := make(map[string]any, len(req.Metadata)+2)
	for key, value := range req.Metadata {
		meta[key] = value
	}
	if req.TemplateID != "" {
		meta[workflow.MetadataTemplateID] = req.TemplateID
	}
	if req.ExpectedVersion != nil {
		meta[workflow.MetadataExpectedVersion] = *req.ExpectedVersion
	}
	return meta
}

func rejected(bookID uuid.UUID, status domain.Status, version int, code FailureCode, errs, warnings []string) TransitionResult {
	return TransitionResult{
		Success:   false,
		BookID:    bookID,
		NewStatus: status,
		Version:   version,
		Errors:    nonNil(errs),
		Warnings:  nonNil(warnings),
		Failure:   code,
	}
}

func failure(book *books.Book, code FailureCode, message string) TransitionResult {
	return rejected(book.ID, book.Status, book.Version, code, []string{message}, nil)
}

func notFound(id uuid.UUID) TransitionResult {
	return rejected(id, "", 0, FailureNotFound, []string{fmt.Sprintf("Book with ID %s not found", id)}, nil)
}

func internalFailure(id uuid.UUID, err error) TransitionResult {
	return rejected(id, "", 0, FailureInternal, []string{"Transition failed: " + err.Error()}, nil)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type noopNotifier struct{}

func (noopNotifier) DispatchTransition(context.Context, interfaces.TransitionNotification) {}
func (noopNotifier) DispatchReminder(context.Context, interfaces.SLAReminder)              {}
