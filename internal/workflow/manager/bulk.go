package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/storage"
)

const bulkOperation = "BULK_TRANSITION"

// ExecuteBulkTransitions runs each request independently and never aborts the
// batch on a single failure. Dry runs validate only and write nothing, not
// even the bulk audit event.
func (s *service) ExecuteBulkTransitions(ctx context.Context, req BulkRequest) (BulkResult, error) {
	out := BulkResult{
		Results: make([]TransitionResult, 0, len(req.Requests)),
		Summary: BulkSummary{Errors: []string{}},
	}

	for _, item := range req.Requests {
		var result TransitionResult
		if req.DryRun {
			result = s.dryRun(ctx, item)
		} else {
			result, _ = s.ExecuteTransition(ctx, item)
		}
		out.Results = append(out.Results, result)
		if result.Success {
			out.Summary.Successful++
			continue
		}
		out.Summary.Failed++
		out.Summary.Errors = append(out.Summary.Errors, fmt.Sprintf("Book %s: %s", item.BookID, strings.Join(result.Errors, "; ")))
	}
	out.Summary.Total = len(out.Results)

	if req.DryRun || len(req.Requests) == 0 {
		return out, nil
	}

	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		actorID = req.Requests[0].ActorID
	}
	items := make([]audit.BulkItemResult, 0, len(out.Results))
	for i, result := range out.Results {
		items = append(items, audit.BulkItemResult{
			BookID:  req.Requests[i].BookID,
			Success: result.Success,
			Errors:  result.Errors,
		})
	}

	var event *audit.Event
	err := s.uow.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		event, err = s.ledger.CreateBulkAuditEvent(ctx, tx.Audit(), actorID, bulkOperation, items)
		return err
	})
	if err != nil {
		// Individual transitions are already committed with their own events.
		s.logger.Error("workflow.bulk.audit_failed", "error", err, "total", out.Summary.Total)
		return out, fmt.Errorf("%w: record bulk audit event: %w", ErrTransitionFailed, err)
	}
	eventID := event.ID
	out.AuditEventID = &eventID
	s.logger.Info("workflow.bulk.completed",
		"total", out.Summary.Total,
		"successful", out.Summary.Successful,
		"failed", out.Summary.Failed,
	)
	return out, nil
}

func (s *service) dryRun(ctx context.Context, req TransitionRequest) TransitionResult {
	p, failed, err := s.prepare(ctx, req)
	if err != nil {
		result := internalFailure(req.BookID, err)
		result.DryRun = true
		return result
	}
	if failed != nil {
		failed.DryRun = true
		return *failed
	}
	return TransitionResult{
		Success:   true,
		BookID:    p.book.ID,
		NewStatus: p.target,
		Version:   p.book.Version,
		Errors:    []string{},
		Warnings:  nonNil(p.warnings),
		DryRun:    true,
	}
}

