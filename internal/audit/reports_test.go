package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

type step struct {
	at       time.Duration
	actor    string
	action   domain.Action
	from, to domain.Status
	template string
	reason   string
}

func seedHistory(t *testing.T, ledger *audit.Ledger, store *audit.MemoryStore, clock *manualClock, base time.Time, bookID uuid.UUID, steps []step) {
	t.Helper()
	for _, s := range steps {
		clock.now = base.Add(s.at)
		_, err := ledger.CreateAuditEvent(context.Background(), store, audit.EventData{
			BookID:     bookID,
			ActorID:    s.actor,
			Action:     s.action,
			FromStatus: s.from,
			ToStatus:   s.to,
			TemplateID: s.template,
			Reason:     s.reason,
		})
		require.NoError(t, err)
	}
}

func reportFixture(t *testing.T) (*audit.Ledger, time.Time) {
	t.Helper()
	store := audit.NewMemoryStore()
	clock := &manualClock{}
	ledger := audit.NewLedger(store, audit.WithClock(clock.Now))
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Book A: straight through, approved first time.
	seedHistory(t, ledger, store, clock, base, uuid.New(), []step{
		{0, "author-a", domain.ActionSubmit, domain.StatusDraft, domain.StatusPending, "", ""},
		{10 * time.Hour, "reviewer-1", domain.ActionApprove, domain.StatusPending, domain.StatusApproved, "", ""},
		{12 * time.Hour, "admin-1", domain.ActionPublish, domain.StatusApproved, domain.StatusPublished, "", ""},
	})

	// Book B: one revision cycle before approval.
	bookB := uuid.New()
	seedHistory(t, ledger, store, clock, base, bookB, []step{
		{0, "author-b", domain.ActionSubmit, domain.StatusDraft, domain.StatusPending, "", ""},
		{20 * time.Hour, "reviewer-1", domain.ActionRequestRevision, domain.StatusPending, domain.StatusNeedsRevision, "tpl-grammar", "fix grammar"},
		{30 * time.Hour, "author-b", domain.ActionResubmit, domain.StatusNeedsRevision, domain.StatusPending, "", ""},
		{40 * time.Hour, "reviewer-2", domain.ActionApprove, domain.StatusPending, domain.StatusApproved, "", ""},
		{44 * time.Hour, "admin-1", domain.ActionPublish, domain.StatusApproved, domain.StatusPublished, "", ""},
	})

	clock.now = base.Add(50 * time.Hour)
	_, err := ledger.CreateSLAViolationEvent(context.Background(), store, bookB, domain.StatusPublished, audit.ViolationReviewOverdue, 48)
	require.NoError(t, err)

	// Book C: never published, still waiting on revision.
	seedHistory(t, ledger, store, clock, base, uuid.New(), []step{
		{1 * time.Hour, "author-c", domain.ActionSubmit, domain.StatusDraft, domain.StatusPending, "", ""},
		{5 * time.Hour, "reviewer-2", domain.ActionReject, domain.StatusPending, domain.StatusNeedsRevision, "tpl-grammar", ""},
	})
	return ledger, base
}

func TestGenerateComplianceReport(t *testing.T) {
	ledger, base := reportFixture(t)

	report, err := ledger.GenerateComplianceReport(context.Background(), base, base.Add(72*time.Hour))
	require.NoError(t, err)

	require.Equal(t, 10, report.TotalEvents)
	require.Equal(t, 1, report.SLAViolations)
	require.Equal(t, 4, report.StatusDistribution[domain.StatusPending])
	require.Equal(t, 2, report.StatusDistribution[domain.StatusPublished])
	require.Equal(t, 2, report.StatusDistribution[domain.StatusNeedsRevision])
	require.Equal(t, 3, report.ActionDistribution["SUBMIT"])
	require.Equal(t, 1, report.ActionDistribution["REJECT"])

	require.InDelta(t, 10.0, report.AverageProcessingTime["PENDING_to_APPROVED"], 0.001)
	require.InDelta(t, 3.0, report.AverageProcessingTime["APPROVED_to_PUBLISHED"], 0.001)
	require.InDelta(t, 12.0, report.AverageProcessingTime["PENDING_to_NEEDS_REVISION"], 0.001)

	require.Equal(t, audit.ActorCount{ActorID: "admin-1", Count: 2}, report.TopReviewers[0])
	require.Equal(t, []audit.TemplateCount{{TemplateID: "tpl-grammar", Count: 2}}, report.RejectionReasons)
}

func TestGenerateComplianceReportRejectsInvertedRange(t *testing.T) {
	ledger := audit.NewLedger(audit.NewMemoryStore())
	now := time.Now()
	_, err := ledger.GenerateComplianceReport(context.Background(), now, now.Add(-time.Hour))
	require.ErrorIs(t, err, audit.ErrInvalidRange)
}

func TestGenerateAnalyticsMetrics(t *testing.T) {
	ledger, base := reportFixture(t)

	metrics, err := ledger.GenerateAnalyticsMetrics(context.Background(), base, base.Add(72*time.Hour))
	require.NoError(t, err)

	require.Equal(t, 2, metrics.PublishedBooks)
	// Book A took 12h, book B took 44h.
	require.InDelta(t, 28.0, metrics.WorkflowEfficiency.AverageTimeToPublication, 0.001)
	require.InDelta(t, 0.5, metrics.WorkflowEfficiency.RejectionRate, 0.001)
	require.NotEmpty(t, metrics.WorkflowEfficiency.BottleneckStages)
	require.Equal(t, "PENDING_to_NEEDS_REVISION", metrics.WorkflowEfficiency.BottleneckStages[0])

	require.InDelta(t, 0.5, metrics.ContentQuality.FirstPassApprovalRate, 0.001)
	require.InDelta(t, 0.5, metrics.ContentQuality.AverageRevisionCycles, 0.001)
	require.Equal(t, []string{"tpl-grammar"}, metrics.ContentQuality.CommonIssues)

	byReviewer := map[string]audit.ReviewerPerformance{}
	for _, perf := range metrics.ReviewerPerformance {
		byReviewer[perf.ReviewerID] = perf
	}
	require.Equal(t, 2, byReviewer["reviewer-1"].ReviewCount)
	require.InDelta(t, 0.5, byReviewer["reviewer-1"].RejectionRate, 0.001)
	require.InDelta(t, 15.0, byReviewer["reviewer-1"].AverageReviewTime, 0.001)
	require.Equal(t, 1, byReviewer["reviewer-2"].ReviewCount)
	require.Equal(t, 2, byReviewer["admin-1"].ReviewCount)
}

func TestGenerateAnalyticsMetricsWithoutPublications(t *testing.T) {
	ledger := audit.NewLedger(audit.NewMemoryStore())
	now := time.Now()
	metrics, err := ledger.GenerateAnalyticsMetrics(context.Background(), now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.Zero(t, metrics.PublishedBooks)
	require.Empty(t, metrics.ReviewerPerformance)
	require.Empty(t, metrics.WorkflowEfficiency.BottleneckStages)
}
