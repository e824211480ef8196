package audit

import (
	"context"
	"sort"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/google/uuid"
)

const (
	topReviewerLimit = 10
	commonIssueLimit = 5
)

var reviewActions = map[string]struct{}{
	string(domain.ActionApprove):         {},
	string(domain.ActionPublish):         {},
	string(domain.ActionRequestRevision): {},
	string(domain.ActionReject):          {},
}

// GenerateComplianceReport aggregates the status changes recorded in [start, end].
func (l *Ledger) GenerateComplianceReport(ctx context.Context, start, end time.Time) (ComplianceReport, error) {
	if end.Before(start) {
		return ComplianceReport{}, ErrInvalidRange
	}
	events, err := l.reader.List(ctx, Filter{EventType: EventStatusChange, FromDate: &start, ToDate: &end})
	if err != nil {
		return ComplianceReport{}, err
	}
	violations, err := l.reader.List(ctx, Filter{EventType: EventSLAViolation, FromDate: &start, ToDate: &end})
	if err != nil {
		return ComplianceReport{}, err
	}

	report := ComplianceReport{
		PeriodStart:           start,
		PeriodEnd:             end,
		TotalEvents:           len(events),
		StatusDistribution:    map[domain.Status]int{},
		ActionDistribution:    map[string]int{},
		AverageProcessingTime: averageStageHours(groupByBook(events)),
		SLAViolations:         len(violations),
		TopReviewers:          []ActorCount{},
		RejectionReasons:      []TemplateCount{},
	}

	actors := map[string]int{}
	templates := map[string]int{}
	for _, event := range events {
		report.StatusDistribution[event.ToStatus]++
		report.ActionDistribution[event.Action]++
		if event.ActorID != "" {
			actors[event.ActorID]++
		}
		if event.TemplateID != "" && event.ToStatus == domain.StatusNeedsRevision {
			templates[event.TemplateID]++
		}
	}

	for actor, count := range actors {
		report.TopReviewers = append(report.TopReviewers, ActorCount{ActorID: actor, Count: count})
	}
	sort.Slice(report.TopReviewers, func(i, j int) bool {
		a, b := report.TopReviewers[i], report.TopReviewers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ActorID < b.ActorID
	})
	if len(report.TopReviewers) > topReviewerLimit {
		report.TopReviewers = report.TopReviewers[:topReviewerLimit]
	}

	for template, count := range templates {
		report.RejectionReasons = append(report.RejectionReasons, TemplateCount{TemplateID: template, Count: count})
	}
	sort.Slice(report.RejectionReasons, func(i, j int) bool {
		a, b := report.RejectionReasons[i], report.RejectionReasons[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.TemplateID < b.TemplateID
	})
	return report, nil
}

// GenerateAnalyticsMetrics derives efficiency, reviewer and quality metrics from
// the full status history of books published in [start, end].
func (l *Ledger) GenerateAnalyticsMetrics(ctx context.Context, start, end time.Time) (AnalyticsMetrics, error) {
	if end.Before(start) {
		return AnalyticsMetrics{}, ErrInvalidRange
	}
	published, err := l.reader.List(ctx, Filter{
		EventType: EventStatusChange,
		ToStatus:  domain.StatusPublished,
		FromDate:  &start,
		ToDate:    &end,
	})
	if err != nil {
		return AnalyticsMetrics{}, err
	}

	histories := map[uuid.UUID][]*Event{}
	var order []uuid.UUID
	for _, event := range published {
		if event.BookID == nil {
			continue
		}
		if _, seen := histories[*event.BookID]; seen {
			continue
		}
		chain, err := l.reader.ListForBook(ctx, *event.BookID)
		if err != nil {
			return AnalyticsMetrics{}, err
		}
		histories[*event.BookID] = statusChanges(chain)
		order = append(order, *event.BookID)
	}

	metrics := AnalyticsMetrics{
		PeriodStart:         start,
		PeriodEnd:           end,
		PublishedBooks:      len(order),
		ReviewerPerformance: []ReviewerPerformance{},
		WorkflowEfficiency:  WorkflowEfficiency{BottleneckStages: []string{}},
		ContentQuality:      ContentQuality{CommonIssues: []string{}},
	}
	if len(order) == 0 {
		return metrics, nil
	}

	metrics.WorkflowEfficiency = workflowEfficiency(histories, order)
	metrics.ReviewerPerformance = reviewerPerformance(histories, order)
	metrics.ContentQuality = contentQuality(histories, order)
	return metrics, nil
}

func statusChanges(events []*Event) []*Event {
	out := make([]*Event, 0, len(events))
	for _, event := range events {
		if event.EventType == EventStatusChange {
			out = append(out, event)
		}
	}
	return out
}

func groupByBook(events []*Event) [][]*Event {
	index := map[uuid.UUID]int{}
	var groups [][]*Event
	for _, event := range events {
		if event.BookID == nil {
			continue
		}
		pos, ok := index[*event.BookID]
		if !ok {
			pos = len(groups)
			index[*event.BookID] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], event)
	}
	return groups
}

func stageKey(event *Event) string {
	return string(event.FromStatus) + "_to_" + string(event.ToStatus)
}

func hoursBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours()
}

// averageStageHours reports, per FROM_to_TO pair, the mean hours a book spent in
// FROM before moving to TO. The dwell time is measured from the previous event.
func averageStageHours(chains [][]*Event) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, chain := range chains {
		for i := 1; i < len(chain); i++ {
			key := stageKey(chain[i])
			sums[key] += hoursBetween(chain[i-1].Timestamp, chain[i].Timestamp)
			counts[key]++
		}
	}
	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	return out
}

func workflowEfficiency(histories map[uuid.UUID][]*Event, order []uuid.UUID) WorkflowEfficiency {
	result := WorkflowEfficiency{BottleneckStages: []string{}}

	var total float64
	var measured, revisions int
	chains := make([][]*Event, 0, len(order))
	for _, id := range order {
		chain := histories[id]
		chains = append(chains, chain)

		var started, finished *Event
		for _, event := range chain {
			if started == nil && event.FromStatus == domain.StatusDraft {
				started = event
			}
			if started != nil && finished == nil && event.ToStatus == domain.StatusPublished {
				finished = event
			}
			if event.ToStatus == domain.StatusNeedsRevision {
				revisions++
			}
		}
		if started != nil && finished != nil {
			total += hoursBetween(started.Timestamp, finished.Timestamp)
			measured++
		}
	}
	if measured > 0 {
		result.AverageTimeToPublication = total / float64(measured)
	}
	result.RejectionRate = float64(revisions) / float64(len(order))

	stages := averageStageHours(chains)
	if len(stages) > 0 {
		var mean float64
		for _, hours := range stages {
			mean += hours
		}
		mean /= float64(len(stages))
		for key, hours := range stages {
			if hours > mean {
				result.BottleneckStages = append(result.BottleneckStages, key)
			}
		}
		sort.Slice(result.BottleneckStages, func(i, j int) bool {
			a, b := result.BottleneckStages[i], result.BottleneckStages[j]
			if stages[a] != stages[b] {
				return stages[a] > stages[b]
			}
			return a < b
		})
	}
	return result
}

func reviewerPerformance(histories map[uuid.UUID][]*Event, order []uuid.UUID) []ReviewerPerformance {
	type tally struct {
		reviews   int
		rejects   int
		waitHours float64
		timed     int
	}
	tallies := map[string]*tally{}
	for _, id := range order {
		chain := histories[id]
		for i, event := range chain {
			if _, ok := reviewActions[event.Action]; !ok || event.ActorID == "" {
				continue
			}
			t := tallies[event.ActorID]
			if t == nil {
				t = &tally{}
				tallies[event.ActorID] = t
			}
			t.reviews++
			if event.ToStatus == domain.StatusNeedsRevision {
				t.rejects++
			}
			if i > 0 {
				t.waitHours += hoursBetween(chain[i-1].Timestamp, event.Timestamp)
				t.timed++
			}
		}
	}

	out := make([]ReviewerPerformance, 0, len(tallies))
	for reviewer, t := range tallies {
		perf := ReviewerPerformance{
			ReviewerID:    reviewer,
			ReviewCount:   t.reviews,
			RejectionRate: float64(t.rejects) / float64(t.reviews),
		}
		if t.timed > 0 {
			perf.AverageReviewTime = t.waitHours / float64(t.timed)
		}
		out = append(out, perf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReviewCount != out[j].ReviewCount {
			return out[i].ReviewCount > out[j].ReviewCount
		}
		return out[i].ReviewerID < out[j].ReviewerID
	})
	return out
}

// contentQuality counts a book as a first pass approval when it was approved out
// of PENDING before ever entering NEEDS_REVISION.
func contentQuality(histories map[uuid.UUID][]*Event, order []uuid.UUID) ContentQuality {
	result := ContentQuality{CommonIssues: []string{}}

	var submitted, firstPass, cycles int
	issues := map[string]int{}
	for _, id := range order {
		chain := histories[id]
		revised := false
		approvedFirst := false
		hasSubmit := false
		for _, event := range chain {
			switch {
			case event.Action == string(domain.ActionSubmit):
				hasSubmit = true
			case event.ToStatus == domain.StatusNeedsRevision:
				revised = true
				cycles++
				if key := issueKey(event); key != "" {
					issues[key]++
				}
			case event.Action == string(domain.ActionApprove) && event.FromStatus == domain.StatusPending:
				if !revised {
					approvedFirst = true
				}
			}
		}
		if hasSubmit {
			submitted++
			if approvedFirst {
				firstPass++
			}
		}
	}

	if submitted > 0 {
		result.FirstPassApprovalRate = float64(firstPass) / float64(submitted)
	}
	result.AverageRevisionCycles = float64(cycles) / float64(len(order))

	keys := make([]string, 0, len(issues))
	for key := range issues {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if issues[keys[i]] != issues[keys[j]] {
			return issues[keys[i]] > issues[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > commonIssueLimit {
		keys = keys[:commonIssueLimit]
	}
	result.CommonIssues = append(result.CommonIssues, keys...)
	return result
}

func issueKey(event *Event) string {
	if event.TemplateID != "" {
		return event.TemplateID
	}
	return event.Reason
}
