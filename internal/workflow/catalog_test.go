package workflow_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/workflow"
)

func TestGetValidTransitions_FiltersByRoleAndMode(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	simple := catalog.GetValidTransitions(domain.StatusPending, domain.RoleStoryManager, domain.WorkflowModeSimple)
	targets := map[domain.Status]bool{}
	for _, rule := range simple {
		targets[rule.To] = true
	}
	if !targets[domain.StatusPublished] || !targets[domain.StatusNeedsRevision] {
		t.Fatalf("expected publish and revision options in simple mode, got %+v", simple)
	}
	if targets[domain.StatusApproved] {
		t.Fatal("did not expect APPROVED target in simple mode")
	}

	standard := catalog.GetValidTransitions(domain.StatusPending, domain.RoleStoryManager, domain.WorkflowModeStandard)
	for _, rule := range standard {
		if rule.To == domain.StatusPublished {
			t.Fatal("did not expect direct publish in standard mode")
		}
	}

	if got := catalog.GetValidTransitions(domain.StatusPending, domain.RoleLearner, domain.WorkflowModeStandard); len(got) != 0 {
		t.Fatalf("expected learners to have no pending transitions, got %+v", got)
	}
}

func TestIsTransitionAllowed(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	if !catalog.IsTransitionAllowed(domain.StatusPending, domain.StatusPublished, domain.ActionApprove, domain.RoleAdmin, domain.WorkflowModeSimple) {
		t.Fatal("expected admin approve in simple mode")
	}
	if catalog.IsTransitionAllowed(domain.StatusPending, domain.StatusApproved, domain.ActionApprove, domain.RoleAdmin, domain.WorkflowModeStandard) {
		t.Fatal("expected admin to be excluded from standard approval")
	}
	if !catalog.IsTransitionAllowed(domain.StatusApproved, domain.StatusPublished, domain.ActionPublish, domain.RoleAdmin, domain.WorkflowModeStandard) {
		t.Fatal("expected admin publish regardless of missing fields")
	}
	if catalog.IsTransitionAllowed(domain.StatusPublished, domain.StatusArchived, domain.ActionArchive, domain.RoleContentAdmin, domain.WorkflowModeStandard) {
		t.Fatal("expected only admins to archive published books")
	}
}

func TestWorkflowSteps(t *testing.T) {
	simple := workflow.WorkflowSteps(domain.WorkflowModeSimple)
	if len(simple) != 3 || simple[2] != domain.StatusPublished {
		t.Fatalf("unexpected simple steps %v", simple)
	}
	standard := workflow.WorkflowSteps(domain.WorkflowModeStandard)
	if len(standard) != 4 || standard[2] != domain.StatusApproved {
		t.Fatalf("unexpected standard steps %v", standard)
	}
}

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		current domain.Status
		action  domain.Action
		mode    domain.WorkflowMode
		want    domain.Status
		ok      bool
	}{
		{domain.StatusDraft, domain.ActionSubmit, domain.WorkflowModeStandard, domain.StatusPending, true},
		{domain.StatusNeedsRevision, domain.ActionResubmit, domain.WorkflowModeSimple, domain.StatusPending, true},
		{domain.StatusPending, domain.ActionApprove, domain.WorkflowModeSimple, domain.StatusPublished, true},
		{domain.StatusPending, domain.ActionApprove, domain.WorkflowModeStandard, domain.StatusApproved, true},
		{domain.StatusApproved, domain.ActionApprove, domain.WorkflowModeStandard, domain.StatusPublished, true},
		{domain.StatusDraft, domain.ActionApprove, domain.WorkflowModeStandard, "", false},
		{domain.StatusPending, domain.ActionReject, domain.WorkflowModeStandard, domain.StatusNeedsRevision, true},
		{domain.StatusArchived, domain.ActionRestore, domain.WorkflowModeStandard, domain.StatusDraft, true},
		{domain.StatusDraft, domain.Action("TRANSLATE"), domain.WorkflowModeStandard, "", false},
	}
	for _, tc := range cases {
		got, ok := workflow.ResolveTarget(tc.current, tc.action, tc.mode)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s/%s/%s: expected (%s,%v), got (%s,%v)", tc.current, tc.action, tc.mode, tc.want, tc.ok, got, ok)
		}
	}
}

func TestNewCatalog_RejectsInvalidRules(t *testing.T) {
	cases := []struct {
		name string
		rule workflow.TransitionRule
		err  error
	}{
		{
			name: "unknown status",
			rule: workflow.TransitionRule{From: "REVIEW", To: domain.StatusPending, Action: domain.ActionSubmit, AllowedRoles: []domain.Role{domain.RoleAdmin}},
			err:  workflow.ErrRuleStatusUnknown,
		},
		{
			name: "no roles",
			rule: workflow.TransitionRule{From: domain.StatusDraft, To: domain.StatusPending, Action: domain.ActionSubmit},
			err:  workflow.ErrRuleRolesRequired,
		},
		{
			name: "unknown operator",
			rule: workflow.TransitionRule{
				From: domain.StatusDraft, To: domain.StatusPending, Action: domain.ActionSubmit,
				AllowedRoles: []domain.Role{domain.RoleAdmin},
				Conditions:   []workflow.Condition{{Field: "pageCount", Operator: "between"}},
			},
			err: workflow.ErrConditionOperatorUnknown,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := workflow.NewCatalog([]workflow.TransitionRule{tc.rule})
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestNewCatalog_RejectsDuplicateRules(t *testing.T) {
	rules := workflow.DefaultRules()
	rules = append(rules, rules[0])

	_, err := workflow.NewCatalog(rules)
	if !errors.Is(err, workflow.ErrDuplicateRule) {
		t.Fatalf("expected duplicate rule error, got %v", err)
	}
}
