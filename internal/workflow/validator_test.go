package workflow_test

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/workflow"
)

func authoredFields() map[string]any {
	return map[string]any{
		"title":      "T",
		"authorName": "A",
		"content":    "C",
	}
}

func contains(values []string, needle string) bool {
	for _, value := range values {
		if strings.Contains(value, needle) {
			return true
		}
	}
	return false
}

func TestValidateTransition_SubmitByTeacher(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	result := catalog.ValidateTransition(domain.StatusDraft, domain.StatusPending, domain.ActionSubmit, workflow.TransitionContext{
		Role:   domain.RoleTeacher,
		Mode:   domain.WorkflowModeStandard,
		Fields: authoredFields(),
	})
	if !result.Valid {
		t.Fatalf("expected submit to be valid, got errors %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
}

func TestValidateTransition_AccumulatesEveryFailure(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	result := catalog.ValidateTransition(domain.StatusDraft, domain.StatusPending, domain.ActionSubmit, workflow.TransitionContext{
		Role:           domain.RoleAdmin,
		Mode:           domain.WorkflowModeSimple,
		CurrentVersion: 3,
		Fields:         map[string]any{"title": "  ", "content": "C"},
		Metadata:       map[string]any{workflow.MetadataExpectedVersion: 2},
	})
	if result.Valid {
		t.Fatal("expected validation failure")
	}
	expected := []string{
		"Role ADMIN is not authorized to perform SUBMIT",
		"Required field 'title' is missing or empty",
		"Required field 'authorName' is missing or empty",
		workflow.MessageVersionMismatch,
	}
	if len(result.Errors) != len(expected) {
		t.Fatalf("expected %d errors, got %v", len(expected), result.Errors)
	}
	for i, message := range expected {
		if result.Errors[i] != message {
			t.Fatalf("error %d: expected %q, got %q", i, message, result.Errors[i])
		}
	}
}

func TestValidateTransition_ExpectedVersionMustMatchExactly(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()
	cases := []struct {
		name     string
		expected any
		valid    bool
	}{
		{"int", 1, true},
		{"whole float from json", float64(1), true},
		{"fractional float", 1.9, false},
		{"just below", 0.999, false},
		{"numeric string", "1", true},
		{"not a number", "one", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := catalog.ValidateTransition(domain.StatusDraft, domain.StatusPending, domain.ActionSubmit, workflow.TransitionContext{
				Role:           domain.RoleLearner,
				Mode:           domain.WorkflowModeStandard,
				CurrentVersion: 1,
				Fields:         map[string]any{"title": "T", "authorName": "A", "content": "C"},
				Metadata:       map[string]any{workflow.MetadataExpectedVersion: tc.expected},
			})
			if result.Valid != tc.valid {
				t.Fatalf("expectedVersion %v: valid=%v errors=%v", tc.expected, result.Valid, result.Errors)
			}
			if !tc.valid && !contains(result.Errors, workflow.MessageVersionMismatch) {
				t.Fatalf("expected version mismatch, got %v", result.Errors)
			}
		})
	}
}

func TestValidateTransition_PublishRequiresProductionFields(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	fields := map[string]any{"pdfPath": "/books/b.pdf", "pageCount": 0}
	result := catalog.ValidateTransition(domain.StatusApproved, domain.StatusPublished, domain.ActionPublish, workflow.TransitionContext{
		Role:   domain.RoleContentAdmin,
		Mode:   domain.WorkflowModeStandard,
		Fields: fields,
	})
	if result.Valid {
		t.Fatal("expected publish to fail")
	}
	if !contains(result.Errors, "Required field 'checksum' is missing or empty") {
		t.Fatalf("expected checksum error, got %v", result.Errors)
	}
	if !contains(result.Errors, "Field 'pageCount' must be greater than 0") {
		t.Fatalf("expected pageCount condition error, got %v", result.Errors)
	}
	if !contains(result.Errors, "Field 'checksum' must exist") {
		t.Fatalf("expected checksum condition error, got %v", result.Errors)
	}
}

func TestValidateTransition_PublishAcceptsJSONNumbers(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	result := catalog.ValidateTransition(domain.StatusApproved, domain.StatusPublished, domain.ActionPublish, workflow.TransitionContext{
		Role: domain.RoleAdmin,
		Mode: domain.WorkflowModeStandard,
		Fields: map[string]any{
			"pdfPath":   "/books/b.pdf",
			"pageCount": float64(24),
			"checksum":  "abc123",
		},
	})
	if !result.Valid {
		t.Fatalf("expected publish to pass, got %v", result.Errors)
	}
}

func TestValidateTransition_ModeMismatch(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	result := catalog.ValidateTransition(domain.StatusPending, domain.StatusPublished, domain.ActionApprove, workflow.TransitionContext{
		Role:   domain.RoleStoryManager,
		Mode:   domain.WorkflowModeStandard,
		Fields: map[string]any{"title": "T", "authorName": "A", "content": "C", "summary": "S"},
	})
	if result.Valid {
		t.Fatal("expected direct publish to be rejected in standard mode")
	}
	if result.Errors[0] != "Transition from PENDING to PUBLISHED with action APPROVE is not allowed in STANDARD mode" {
		t.Fatalf("unexpected error %q", result.Errors[0])
	}
}

func TestValidateTransition_AlreadyArchivedForAnyRole(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	for _, role := range domain.Roles() {
		result := catalog.ValidateTransition(domain.StatusArchived, domain.StatusArchived, domain.ActionArchive, workflow.TransitionContext{
			Role: role,
			Mode: domain.WorkflowModeStandard,
		})
		if result.Valid {
			t.Fatalf("expected failure for role %s", role)
		}
		if !contains(result.Errors, workflow.MessageAlreadyArchived) {
			t.Fatalf("role %s: expected already archived error, got %v", role, result.Errors)
		}
	}
}

func TestValidateTransition_BackwardTransitionsDenied(t *testing.T) {
	rules := append(workflow.DefaultRules(), workflow.TransitionRule{
		From:         domain.StatusPublished,
		To:           domain.StatusPending,
		Action:       domain.ActionSubmit,
		AllowedRoles: []domain.Role{domain.RoleAdmin},
	})
	catalog, err := workflow.NewCatalog(rules)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	result := catalog.ValidateTransition(domain.StatusPublished, domain.StatusPending, domain.ActionSubmit, workflow.TransitionContext{
		Role: domain.RoleAdmin,
		Mode: domain.WorkflowModeSimple,
	})
	if result.Valid {
		t.Fatal("expected backward transition to be denied even with a matching rule")
	}
	if result.Errors[0] != "Backward transition from PUBLISHED to PENDING is not allowed" {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
}

func TestValidateTransition_ArchivedRestoresOnlyToDraft(t *testing.T) {
	catalog := workflow.MustDefaultCatalog(domain.RoleAdmin)

	restore := catalog.ValidateTransition(domain.StatusArchived, domain.StatusDraft, domain.ActionRestore, workflow.TransitionContext{
		Role: domain.RoleAdmin,
		Mode: domain.WorkflowModeStandard,
	})
	if !restore.Valid {
		t.Fatalf("expected restore to be valid with restore roles configured, got %v", restore.Errors)
	}

	resubmit := catalog.ValidateTransition(domain.StatusArchived, domain.StatusPending, domain.ActionSubmit, workflow.TransitionContext{
		Role:   domain.RoleTeacher,
		Mode:   domain.WorkflowModeStandard,
		Fields: authoredFields(),
	})
	if !contains(resubmit.Errors, workflow.MessageRestoreToDraftOnly) {
		t.Fatalf("expected restore-to-draft error, got %v", resubmit.Errors)
	}
}

func TestValidateTransition_RestoreWithoutConfiguredRoles(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	result := catalog.ValidateTransition(domain.StatusArchived, domain.StatusDraft, domain.ActionRestore, workflow.TransitionContext{
		Role: domain.RoleAdmin,
		Mode: domain.WorkflowModeStandard,
	})
	if result.Valid {
		t.Fatal("expected restore to be rejected without a restore rule")
	}
}

func TestValidateTransition_RevisionTemplateWarning(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()
	ctx := workflow.TransitionContext{
		Role:   domain.RoleBookManager,
		Mode:   domain.WorkflowModeSimple,
		Fields: map[string]any{"revisionReason": "needs pictures"},
	}

	result := catalog.ValidateTransition(domain.StatusPending, domain.StatusNeedsRevision, domain.ActionRequestRevision, ctx)
	if !result.Valid {
		t.Fatalf("expected valid revision request, got %v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != workflow.MessageRejectionTemplate {
		t.Fatalf("expected template warning, got %v", result.Warnings)
	}

	ctx.Metadata = map[string]any{workflow.MetadataTemplateID: "tpl-illustrations"}
	result = catalog.ValidateTransition(domain.StatusPending, domain.StatusNeedsRevision, domain.ActionReject, ctx)
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warning with template, got %v", result.Warnings)
	}
}

func TestValidateTransition_ExpectedVersionMatches(t *testing.T) {
	catalog := workflow.MustDefaultCatalog()

	result := catalog.ValidateTransition(domain.StatusDraft, domain.StatusPending, domain.ActionSubmit, workflow.TransitionContext{
		Role:           domain.RoleLearner,
		Mode:           domain.WorkflowModeSimple,
		CurrentVersion: 4,
		Fields:         authoredFields(),
		Metadata:       map[string]any{workflow.MetadataExpectedVersion: float64(4)},
	})
	if !result.Valid {
		t.Fatalf("expected matching version to pass, got %v", result.Errors)
	}
}

func TestCheckInvariants(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name     string
		ctx      workflow.TransitionContext
		errors   []string
		warnings []string
	}{
		{
			name:   "published without timestamp",
			ctx:    workflow.TransitionContext{Status: domain.StatusPublished, Role: domain.RoleAdmin},
			errors: []string{workflow.MessagePublishedWithoutTimestamp},
		},
		{
			name:   "timestamp without publish",
			ctx:    workflow.TransitionContext{Status: domain.StatusArchived, PublishedAt: &now, Role: domain.RoleAdmin},
			errors: []string{workflow.MessagePublishedAtWithoutPublish},
		},
		{
			name:     "learner publishing",
			ctx:      workflow.TransitionContext{Status: domain.StatusPublished, PublishedAt: &now, Role: domain.RoleLearner},
			warnings: []string{workflow.MessageLearnerPublishing},
		},
		{
			name: "consistent draft",
			ctx:  workflow.TransitionContext{Status: domain.StatusDraft, Role: domain.RoleTeacher},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := workflow.CheckInvariants(tc.ctx)
			if result.Valid != (len(tc.errors) == 0) {
				t.Fatalf("expected valid=%v, got %v (%v)", len(tc.errors) == 0, result.Valid, result.Errors)
			}
			if len(result.Errors) != len(tc.errors) {
				t.Fatalf("expected errors %v, got %v", tc.errors, result.Errors)
			}
			for i := range tc.errors {
				if result.Errors[i] != tc.errors[i] {
					t.Fatalf("expected error %q, got %q", tc.errors[i], result.Errors[i])
				}
			}
			if len(result.Warnings) != len(tc.warnings) {
				t.Fatalf("expected warnings %v, got %v", tc.warnings, result.Warnings)
			}
		})
	}
}
