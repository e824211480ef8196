package workflow_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/workflow"
)

const yamlCatalog = `
rules:
  - from: DRAFT
    to: PENDING
    action: SUBMIT
    allowedRoles: [TEACHER]
    requiredFields: [title]
  - from: PENDING
    to: PUBLISHED
    action: APPROVE
    allowedRoles: [ADMIN]
    conditions:
      - field: pageCount
        operator: greaterThan
        value: 10
    applicableModes: [SIMPLE]
`

func TestLoadCatalog_YAML(t *testing.T) {
	catalog, err := workflow.LoadCatalog(strings.NewReader(yamlCatalog), workflow.FormatYAML)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if len(catalog.Rules()) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(catalog.Rules()))
	}

	result := catalog.ValidateTransition(domain.StatusPending, domain.StatusPublished, domain.ActionApprove, workflow.TransitionContext{
		Role:   domain.RoleAdmin,
		Mode:   domain.WorkflowModeSimple,
		Fields: map[string]any{"pageCount": 4},
	})
	if result.Valid || result.Errors[0] != "Field 'pageCount' must be greater than 10" {
		t.Fatalf("expected condition failure from loaded rule, got %v", result.Errors)
	}
}

func TestLoadCatalog_JSON(t *testing.T) {
	doc := `{"rules":[{"from":"DRAFT","to":"ARCHIVED","action":"ARCHIVE","allowedRoles":["ADMIN"]}]}`

	catalog, err := workflow.LoadCatalog(strings.NewReader(doc), workflow.FormatJSON)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if !catalog.IsTransitionAllowed(domain.StatusDraft, domain.StatusArchived, domain.ActionArchive, domain.RoleAdmin, domain.WorkflowModeStandard) {
		t.Fatal("expected rule without modes to apply to standard mode")
	}
}

func TestLoadCatalog_SchemaViolation(t *testing.T) {
	doc := `
rules:
  - from: DRAFT
    to: LIMBO
    action: SUBMIT
    allowedRoles: [TEACHER]
`
	_, err := workflow.LoadCatalog(strings.NewReader(doc), workflow.FormatYAML)
	if !errors.Is(err, workflow.ErrCatalogDocumentInvalid) {
		t.Fatalf("expected document invalid error, got %v", err)
	}
	if !strings.Contains(err.Error(), "/rules/0/to") {
		t.Fatalf("expected error to point at the offending field, got %v", err)
	}
}

func TestLoadCatalog_UnsupportedFormat(t *testing.T) {
	_, err := workflow.LoadCatalog(strings.NewReader("rules = []"), workflow.Format("toml"))
	if !errors.Is(err, workflow.ErrCatalogFormatUnsupported) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}
