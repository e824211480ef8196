package workflow

import (
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
)

const (
	// MetadataTemplateID carries the rejection template chosen by a reviewer.
	MetadataTemplateID = "templateId"
	// MetadataExpectedVersion carries the version the caller last observed.
	MetadataExpectedVersion = "expectedVersion"
)

// TransitionContext describes the content and caller a transition is evaluated against.
type TransitionContext struct {
	Role           domain.Role
	Mode           domain.WorkflowMode
	Status         domain.Status
	CurrentVersion int
	PublishedAt    *time.Time
	Fields         map[string]any
	Metadata       map[string]any
}

// ValidationResult accumulates every failure found by a check.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) fail(message string) {
	r.Errors = append(r.Errors, message)
}

func (r *ValidationResult) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

func (r *ValidationResult) finish() ValidationResult {
	r.Valid = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return *r
}

// Merge combines two results, keeping every error and warning.
func Merge(results ...ValidationResult) ValidationResult {
	var merged ValidationResult
	for _, result := range results {
		merged.Errors = append(merged.Errors, result.Errors...)
		merged.Warnings = append(merged.Warnings, result.Warnings...)
	}
	return merged.finish()
}
