package workflow

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-publishing/internal/domain"
)

const (
	// MessageVersionMismatch is reported when the caller's expected version is stale.
	MessageVersionMismatch = "Version mismatch detected. Please refresh and try again."
	// MessageAlreadyArchived is reported for ARCHIVED -> ARCHIVED requests.
	MessageAlreadyArchived = "Content is already archived"
	// MessageRestoreToDraftOnly is reported when archived content targets anything but DRAFT.
	MessageRestoreToDraftOnly = "Archived content can only be restored to DRAFT status"
	// MessageRejectionTemplate recommends a template when sending content back for revision.
	MessageRejectionTemplate = "Consider using a rejection template for consistent feedback"
	// MessagePublishedAtWithoutPublish flags a publish timestamp on unpublished content.
	MessagePublishedAtWithoutPublish = "Book has publishedAt date but status is not PUBLISHED"
	// MessagePublishedWithoutTimestamp flags published content lacking its timestamp.
	MessagePublishedWithoutTimestamp = "Published book must have publishedAt timestamp"
	// MessageLearnerPublishing is a monitoring warning for low-privilege publishers.
	MessageLearnerPublishing = "Learner attempting to publish content - verify permissions"
)

type statusPair struct {
	from domain.Status
	to   domain.Status
}

var backwardTransitions = map[statusPair]struct{}{
	{from: domain.StatusPublished, to: domain.StatusApproved}: {},
	{from: domain.StatusPublished, to: domain.StatusPending}:  {},
	{from: domain.StatusApproved, to: domain.StatusPending}:   {},
}

// ValidateTransition runs the full gate for a transition. Every failure is collected;
// business rules run even when no catalog rule matches.
func (c *Catalog) ValidateTransition(from, to domain.Status, action domain.Action, ctx TransitionContext) ValidationResult {
	var result ValidationResult

	rule, found := c.FindRule(from, to, action, ctx.Mode)
	if !found {
		result.fail(fmt.Sprintf("Transition from %s to %s with action %s is not allowed in %s mode", from, to, action, ctx.Mode))
	} else {
		if !rule.Allows(ctx.Role) {
			result.fail(fmt.Sprintf("Role %s is not authorized to perform %s", ctx.Role, action))
		}
		for _, field := range rule.RequiredFields {
			if isMissing(ctx.Fields[field]) {
				result.fail(fmt.Sprintf("Required field '%s' is missing or empty", field))
			}
		}
		for _, condition := range rule.Conditions {
			if message, ok := evaluateCondition(condition, ctx.Fields); !ok {
				result.fail(message)
			}
		}
	}

	checkBusinessRules(&result, from, to, ctx)
	return result.finish()
}

// CheckInvariants validates cross-field consistency of the (hypothetical) content state.
func CheckInvariants(ctx TransitionContext) ValidationResult {
	var result ValidationResult

	if ctx.PublishedAt != nil && ctx.Status != domain.StatusPublished {
		result.fail(MessagePublishedAtWithoutPublish)
	}
	if ctx.Status == domain.StatusPublished && ctx.PublishedAt == nil {
		result.fail(MessagePublishedWithoutTimestamp)
	}
	if ctx.Role == domain.RoleLearner && ctx.Status == domain.StatusPublished {
		result.warn(MessageLearnerPublishing)
	}
	return result.finish()
}

func checkBusinessRules(result *ValidationResult, from, to domain.Status, ctx TransitionContext) {
	if _, denied := backwardTransitions[statusPair{from: from, to: to}]; denied {
		result.fail(fmt.Sprintf("Backward transition from %s to %s is not allowed", from, to))
	}
	if from == domain.StatusArchived && to == domain.StatusArchived {
		result.fail(MessageAlreadyArchived)
	}
	if from == domain.StatusArchived && to != domain.StatusDraft {
		result.fail(MessageRestoreToDraftOnly)
	}
	if to == domain.StatusNeedsRevision && isMissing(ctx.Metadata[MetadataTemplateID]) {
		result.warn(MessageRejectionTemplate)
	}
	if raw, ok := ctx.Metadata[MetadataExpectedVersion]; ok && raw != nil {
		expected, numeric := toFloat(raw)
		if !numeric || expected != float64(ctx.CurrentVersion) {
			result.fail(MessageVersionMismatch)
		}
	}
}

func evaluateCondition(condition Condition, fields map[string]any) (string, bool) {
	value, present := fields[condition.Field]
	exists := present && value != nil

	switch condition.Operator {
	case OperatorEquals:
		if !valuesEqual(value, condition.Value) {
			return fmt.Sprintf("Field '%s' must equal %v", condition.Field, condition.Value), false
		}
	case OperatorNotEquals:
		if valuesEqual(value, condition.Value) {
			return fmt.Sprintf("Field '%s' must not equal %v", condition.Field, condition.Value), false
		}
	case OperatorExists:
		if !exists {
			return fmt.Sprintf("Field '%s' must exist", condition.Field), false
		}
	case OperatorNotExists:
		if exists {
			return fmt.Sprintf("Field '%s' must not exist", condition.Field), false
		}
	case OperatorGreaterThan:
		actual, okA := toFloat(value)
		limit, okL := toFloat(condition.Value)
		if !okA || !okL || !(actual > limit) {
			return fmt.Sprintf("Field '%s' must be greater than %v", condition.Field, condition.Value), false
		}
	case OperatorLessThan:
		actual, okA := toFloat(value)
		limit, okL := toFloat(condition.Value)
		if !okA || !okL || !(actual < limit) {
			return fmt.Sprintf("Field '%s' must be less than %v", condition.Field, condition.Value), false
		}
	default:
		return fmt.Sprintf("Field '%s' uses unsupported operator %s", condition.Field, condition.Operator), false
	}
	return "", true
}

func isMissing(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func valuesEqual(actual, expected any) bool {
	if a, ok := toFloat(actual); ok {
		if e, ok := toFloat(expected); ok {
			return a == e
		}
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case interface{ Float64() (float64, error) }:
		parsed, err := v.Float64()
		return parsed, err == nil
	default:
		return 0, false
	}
}
