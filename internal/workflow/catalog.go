package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-publishing/internal/domain"
)

var (
	// ErrRuleStatusUnknown indicates a rule references a status that does not exist.
	ErrRuleStatusUnknown = errors.New("workflow: rule references unknown status")
	// ErrRuleActionUnknown indicates a rule references an unknown action.
	ErrRuleActionUnknown = errors.New("workflow: rule references unknown action")
	// ErrRuleRoleUnknown indicates a rule allows a role that does not exist.
	ErrRuleRoleUnknown = errors.New("workflow: rule references unknown role")
	// ErrRuleRolesRequired indicates a rule does not allow any role.
	ErrRuleRolesRequired = errors.New("workflow: rule requires at least one allowed role")
	// ErrRuleModeUnknown indicates a rule is scoped to an unknown workflow mode.
	ErrRuleModeUnknown = errors.New("workflow: rule references unknown mode")
	// ErrConditionFieldRequired indicates a condition lacks its field name.
	ErrConditionFieldRequired = errors.New("workflow: condition field required")
	// ErrConditionOperatorUnknown indicates a condition uses an unsupported operator.
	ErrConditionOperatorUnknown = errors.New("workflow: condition operator unknown")
	// ErrDuplicateRule indicates two rules match the same (from, to, action, mode).
	ErrDuplicateRule = errors.New("workflow: duplicate rule")
)

type ruleKey struct {
	from   domain.Status
	action domain.Action
	mode   domain.WorkflowMode
}

// Catalog holds the declarative rule table, indexed by (from, action, mode).
// The rule slice stays the single source of truth; the index only speeds up lookups.
type Catalog struct {
	rules []TransitionRule
	index map[ruleKey][]int
}

// NewCatalog validates and indexes the supplied rules.
func NewCatalog(rules []TransitionRule) (*Catalog, error) {
	catalog := &Catalog{
		rules: make([]TransitionRule, 0, len(rules)),
		index: make(map[ruleKey][]int),
	}
	seen := make(map[string]struct{}, len(rules))

	for idx, rule := range rules {
		if err := validateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", idx, err)
		}
		position := len(catalog.rules)
		catalog.rules = append(catalog.rules, cloneRule(rule))

		for _, mode := range modesOf(rule) {
			dedupe := fmt.Sprintf("%s::%s::%s::%s", rule.From, rule.To, rule.Action, mode)
			if _, exists := seen[dedupe]; exists {
				return nil, fmt.Errorf("%w: %s -> %s via %s in %s mode", ErrDuplicateRule, rule.From, rule.To, rule.Action, mode)
			}
			seen[dedupe] = struct{}{}

			key := ruleKey{from: rule.From, action: rule.Action, mode: mode}
			catalog.index[key] = append(catalog.index[key], position)
		}
	}
	return catalog, nil
}

// MustDefaultCatalog builds the catalog from DefaultRules and panics on invalid input.
func MustDefaultCatalog(restoreRoles ...domain.Role) *Catalog {
	catalog, err := NewCatalog(DefaultRules(restoreRoles...))
	if err != nil {
		panic(err)
	}
	return catalog
}

// Rules returns a copy of the rule table in declaration order.
func (c *Catalog) Rules() []TransitionRule {
	out := make([]TransitionRule, 0, len(c.rules))
	for _, rule := range c.rules {
		out = append(out, cloneRule(rule))
	}
	return out
}

// GetValidTransitions lists the rules available from status for role in mode.
func (c *Catalog) GetValidTransitions(from domain.Status, role domain.Role, mode domain.WorkflowMode) []TransitionRule {
	var out []TransitionRule
	for _, rule := range c.rules {
		if rule.From != from || !rule.AppliesTo(mode) || !rule.Allows(role) {
			continue
		}
		out = append(out, cloneRule(rule))
	}
	return out
}

// IsTransitionAllowed checks rule existence and role membership, ignoring fields and conditions.
func (c *Catalog) IsTransitionAllowed(from, to domain.Status, action domain.Action, role domain.Role, mode domain.WorkflowMode) bool {
	rule, ok := c.FindRule(from, to, action, mode)
	if !ok {
		return false
	}
	return rule.Allows(role)
}

// FindRule returns the single rule matching (from, to, action, mode).
func (c *Catalog) FindRule(from, to domain.Status, action domain.Action, mode domain.WorkflowMode) (TransitionRule, bool) {
	for _, position := range c.index[ruleKey{from: from, action: action, mode: mode}] {
		rule := c.rules[position]
		if rule.To == to {
			return cloneRule(rule), true
		}
	}
	return TransitionRule{}, false
}

// WorkflowSteps returns the canonical publication path for mode.
func WorkflowSteps(mode domain.WorkflowMode) []domain.Status {
	if mode == domain.WorkflowModeSimple {
		return []domain.Status{domain.StatusDraft, domain.StatusPending, domain.StatusPublished}
	}
	return []domain.Status{domain.StatusDraft, domain.StatusPending, domain.StatusApproved, domain.StatusPublished}
}

func validateRule(rule TransitionRule) error {
	if _, ok := domain.ParseStatus(string(rule.From)); !ok {
		return fmt.Errorf("%w: %q", ErrRuleStatusUnknown, rule.From)
	}
	if _, ok := domain.ParseStatus(string(rule.To)); !ok {
		return fmt.Errorf("%w: %q", ErrRuleStatusUnknown, rule.To)
	}
	if _, ok := domain.ParseAction(string(rule.Action)); !ok {
		return fmt.Errorf("%w: %q", ErrRuleActionUnknown, rule.Action)
	}
	if len(rule.AllowedRoles) == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrRuleRolesRequired, rule.From, rule.To)
	}
	for _, role := range rule.AllowedRoles {
		if _, ok := domain.ParseRole(string(role)); !ok {
			return fmt.Errorf("%w: %q", ErrRuleRoleUnknown, role)
		}
	}
	for _, mode := range rule.ApplicableModes {
		if _, ok := domain.ParseWorkflowMode(string(mode)); !ok {
			return fmt.Errorf("%w: %q", ErrRuleModeUnknown, mode)
		}
	}
	for _, condition := range rule.Conditions {
		if strings.TrimSpace(condition.Field) == "" {
			return ErrConditionFieldRequired
		}
		if !condition.Operator.valid() {
			return fmt.Errorf("%w: %q", ErrConditionOperatorUnknown, condition.Operator)
		}
	}
	return nil
}

func modesOf(rule TransitionRule) []domain.WorkflowMode {
	if len(rule.ApplicableModes) == 0 {
		return []domain.WorkflowMode{domain.WorkflowModeSimple, domain.WorkflowModeStandard}
	}
	return rule.ApplicableModes
}

func cloneRule(rule TransitionRule) TransitionRule {
	clone := rule
	clone.AllowedRoles = append([]domain.Role(nil), rule.AllowedRoles...)
	clone.RequiredFields = append([]string(nil), rule.RequiredFields...)
	clone.Conditions = append([]Condition(nil), rule.Conditions...)
	clone.ApplicableModes = append([]domain.WorkflowMode(nil), rule.ApplicableModes...)
	return clone
}
