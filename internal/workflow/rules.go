package workflow

import "github.com/goliatone/go-publishing/internal/domain"

// Operator names the comparison applied by a Condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "notEquals"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "notExists"
	OperatorGreaterThan Operator = "greaterThan"
	OperatorLessThan    Operator = "lessThan"
)

func (o Operator) valid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorExists, OperatorNotExists, OperatorGreaterThan, OperatorLessThan:
		return true
	default:
		return false
	}
}

// Condition is a predicate evaluated against the content field set.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// TransitionRule declares one legal (from, to, action) move.
// An empty ApplicableModes list applies the rule to every mode.
type TransitionRule struct {
	From            domain.Status         `json:"from" yaml:"from"`
	To              domain.Status         `json:"to" yaml:"to"`
	Action          domain.Action         `json:"action" yaml:"action"`
	AllowedRoles    []domain.Role         `json:"allowedRoles" yaml:"allowedRoles"`
	RequiredFields  []string              `json:"requiredFields,omitempty" yaml:"requiredFields,omitempty"`
	Conditions      []Condition           `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	ApplicableModes []domain.WorkflowMode `json:"applicableModes,omitempty" yaml:"applicableModes,omitempty"`
}

// AppliesTo reports whether the rule is active for mode.
func (r TransitionRule) AppliesTo(mode domain.WorkflowMode) bool {
	if len(r.ApplicableModes) == 0 {
		return true
	}
	for _, candidate := range r.ApplicableModes {
		if candidate == mode {
			return true
		}
	}
	return false
}

// Allows reports whether role is listed in AllowedRoles.
func (r TransitionRule) Allows(role domain.Role) bool {
	for _, candidate := range r.AllowedRoles {
		if candidate == role {
			return true
		}
	}
	return false
}

var (
	authorRoles   = []domain.Role{domain.RoleLearner, domain.RoleTeacher, domain.RoleVolunteer}
	reviewerRoles = []domain.Role{domain.RoleStoryManager, domain.RoleBookManager, domain.RoleContentAdmin, domain.RoleAdmin}
	managerRoles  = []domain.Role{domain.RoleStoryManager, domain.RoleBookManager}
	adminRoles    = []domain.Role{domain.RoleContentAdmin, domain.RoleAdmin}
	archiveRoles  = []domain.Role{domain.RoleAdmin, domain.RoleContentAdmin}

	bothModes    = []domain.WorkflowMode{domain.WorkflowModeSimple, domain.WorkflowModeStandard}
	simpleOnly   = []domain.WorkflowMode{domain.WorkflowModeSimple}
	standardOnly = []domain.WorkflowMode{domain.WorkflowModeStandard}

	authoringFields = []string{"title", "authorName", "content"}
	reviewFields    = []string{"title", "authorName", "content", "summary"}
	productionReady = []string{"pdfPath", "pageCount", "checksum"}
)

// DefaultRules returns the built-in rule table. restoreRoles, when non-empty, adds an
// explicit ARCHIVED -> DRAFT RESTORE row limited to those roles.
func DefaultRules(restoreRoles ...domain.Role) []TransitionRule {
	rules := []TransitionRule{
		{
			From:            domain.StatusDraft,
			To:              domain.StatusPending,
			Action:          domain.ActionSubmit,
			AllowedRoles:    authorRoles,
			RequiredFields:  authoringFields,
			ApplicableModes: bothModes,
		},
		{
			From:            domain.StatusPending,
			To:              domain.StatusPublished,
			Action:          domain.ActionApprove,
			AllowedRoles:    reviewerRoles,
			RequiredFields:  reviewFields,
			ApplicableModes: simpleOnly,
		},
		{
			From:            domain.StatusPending,
			To:              domain.StatusApproved,
			Action:          domain.ActionApprove,
			AllowedRoles:    managerRoles,
			RequiredFields:  reviewFields,
			ApplicableModes: standardOnly,
		},
		{
			From:           domain.StatusApproved,
			To:             domain.StatusPublished,
			Action:         domain.ActionPublish,
			AllowedRoles:   adminRoles,
			RequiredFields: productionReady,
			Conditions: []Condition{
				{Field: "pageCount", Operator: OperatorGreaterThan, Value: 0},
				{Field: "checksum", Operator: OperatorExists},
			},
			ApplicableModes: standardOnly,
		},
		{
			From:            domain.StatusPending,
			To:              domain.StatusNeedsRevision,
			Action:          domain.ActionRequestRevision,
			AllowedRoles:    reviewerRoles,
			RequiredFields:  []string{"revisionReason"},
			ApplicableModes: bothModes,
		},
		{
			From:            domain.StatusPending,
			To:              domain.StatusNeedsRevision,
			Action:          domain.ActionReject,
			AllowedRoles:    reviewerRoles,
			RequiredFields:  []string{"revisionReason"},
			ApplicableModes: bothModes,
		},
		{
			From:            domain.StatusApproved,
			To:              domain.StatusNeedsRevision,
			Action:          domain.ActionRequestRevision,
			AllowedRoles:    adminRoles,
			RequiredFields:  []string{"revisionReason"},
			ApplicableModes: standardOnly,
		},
		{
			From:            domain.StatusApproved,
			To:              domain.StatusNeedsRevision,
			Action:          domain.ActionReject,
			AllowedRoles:    adminRoles,
			RequiredFields:  []string{"revisionReason"},
			ApplicableModes: standardOnly,
		},
		{
			From:            domain.StatusNeedsRevision,
			To:              domain.StatusPending,
			Action:          domain.ActionResubmit,
			AllowedRoles:    authorRoles,
			RequiredFields:  authoringFields,
			ApplicableModes: bothModes,
		},
		{
			From:            domain.StatusDraft,
			To:              domain.StatusArchived,
			Action:          domain.ActionArchive,
			AllowedRoles:    archiveRoles,
			ApplicableModes: bothModes,
		},
		{
			From:            domain.StatusPending,
			To:              domain.StatusArchived,
			Action:          domain.ActionArchive,
			AllowedRoles:    archiveRoles,
			ApplicableModes: bothModes,
		},
		{
			From:            domain.StatusNeedsRevision,
			To:              domain.StatusArchived,
			Action:          domain.ActionArchive,
			AllowedRoles:    archiveRoles,
			ApplicableModes: bothModes,
		},
		{
			From:            domain.StatusApproved,
			To:              domain.StatusArchived,
			Action:          domain.ActionArchive,
			AllowedRoles:    archiveRoles,
			ApplicableModes: standardOnly,
		},
		{
			From:            domain.StatusPublished,
			To:              domain.StatusArchived,
			Action:          domain.ActionArchive,
			AllowedRoles:    []domain.Role{domain.RoleAdmin},
			ApplicableModes: bothModes,
		},
	}

	if len(restoreRoles) > 0 {
		rules = append(rules, TransitionRule{
			From:            domain.StatusArchived,
			To:              domain.StatusDraft,
			Action:          domain.ActionRestore,
			AllowedRoles:    append([]domain.Role(nil), restoreRoles...),
			ApplicableModes: bothModes,
		})
	}
	return rules
}
