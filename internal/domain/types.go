package domain

import "strings"

// WorkflowMode selects the publication path used by a deployment.
type WorkflowMode string

const (
	// WorkflowModeSimple publishes straight from review: DRAFT -> PENDING -> PUBLISHED.
	WorkflowModeSimple WorkflowMode = "SIMPLE"
	// WorkflowModeStandard adds an approval stage: DRAFT -> PENDING -> APPROVED -> PUBLISHED.
	WorkflowModeStandard WorkflowMode = "STANDARD"
)

// ParseWorkflowMode normalises the supplied value and reports whether it is a known mode.
func ParseWorkflowMode(value string) (WorkflowMode, bool) {
	mode := WorkflowMode(strings.ToUpper(strings.TrimSpace(value)))
	switch mode {
	case WorkflowModeSimple, WorkflowModeStandard:
		return mode, true
	default:
		return mode, false
	}
}

// Role identifies the caller-supplied role used for rule matching.
type Role string

const (
	RoleLearner      Role = "LEARNER"
	RoleTeacher      Role = "TEACHER"
	RoleVolunteer    Role = "VOLUNTEER"
	RoleStoryManager Role = "STORY_MANAGER"
	RoleBookManager  Role = "BOOK_MANAGER"
	RoleContentAdmin Role = "CONTENT_ADMIN"
	RoleAdmin        Role = "ADMIN"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{
		RoleLearner,
		RoleTeacher,
		RoleVolunteer,
		RoleStoryManager,
		RoleBookManager,
		RoleContentAdmin,
		RoleAdmin,
	}
}

// ParseRole normalises the supplied value and reports whether it is a known role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range Roles() {
		if role == known {
			return role, true
		}
	}
	return role, false
}

// Action names a transition request.
type Action string

const (
	ActionSubmit          Action = "SUBMIT"
	ActionResubmit        Action = "RESUBMIT"
	ActionApprove         Action = "APPROVE"
	ActionPublish         Action = "PUBLISH"
	ActionRequestRevision Action = "REQUEST_REVISION"
	ActionReject          Action = "REJECT"
	ActionArchive         Action = "ARCHIVE"
	ActionRestore         Action = "RESTORE"
)

// Actions lists every known action.
func Actions() []Action {
	return []Action{
		ActionSubmit,
		ActionResubmit,
		ActionApprove,
		ActionPublish,
		ActionRequestRevision,
		ActionReject,
		ActionArchive,
		ActionRestore,
	}
}

// ParseAction normalises the supplied value and reports whether it is a known action.
func ParseAction(value string) (Action, bool) {
	action := Action(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range Actions() {
		if action == known {
			return action, true
		}
	}
	return action, false
}
