package domain

import internaldomain "github.com/goliatone/go-publishing/internal/domain"

// Status represents the publishing lifecycle state of a book.
type Status = internaldomain.Status

// WorkflowMode selects the publication path used by a deployment.
type WorkflowMode = internaldomain.WorkflowMode

// Role identifies the caller-supplied role used for rule matching.
type Role = internaldomain.Role

// Action names a transition request.
type Action = internaldomain.Action

const (
	StatusDraft         = internaldomain.StatusDraft
	StatusPending       = internaldomain.StatusPending
	StatusNeedsRevision = internaldomain.StatusNeedsRevision
	StatusApproved      = internaldomain.StatusApproved
	StatusPublished     = internaldomain.StatusPublished
	StatusArchived      = internaldomain.StatusArchived

	WorkflowModeSimple   = internaldomain.WorkflowModeSimple
	WorkflowModeStandard = internaldomain.WorkflowModeStandard

	RoleLearner      = internaldomain.RoleLearner
	RoleTeacher      = internaldomain.RoleTeacher
	RoleVolunteer    = internaldomain.RoleVolunteer
	RoleStoryManager = internaldomain.RoleStoryManager
	RoleBookManager  = internaldomain.RoleBookManager
	RoleContentAdmin = internaldomain.RoleContentAdmin
	RoleAdmin        = internaldomain.RoleAdmin

	ActionSubmit          = internaldomain.ActionSubmit
	ActionResubmit        = internaldomain.ActionResubmit
	ActionApprove         = internaldomain.ActionApprove
	ActionPublish         = internaldomain.ActionPublish
	ActionRequestRevision = internaldomain.ActionRequestRevision
	ActionReject          = internaldomain.ActionReject
	ActionArchive         = internaldomain.ActionArchive
	ActionRestore         = internaldomain.ActionRestore
)
