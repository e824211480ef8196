package workflow

import "github.com/goliatone/go-publishing/internal/domain"

// ResolveTarget maps an action to the status it leads to from the current status in mode.
// APPROVE is mode-sensitive: SIMPLE publishes directly, STANDARD approves pending content
// and publishes approved content.
func ResolveTarget(current domain.Status, action domain.Action, mode domain.WorkflowMode) (domain.Status, bool) {
	switch action {
	case domain.ActionSubmit, domain.ActionResubmit:
		return domain.StatusPending, true
	case domain.ActionApprove:
		if mode == domain.WorkflowModeSimple {
			return domain.StatusPublished, true
		}
		switch current {
		case domain.StatusPending:
			return domain.StatusApproved, true
		case domain.StatusApproved:
			return domain.StatusPublished, true
		default:
			return "", false
		}
	case domain.ActionPublish:
		return domain.StatusPublished, true
	case domain.ActionRequestRevision, domain.ActionReject:
		return domain.StatusNeedsRevision, true
	case domain.ActionArchive:
		return domain.StatusArchived, true
	case domain.ActionRestore:
		return domain.StatusDraft, true
	default:
		return "", false
	}
}
