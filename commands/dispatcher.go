package commands

import (
	"fmt"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	auditcmd "github.com/goliatone/go-publishing/internal/commands/audit"
	workflowcmd "github.com/goliatone/go-publishing/internal/commands/workflow"
)

// GoCommandDispatcher subscribes publishing handlers to the process-wide go-command
// dispatcher, so hosts can run a transition with dispatcher.Dispatch(ctx, msg).
// The runner options apply to every subscription, e.g. runner.WithMaxRetries.
func GoCommandDispatcher(opts ...runner.Option) CommandDispatcher {
	return goCommandDispatcher{opts: opts}
}

type goCommandDispatcher struct {
	opts []runner.Option
}

func (d goCommandDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	switch h := handler.(type) {
	case *workflowcmd.TransitionHandler:
		return dispatcher.SubscribeCommand[workflowcmd.TransitionCommand](h, d.opts...), nil
	case *workflowcmd.BulkTransitionHandler:
		return dispatcher.SubscribeCommand[workflowcmd.BulkTransitionCommand](h, d.opts...), nil
	case *workflowcmd.SLARemindersHandler:
		return dispatcher.SubscribeCommand[workflowcmd.SLARemindersCommand](h, d.opts...), nil
	case *workflowcmd.SLAJobsHandler:
		return dispatcher.SubscribeCommand[workflowcmd.SLAJobsCommand](h, d.opts...), nil
	case *auditcmd.VerifyAuditHandler:
		return dispatcher.SubscribeCommand[auditcmd.VerifyAuditCommand](h, d.opts...), nil
	case *auditcmd.ReportAuditHandler:
		return dispatcher.SubscribeCommand[auditcmd.ReportAuditCommand](h, d.opts...), nil
	case *auditcmd.ExportAuditHandler:
		return dispatcher.SubscribeCommand[auditcmd.ExportAuditCommand](h, d.opts...), nil
	default:
		return nil, fmt.Errorf("publishing commands: no dispatcher binding for %T", handler)
	}
}
