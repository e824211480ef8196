package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-publishing/internal/audit"
	"github.com/goliatone/go-publishing/internal/commands"
	auditcmd "github.com/goliatone/go-publishing/internal/commands/audit"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/spf13/cobra"
)

const defaultReportWindow = 30 * 24 * time.Hour

func newAuditCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and verify the audit ledger",
	}
	cmd.AddCommand(
		newAuditVerifyCmd(c),
		newAuditReportCmd(c, auditcmd.ReportCompliance, "report", "Print a compliance report for a period"),
		newAuditReportCmd(c, auditcmd.ReportAnalytics, "analytics", "Print workflow analytics for a period"),
		newAuditQueryCmd(c),
		newAuditExportCmd(c),
	)
	return cmd
}

func newAuditVerifyCmd(c *cli) *cobra.Command {
	var bookID string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the checksum chain of a book",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseBookID(bookID)
			if err != nil {
				return err
			}
			var printErr error
			handler := auditcmd.NewVerifyAuditHandler(c.module.Ledger(), c.logger("audit"), func(report audit.IntegrityReport) {
				printErr = c.print(report)
			})
			if err := handler.Execute(cmd.Context(), auditcmd.VerifyAuditCommand{BookID: id}); err != nil {
				return err
			}
			return printErr
		},
	}
	cmd.Flags().StringVar(&bookID, "book", "", "Book id")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

// newAuditReportCmd runs the registered report handler, which always writes indented JSON.
func newAuditReportCmd(c *cli, kind, use, short string) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := reportPeriod(start, end, time.Now().UTC())
			if err != nil {
				return err
			}
			set := c.module.Container().AuditCommands()
			if set == nil {
				return fmt.Errorf("audit commands are not registered")
			}
			return set.Report.Execute(cmd.Context(), auditcmd.ReportAuditCommand{
				Kind:  kind,
				Start: from,
				End:   to,
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Period start, RFC3339 or YYYY-MM-DD (default 30 days ago)")
	cmd.Flags().StringVar(&end, "end", "", "Period end, RFC3339 or YYYY-MM-DD (default now)")
	return cmd
}

func newAuditQueryCmd(c *cli) *cobra.Command {
	var (
		bookID    string
		actorID   string
		action    string
		eventType string
		toStatus  string
		limit     int
		offset    int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Page through ledger events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := audit.Filter{
				ActorID:   strings.TrimSpace(actorID),
				Action:    strings.TrimSpace(action),
				EventType: audit.EventType(strings.TrimSpace(eventType)),
			}
			if bookID != "" {
				id, err := parseBookID(bookID)
				if err != nil {
					return err
				}
				filter.BookID = &id
			}
			if toStatus != "" {
				status, ok := domain.ParseStatus(toStatus)
				if !ok {
					return commands.WrapValidationError(fmt.Errorf("unknown status %q", toStatus))
				}
				filter.ToStatus = status
			}
			page, err := c.module.Ledger().QueryAuditEvents(cmd.Context(), filter, limit, offset)
			if err != nil {
				return err
			}
			return c.print(page)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&bookID, "book", "", "Book id")
	flags.StringVar(&actorID, "actor", "", "Actor id")
	flags.StringVar(&action, "action", "", "Action name")
	flags.StringVar(&eventType, "type", "", "Event type")
	flags.StringVar(&toStatus, "to-status", "", "Resulting status")
	flags.IntVar(&limit, "limit", 50, "Page size")
	flags.IntVar(&offset, "offset", 0, "Events to skip")
	return cmd
}

func newAuditExportCmd(c *cli) *cobra.Command {
	var (
		msg      auditcmd.ExportAuditCommand
		bookID   string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write matching ledger events as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bookID != "" {
				id, err := parseBookID(bookID)
				if err != nil {
					return err
				}
				msg.BookID = &id
			}
			for _, bound := range []struct {
				raw    string
				target **time.Time
			}{{from, &msg.From}, {to, &msg.To}} {
				if bound.raw == "" {
					continue
				}
				parsed, err := parseTime(bound.raw)
				if err != nil {
					return err
				}
				*bound.target = &parsed
			}
			set := c.module.Container().AuditCommands()
			if set == nil {
				return fmt.Errorf("audit commands are not registered")
			}
			return set.Export.Execute(cmd.Context(), msg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&bookID, "book", "", "Book id")
	flags.StringVar(&msg.ActorID, "actor", "", "Actor id")
	flags.StringVar(&msg.EventType, "type", "", "Event type")
	flags.StringVar(&msg.ToStatus, "to-status", "", "Resulting status")
	flags.StringVar(&from, "from", "", "Earliest timestamp, RFC3339 or YYYY-MM-DD")
	flags.StringVar(&to, "to", "", "Latest timestamp, RFC3339 or YYYY-MM-DD")
	return cmd
}

func reportPeriod(start, end string, now time.Time) (time.Time, time.Time, error) {
	to := now
	if end != "" {
		parsed, err := parseTime(end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	from := to.Add(-defaultReportWindow)
	if start != "" {
		parsed, err := parseTime(start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, commands.WrapValidationError(fmt.Errorf("invalid time %q, want RFC3339 or YYYY-MM-DD", raw))
}
