package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-publishing/internal/books"
	"github.com/goliatone/go-publishing/internal/commands"
	workflowcmd "github.com/goliatone/go-publishing/internal/commands/workflow"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/workflow/manager"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDraftCmd(c *cli) *cobra.Command {
	draft := &cobra.Command{
		Use:   "draft",
		Short: "Create and inspect draft books",
	}

	var (
		authorID string
		title    string
		slug     string
		fields   []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a DRAFT book",
		Example: `  publishing draft create --author u-1 --title "Kiko and the River" \
    --field authorName=Lena --field content="Kiko followed the river"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := parseFields(fields)
			if err != nil {
				return err
			}
			if strings.TrimSpace(title) != "" {
				values["title"] = title
			}
			book, err := c.module.Workflow().CreateDraft(cmd.Context(), books.DraftInput{
				AuthorID: authorID,
				Slug:     slug,
				Fields:   values,
			})
			if err != nil {
				return err
			}
			return c.print(book)
		},
	}
	create.Flags().StringVar(&authorID, "author", "", "Author id")
	create.Flags().StringVar(&title, "title", "", "Book title")
	create.Flags().StringVar(&slug, "slug", "", "Slug, derived from the title when empty")
	create.Flags().StringArrayVar(&fields, "field", nil, "Content field as key=value, repeatable")
	_ = create.MarkFlagRequired("author")

	var bookID string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print a book",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseBookID(bookID)
			if err != nil {
				return err
			}
			book, err := c.module.Workflow().GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.print(book)
		},
	}
	show.Flags().StringVar(&bookID, "book", "", "Book id")
	_ = show.MarkFlagRequired("book")

	draft.AddCommand(create, show)
	return draft
}

func newTransitionCmd(c *cli) *cobra.Command {
	var (
		msg             workflowcmd.TransitionCommand
		bookID          string
		expectedVersion int
	)
	cmd := &cobra.Command{
		Use:   "transition",
		Short: "Apply a workflow action to a book",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseBookID(bookID)
			if err != nil {
				return err
			}
			msg.BookID = id
			if expectedVersion > 0 {
				version := expectedVersion
				msg.ExpectedVersion = &version
			}

			var printErr error
			handler := workflowcmd.NewTransitionHandler(c.module.Workflow(), c.logger("workflow"), func(result manager.TransitionResult) {
				printErr = c.print(result)
			})
			if err := handler.Execute(cmd.Context(), msg); err != nil {
				return err
			}
			return printErr
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&bookID, "book", "", "Book id")
	flags.StringVar(&msg.Action, "action", "", "Action: submit, approve, publish, request_revision, reject, archive, restore")
	flags.StringVar(&msg.ActorID, "actor", "", "Actor id")
	flags.StringVar(&msg.ActorRole, "role", "", "Actor role, e.g. BOOK_MANAGER")
	flags.StringVar(&msg.Reason, "reason", "", "Review comment recorded with the transition")
	flags.StringVar(&msg.TemplateID, "template", "", "Review template id")
	flags.StringVar(&msg.IdempotencyKey, "idempotency-key", "", "Replay protection key")
	flags.IntVar(&expectedVersion, "expected-version", 0, "Fail unless the book is at this version")
	for _, name := range []string{"book", "action", "actor", "role"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newBulkCmd(c *cli) *cobra.Command {
	var (
		dryRun  bool
		actorID string
	)
	cmd := &cobra.Command{
		Use:   "bulk FILE",
		Short: "Apply the transitions listed in a JSON or YAML file",
		Long: `bulk reads a document with a "requests" list, each entry carrying
book_id, action, actor_id and actor_role. Individual failures are reported in
the summary and do not fail the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readBulkFile(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				msg.DryRun = true
			}
			if actorID != "" {
				msg.ActorID = actorID
			}

			var printErr error
			handler := workflowcmd.NewBulkTransitionHandler(c.module.Workflow(), c.logger("workflow"), func(result manager.BulkResult) {
				printErr = c.print(result)
			})
			if err := handler.Execute(cmd.Context(), msg); err != nil {
				return err
			}
			return printErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate every transition without writing")
	cmd.Flags().StringVar(&actorID, "actor", "", "Actor recorded on the bulk audit event")
	return cmd
}

func newOverdueCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List books past their review or revision deadline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			overdue, err := c.module.Workflow().GetOverdueBooks(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(overdue)
		},
	}
}

func newActionsCmd(c *cli) *cobra.Command {
	var bookID, role string
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the actions a role may apply to a book",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseBookID(bookID)
			if err != nil {
				return err
			}
			parsed, ok := domain.ParseRole(role)
			if !ok {
				return commands.WrapValidationError(fmt.Errorf("unknown role %q", role))
			}
			rules, err := c.module.Workflow().GetAvailableActions(cmd.Context(), id, parsed)
			if err != nil {
				return err
			}
			return c.print(rules)
		},
	}
	cmd.Flags().StringVar(&bookID, "book", "", "Book id")
	cmd.Flags().StringVar(&role, "role", "", "Actor role")
	_ = cmd.MarkFlagRequired("book")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newSLACmd(c *cli) *cobra.Command {
	sla := &cobra.Command{
		Use:   "sla",
		Short: "Run SLA sweeps",
	}
	sla.AddCommand(
		&cobra.Command{
			Use:   "remind",
			Short: "Send reminders for every overdue book",
			RunE: func(cmd *cobra.Command, _ []string) error {
				summary, err := c.module.Workflow().SendSLAReminders(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(summary)
			},
		},
		&cobra.Command{
			Use:   "process",
			Short: "Record violations for due deadline watchers scheduled by this process",
			RunE: func(cmd *cobra.Command, _ []string) error {
				result, err := c.module.ProcessSLAJobs(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(result)
			},
		},
	)
	return sla
}

func parseBookID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, commands.WrapValidationError(fmt.Errorf("invalid book id %q: %w", raw, err))
	}
	return id, nil
}

// parseFields turns key=value pairs into content fields. Integer values stay numeric
// so pageCount validates.
func parseFields(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, commands.WrapValidationError(fmt.Errorf("field %q must be key=value", pair))
		}
		if n, err := strconv.Atoi(value); err == nil {
			out[key] = n
			continue
		}
		out[key] = value
	}
	return out, nil
}

func readBulkFile(path string) (workflowcmd.BulkTransitionCommand, error) {
	var msg workflowcmd.BulkTransitionCommand
	raw, err := os.ReadFile(path)
	if err != nil {
		return msg, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return msg, fmt.Errorf("parse %s: %w", path, err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return msg, fmt.Errorf("convert %s: %w", path, err)
		}
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("parse %s: %w", path, err)
	}
	return msg, nil
}
