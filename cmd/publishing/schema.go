package main

import (
	"github.com/spf13/cobra"
)

func newSchemaCmd(c *cli) *cobra.Command {
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Manage the database schema",
	}
	schema.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the books and audit tables if they are missing",
		Long: `init creates the tables and indexes used by bun storage. Every command
already does this on start, so init is only needed to prepare an empty database
ahead of time. It is a no-op for memory storage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.module.InitSchema(cmd.Context()); err != nil {
				return err
			}
			provider := "memory"
			if c.module.Container().BunDB() != nil {
				provider = "bun"
			}
			return c.print(map[string]string{"status": "ready", "storage": provider})
		},
	})
	return schema
}
