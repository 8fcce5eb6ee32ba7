package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mindmate/server/internal/db"
)

func newMigrateCommand() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")

	steps := []struct {
		use, short string
		run        func(context.Context, *sql.DB) error
	}{
		{"up", "Apply all pending migrations", db.MigrateUp},
		{"down", "Roll back the most recent migration", db.MigrateDown},
		{"status", "Show migration status", db.MigrateStatus},
	}
	for _, s := range steps {
		run := s.run
		cmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if ctx == nil {
					ctx = context.Background()
				}
				if databaseURL == "" {
					return fmt.Errorf("DATABASE_URL or --database-url is required")
				}
				database, err := db.Open(ctx, databaseURL)
				if err != nil {
					return err
				}
				defer database.Close()
				return run(ctx, database)
			},
		})
	}
	return cmd
}
