package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/edumanager-api/pkg/database"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewPostgres(cmd.Context(), env.cfg.Database, env.logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()
			return database.RunMigrations(db.DB, env.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewPostgres(cmd.Context(), env.cfg.Database, env.logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()
			return database.RollbackMigrations(db.DB, steps, env.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}
