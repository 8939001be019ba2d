package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/edumanager-api/pkg/config"
	"github.com/noah-isme/edumanager-api/pkg/logger"
)

// cliEnv is populated before any subcommand runs.
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}
	cmd := &cobra.Command{
		Use:          "edumanager",
		Short:        "EduManager maintenance tools: migrations, workload import and export, file cleanup",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return err
			}
			env.cfg = cfg
			env.logger = logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.logger != nil {
				_ = env.logger.Sync()
			}
		},
	}
	cmd.AddCommand(
		newMigrateCmd(env),
		newImportCmd(env),
		newExportCmd(env),
		newTemplateCmd(env),
		newCleanupCmd(env),
	)
	return cmd
}
