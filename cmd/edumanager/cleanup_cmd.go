package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/edumanager-api/pkg/storage"
)

type cleanupOutput struct {
	Command string   `json:"command"`
	Dir     string   `json:"dir"`
	Deleted []string `json:"deleted"`
}

func newCleanupCmd(env *cliEnv) *cobra.Command {
	var (
		olderThan time.Duration
		target    string
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stale uploads or generated timetable files",
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			switch target {
			case "generated":
				dir = env.cfg.Storage.GeneratedDir
			case "uploads":
				dir = env.cfg.Uploads.Dir
			default:
				return fmt.Errorf("invalid --target %q: want generated or uploads", target)
			}

			store, err := storage.NewLocalStorage(dir)
			if err != nil {
				return err
			}
			deleted, err := store.CleanupOlderThan(olderThan)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cleanupOutput{Command: "cleanup", Dir: dir, Deleted: deleted})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum file age")
	cmd.Flags().StringVar(&target, "target", "generated", "generated or uploads")
	return cmd
}
