package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/edumanager-api/internal/app"
	"github.com/noah-isme/edumanager-api/internal/service"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

type importOutput struct {
	Command    string      `json:"command"`
	File       string      `json:"file"`
	DurationMS int64       `json:"duration_ms"`
	Result     interface{} `json:"result"`
}

func newImportCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a workload workbook (.xlsx or .csv) into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			container, err := app.New(cmd.Context(), env.cfg, env.logger)
			if err != nil {
				return err
			}
			defer container.Close()

			start := time.Now()
			summary, err := container.Importer.ImportFile(cmd.Context(), file, filepath.Base(path))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), importOutput{
				Command:    "import",
				File:       path,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     summary,
			})
		},
	}
}

func newExportCmd(env *cliEnv) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the stored workload as a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0]
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(out), ".")
			}
			parsed, err := sheet.ParseFormat(format)
			if err != nil {
				return err
			}

			container, err := app.New(cmd.Context(), env.cfg, env.logger)
			if err != nil {
				return err
			}
			defer container.Close()

			file, err := container.Exporter.Export(cmd.Context(), parsed)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, file.Payload, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", file.Rows, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "xlsx or csv (defaults to the output extension)")
	return cmd
}

func newTemplateCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "template <file>",
		Short: "Write the sample workload workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := service.NewExportService(nil, nil, nil, nil, env.logger).Template()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], file.Payload, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sample rows to %s\n", file.Rows, args[0])
			return nil
		},
	}
}
