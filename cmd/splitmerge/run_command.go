package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"splitmerge/internal/config"
	"splitmerge/internal/history"
	"splitmerge/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var templatePath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "run [content-file]",
		Short: "Send a content file through the prompt template, splitting it if it is too large",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := runner.Options{Logger: logger}
			if len(args) == 1 {
				if opts.ContentPath, err = config.ExpandPath(args[0]); err != nil {
					return fmt.Errorf("resolve content path: %w", err)
				}
			}
			if strings.TrimSpace(templatePath) != "" {
				if opts.TemplatePath, err = config.ExpandPath(templatePath); err != nil {
					return fmt.Errorf("resolve template path: %w", err)
				}
			}

			report, err := runner.Run(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}

			if report.Status() != history.StatusCompleted {
				return fmt.Errorf("run %s: %s", shortID(report.RunID), report.FailureMessage())
			}

			if strings.TrimSpace(outputPath) != "" {
				target, err := config.ExpandPath(outputPath)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				if err := os.WriteFile(target, []byte(report.Text()), 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				stderr := cmd.ErrOrStderr()
				fmt.Fprintln(stderr, renderStatusLine("Run "+shortID(report.RunID), statusOK, "wrote "+target, shouldColorize(stderr)))
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, report.Text())
			if !strings.HasSuffix(report.Text(), "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Prompt template file (overrides prompts.template_path)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the completion to this file instead of stdout")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
