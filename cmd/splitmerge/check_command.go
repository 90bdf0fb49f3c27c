package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"splitmerge/internal/services/llm"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and provider connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Provider", colorize) {
				fmt.Fprintln(out, line)
			}

			settings := cfg.GetLLM()
			endpoint := settings.BaseURL
			if settings.AzureEndpoint != "" {
				endpoint = settings.AzureEndpoint + " (azure)"
			}
			fmt.Fprintln(out, renderStatusLine("Endpoint", statusInfo, endpoint, colorize))
			fmt.Fprintln(out, renderStatusLine("Model", statusInfo, settings.Model, colorize))

			if err := cfg.ValidateProvider(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Credentials", statusError, err.Error(), colorize))
				return errors.New("provider check failed")
			}
			fmt.Fprintln(out, renderStatusLine("Credentials", statusOK, "configured", colorize))

			client := llm.NewClient(llm.Config{
				APIKey:          settings.APIKey,
				BaseURL:         settings.BaseURL,
				AzureEndpoint:   settings.AzureEndpoint,
				AzureAPIVersion: settings.AzureAPIVersion,
				Model:           settings.Model,
				TimeoutSeconds:  settings.TimeoutSeconds,
			})
			checkCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			started := time.Now()
			if err := client.HealthCheck(checkCtx); err != nil {
				fmt.Fprintln(out, renderStatusLine("Completion", statusError, err.Error(), colorize))
				return errors.New("provider check failed")
			}
			latency := time.Since(started).Round(time.Millisecond)
			fmt.Fprintln(out, renderStatusLine("Completion", statusOK, "responded in "+latency.String(), colorize))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Maximum time to wait for the provider")
	return cmd
}
