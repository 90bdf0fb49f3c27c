package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"splitmerge/internal/chunk"
	"splitmerge/internal/config"
	"splitmerge/internal/dispatch"
	"splitmerge/internal/prompt"
	"splitmerge/internal/runner"
	"splitmerge/internal/services"
	"splitmerge/internal/splitmerge"
)

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	var (
		templatePath     string
		tokensLimit      int
		promptTokens     int
		completionTokens int
		fromError        string
		showChunks       bool
	)

	cmd := &cobra.Command{
		Use:   "estimate [content-file]",
		Short: "Compute the chunk budget for a content file without calling the provider",
		Long: "Compute the per-chunk character budget and chunk count that a run would use\n" +
			"after the provider rejected the full prompt with the given token figures.\n" +
			"Pass the figures directly or paste the provider's error message with --from-error.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			usage := dispatch.TokenUsage{
				PromptTokens:     promptTokens,
				CompletionTokens: completionTokens,
				TokensLimit:      tokensLimit,
			}
			if strings.TrimSpace(fromError) != "" {
				parsed, ok := dispatch.ParseTokenLimit(fromError)
				if !ok {
					return fmt.Errorf("could not find token limit and prompt size in %q", fromError)
				}
				usage = parsed
			}
			if usage.TokensLimit <= 0 || usage.PromptTokens <= 0 {
				return errors.New("--tokens-limit and --prompt-tokens (or --from-error) are required")
			}

			contentPath := cfg.Prompts.ContentPath
			if len(args) == 1 {
				contentPath = args[0]
			}
			if strings.TrimSpace(contentPath) == "" {
				return services.Wrap(services.ErrConfiguration, "estimate", "resolve content", "content file required (argument, prompts.content_path or FILEPATH)", nil)
			}
			if contentPath, err = config.ExpandPath(contentPath); err != nil {
				return fmt.Errorf("resolve content path: %w", err)
			}
			content, err := runner.ReadContent(contentPath, cfg.Split.NormalizeUnicode)
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}

			if strings.TrimSpace(templatePath) == "" {
				templatePath = cfg.Prompts.TemplatePath
			}
			tmpl, err := prompt.Load(templatePath)
			if err != nil {
				return fmt.Errorf("load template: %w", err)
			}
			splitWrapper, err := prompt.LoadOrDefault(cfg.Prompts.SplitWrapperPath, prompt.DefaultSplitWrapper())
			if err != nil {
				return fmt.Errorf("load split wrapper: %w", err)
			}

			planner := splitmerge.New(nil, splitmerge.Options{
				Budget:       runner.BudgetParams(cfg),
				SplitWrapper: splitWrapper,
			})
			jobs, est := planner.Plan(splitmerge.Request{Template: tmpl, Content: content}, usage)

			rows := [][]string{
				{"Content chars", strconv.Itoa(chunk.Len(content))},
				{"Template chars", strconv.Itoa(tmpl.Chars())},
				{"Split wrapper chars", strconv.Itoa(splitWrapper.Chars())},
				{"Tokens limit", strconv.Itoa(usage.TokensLimit)},
				{"Prompt tokens", strconv.Itoa(usage.PromptTokens)},
				{"Completion tokens", strconv.Itoa(usage.CompletionTokens)},
				{"Chars per token", strconv.FormatFloat(est.CharsPerToken, 'f', 3, 64)},
				{"Char limit", strconv.FormatFloat(est.CharLimit, 'f', 1, 64)},
				{"Completion reserve chars", strconv.FormatFloat(est.CompletionChars, 'f', 1, 64)},
				{"Raw chunk chars", strconv.FormatFloat(est.RawChunkChars, 'f', 1, 64)},
				{"Chunk chars", strconv.Itoa(est.ChunkChars)},
				{"Chunks", strconv.Itoa(len(jobs))},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

			if showChunks && len(jobs) > 0 {
				chunkRows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					chunkRows = append(chunkRows, []string{
						strconv.Itoa(job.Index + 1),
						strconv.Itoa(chunk.Len(job.Text)),
						strconv.Itoa(chunk.Len(job.Prompt)),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Chunk", "Chars", "Prompt Chars"}, chunkRows,
					[]columnAlignment{alignRight, alignRight, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Prompt template file (overrides prompts.template_path)")
	cmd.Flags().IntVar(&tokensLimit, "tokens-limit", 0, "Provider context window in tokens")
	cmd.Flags().IntVar(&promptTokens, "prompt-tokens", 0, "Prompt tokens reported for the rejected request")
	cmd.Flags().IntVar(&completionTokens, "completion-tokens", 0, "Completion tokens reported for the rejected request")
	cmd.Flags().StringVar(&fromError, "from-error", "", "Provider context-length error message to extract figures from")
	cmd.Flags().BoolVar(&showChunks, "chunks", false, "List every chunk with its size")
	return cmd
}
