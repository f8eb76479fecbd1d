package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	mcpserver "github.com/maktabalab/maktabamcp/internal/mcp"
	"github.com/maktabalab/maktabamcp/internal/search"
)

type searchOptions struct {
	limit      int
	mode       string
	format     string
	nearWindow int
	offline    bool

	weightVector       float64
	weightLexical      float64
	weightTermCoverage float64
	bonusPhrase        float64
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the hadith corpus",
		Long: `Search the corpus with hybrid retrieval.

The query is routed by intent: references ("bukhari 1:1"), narrators
("narrated by Aisha"), quoted phrases, or thematic terms. Full-text and
semantic candidates are fused and scored per signal.

Examples:
  maktabamcp search "night prayer"
  maktabamcp search "narrated by Abu Huraira" --limit 5
  maktabamcp search '"actions are but by intentions"' --mode term-priority
  maktabamcp search "patience hardship" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Scoring mode: balanced, term-priority (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().IntVar(&opts.nearWindow, "near-window", 0, "Proximity window in tokens (default from config)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no embedding service)")
	cmd.Flags().Float64Var(&opts.weightVector, "weight-vector", 0, "Override the semantic similarity weight (0-1)")
	cmd.Flags().Float64Var(&opts.weightLexical, "weight-lexical", 0, "Override the full-text relevance weight (0-1)")
	cmd.Flags().Float64Var(&opts.weightTermCoverage, "weight-term-coverage", 0, "Override the term coverage weight (0-1)")
	cmd.Flags().Float64Var(&opts.bonusPhrase, "bonus-phrase", 0, "Override the quoted-phrase bonus (0-1)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stack, err := openSearchStack(ctx, cfg, opts.offline)
	if err != nil {
		return err
	}
	defer stack.Close()

	mode := opts.mode
	if mode == "" {
		mode = cfg.Search.Mode
	}
	nearWindow := opts.nearWindow
	if nearWindow == 0 {
		nearWindow = cfg.Search.NearWindow
	}

	resp, err := stack.engine.Search(ctx, search.Request{
		Query:      query,
		Limit:      opts.limit,
		Mode:       mode,
		NearWindow: nearWindow,
		Overrides:  weightOverrides(cmd, opts),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(mcpserver.ToSearchOutput(resp, 0))
	default:
		_, err := fmt.Fprintln(cmd.OutOrStdout(), mcpserver.FormatSearchResults(resp))
		return err
	}
}

// weightOverrides collects the weight flags that were explicitly set, so
// unset flags keep the mode preset's values.
func weightOverrides(cmd *cobra.Command, opts searchOptions) search.WeightOverrides {
	var o search.WeightOverrides
	if cmd.Flags().Changed("weight-vector") {
		o.Vector = &opts.weightVector
	}
	if cmd.Flags().Changed("weight-lexical") {
		o.Lexical = &opts.weightLexical
	}
	if cmd.Flags().Changed("weight-term-coverage") {
		o.TermCoverage = &opts.weightTermCoverage
	}
	if cmd.Flags().Changed("bonus-phrase") {
		o.Phrase = &opts.bonusPhrase
	}
	return o
}
