package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maktabalab/maktabamcp/internal/embed"
	"github.com/maktabalab/maktabamcp/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show corpus and component status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput, offline)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Report the static embedder instead of the configured one")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput, offline bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stack, err := openSearchStack(ctx, cfg, offline)
	if err != nil {
		return err
	}
	defer stack.Close()

	counts, err := stack.docs.CountByCollection(ctx)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}

	info := ui.StatusInfo{Collections: counts}
	for _, n := range counts {
		info.TotalHadith += n
	}
	if n, err := stack.lexical.Count(); err == nil {
		info.LexicalCount = n
	}
	if stack.vector != nil {
		info.VectorCount = stack.vector.Count()
	}

	info.DocumentsSize = fileSize(cfg.DocumentStorePath())
	info.LexicalSize = dirSize(cfg.LexicalIndexPath())
	info.VectorSize = fileSize(cfg.VectorIndexPath())

	embedInfo := embed.GetInfo(stack.embedder)
	info.EmbedderProvider = embedInfo.Provider
	info.EmbedderModel = embedInfo.Model
	if stack.embedder.Available(ctx) {
		info.EmbedderStatus = "ready"
	} else {
		info.EmbedderStatus = "offline"
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func fileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return st.Size()
}

// dirSize sums a directory tree; Bleve indexes are directories.
func dirSize(path string) int64 {
	var total int64
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !st.IsDir() {
		return st.Size()
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if entry.IsDir() {
			total += dirSize(filepath.Join(path, entry.Name()))
		} else if fi, err := entry.Info(); err == nil {
			total += fi.Size()
		}
	}
	return total
}
