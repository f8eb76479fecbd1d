package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// StatusInfo contains corpus health information.
type StatusInfo struct {
	Collections   map[string]int `json:"collections"`
	TotalHadith   int            `json:"total_hadith"`
	LexicalCount  uint64         `json:"lexical_count"`
	VectorCount   int            `json:"vector_count"`
	LastIngested  time.Time      `json:"last_ingested,omitzero"`

	// Storage sizes (in bytes)
	DocumentsSize int64 `json:"documents_size"`
	LexicalSize   int64 `json:"lexical_size"`
	VectorSize    int64 `json:"vector_size"`

	// Component status
	EmbedderProvider string `json:"embedder_provider"`
	EmbedderStatus   string `json:"embedder_status"` // "ready", "offline", "error"
	EmbedderModel    string `json:"embedder_model,omitempty"`
	WatcherStatus    string `json:"watcher_status,omitempty"` // "running", "stopped"
}

// StatusRenderer displays corpus status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to the terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Corpus Status"))

	names := make([]string, 0, len(info.Collections))
	for name := range info.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(r.out, "  %-16s %d hadith\n", name+":", info.Collections[name])
	}
	_, _ = fmt.Fprintf(r.out, "  %-16s %d hadith, %d lexical, %d vectors\n",
		"Total:", info.TotalHadith, info.LexicalCount, info.VectorCount)
	if !info.LastIngested.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last ingested:   %s\n", formatTime(info.LastIngested))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Documents: %s\n", FormatBytes(info.DocumentsSize))
	_, _ = fmt.Fprintf(r.out, "    Lexical:   %s\n", FormatBytes(info.LexicalSize))
	_, _ = fmt.Fprintf(r.out, "    Vectors:   %s\n", FormatBytes(info.VectorSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Provider: %s\n", info.EmbedderProvider)
	_, _ = fmt.Fprintf(r.out, "    Status:   %s\n", r.renderStatus(info.EmbedderStatus))
	if info.EmbedderModel != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:    %s\n", info.EmbedderModel)
	}

	if info.WatcherStatus != "" {
		_, _ = fmt.Fprintf(r.out, "\n  Watcher: %s\n", r.renderStatus(info.WatcherStatus))
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready", "running":
		return r.styles.Success.Render(status)
	case "offline", "stopped", "unavailable":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime renders a time as a relative age for recent times.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to a human-readable size.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
