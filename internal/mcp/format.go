package mcp

import (
	"fmt"
	"strings"

	"github.com/maktabalab/maktabamcp/internal/search"
)

// FormatSearchResults renders a search response as markdown.
func FormatSearchResults(resp *search.Response) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Search results for %q\n\n", resp.Query)
	fmt.Fprintf(&b, "Intent: `%s` | Mode: `%s` | Candidates: %d\n\n",
		resp.Intent, resp.Mode, resp.TotalCandidates)

	if resp.Diagnostics.Degraded() {
		b.WriteString("> Partial results: one retrieval source was unavailable.\n\n")
	}

	if len(resp.Hits) == 0 {
		b.WriteString("No matching hadith found.\n")
		return b.String()
	}

	for i, hit := range resp.Hits {
		fmt.Fprintf(&b, "### %d. %s", i+1, formatReference(hit))
		fmt.Fprintf(&b, " (score %.3f)\n\n", hit.Score)
		if hit.Narrator != "" {
			fmt.Fprintf(&b, "**Narrator:** %s\n\n", hit.Narrator)
		}
		if hit.Snippet != "" {
			fmt.Fprintf(&b, "%s\n\n", hit.Snippet)
		}
		fmt.Fprintf(&b, "_vector %.2f · lexical %.2f · coverage %.2f_\n\n",
			hit.Breakdown.VectorSimilarity,
			hit.Breakdown.LexicalSignal,
			hit.Breakdown.TermCoverage)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// formatReference renders a human-readable citation for a hit.
// DocIDs follow collection:book:hadith.
func formatReference(hit search.Hit) string {
	parts := strings.SplitN(hit.DocID, ":", 3)
	if len(parts) == 3 {
		return fmt.Sprintf("%s %s:%s", titleCase(parts[0]), parts[1], parts[2])
	}
	return hit.DocID
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ToSearchOutput converts an engine response to the tool output schema.
func ToSearchOutput(resp *search.Response, minScore float64) SearchOutput {
	out := SearchOutput{
		Query:           resp.Query,
		Intent:          string(resp.Intent),
		Mode:            resp.Mode,
		TotalCandidates: resp.TotalCandidates,
		Results:         make([]SearchResultItem, 0, len(resp.Hits)),
		Degraded:        resp.Diagnostics.Degraded(),
	}

	for _, hit := range resp.Hits {
		if hit.Score < minScore {
			continue
		}
		out.Results = append(out.Results, SearchResultItem{
			DocID:            hit.DocID,
			BookID:           hit.BookID,
			ChapterID:        hit.ChapterID,
			Narrator:         hit.Narrator,
			Snippet:          hit.Snippet,
			Score:            hit.Score,
			VectorSimilarity: hit.Breakdown.VectorSimilarity,
			LexicalSignal:    hit.Breakdown.LexicalSignal,
			TermCoverage:     hit.Breakdown.TermCoverage,
		})
	}

	return out
}
