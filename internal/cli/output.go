// Package cli provides output formatting for the kensaku command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// OutputFormat is the format for search result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one result per line, for piping into other tools.
	OutputCompact OutputFormat = "compact"
)

// ParseFormat validates a format string from a CLI flag.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON, OutputCompact:
		return OutputFormat(s), nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.6f\t%s\t%s\t%s\n",
				r.Rank, r.Score, r.ChunkID, r.DocumentID, utils.Truncate(r.Content, 120))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.TotalResults, response.SearchTimeMs)
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Vector: %.4f, Keyword: %.4f)\n",
			r.Rank, r.Score, r.VectorScore, r.KeywordScore)
		fmt.Fprintf(w, "Chunk: %s | Document: %s\n", r.ChunkID, r.DocumentID)
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(r.Content, 200))
		fmt.Fprintln(w)
	}
}

// WriteStats writes the stats payload from GET /api/v1/stats.
func WriteStats(w io.Writer, stats map[string]interface{}, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	for _, key := range []string{"vector_chunks", "keyword_documents"} {
		if v, ok := stats[key]; ok {
			fmt.Fprintf(w, "%-20s %v\n", key+":", v)
		}
	}
	if c, ok := stats["cache"].(map[string]interface{}); ok {
		fmt.Fprintln(w, "cache:")
		for _, key := range []string{"hits", "misses", "hit_rate", "entries", "size_bytes"} {
			if v, ok := c[key]; ok {
				fmt.Fprintf(w, "  %-18s %v\n", key+":", v)
			}
		}
	}
	return nil
}
