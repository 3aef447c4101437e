package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reverb-labs/echosearch/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		limit        int
		contextFiles []string
		jsonOutput   bool
		rerank       bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search echo entries",
		Long: `Search ranks echo entries against the query: the query is decomposed
into facets, each facet is searched, and the merged candidates are
fused with access-frequency and file-proximity signals.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			opts := search.Options{
				Limit:        limit,
				ContextFiles: contextFiles,
			}
			if cmd.Flags().Changed("rerank") {
				cfg := search.DefaultRerankConfig()
				cfg.Enabled = rerank
				opts.Rerank = &cfg
			}

			results, err := a.pipeline.Search(cmd.Context(), strings.Join(args, " "), opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(searchOutput(results))
			}

			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}
			for i, r := range results {
				marker := ""
				if r.RetrySource {
					marker = " (retry)"
				}
				fmt.Printf("%2d. %-40s %8.4f%s\n", i+1, r.ID, r.Score, marker)
				if r.Preview != "" {
					fmt.Printf("    %s\n", truncateLine(r.Preview, 120))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().StringSliceVar(&contextFiles, "context-files", nil, "File paths used for the proximity signal")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "Force semantic reranking on or off for this search")
	return cmd
}

// resultJSON is the stable JSON shape for one result.
type resultJSON struct {
	ID             string  `json:"id"`
	Score          float64 `json:"score"`
	Preview        string  `json:"preview,omitempty"`
	FrequencyScore float64 `json:"frequency_score,omitempty"`
	ProximityScore float64 `json:"proximity_score,omitempty"`
	RerankScore    float64 `json:"rerank_score,omitempty"`
	RetrySource    bool    `json:"retry_source,omitempty"`
}

func searchOutput(results []*search.Result) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, resultJSON{
			ID:             r.ID,
			Score:          r.Score,
			Preview:        r.Preview,
			FrequencyScore: r.FrequencyScore,
			ProximityScore: r.ProximityScore,
			RerankScore:    r.RerankScore,
			RetrySource:    r.RetrySource,
		})
	}
	return out
}

func truncateLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
