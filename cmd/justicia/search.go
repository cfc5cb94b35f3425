package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"justicia-client/internal/search"
	"justicia-client/pkg/api"
)

func newSearchCommand() *cobra.Command {
	var (
		mode      string
		limit     int
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "search <consulta>",
		Short: "Búsqueda de casos similares",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := search.Params{
				Mode:      api.SearchMode(mode),
				Query:     strings.Join(args, " "),
				Limit:     limit,
				Threshold: threshold,
			}

			results, err := orchestrator.Search(cmd.Context(), params)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("Sin resultados.")
				return nil
			}
			for i, result := range results {
				fmt.Printf("%d. %s — %s (%.2f)\n", i+1, result.CaseNumber, result.Title, result.Score)
				if result.Court != "" || result.Date != "" {
					fmt.Printf("   %s %s\n", result.Court, result.Date)
				}
				for _, highlight := range result.Highlights {
					fmt.Printf("   … %s\n", highlight)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(api.SearchModeDescription), "search mode: description or case_number")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "minimum similarity score")
	return cmd
}
