package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellarbook/enrich-cli/internal/enrich"
	"github.com/cellarbook/enrich-cli/internal/model"
)

var (
	enrichProducer     string
	enrichWine         string
	enrichVintage      string
	enrichWineType     string
	enrichRegion       string
	enrichConfirm      bool
	enrichForceRefresh bool
	enrichJSON         bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single wine identification",
	Long: `Resolves the identification against the local cache and, on a miss,
fetches metadata via web search, validates it, and merges all available
sources into one record.

A close-but-not-exact cache match is returned as a pending confirmation;
re-run with --confirm to accept it.

Examples:
  enrich-cli enrich --producer "Ch. Margaux" --wine "Grand Vin" --vintage 2015
  enrich-cli enrich --producer "Ch. Margaux" --wine "Grand Vin" --vintage 2015 --confirm
  enrich-cli enrich --producer "Penfolds" --wine "Grange" --vintage 2018 --force-refresh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		id := model.Identification{
			Producer: enrichProducer,
			WineName: enrichWine,
			Vintage:  enrichVintage,
			WineType: enrichWineType,
			Region:   enrichRegion,
		}

		result := env.Engine.Enrich(ctx, id, enrich.Options{
			ConfirmMatch: enrichConfirm,
			ForceRefresh: enrichForceRefresh,
		})

		if result.PendingConfirmation {
			zap.L().Info("near match found, confirmation required",
				zap.String("searched", result.SearchedFor),
				zap.String("matched", result.MatchedTo),
				zap.String("match_type", string(result.MatchType)),
				zap.Float64("confidence", result.Confidence),
			)
		}

		if enrichJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printResultSummary(id, result)
		return nil
	},
}

func printResultSummary(id model.Identification, result *model.EnrichmentResult) {
	w := os.Stdout

	if result.PendingConfirmation {
		fmt.Fprintf(w, "Near match for %s:\n", id.Label())
		fmt.Fprintf(w, "  matched:    %s (%s, confidence %.2f)\n",
			result.MatchedTo, result.MatchType, result.Confidence)
		fmt.Fprintln(w, "  re-run with --confirm to accept")
		return
	}
	if !result.Success {
		fmt.Fprintf(w, "Enrichment failed for %s:\n", id.Label())
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
		return
	}

	d := result.Data
	fmt.Fprintf(w, "%s (source: %s)\n", id.Label(), result.Source)
	if d.Appellation != "" {
		fmt.Fprintf(w, "  appellation: %s\n", d.Appellation)
	}
	if d.ABV != nil {
		fmt.Fprintf(w, "  abv:         %.1f%%\n", *d.ABV)
	}
	if d.DrinkWindow != nil {
		fmt.Fprintf(w, "  drink:       %d-%d\n", d.DrinkWindow.Start, d.DrinkWindow.End)
	}
	for _, g := range d.Grapes {
		if g.Percent != nil {
			fmt.Fprintf(w, "  grape:       %s (%.0f%%)\n", g.Variety, *g.Percent)
		} else {
			fmt.Fprintf(w, "  grape:       %s\n", g.Variety)
		}
	}
	for _, s := range d.CriticScores {
		fmt.Fprintf(w, "  score:       %s %.0f\n", s.Critic, s.Score)
	}
	if d.Overview != "" {
		fmt.Fprintf(w, "  overview:    %s\n", d.Overview)
	}
	fmt.Fprintf(w, "  confidence:  %.2f\n", d.Confidence)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  warning:     %s\n", warn)
	}
}

func init() {
	enrichCmd.Flags().StringVar(&enrichProducer, "producer", "", "producer name (required)")
	enrichCmd.Flags().StringVar(&enrichWine, "wine", "", "wine name (required)")
	enrichCmd.Flags().StringVar(&enrichVintage, "vintage", "", "vintage year, empty for non-vintage")
	enrichCmd.Flags().StringVar(&enrichWineType, "type", "", "wine type hint (red, white, sparkling, ...)")
	enrichCmd.Flags().StringVar(&enrichRegion, "region", "", "region hint for fallback inference")
	enrichCmd.Flags().BoolVar(&enrichConfirm, "confirm", false, "accept a pending near match")
	enrichCmd.Flags().BoolVar(&enrichForceRefresh, "force-refresh", false, "skip cache resolution, always fetch")
	enrichCmd.Flags().BoolVar(&enrichJSON, "json", false, "print the full result envelope as JSON")
	_ = enrichCmd.MarkFlagRequired("producer")
	_ = enrichCmd.MarkFlagRequired("wine")
	rootCmd.AddCommand(enrichCmd)
}
