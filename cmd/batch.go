package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cellarbook/enrich-cli/internal/enrich"
	"github.com/cellarbook/enrich-cli/internal/model"
)

var (
	batchCSV          string
	batchXLSX         string
	batchSheet        string
	batchLimit        int
	batchConcurrency  int
	batchForceRefresh bool
	batchOutput       string
	batchDryRun       bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich a cellar export (CSV or XLSX) concurrently",
	Long: `Reads wine identifications from a CSV or XLSX export and enriches
each one. Batch mode is non-interactive: near matches from the cache are
auto-confirmed instead of returned as pending confirmations.

Expected columns (header row, case-insensitive): producer, wine, vintage,
and optionally type and region.

Examples:
  enrich-cli batch --csv cellar.csv --concurrency 4
  enrich-cli batch --xlsx cellar.xlsx --sheet Wines --limit 10 --output results.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ids, err := parseBatchInput()
		if err != nil {
			return err
		}
		zap.L().Info("parsed batch input", zap.Int("wines", len(ids)))

		if batchLimit > 0 && batchLimit < len(ids) {
			ids = ids[:batchLimit]
		}

		if batchDryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ids)
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if batchConcurrency <= 0 {
			batchConcurrency = cfg.Batch.MaxConcurrentWines
		}
		if batchConcurrency <= 0 {
			batchConcurrency = 4
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)

		var mu sync.Mutex
		results := make([]*model.EnrichmentResult, len(ids))
		var succeeded, failed atomic.Int64

		for i, id := range ids {
			g.Go(func() error {
				zap.L().Info("batch: enriching",
					zap.Int("index", i+1),
					zap.Int("total", len(ids)),
					zap.String("wine", id.Label()),
				)

				result := env.Engine.Enrich(gCtx, id, enrich.Options{
					ConfirmMatch: true,
					ForceRefresh: batchForceRefresh,
				})
				if result.Success {
					succeeded.Add(1)
				} else {
					failed.Add(1)
					zap.L().Warn("batch: wine failed",
						zap.String("wine", id.Label()),
						zap.Strings("warnings", result.Warnings),
					)
				}

				mu.Lock()
				results[i] = result
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		zap.L().Info("batch complete",
			zap.Int("total", len(ids)),
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)

		return writeBatchResults(results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to CSV cellar export")
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "", "path to XLSX cellar export")
	batchCmd.Flags().StringVar(&batchSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max wines to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent enrichments (default from config)")
	batchCmd.Flags().BoolVar(&batchForceRefresh, "force-refresh", false, "skip cache resolution for every wine")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results JSON to file (default: stdout)")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "parse input and print identifications, skip enrichment")
	batchCmd.MarkFlagsOneRequired("csv", "xlsx")
	batchCmd.MarkFlagsMutuallyExclusive("csv", "xlsx")
	rootCmd.AddCommand(batchCmd)
}

func parseBatchInput() ([]model.Identification, error) {
	if batchCSV != "" {
		return parseWineCSV(batchCSV)
	}
	return parseWineXLSX(batchXLSX, batchSheet)
}

// parseWineCSV reads identifications from a CSV with a header row.
func parseWineCSV(path string) ([]model.Identification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "batch: read csv")
	}

	return rowsToIdentifications(rows)
}

// parseWineXLSX reads identifications from an XLSX sheet with a header row.
func parseWineXLSX(path, sheetName string) ([]model.Identification, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("batch: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("batch: xlsx file has no sheets")
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	return rowsToIdentifications(rows)
}

// rowsToIdentifications maps header-addressed rows onto identifications.
// Rows without a producer and wine name are skipped.
func rowsToIdentifications(rows [][]string) ([]model.Identification, error) {
	if len(rows) == 0 {
		return nil, eris.New("batch: input is empty")
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := cols[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	if _, ok := cols["producer"]; !ok {
		return nil, eris.New("batch: missing required column \"producer\"")
	}

	var ids []model.Identification
	for _, row := range rows[1:] {
		id := model.Identification{
			Producer: field(row, "producer"),
			WineName: field(row, "wine", "wine_name", "name"),
			Vintage:  field(row, "vintage", "year"),
			WineType: field(row, "type", "wine_type"),
			Region:   field(row, "region", "appellation"),
		}
		if id.Empty() {
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, eris.New("batch: no usable rows in input")
	}
	return ids, nil
}

func writeBatchResults(results []*model.EnrichmentResult) error {
	w := os.Stdout
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return eris.Wrap(err, "batch: create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
