//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCmd_Metadata(t *testing.T) {
	assert.Equal(t, "batch", batchCmd.Use)
	assert.NotEmpty(t, batchCmd.Short)

	for _, name := range []string{"csv", "xlsx", "sheet", "limit", "concurrency", "force-refresh", "output", "dry-run"} {
		require.NotNil(t, batchCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestRowsToIdentifications(t *testing.T) {
	rows := [][]string{
		{"Producer", "Wine", "Vintage", "Type", "Region"},
		{"Château Margaux", "Grand Vin", "2015", "red", "Margaux"},
		{"Bollinger", "Special Cuvée", "", "sparkling", ""},
		{"", "", "", "", ""},
	}

	ids, err := rowsToIdentifications(rows)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	assert.Equal(t, "Château Margaux", ids[0].Producer)
	assert.Equal(t, "Grand Vin", ids[0].WineName)
	assert.Equal(t, "2015", ids[0].Vintage)
	assert.Equal(t, "red", ids[0].WineType)
	assert.Equal(t, "Margaux", ids[0].Region)

	assert.Equal(t, "Bollinger", ids[1].Producer)
	assert.Empty(t, ids[1].Vintage)
}

func TestRowsToIdentifications_HeaderAliases(t *testing.T) {
	rows := [][]string{
		{"producer", "wine_name", "year", "wine_type", "appellation"},
		{"Louis Jadot", "Chablis", "2022", "white", "Chablis"},
	}

	ids, err := rowsToIdentifications(rows)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "Chablis", ids[0].WineName)
	assert.Equal(t, "2022", ids[0].Vintage)
	assert.Equal(t, "white", ids[0].WineType)
	assert.Equal(t, "Chablis", ids[0].Region)
}

func TestRowsToIdentifications_ShortRows(t *testing.T) {
	rows := [][]string{
		{"producer", "wine", "vintage"},
		{"Ridge", "Monte Bello"},
	}

	ids, err := rowsToIdentifications(rows)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "Monte Bello", ids[0].WineName)
	assert.Empty(t, ids[0].Vintage)
}

func TestRowsToIdentifications_MissingProducerColumn(t *testing.T) {
	rows := [][]string{
		{"wine", "vintage"},
		{"Grand Vin", "2015"},
	}

	_, err := rowsToIdentifications(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "producer")
}

func TestRowsToIdentifications_Empty(t *testing.T) {
	_, err := rowsToIdentifications(nil)
	require.Error(t, err)

	_, err = rowsToIdentifications([][]string{{"producer", "wine"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable rows")
}

func TestParseWineCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellar.csv")
	data := "producer,wine,vintage\nChâteau Margaux,Grand Vin,2015\nBollinger,Special Cuvée,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	ids, err := parseWineCSV(path)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "Château Margaux", ids[0].Producer)
}

func TestParseWineCSV_BadPath(t *testing.T) {
	_, err := parseWineCSV(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestParseWineCSV_RaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	data := "producer,wine,vintage,region\nRidge,Monte Bello,2018\nPenfolds,Grange,2016,South Australia\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	ids, err := parseWineCSV(path)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Empty(t, ids[0].Region)
	assert.Equal(t, "South Australia", ids[1].Region)
}
