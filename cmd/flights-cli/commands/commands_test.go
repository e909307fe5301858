package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"flightscraper-backend/internal/scrapers/gflights"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func testdata(name string) string {
	return filepath.Join("..", "..", "..", "internal", "scrapers", "gflights", "testdata", name)
}

func TestExtractJSON(t *testing.T) {
	out, err := run(t, "extract", "--json", testdata("results.html"))
	require.NoError(t, err)

	var records []gflights.FlightRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	require.Equal(t, "Delta", records[0].Airline)
	require.Equal(t, "$1,234", records[1].Price)
}

func TestExtractTable(t *testing.T) {
	extractJSON = false
	out, err := run(t, "extract", testdata("results.html"))
	require.NoError(t, err)
	require.Contains(t, out, "Delta")
	require.Contains(t, out, "div-listitem")
	require.Contains(t, out, "2: missing price")
}

func TestExtractMissingFile(t *testing.T) {
	_, err := run(t, "extract", filepath.Join(t.TempDir(), "nope.html"))
	require.ErrorContains(t, err, "read page")
}

func TestUrl(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.json5")
	out, err := run(
		t, "url", "--config", configFile,
		"--origin", "JFK", "--destination", "LAX", "--date", "2025-03-01",
	)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, gflights.DefaultBaseUrl+"?"))
	require.Contains(t, out, "Flights%20from%20JFK%20to%20LAX")
}

func TestUrlRejectsMissingParameters(t *testing.T) {
	urlReq = gflights.SearchRequest{}
	_, err := run(t, "url", "--origin", "JFK", "--destination", "", "--date", "")
	require.ErrorIs(t, err, gflights.ErrMissingParameters)
}
