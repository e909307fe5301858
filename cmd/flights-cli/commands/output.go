package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"flightscraper-backend/internal/scrapers/gflights"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderFlights(w io.Writer, flights []gflights.FlightRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Airline", "Departs", "Arrives", "Duration", "Stops", "Price"})
	for i, f := range flights {
		t.AppendRow(table.Row{i + 1, f.Airline, f.DepartureTime, f.ArrivalTime, f.Duration, f.Stops, f.Price})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(flights)})
	t.Render()
}

func renderDiagnostics(w io.Writer, diag gflights.Diagnostics) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Diagnostics")
	t.AppendRow(table.Row{"container strategy", diag.ContainerStrategy})
	t.AppendRow(table.Row{"containers found", diag.ContainersFound})
	t.AppendRow(table.Row{"structural miss", diag.StructuralMiss})
	for _, miss := range diag.Dropped {
		reason := miss.Panic
		if reason == "" {
			names := make([]string, len(miss.Missing))
			for i, f := range miss.Missing {
				names[i] = f.String()
			}
			reason = "missing " + strings.Join(names, ", ")
		}
		t.AppendRow(table.Row{"dropped block", fmt.Sprintf("%d: %s", miss.Index, reason)})
	}
	t.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
