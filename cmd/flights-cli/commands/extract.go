package commands

import (
	"fmt"
	"os"

	"flightscraper-backend/internal/components/telemetry"
	"flightscraper-backend/internal/scrapers/gflights"

	"github.com/spf13/cobra"
)

var extractJSON bool

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print the records as json instead of a table.")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <page.html>",
	Short: "Extracts flights from a saved results page, useful when the markup drifts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read page: %w", err)
		}

		assembler := gflights.NewAssembler(gflights.DefaultLocators(), nil, telemetry.SlogAPI{})
		records, diag, err := assembler.AssembleHTML(body)
		if err != nil {
			return err
		}

		if extractJSON {
			return writeJSON(cmd.OutOrStdout(), records)
		}
		renderFlights(cmd.OutOrStdout(), records)
		renderDiagnostics(cmd.OutOrStdout(), diag)
		return nil
	},
}
