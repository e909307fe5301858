package commands

import (
	"flightscraper-backend/internal/app"
	"flightscraper-backend/internal/components/telemetry"
	"flightscraper-backend/internal/scrapers/gflights"

	"github.com/spf13/cobra"
)

var (
	searchReq  gflights.SearchRequest
	searchJSON bool
)

func init() {
	addRequestFlags(searchCmd, &searchReq)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the outcome as it would be served by the api.")
	rootCmd.AddCommand(searchCmd)
}

func addRequestFlags(cmd *cobra.Command, req *gflights.SearchRequest) {
	cmd.Flags().StringVar(&req.Origin, "origin", "", "The origin airport code (e.g. JFK).")
	cmd.Flags().StringVar(&req.Destination, "destination", "", "The destination airport code (e.g. LAX).")
	cmd.Flags().StringVar(&req.DepartureDate, "date", "", "The departure date, YYYY-MM-DD.")
	cmd.Flags().StringVar(&req.ReturnDate, "return", "", "The return date, YYYY-MM-DD, omit for a one way search.")
	cmd.Flags().IntVar(&req.Adults, "adults", 1, "The number of adult passengers.")
}

var searchCmd = &cobra.Command{
	Use:   "search --origin <code> --destination <code> --date <YYYY-MM-DD>",
	Short: "Runs one paced search against the live results page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := searchReq.Normalize()
		err := req.Validate()
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		scraper := app.NewScraper(cfg, telemetry.SlogAPI{})
		outcome := scraper.Search(cmd.Context(), req)

		if searchJSON {
			err = writeJSON(cmd.OutOrStdout(), outcome)
			if err != nil {
				return err
			}
		}
		failure, failed := outcome.Failure()
		if failed {
			return failure
		}
		if searchJSON {
			return nil
		}

		success, _ := outcome.Success()
		renderFlights(cmd.OutOrStdout(), success.Flights)
		for _, w := range success.Diagnostics.Warnings() {
			cmd.PrintErrln("warning:", w)
		}
		return nil
	},
}
