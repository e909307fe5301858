package commands

import (
	"fmt"

	"flightscraper-backend/internal/scrapers/gflights"

	"github.com/spf13/cobra"
)

var (
	urlReq     gflights.SearchRequest
	urlHeaders bool
)

func init() {
	addRequestFlags(urlCmd, &urlReq)
	urlCmd.Flags().BoolVar(&urlHeaders, "headers", false, "Also print the request headers.")
	rootCmd.AddCommand(urlCmd)
}

var urlCmd = &cobra.Command{
	Use:   "url --origin <code> --destination <code> --date <YYYY-MM-DD>",
	Short: "Prints the request a search would send without sending it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := urlReq.Normalize()
		err := req.Validate()
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		desc, err := gflights.NewEncoder(cfg.Fetch.BaseUrl, cfg.Fetch.UserAgents, nil).Encode(req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, desc.URL())
		if urlHeaders {
			return desc.Header().Write(out)
		}
		return nil
	},
}
