package app

import (
	"flightscraper-backend/internal/components/chrono"
	"flightscraper-backend/internal/components/telemetry"
	"flightscraper-backend/internal/config"
	"flightscraper-backend/internal/pacing"
	"flightscraper-backend/internal/scrapers/gflights"
)

// NewScraper wires a scraper out of cfg, the server and the cli share it so
// both pace and fetch the same way.
func NewScraper(cfg config.Config, tel telemetry.API) gflights.Scraper {
	clock := chrono.StandardTime{}

	gate := pacing.NewGate(pacing.Options{
		MinDelay:    cfg.Pacing.MinDelay.Std(),
		MaxDelay:    cfg.Pacing.MaxDelay.Std(),
		Limit:       cfg.Pacing.HourlyLimit,
		Window:      cfg.Pacing.Window.Std(),
		QuotaJitter: cfg.Pacing.QuotaJitter.Std(),
		Time:        clock,
		Tel:         tel,
	})

	fetcher := gflights.NewFetcher(gflights.FetcherOptions{
		Timeout:                 cfg.Fetch.Timeout.Std(),
		MaxBodyBytes:            cfg.Fetch.MaxBodyBytes,
		DisableCloudflareBypass: cfg.Fetch.DisableCloudflareBypass,
	}, tel)

	return gflights.NewScraper(gflights.Options{
		Gate:      gate,
		Encoder:   gflights.NewEncoder(cfg.Fetch.BaseUrl, cfg.Fetch.UserAgents, nil),
		Fetcher:   fetcher,
		Assembler: gflights.NewAssembler(gflights.DefaultLocators(), nil, tel),
		Time:      clock,
		Tel:       tel,
	})
}
