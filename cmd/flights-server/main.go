package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"flightscraper-backend/internal/api"
	"flightscraper-backend/internal/app"
	"flightscraper-backend/internal/components/telemetry"
	"flightscraper-backend/internal/config"
	"flightscraper-backend/pkg/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging.")
	configPath := flag.String("config", "", "Path to the config file, defaults to $FLIGHTS_CONFIG or config.json5.")
	flag.Parse()

	telemetry.InitSlog(*verbose)
	ctx := serviceutil.SignalContext()

	path := *configPath
	if path == "" {
		path = os.Getenv("FLIGHTS_CONFIG")
	}
	if path == "" {
		path = "config.json5"
	}

	cfg, err := config.Load(path)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	otel, err := telemetry.Setup(ctx, "flights-server", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otel.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	}()

	tel := telemetry.SlogAPI{}
	router, err := api.NewRouter(api.Options{
		Searcher:       app.NewScraper(cfg, tel),
		ClientRate:     cfg.Server.ClientRate,
		ClientBurst:    cfg.Server.ClientBurst,
		TrustedProxies: cfg.Server.TrustedProxies,
		Tel:            tel,
	})
	if err != nil {
		serviceutil.Fatal("init router", err)
	}

	err = serviceutil.StartHttpServer(ctx, cfg.Server.Port, router, 10*time.Second)
	if err != nil {
		slog.Error("http server", "err", err)
	}
}
