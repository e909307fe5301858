package main

import (
	"flightscraper-backend/cmd/flights-cli/commands"
	"flightscraper-backend/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
