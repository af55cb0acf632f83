package main

import (
	"flag"
	"time"

	fxzerolog "github.com/efectn/fx-zerolog"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	eventsFile := flag.String("events", "", "Index a JSON-lines event file instead of the live feed")
	feedURL := flag.String("feed-url", "", "Websocket feed endpoint (overrides feed.url)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides metrics.addr)")

	flag.Parse()

	fx.New(
		fx.Supply(flags{
			configPath:  *configPath,
			eventsFile:  *eventsFile,
			feedURL:     *feedURL,
			metricsAddr: *metricsAddr,
		}),
		fx.Provide(
			newConfig,
			newLogger,
			newRegistry,
			newMetrics,
			newPool,
			newStore,
			newSink,
			newIndexer,
			newSource,
		),
		fx.Invoke(run),
		fx.WithLogger(fxzerolog.Init()),
		fx.StartTimeout(2*time.Minute),
	).Run()
}
