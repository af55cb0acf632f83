package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rodeo-indexer/internal/config"
	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/indexer"
	"rodeo-indexer/internal/ingestion"
	"rodeo-indexer/internal/logging"
	"rodeo-indexer/internal/reducer"
	"rodeo-indexer/internal/replay"
	"rodeo-indexer/internal/storage"
	"rodeo-indexer/internal/storage/memory"
	pgstore "rodeo-indexer/internal/storage/postgres"
	"rodeo-indexer/internal/verification"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	eventsFile := flag.String("events", "", "Replay a JSON-lines event file instead of the postgres raw log")
	fromBlock := flag.Uint64("from-block", 0, "First block to replay (inclusive)")
	toBlock := flag.Uint64("to-block", 0, "Last block to replay (inclusive, 0 = whole log)")
	target := flag.String("store", config.StoreMemory, "Entity store to replay into: memory or postgres")
	outputJSON := flag.Bool("json", false, "Output summary as JSON")
	verify := flag.Bool("verify", false, "Compare the postgres entity store against a fresh replay instead of replaying into a store")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With().Str("cmd", "replay").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, options{
		eventsFile: *eventsFile,
		from:       *fromBlock,
		to:         *toBlock,
		target:     *target,
		json:       *outputJSON,
		verify:     *verify,
	}); err != nil {
		logger.Fatal().Err(err).Msg("replay failed")
	}
}

type options struct {
	eventsFile string
	from, to   uint64
	target     string
	json       bool
	verify     bool
}

// Stats counts replayed events.
type Stats struct {
	TotalEvents    int                      `json:"total_events"`
	ByKind         map[domain.EventKind]int `json:"by_kind"`
	FirstBlock     uint64                   `json:"first_block"`
	LastBlock      uint64                   `json:"last_block"`
	Tokens         int                      `json:"tokens"`
	Trades         int                      `json:"trades"`
	Candles        int                      `json:"candles"`
	Holders        int                      `json:"holders"`
	TokensOnDex    int                      `json:"tokens_on_dex"`
	PlatformTrades int64                    `json:"platform_trades"`
	Elapsed        string                   `json:"elapsed"`
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts options) error {
	if opts.to != 0 && opts.from > opts.to {
		return fmt.Errorf("--from-block %d is after --to-block %d", opts.from, opts.to)
	}

	var (
		pool   *pgstore.Pool
		events storage.RawEventStore
	)
	if opts.eventsFile == "" || opts.target == config.StorePostgres || opts.verify {
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		var err error
		pool, err = pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
	}

	if opts.eventsFile != "" {
		mem := memory.NewRawEventStore()
		if err := loadFile(ctx, mem, opts.eventsFile, logger); err != nil {
			return err
		}
		events = mem
	} else {
		events = pgstore.NewRawEventStore(pool)
	}

	policy, err := reducer.ParseHolderPolicy(cfg.Indexer.HolderPolicy)
	if err != nil {
		return err
	}

	if opts.verify {
		return verify(ctx, events, pgstore.NewEntityStore(pool), policy, logger, opts.json)
	}

	var store storage.EntityStore
	switch opts.target {
	case config.StoreMemory:
		store = memory.NewEntityStore()
	case config.StorePostgres:
		store = pgstore.NewEntityStore(pool)
	default:
		return fmt.Errorf("unknown store %q", opts.target)
	}

	ix := indexer.New(indexer.Options{
		Store:   store,
		Reducer: reducer.New(reducer.Options{InitialHolder: policy}),
		Logger:  logger,
	})

	stats := &Stats{ByKind: make(map[domain.EventKind]int)}
	engine := replay.EngineFunc(func(ctx context.Context, ev *domain.Event) error {
		if err := ix.OnEvent(ctx, ev); err != nil {
			return err
		}
		if stats.TotalEvents == 0 {
			stats.FirstBlock = ev.Block
		}
		stats.TotalEvents++
		stats.ByKind[ev.Kind]++
		stats.LastBlock = ev.Block
		return nil
	})

	start := time.Now()
	runner := replay.NewRunner(events)
	if opts.to == 0 && opts.from == 0 {
		logger.Info().Str("store", opts.target).Msg("replaying whole event log")
		_, err = runner.RunAll(ctx, engine)
	} else {
		to := opts.to
		if to == 0 {
			to = ^uint64(0)
		}
		logger.Info().Uint64("from", opts.from).Uint64("to", to).Str("store", opts.target).Msg("replaying block range")
		_, err = runner.Run(ctx, opts.from, to, engine)
	}
	if err != nil {
		return err
	}
	stats.Elapsed = time.Since(start).Round(time.Millisecond).String()

	summary, err := indexer.Summarize(ctx, store)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	stats.Tokens = summary.Tokens
	stats.Trades = summary.Trades
	stats.Candles = summary.Candles
	stats.Holders = summary.Holders
	stats.TokensOnDex = summary.TokensOnDex
	if summary.Platform != nil {
		stats.PlatformTrades = summary.Platform.TotalTrades
	}

	printStats(stats, opts.json)
	return nil
}

func loadFile(ctx context.Context, store storage.RawEventStore, path string, logger zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	evs, err := ingestion.ReadEvents(f)
	if err != nil {
		return fmt.Errorf("read events file: %w", err)
	}
	st, err := ingestion.NewRecorder(store, logger).RecordAll(ctx, evs)
	if err != nil {
		return err
	}
	logger.Info().Int("inserted", st.Inserted).Int("duplicates", st.Duplicates).Str("file", path).Msg("loaded events file")
	return nil
}

func printStats(stats *Stats, asJSON bool) {
	if asJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Total Events:      %d\n", stats.TotalEvents)
	for _, kind := range []domain.EventKind{
		domain.KindCreateToken, domain.KindTokenTrade, domain.KindLiquidityTrade,
		domain.KindTransferToDex, domain.KindTransfer, domain.KindReserveSync,
	} {
		fmt.Printf("  %-16s %d\n", kind+":", stats.ByKind[kind])
	}
	if stats.TotalEvents > 0 {
		fmt.Printf("Blocks:            %d - %d\n", stats.FirstBlock, stats.LastBlock)
	} else {
		fmt.Printf("Blocks:            N/A\n")
	}
	fmt.Printf("Tokens:            %d (%d on dex)\n", stats.Tokens, stats.TokensOnDex)
	fmt.Printf("Trades:            %d\n", stats.Trades)
	fmt.Printf("Candles:           %d\n", stats.Candles)
	fmt.Printf("Holders:           %d\n", stats.Holders)
	fmt.Printf("Elapsed:           %s\n", stats.Elapsed)
}

func verify(ctx context.Context, events storage.RawEventStore, stored storage.EntityStore, policy reducer.HolderPolicy, logger zerolog.Logger, asJSON bool) error {
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		Events:  events,
		Stored:  stored,
		Reducer: reducer.Options{InitialHolder: policy},
		Logger:  logger,
	})
	report, err := v.VerifyAll(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("\n=== Verification Report ===\n")
		fmt.Printf("Tokens:            %d\n", report.TotalTokens)
		fmt.Printf("Matched:           %d\n", report.MatchedTokens)
		fmt.Printf("Divergent:         %d\n", report.DivergentTokens)
		fmt.Printf("Missing:           %d\n", len(report.MissingTokens))
		for _, r := range report.Results {
			for _, d := range r.Divergences {
				fmt.Printf("  %s %s: stored=%v replayed=%v\n", r.Token, d.Field, d.Expected, d.Actual)
			}
		}
	}

	if !report.OK() {
		return errors.New("stored state diverges from replay")
	}
	return nil
}
