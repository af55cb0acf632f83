package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	rediscache "rodeo-indexer/internal/cache/redis"
	"rodeo-indexer/internal/config"
	"rodeo-indexer/internal/feed"
	"rodeo-indexer/internal/indexer"
	"rodeo-indexer/internal/ingestion"
	"rodeo-indexer/internal/logging"
	"rodeo-indexer/internal/observability"
	natspub "rodeo-indexer/internal/pubsub/nats"
	"rodeo-indexer/internal/reducer"
	"rodeo-indexer/internal/sink"
	"rodeo-indexer/internal/storage"
	chstore "rodeo-indexer/internal/storage/clickhouse"
	"rodeo-indexer/internal/storage/memory"
	"rodeo-indexer/internal/storage/migrations"
	pgstore "rodeo-indexer/internal/storage/postgres"
)

const connectTimeout = 30 * time.Second

type flags struct {
	configPath  string
	eventsFile  string
	feedURL     string
	metricsAddr string
}

func newConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.eventsFile != "" {
		cfg.Feed.File = f.eventsFile
	}
	if f.feedURL != "" {
		cfg.Feed.URL = f.feedURL
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logger.With().Str("instance", uuid.NewString()).Logger(), nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newMetrics(reg *prometheus.Registry) *observability.Metrics {
	return observability.NewMetrics("rodeo", reg)
}

// newPool connects to postgres when a DSN is configured. It returns nil otherwise.
func newPool(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (*pgstore.Pool, error) {
	if cfg.Postgres.DSN == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Indexer.MigrateOnBoot {
		if _, err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		pool.Close()
		return nil
	}})
	return pool, nil
}

func newStore(cfg *config.Config, pool *pgstore.Pool, logger zerolog.Logger) storage.EntityStore {
	if cfg.Indexer.Store == config.StorePostgres {
		logger.Info().Msg("using postgres entity store")
		return pgstore.NewEntityStore(pool)
	}
	logger.Warn().Msg("using in-memory entity store, state is lost on exit")
	return memory.NewEntityStore()
}

func newSink(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (sink.Sink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var sinks []sink.Sink

	if cfg.NATS.Enabled {
		client, err := natspub.Connect(cfg.NATS.URL, cfg.NATS.Prefix, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		sinks = append(sinks, sink.NewPublisherSink(client))
	}

	if cfg.Redis.Enabled {
		rdb, err := rediscache.New(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return rdb.Close() }})
		sinks = append(sinks, sink.NewCacheSink(rediscache.NewCache(rdb, cfg.Redis.TTL)))
	}

	if cfg.ClickHouse.Enabled {
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Indexer.MigrateOnBoot {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN, logger)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		}
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return conn.Close() }})
		sinks = append(sinks, sink.NewAnalyticsSink(chstore.NewAnalyticsStore(conn)))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logger.Info().Strs("sinks", names).Msg("sinks configured")

	return sink.NewFanout(logger, func(name string, _ error) {
		metrics.RecordSinkError(name)
	}, sinks...), nil
}

func newIndexer(cfg *config.Config, store storage.EntityStore, out sink.Sink, metrics *observability.Metrics, logger zerolog.Logger) (*indexer.Indexer, error) {
	policy, err := reducer.ParseHolderPolicy(cfg.Indexer.HolderPolicy)
	if err != nil {
		return nil, err
	}
	return indexer.New(indexer.Options{
		Store:   store,
		Reducer: reducer.New(reducer.Options{InitialHolder: policy}),
		Sink:    out,
		Metrics: metrics,
		Logger:  logger,
	}), nil
}

func newSource(cfg *config.Config, ix *indexer.Indexer, logger zerolog.Logger) (ingestion.Source, error) {
	if cfg.Feed.File != "" {
		logger.Info().Str("file", cfg.Feed.File).Msg("indexing event file")
		return ingestion.NewFileSource(cfg.Feed.File), nil
	}
	if cfg.Feed.URL == "" {
		return nil, errors.New("feed.url or feed.file is required")
	}

	fc := feed.DefaultConfig()
	if cfg.Feed.ReconnectDelay > 0 {
		fc.ReconnectDelay = cfg.Feed.ReconnectDelay
	}
	fc.MaxReconnects = cfg.Feed.MaxReconnects
	client := feed.NewClient(cfg.Feed.URL, fc, logger)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	cur, err := ix.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		// The cursor block is requested again; positions already applied are skipped.
		client.SetStartBlock(cur.Block)
		logger.Info().Stringer("cursor", cur).Msg("resuming feed from cursor")
	}
	return client, nil
}

type runParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config.Config
	Logger     zerolog.Logger
	Registry   *prometheus.Registry
	Metrics    *observability.Metrics
	Pool       *pgstore.Pool
	Indexer    *indexer.Indexer
	Source     ingestion.Source
}

func run(p runParams) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		BlockLag: p.Config.Feed.BlockLag,
		Logger:   p.Logger,
	})

	var wrap []func(ingestion.Handler) ingestion.Handler
	if p.Config.Indexer.RecordRaw {
		recorder := ingestion.NewRecorder(pgstore.NewRawEventStore(p.Pool), p.Logger).WithMetrics(p.Metrics)
		wrap = append(wrap, recorder.Wrap)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			g, gctx := errgroup.WithContext(ctx)

			if addr := p.Config.Metrics.Addr; addr != "" {
				srv := newMetricsServer(addr, p.Registry)
				g.Go(func() error {
					p.Logger.Info().Str("addr", addr).Msg("metrics server listening")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
					defer stop()
					return srv.Shutdown(shutdownCtx)
				})
			}

			g.Go(func() error {
				err := p.Indexer.Run(gctx, runner, p.Source, wrap...)
				if err == nil {
					p.Logger.Info().Msg("event source finished")
					return errSourceDone
				}
				return err
			})

			go func() {
				defer close(done)
				err := g.Wait()
				code := 0
				switch {
				case err == nil, errors.Is(err, errSourceDone), errors.Is(err, context.Canceled):
				default:
					p.Logger.Error().Err(err).Msg("indexer stopped")
					code = 1
				}
				if ctx.Err() == nil {
					_ = p.Shutdowner.Shutdown(fx.ExitCode(code))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

var errSourceDone = errors.New("event source finished")

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}
