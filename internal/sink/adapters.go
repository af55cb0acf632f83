package sink

import (
	"context"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/idhash"
	"rodeo-indexer/internal/reducer"
	"rodeo-indexer/internal/storage/clickhouse"
)

// Publisher is the message bus side of a sink, implemented by the NATS client.
type Publisher interface {
	PublishTrade(ctx context.Context, t *domain.Trade, msgID string) error
	PublishCandles(ctx context.Context, candles []*domain.Candle, msgID string) error
	PublishPrice(ctx context.Context, s *domain.PriceSample, msgID string) error
	Flush(ctx context.Context) error
}

// Cache is the read cache side of a sink, implemented by the redis cache.
type Cache interface {
	SetLastPrice(ctx context.Context, s *domain.PriceSample) error
	SetLatestCandles(ctx context.Context, candles []*domain.Candle) error
	SetTokenSummary(ctx context.Context, t *domain.Token) error
}

// Analytics is the columnar store side of a sink, implemented by the ClickHouse store.
type Analytics interface {
	InsertTrades(ctx context.Context, trades []*domain.Trade) error
	UpsertCandles(ctx context.Context, candles []*domain.Candle, version uint64) error
}

type publisherSink struct {
	pub Publisher
}

// NewPublisherSink publishes trades, candles and price samples.
func NewPublisherSink(pub Publisher) Sink {
	return publisherSink{pub: pub}
}

func (s publisherSink) Name() string { return "nats" }

func (s publisherSink) Publish(ctx context.Context, fx *reducer.Effects) error {
	id := idhash.EventID(fx.Event)
	if fx.Trade != nil {
		if err := s.pub.PublishTrade(ctx, fx.Trade, id); err != nil {
			return err
		}
	}
	if len(fx.Candles) > 0 {
		if err := s.pub.PublishCandles(ctx, fx.Candles, id); err != nil {
			return err
		}
	}
	if fx.PriceSample != nil {
		if err := s.pub.PublishPrice(ctx, fx.PriceSample, id); err != nil {
			return err
		}
	}
	return s.pub.Flush(ctx)
}

type cacheSink struct {
	cache Cache
}

// NewCacheSink keeps the latest price, candles and token summaries cached.
func NewCacheSink(cache Cache) Sink {
	return cacheSink{cache: cache}
}

func (s cacheSink) Name() string { return "redis" }

func (s cacheSink) Publish(ctx context.Context, fx *reducer.Effects) error {
	if fx.PriceSample != nil {
		if err := s.cache.SetLastPrice(ctx, fx.PriceSample); err != nil {
			return err
		}
	}
	if err := s.cache.SetLatestCandles(ctx, fx.Candles); err != nil {
		return err
	}
	if fx.Token != nil {
		return s.cache.SetTokenSummary(ctx, fx.Token)
	}
	return nil
}

type analyticsSink struct {
	store Analytics
}

// NewAnalyticsSink appends trades and candle snapshots to the analytics store.
func NewAnalyticsSink(store Analytics) Sink {
	return analyticsSink{store: store}
}

func (s analyticsSink) Name() string { return "clickhouse" }

func (s analyticsSink) Publish(ctx context.Context, fx *reducer.Effects) error {
	if fx.Trade != nil {
		if err := s.store.InsertTrades(ctx, []*domain.Trade{fx.Trade}); err != nil {
			return err
		}
	}
	return s.store.UpsertCandles(ctx, fx.Candles, clickhouse.Version(fx.Event.Position()))
}
