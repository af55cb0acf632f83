package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/fixedpoint"
	"rodeo-indexer/internal/storage"
)

const (
	lastPriceKey       = "price:last"
	latestCandlePrefix = "candle:last:"
	tokenPrefix        = "token:"
)

// Client wraps the go-redis client.
type Client struct {
	*goredis.Client
}

// New connects to the redis server at url, e.g. redis://localhost:6379/0.
func New(ctx context.Context, url string) (*Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{rdb}, nil
}

// Cache keeps the latest reference price, the latest candle per token and
// interval, and a per-token summary hash for read-side services.
type Cache struct {
	rdb *Client
	ttl time.Duration
}

// NewCache creates a Cache. A zero ttl keeps keys forever.
func NewCache(rdb *Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

type cachedPrice struct {
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

type cachedCandle struct {
	Token     string `json:"token"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
}

// SetLastPrice stores the latest reference price sample.
func (c *Cache) SetLastPrice(ctx context.Context, s *domain.PriceSample) error {
	data, err := json.Marshal(cachedPrice{Price: s.Price.String(), Timestamp: s.Timestamp})
	if err != nil {
		return fmt.Errorf("encode price: %w", err)
	}
	if err := c.rdb.Set(ctx, lastPriceKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set last price: %w", err)
	}
	return nil
}

// GetLastPrice returns the latest reference price sample or storage.ErrNotFound.
func (c *Cache) GetLastPrice(ctx context.Context) (*domain.PriceSample, error) {
	data, err := c.rdb.Get(ctx, lastPriceKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last price: %w", err)
	}

	var v cachedPrice
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	price, err := decimal.NewFromString(v.Price)
	if err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	return &domain.PriceSample{ID: "1", Price: price, Timestamp: v.Timestamp}, nil
}

// SetLatestCandles stores each candle as the latest of its token and interval.
// An older bucket never replaces a newer one.
func (c *Cache) SetLatestCandles(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	for _, cd := range candles {
		key := latestCandleKey(cd.Token, cd.Interval)
		current, err := c.getCandle(ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if current != nil && current.StartTime > cd.StartTime {
			continue
		}

		data, err := json.Marshal(newCachedCandle(cd))
		if err != nil {
			return fmt.Errorf("encode candle: %w", err)
		}
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			return fmt.Errorf("set latest candle: %w", err)
		}
	}
	return nil
}

// GetLatestCandle returns the latest candle of token and interval or storage.ErrNotFound.
func (c *Cache) GetLatestCandle(ctx context.Context, token, interval string) (*domain.Candle, error) {
	return c.getCandle(ctx, latestCandleKey(token, interval))
}

func (c *Cache) getCandle(ctx context.Context, key string) (*domain.Candle, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest candle: %w", err)
	}

	var v cachedCandle
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode candle: %w", err)
	}
	return v.toDomain()
}

// SetTokenSummary writes the token's headline fields into the hash token:<address>.
func (c *Cache) SetTokenSummary(ctx context.Context, t *domain.Token) error {
	key := tokenPrefix + t.ID

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"name", t.Name,
		"symbol", t.Symbol,
		"lastPrice", t.LastPrice.String(),
		"lastPriceUpdate", t.LastPriceUpdate,
		"liquidity", fixedpoint.ToDecimal(t.Liquidity).String(),
		"onDex", t.OnDex,
		"totalTrades", t.TotalTrades,
		"totalHolders", t.TotalHolders,
	)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set token summary: %w", err)
	}
	return nil
}

// GetTokenSummary returns the raw summary fields of token, empty if absent.
func (c *Cache) GetTokenSummary(ctx context.Context, token string) (map[string]string, error) {
	fields, err := c.rdb.HGetAll(ctx, tokenPrefix+token).Result()
	if err != nil {
		return nil, fmt.Errorf("get token summary: %w", err)
	}
	return fields, nil
}

func latestCandleKey(token, interval string) string {
	return latestCandlePrefix + token + ":" + interval
}

func newCachedCandle(c *domain.Candle) cachedCandle {
	return cachedCandle{
		Token:     c.Token,
		Interval:  c.Interval,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Open:      c.Open.String(),
		High:      c.High.String(),
		Low:       c.Low.String(),
		Close:     c.Close.String(),
		Volume:    fixedpoint.ToDecimal(c.Volume).String(),
	}
}

func (v cachedCandle) toDomain() (*domain.Candle, error) {
	c := &domain.Candle{
		Token:     v.Token,
		Interval:  v.Interval,
		StartTime: v.StartTime,
		EndTime:   v.EndTime,
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&c.Open, v.Open}, {&c.High, v.High}, {&c.Low, v.Low}, {&c.Close, v.Close},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("decode candle: %w", err)
		}
		*f.dst = d
	}

	volume, err := decimal.NewFromString(v.Volume)
	if err != nil {
		return nil, fmt.Errorf("decode candle volume: %w", err)
	}
	c.Volume = fixedpoint.FromDecimal(volume)
	return c, nil
}
