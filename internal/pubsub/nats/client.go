package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"rodeo-indexer/internal/domain"
)

// Client publishes indexer output on NATS subjects under a common prefix:
//
//	<prefix>.trades.<token>
//	<prefix>.candles.<token>.<interval>
//	<prefix>.price
//
// Every message carries a Nats-Msg-Id header derived from the source event,
// so JetStream streams can drop redeliveries.
type Client struct {
	nc           *nats.Conn
	prefix       string
	flushTimeout time.Duration
	logger       zerolog.Logger
}

// DefaultFlushTimeout bounds Flush when the caller's context has no deadline.
const DefaultFlushTimeout = 5 * time.Second

// Connect dials the NATS server at url.
func Connect(url, prefix string, logger zerolog.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	if prefix == "" {
		prefix = "rodeo"
	}

	opts := []nats.Option{
		nats.Name("rodeo-indexer"),
		nats.Timeout(5 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1), // endless reconnected
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info().Str("url", url).Str("prefix", prefix).Msg("connected to NATS")
	return &Client{nc: nc, prefix: prefix, flushTimeout: DefaultFlushTimeout, logger: logger}, nil
}

// Ready reports whether the connection is established.
func (c *Client) Ready() bool {
	if c.nc == nil {
		return false
	}
	return c.nc.Status() == nats.CONNECTED
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() error {
	if c.nc == nil || c.nc.IsClosed() {
		return nil
	}

	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("failed to drain connection to NATS: %w", err)
	}

	c.logger.Info().Msg("NATS connection closed gracefully")
	return nil
}

// TradeSubject returns the subject trades of token are published on.
func (c *Client) TradeSubject(token string) string {
	return c.prefix + ".trades." + token
}

// CandleSubject returns the subject candles of token and interval are published on.
func (c *Client) CandleSubject(token, interval string) string {
	return c.prefix + ".candles." + token + "." + interval
}

// PriceSubject returns the subject reference price samples are published on.
func (c *Client) PriceSubject() string {
	return c.prefix + ".price"
}

// PublishTrade publishes one trade.
func (c *Client) PublishTrade(ctx context.Context, t *domain.Trade, msgID string) error {
	return c.publish(ctx, c.TradeSubject(t.Token), msgID, newTradeMessage(t))
}

// PublishCandles publishes every candle on its own subject.
func (c *Client) PublishCandles(ctx context.Context, candles []*domain.Candle, msgID string) error {
	for _, cd := range candles {
		if err := c.publish(ctx, c.CandleSubject(cd.Token, cd.Interval), msgID+":"+cd.Interval, newCandleMessage(cd)); err != nil {
			return err
		}
	}
	return nil
}

// PublishPrice publishes a reference price sample.
func (c *Client) PublishPrice(ctx context.Context, s *domain.PriceSample, msgID string) error {
	return c.publish(ctx, c.PriceSubject(), msgID, newPriceMessage(s))
}

// Flush waits until the server has processed everything published so far.
// A context without a deadline is bounded by the client's flush timeout.
func (c *Client) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.flushTimeout)
		defer cancel()
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}

func (c *Client) publish(ctx context.Context, subject, msgID string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	if msgID != "" {
		msg.Header.Set(nats.MsgIdHdr, msgID)
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
