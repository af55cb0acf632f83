// Package feed streams decoded chain events from a websocket endpoint.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rodeo-indexer/internal/domain"
)

// ErrTooManyReconnects is returned when the reconnect budget is exhausted.
var ErrTooManyReconnects = errors.New("feed: too many reconnect attempts")

// Config configures websocket client behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// MaxReconnects bounds consecutive failed reconnects; 0 retries forever.
	MaxReconnects int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultConfig returns default websocket configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client subscribes to an event feed and resumes from the last delivered
// block after a reconnect. Events of that block may be delivered twice;
// consumers skip positions they have already applied.
type Client struct {
	endpoint string
	config   Config
	logger   zerolog.Logger

	fromBlock atomic.Uint64
}

// NewClient creates a new feed client. No connection is made until Events.
func NewClient(endpoint string, config Config, logger zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		config:   config,
		logger:   logger.With().Str("component", "feed").Str("endpoint", endpoint).Logger(),
	}
}

// SetStartBlock sets the block the first subscription starts from.
func (c *Client) SetStartBlock(block uint64) {
	c.fromBlock.Store(block)
}

// Events connects and streams events until ctx is done or the feed fails.
func (c *Client) Events(ctx context.Context) (<-chan *domain.Event, <-chan error) {
	events := make(chan *domain.Event, 1024)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)

		if err := c.run(ctx, events); err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return events, errs
}

func (c *Client) run(ctx context.Context, events chan<- *domain.Event) error {
	delay := c.config.ReconnectDelay
	failures := 0

	for {
		delivered, err := c.session(ctx, events)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var fatal *fatalError
		if errors.As(err, &fatal) {
			return fatal.err
		}

		if delivered > 0 {
			failures = 0
			delay = c.config.ReconnectDelay
		}
		failures++
		if c.config.MaxReconnects > 0 && failures > c.config.MaxReconnects {
			return fmt.Errorf("%w: %v", ErrTooManyReconnects, err)
		}

		c.logger.Warn().Err(err).Dur("delay", delay).Int("attempt", failures).
			Uint64("from_block", c.fromBlock.Load()).Msg("feed disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		// Exponential backoff
		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// fatalError stops the client instead of reconnecting.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

// session runs one connection and returns the number of events it delivered.
func (c *Client) session(ctx context.Context, events chan<- *domain.Event) (int, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("websocket dial: %w", err)
	}

	var writeMu sync.Mutex
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		c.closeConn(conn)
	}()

	go c.pingLoop(conn, &writeMu, done)

	req := subscribeRequest{Method: methodSubscribe, FromBlock: c.fromBlock.Load()}
	writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err = conn.WriteJSON(req)
	writeMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	c.logger.Info().Uint64("from_block", req.FromBlock).Msg("feed subscribed")

	delivered := 0
	for {
		if c.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return delivered, fmt.Errorf("read message: %w", err)
		}

		ev, err := decodeMessage(message)
		if err != nil {
			return delivered, &fatalError{err: err}
		}
		if ev == nil {
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return delivered, ctx.Err()
		}
		delivered++
		if ev.Block > c.fromBlock.Load() {
			c.fromBlock.Store(ev.Block)
		}
	}
}

// closeConn sends a close frame bounded by the write timeout and closes conn.
// WriteControl may run concurrently with the other writers.
func (c *Client) closeConn(conn *websocket.Conn) {
	timeout := c.config.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().WriteTimeout
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout)); err != nil {
		c.logger.Debug().Err(err).Msg("write close frame")
	}
	conn.Close()
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *Client) pingLoop(conn *websocket.Conn, writeMu *sync.Mutex, done <-chan struct{}) {
	if c.config.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				// Connection might be dead, reader will handle reconnect
				return
			}
		}
	}
}

// decodeMessage returns the event carried by message, or nil for control messages.
func decodeMessage(message []byte) (*domain.Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}

	switch msg.Type {
	case messageEvent:
		if msg.Event == nil {
			return nil, fmt.Errorf("feed event message without event")
		}
		if err := msg.Event.Validate(); err != nil {
			return nil, fmt.Errorf("feed event at %s: %w", msg.Event.Position(), err)
		}
		return msg.Event, nil
	case messageError:
		return nil, fmt.Errorf("feed error: %s", msg.Error)
	default:
		return nil, nil
	}
}
