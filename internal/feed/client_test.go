package feed

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodeo-indexer/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testConfig() Config {
	return Config{
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 50 * time.Millisecond,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Second,
	}
}

func syncAt(block uint64) *domain.Event {
	return &domain.Event{
		Kind:        domain.KindReserveSync,
		Block:       block,
		TxHash:      "0x01",
		Timestamp:   int64(block) * 12,
		ReserveSync: &domain.ReserveSync{Reserve0: big.NewInt(1000), Reserve1: big.NewInt(2450)},
	}
}

// feedServer runs one scripted handler per connection and records subscriptions.
type feedServer struct {
	t        *testing.T
	mu       sync.Mutex
	requests []subscribeRequest
	sessions []func(conn *websocket.Conn)
}

func (s *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	var req subscribeRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}

	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	var script func(*websocket.Conn)
	if n < len(s.sessions) {
		script = s.sessions[n]
	}
	s.mu.Unlock()

	_ = conn.WriteJSON(serverMessage{Type: messageSubscribed})
	if script != nil {
		script(conn)
		return
	}
	// Keep connection open
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *feedServer) subscriptions() []subscribeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]subscribeRequest(nil), s.requests...)
}

func startServer(t *testing.T, sessions ...func(conn *websocket.Conn)) (*feedServer, string) {
	fs := &feedServer{t: t, sessions: sessions}
	server := httptest.NewServer(fs)
	t.Cleanup(server.Close)
	return fs, "ws" + strings.TrimPrefix(server.URL, "http")
}

func sendEvents(blocks ...uint64) func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		for _, b := range blocks {
			if err := conn.WriteJSON(serverMessage{Type: messageEvent, Event: syncAt(b)}); err != nil {
				return
			}
		}
	}
}

func receive(t *testing.T, events <-chan *domain.Event, n int) []*domain.Event {
	t.Helper()
	var out []*domain.Event
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed after %d of %d", len(out), n)
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestClient_StreamsEvents(t *testing.T) {
	fs, url := startServer(t, func(conn *websocket.Conn) {
		sendEvents(5, 6)(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(url, testConfig(), zerolog.Nop())
	client.SetStartBlock(5)
	events, errs := client.Events(ctx)

	got := receive(t, events, 2)
	assert.Equal(t, uint64(5), got[0].Block)
	assert.Equal(t, "2450", got[1].ReserveSync.Reserve1.String())
	assert.Equal(t, uint64(5), fs.subscriptions()[0].FromBlock)

	cancel()
	for range events {
	}
	assert.NoError(t, <-errs, "cancellation is not an error")
}

func TestClient_ResumesAfterDisconnect(t *testing.T) {
	fs, url := startServer(t, sendEvents(1, 2), sendEvents(2, 3))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _ := NewClient(url, testConfig(), zerolog.Nop()).Events(ctx)
	got := receive(t, events, 4)

	var blocks []uint64
	for _, ev := range got {
		blocks = append(blocks, ev.Block)
	}
	assert.Equal(t, []uint64{1, 2, 2, 3}, blocks)

	subs := fs.subscriptions()
	require.GreaterOrEqual(t, len(subs), 2)
	assert.Equal(t, uint64(0), subs[0].FromBlock)
	assert.Equal(t, uint64(2), subs[1].FromBlock, "resume from the last delivered block")
}

func TestClient_GivesUpAfterMaxReconnects(t *testing.T) {
	closeNow := func(*websocket.Conn) {}
	_, url := startServer(t, closeNow, closeNow, closeNow, closeNow)

	cfg := testConfig()
	cfg.MaxReconnects = 2

	events, errs := NewClient(url, cfg, zerolog.Nop()).Events(context.Background())
	for range events {
	}
	assert.ErrorIs(t, <-errs, ErrTooManyReconnects)
}

func TestClient_InvalidEventIsFatal(t *testing.T) {
	fs, url := startServer(t, func(conn *websocket.Conn) {
		bad := syncAt(1)
		bad.ReserveSync = nil
		_ = conn.WriteJSON(serverMessage{Type: messageEvent, Event: bad})
	})

	events, errs := NewClient(url, testConfig(), zerolog.Nop()).Events(context.Background())
	for range events {
	}

	err := <-errs
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	assert.Len(t, fs.subscriptions(), 1, "no reconnect after a fatal error")
}

func TestClient_CancelSendsNormalClose(t *testing.T) {
	closed := make(chan error, 1)
	fs, url := startServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed <- err
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(url, testConfig(), zerolog.Nop())
	events, errs := client.Events(ctx)

	require.Eventually(t, func() bool { return len(fs.subscriptions()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-closed:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a close frame")
	}

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
	for err := range errs {
		t.Errorf("unexpected error after cancel: %v", err)
	}
}

func TestClient_CloseConnWithoutWriteTimeout(t *testing.T) {
	closed := make(chan error, 1)
	_, url := startServer(t, func(conn *websocket.Conn) {
		_, _, err := conn.ReadMessage()
		closed <- err
	})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(subscribeRequest{Method: methodSubscribe}))
	var ack serverMessage
	require.NoError(t, conn.ReadJSON(&ack))

	cfg := testConfig()
	cfg.WriteTimeout = 0
	NewClient(url, cfg, zerolog.Nop()).closeConn(conn)

	select {
	case err := <-closed:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a close frame")
	}
}

func TestDecodeMessage(t *testing.T) {
	ev, err := decodeMessage([]byte(`{"type":"subscribed"}`))
	require.NoError(t, err)
	assert.Nil(t, ev)

	_, err = decodeMessage([]byte(`{"type":"error","error":"pruned"}`))
	assert.ErrorContains(t, err, "pruned")

	_, err = decodeMessage([]byte(`not json`))
	assert.Error(t, err)
}
