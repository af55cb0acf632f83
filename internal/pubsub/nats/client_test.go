package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/fixedpoint"
)

const testToken = "0x00000000000000000000000000000000000000aa"

// runTestWithInMemoryNATS starts an in-process server on a random port.
func runTestWithInMemoryNATS(t *testing.T, testFunc func(*testing.T, *server.Server, string)) {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1 // random port
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	testFunc(t, s, s.ClientURL())
}

func subscribe(t *testing.T, url, subject string) *nats.Subscription {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	sub, err := nc.SubscribeSync(subject)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	return sub
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect("", "rodeo", zerolog.Nop())
	assert.Error(t, err)
}

func TestClient_PublishTrade(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, _ *server.Server, url string) {
		sub := subscribe(t, url, "rodeo.trades.>")

		client, err := Connect(url, "rodeo", zerolog.Nop())
		require.NoError(t, err)
		defer client.Close()
		assert.True(t, client.Ready())

		ctx := context.Background()
		trade := &domain.Trade{
			ID: "t1", Token: testToken, User: "0xb1", TxHash: "0x01", Block: 7,
			Amount: fixedpoint.Units(50), AmountInQuote: decimal.NewFromInt(98),
			Price: decimal.RequireFromString("1.96"), Fees: fixedpoint.Units(2), IsBuy: true,
		}
		require.NoError(t, client.PublishTrade(ctx, trade, "evt-1"))
		require.NoError(t, client.Flush(ctx))

		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, "rodeo.trades."+testToken, msg.Subject)
		assert.Equal(t, "evt-1", msg.Header.Get(nats.MsgIdHdr))

		var got TradeMessage
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, "buy", got.Side)
		assert.Equal(t, "50", got.Amount)
		assert.Equal(t, "1.96", got.Price)
		assert.Equal(t, "2", got.Fees)
	})
}

func TestClient_PublishCandlesPerInterval(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, _ *server.Server, url string) {
		sub := subscribe(t, url, "idx.candles."+testToken+".*")

		client, err := Connect(url, "idx", zerolog.Nop())
		require.NoError(t, err)
		defer client.Close()

		ctx := context.Background()
		candles := []*domain.Candle{
			{Token: testToken, Interval: "1m", StartTime: 60, Volume: fixedpoint.Units(1)},
			{Token: testToken, Interval: "1h", StartTime: 0, Volume: fixedpoint.Units(1)},
		}
		require.NoError(t, client.PublishCandles(ctx, candles, "evt-2"))
		require.NoError(t, client.Flush(ctx))

		var subjects, ids []string
		for range candles {
			msg, err := sub.NextMsg(2 * time.Second)
			require.NoError(t, err)
			subjects = append(subjects, msg.Subject)
			ids = append(ids, msg.Header.Get(nats.MsgIdHdr))
		}
		assert.Equal(t, []string{"idx.candles." + testToken + ".1m", "idx.candles." + testToken + ".1h"}, subjects)
		assert.Equal(t, []string{"evt-2:1m", "evt-2:1h"}, ids)
	})
}

func TestClient_PublishPrice(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, _ *server.Server, url string) {
		sub := subscribe(t, url, "rodeo.price")

		client, err := Connect(url, "", zerolog.Nop())
		require.NoError(t, err)
		defer client.Close()

		ctx := context.Background()
		require.NoError(t, client.PublishPrice(ctx, &domain.PriceSample{Price: decimal.RequireFromString("2.45"), Timestamp: 99}, ""))
		require.NoError(t, client.Flush(ctx))

		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)

		var got PriceMessage
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, PriceMessage{Price: "2.45", Timestamp: 99}, got)
		assert.Empty(t, msg.Header.Get(nats.MsgIdHdr))
	})
}

func TestClient_PublishCanceledContext(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, _ *server.Server, url string) {
		client, err := Connect(url, "rodeo", zerolog.Nop())
		require.NoError(t, err)
		defer client.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = client.PublishPrice(ctx, &domain.PriceSample{}, "x")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_FlushWithoutDeadline(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, _ *server.Server, url string) {
		client, err := Connect(url, "rodeo", zerolog.Nop())
		require.NoError(t, err)
		defer client.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, hasDeadline := ctx.Deadline()
		require.False(t, hasDeadline)

		require.NoError(t, client.PublishPrice(ctx, &domain.PriceSample{Price: decimal.NewFromInt(1), Timestamp: 1}, "p1"))
		assert.NoError(t, client.Flush(ctx))
	})
}

func TestClient_FlushHonorsCallerDeadline(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, _ *server.Server, url string) {
		client, err := Connect(url, "rodeo", zerolog.Nop())
		require.NoError(t, err)
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, client.Flush(ctx))
	})
}
