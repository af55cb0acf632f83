package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"rodeo-indexer/internal/config"
	"rodeo-indexer/internal/indexer"
	"rodeo-indexer/internal/ingestion"
)

const eventLines = `{"kind":"create_token","block":1,"txIndex":0,"logIndex":0,"txHash":"0x01","timestamp":60,"createToken":{"account":"0x00000000000000000000000000000000000000b1","token":"0x00000000000000000000000000000000000000aa","name":"Rodeo","symbol":"RDO","totalSupply":1000000000000000000000000}}
{"kind":"reserve_sync","block":2,"txIndex":0,"logIndex":1,"txHash":"0x02","timestamp":120,"reserveSync":{"reserve0":1000,"reserve1":2450}}
`

func writeEvents(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(eventLines), 0o600))
	return path
}

func TestNewConfig_FlagsOverride(t *testing.T) {
	cfg, err := newConfig(flags{eventsFile: "events.jsonl", feedURL: "ws://feed", metricsAddr: ":1"})
	require.NoError(t, err)
	assert.Equal(t, "events.jsonl", cfg.Feed.File)
	assert.Equal(t, "ws://feed", cfg.Feed.URL)
	assert.Equal(t, ":1", cfg.Metrics.Addr)
}

func TestNewSource(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	_, err = newSource(cfg, nil, testLogger())
	require.Error(t, err, "no feed configured")

	cfg.Feed.File = "events.jsonl"
	src, err := newSource(cfg, nil, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &ingestion.FileSource{}, src)
}

func TestApp_IndexesFileAndStops(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("RODEO_METRICS_ADDR", "127.0.0.1:0")
	t.Setenv("RODEO_REDIS_ENABLED", "true")
	t.Setenv("RODEO_REDIS_URL", "redis://"+mr.Addr())

	var ix *indexer.Indexer
	app := fxtest.New(t,
		fx.Supply(flags{eventsFile: writeEvents(t)}),
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
		fx.Populate(&ix),
		fx.NopLogger,
	)
	app.RequireStart()

	select {
	case sig := <-app.Wait():
		assert.Equal(t, 0, sig.ExitCode)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop after the event file was exhausted")
	}
	app.RequireStop()

	cur, err := ix.Cursor(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, uint64(2), cur.Block)

	assert.True(t, mr.Exists("price:last"), "reserve sync reached the cache sink")
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
