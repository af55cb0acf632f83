package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordApplied("token_trade", 42, 3*time.Millisecond)
	m.RecordApplied("token_trade", 43, time.Millisecond)
	m.RecordFailure("transfer", "insufficient_balance")
	m.RecordSinkError("nats")
	m.RecordSkipped()
	m.RecordTrade("buy")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsApplied.WithLabelValues("token_trade")))
	assert.Equal(t, 43.0, testutil.ToFloat64(m.LastBlock))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventFailures.WithLabelValues("transfer", "insufficient_balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("nats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesIndexed.WithLabelValues("buy")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordApplied("create_token", 1, time.Second)
	m.RecordFailure("create_token", "duplicate")
	m.RecordSinkError("redis")
	m.RecordRawEvent("inserted")
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordTokenCreated()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_indexer_tokens_created_total 1")
}
