package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/breaker"
	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/metrics"
	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerHandlers(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := NewServer("127.0.0.1:0", registry, nil, nil)

	t.Run("health reports OK", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("info reports the expected endpoints", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.handleInfo(rec, httptest.NewRequest(http.MethodGet, "/info", nil))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "/metrics", body["metrics_endpoint"])
		assert.Equal(t, "/ws/breaker-events", body["events_endpoint"])
	})
}

func TestServerBreakerEventsWebsocket(t *testing.T) {
	registry := prometheus.NewRegistry()
	hub := NewBreakerHub()
	s := NewServer("127.0.0.1:0", registry, hub, nil)

	resultClass, err := outcome.NewResultClass(
		outcome.OutcomeDef{Name: "success", Failure: false},
		outcome.OutcomeDef{Name: "error", Failure: true},
	)
	require.NoError(t, err)
	counts := metrics.NewResultCounts(resultClass.Len(), 10, int64(time.Second))
	circuitOpen := outcome.Reason{Index: 0, Name: "circuit-open"}
	cb := breaker.New("demo", breaker.DefaultConfig(), counts, resultClass, circuitOpen, clock.Default)
	hub.Register("demo", cb)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/breaker-events", s.handleBreakerEvents)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws/breaker-events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine a moment to register the subscription
	// before the breaker transitions, since subscribe() happens inside
	// the handler after the HTTP upgrade completes.
	time.Sleep(50 * time.Millisecond)
	cb.ForceOpen()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev BreakerEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, "demo", ev.Rail)
	assert.Equal(t, "open", ev.To)
}

func TestServerStartStop(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := NewServer("127.0.0.1:0", registry, nil, nil)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

var _ io.Writer = (*httptest.ResponseRecorder)(nil)
