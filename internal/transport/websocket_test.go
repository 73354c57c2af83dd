package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caraudio/internal/audio"
	"caraudio/internal/hal"
	"caraudio/internal/monitoring"
	"caraudio/internal/registry"
)

type dumpFunc func(w io.Writer)

func (f dumpFunc) Dump(w io.Writer) { f(w) }

func startTransport(t *testing.T, cfg WebSocketConfig) *WebSocketTransport {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	tr := NewWebSocketTransport(cfg)
	require.NoError(t, tr.Start())
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func dial(t *testing.T, tr *WebSocketTransport) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/focus", tr.Addr())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketBroadcastsSnapshot(t *testing.T) {
	m := monitoring.NewMetrics()
	tr := startTransport(t, WebSocketConfig{Metrics: m})
	conn := dial(t, tr)
	require.Eventually(t, func() bool { return tr.Clients() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))

	tr.OnFocusSnapshot(audio.Snapshot{
		State:       hal.FocusStateGain,
		StateName:   hal.FocusStateGain.String(),
		Streams:     0x1,
		Contexts:    hal.ContextMusic,
		RadioActive: true,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var got audio.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, hal.FocusStateGain, got.State)
	assert.Equal(t, uint32(0x1), got.Streams)
	assert.Equal(t, hal.ContextMusic, got.Contexts)
	assert.True(t, got.RadioActive)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.WSMessages) == 1 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketDisconnectRemovesClient(t *testing.T) {
	m := monitoring.NewMetrics()
	tr := startTransport(t, WebSocketConfig{Metrics: m})
	conn := dial(t, tr)
	require.Eventually(t, func() bool { return tr.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return tr.Clients() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.WSConnections) == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketSweepsSilentClients(t *testing.T) {
	tr := startTransport(t, WebSocketConfig{
		PingInterval:  20 * time.Millisecond,
		ClientTimeout: 150 * time.Millisecond,
	})

	// Only a reading client answers pings.
	reader := dial(t, tr)
	go func() {
		for {
			if _, _, err := reader.ReadMessage(); err != nil {
				return
			}
		}
	}()
	dial(t, tr)
	require.Eventually(t, func() bool { return tr.Clients() == 2 }, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return tr.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, tr.Clients())
}

func TestHTTPEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		dumper   Dumper
		noMetric bool
		path     string
		wantCode int
		wantBody string
	}{
		{
			name:     "metrics",
			path:     "/metrics",
			wantCode: http.StatusOK,
			wantBody: "caraudio_ws_connections",
		},
		{
			name:     "metrics disabled",
			noMetric: true,
			path:     "/metrics",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "dump",
			dumper:   dumpFunc(func(w io.Writer) { fmt.Fprint(w, "*CarAudioService*\n") }),
			path:     "/dump",
			wantCode: http.StatusOK,
			wantBody: "*CarAudioService*",
		},
		{
			name:     "dump without source",
			path:     "/dump",
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewWebSocketTransport(WebSocketConfig{Dumper: tt.dumper, NoMetrics: tt.noMetric})
			srv := httptest.NewServer(tr.Handler())
			defer srv.Close()
			defer tr.Close()

			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.True(t, strings.Contains(string(body), tt.wantBody), "body: %s", body)
		})
	}
}

func TestSendDoesNotWaitForSlowClients(t *testing.T) {
	m := monitoring.NewMetrics()
	tr := NewWebSocketTransport(WebSocketConfig{Metrics: m, Buffer: 2})
	defer tr.Close()

	stalled := make(chan struct{}, 16)
	release := make(chan struct{})
	delivered := make(chan int, 16)
	tr.clients.Subscribe(registry.SubscriberFunc(func(v any) error {
		stalled <- struct{}{}
		<-release
		delivered <- len(v.(message))
		return nil
	}))

	require.NoError(t, tr.Send(map[string]int{"seq": 0}))
	select {
	case <-stalled:
	case <-time.After(time.Second):
		t.Fatal("broadcaster never reached the client")
	}

	start := time.Now()
	for i := 1; i < 10; i++ {
		require.NoError(t, tr.Send(map[string]int{"seq": i}))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	// Two fit in the queue behind the stalled write.
	assert.Equal(t, 7.0, testutil.ToFloat64(m.WSDropped))

	close(release)
	for range 3 {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("queued message not delivered")
		}
	}
	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.WSMessages) == 3 }, time.Second, 5*time.Millisecond)
}

func TestSendWithoutClients(t *testing.T) {
	tr := NewWebSocketTransport(WebSocketConfig{})
	defer tr.Close()
	assert.NoError(t, tr.Send(map[string]int{"a": 1}))
	assert.Error(t, tr.Send(func() {}))
}
