package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caraudio/internal/audio"
	applog "caraudio/internal/log"
	"caraudio/internal/monitoring"
	"caraudio/internal/registry"
)

const (
	writeWait       = 2 * time.Second
	broadcastBuffer = 256
)

// Dumper writes a plain text state dump.
type Dumper interface {
	Dump(w io.Writer)
}

// WebSocketConfig configures a WebSocketTransport.
type WebSocketConfig struct {
	Addr          string        // listen address, e.g. ":8080"
	PingInterval  time.Duration // how often clients are pinged and swept
	ClientTimeout time.Duration // silence after which a client is dropped
	Metrics       *monitoring.Metrics
	NoMetrics     bool   // do not serve /metrics
	Dumper        Dumper // serves /dump when set
	Buffer        int    // queued broadcasts before Send drops, default 256
}

// WebSocketTransport broadcasts JSON snapshots to every client connected on
// /focus. It also serves /metrics and /dump. Send never waits on a client:
// writes happen on a broadcaster goroutine.
type WebSocketTransport struct {
	cfg       WebSocketConfig
	upgrader  websocket.Upgrader
	clients   *registry.Registry
	mux       *http.ServeMux
	broadcast chan message
	quit      chan struct{}
	quitOnce  sync.Once

	mu       sync.Mutex
	server   *http.Server
	addr     net.Addr
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWebSocketTransport creates a transport. Call Start to listen.
func NewWebSocketTransport(cfg WebSocketConfig) *WebSocketTransport {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 10 * time.Second
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = 3 * cfg.PingInterval
	}
	if cfg.Metrics == nil {
		cfg.Metrics = monitoring.NewMetrics()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = broadcastBuffer
	}
	t := &WebSocketTransport{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // status is read-only
			},
		},
		clients:   registry.New(cfg.ClientTimeout),
		mux:       http.NewServeMux(),
		broadcast: make(chan message, cfg.Buffer),
		quit:      make(chan struct{}),
	}
	t.mux.HandleFunc("/focus", t.handleWebSocket)
	if !cfg.NoMetrics {
		t.mux.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	t.mux.HandleFunc("/dump", t.handleDump)

	t.wg.Add(1)
	go t.handleBroadcasts()
	return t
}

// handleBroadcasts writes queued messages to every client until Close.
func (t *WebSocketTransport) handleBroadcasts() {
	defer t.wg.Done()
	for {
		select {
		case m := <-t.broadcast:
			n := t.clients.Publish(m)
			t.cfg.Metrics.WSMessages.Add(float64(n))
		case <-t.quit:
			return
		}
	}
}

// Handler returns the HTTP handler serving every endpoint.
func (t *WebSocketTransport) Handler() http.Handler {
	return t.mux
}

// Start listens on the configured address and starts the ping loop.
func (t *WebSocketTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.server != nil {
		applog.Warnf("WebSocketTransport: Start called but already running")
		return nil
	}

	ln, err := net.Listen("tcp", t.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.cfg.Addr, err)
	}
	t.server = &http.Server{Handler: t.mux, ReadHeaderTimeout: 5 * time.Second}
	t.addr = ln.Addr()
	t.doneChan = make(chan struct{})
	t.stopOnce = sync.Once{}

	server := t.server
	go func() {
		applog.Infof("WebSocketTransport: Listening on %s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()

	t.startPinger(t.doneChan)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (t *WebSocketTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addr
}

// startPinger pings every client and sweeps the silent ones until done is
// closed.
func (t *WebSocketTransport) startPinger(done chan struct{}) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.clients.Publish(ping{})
				if stale := t.clients.Sweep(); len(stale) > 0 {
					t.cfg.Metrics.WSConnections.Set(float64(t.clients.Len()))
				}
			case <-done:
				return
			}
		}
	}()
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn}
	h := t.clients.Subscribe(c)
	t.cfg.Metrics.WSConnections.Set(float64(t.clients.Len()))
	applog.Infof("WebSocketTransport: Client %s connected from %s", h, r.RemoteAddr)

	conn.SetPongHandler(func(string) error {
		return t.clients.Heartbeat(h)
	})

	// The read loop keeps control frames flowing and notices disconnects.
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			// Any client message counts as a heartbeat.
			if err := t.clients.Heartbeat(h); err != nil {
				break
			}
		}
		t.clients.Unsubscribe(h)
		t.cfg.Metrics.WSConnections.Set(float64(t.clients.Len()))
		applog.Infof("WebSocketTransport: Client %s disconnected", h)
	}()
}

func (t *WebSocketTransport) handleDump(w http.ResponseWriter, r *http.Request) {
	if t.cfg.Dumper == nil {
		http.Error(w, "no dump available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	t.cfg.Dumper.Dump(w)
}

// Send queues data as JSON for every connected client. When the queue is
// full the message is dropped.
func (t *WebSocketTransport) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	select {
	case t.broadcast <- message(payload):
	default:
		t.cfg.Metrics.WSDropped.Inc()
		applog.Debugf("WebSocketTransport: Broadcast queue full, dropping message")
	}
	return nil
}

// OnFocusSnapshot broadcasts every arbiter snapshot.
func (t *WebSocketTransport) OnFocusSnapshot(s audio.Snapshot) {
	if err := t.Send(s); err != nil {
		applog.Errorf("WebSocketTransport: %v", err)
	}
}

// Clients returns the number of connected clients.
func (t *WebSocketTransport) Clients() int {
	return t.clients.Len()
}

// Close disconnects every client and shuts the server down.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	server := t.server
	if server != nil {
		t.stopOnce.Do(func() { close(t.doneChan) })
		t.server = nil
	}
	t.mu.Unlock()

	applog.Infof("WebSocketTransport: Closing")
	t.quitOnce.Do(func() { close(t.quit) })
	t.clients.Close()
	t.cfg.Metrics.WSConnections.Set(0)

	var err error
	if server != nil {
		err = server.Close()
	}
	t.wg.Wait()
	return err
}

var (
	_ Transport           = (*WebSocketTransport)(nil)
	_ audio.FocusObserver = (*WebSocketTransport)(nil)
)

// ping asks a client to send a pong.
type ping struct{}

// message is an encoded JSON payload.
type message []byte

// wsClient serializes writes to one connection.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Deliver(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := time.Now().Add(writeWait)
	switch m := v.(type) {
	case ping:
		return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
	case message:
		c.conn.SetWriteDeadline(deadline)
		return c.conn.WriteMessage(websocket.TextMessage, m)
	default:
		c.conn.SetWriteDeadline(deadline)
		return c.conn.WriteJSON(v)
	}
}

func (c *wsClient) Close() error {
	return c.conn.Close()
}
