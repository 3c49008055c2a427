package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tether-go/tether/pkg/instrument"
	"github.com/tether-go/tether/pkg/source"
	"github.com/tether-go/tether/pkg/tether"
)

const (
	defaultAddr      = ":8777"
	defaultTickEvery = time.Second

	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second // must be shorter than pongWait
)

// Config configures the demo server. The zero value works.
type Config struct {
	// Addr is the listen address used by Run. Defaults to ":8777".
	Addr string

	// TickEvery is the interval between feed ticks. Defaults to 1s.
	TickEvery time.Duration

	// Logger receives server and binder logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Registry collects the binder metrics and backs /metrics.
	// Defaults to a fresh private registry.
	Registry *prometheus.Registry

	// CheckOrigin overrides the websocket origin check. The default allows
	// every origin; the demo is not meant to face the public internet.
	CheckOrigin func(*http.Request) bool
}

// Tick is one beat of the demo feed.
type Tick struct {
	Seq int64     `json:"seq"`
	At  time.Time `json:"at"`
}

// Server fans a ticker-driven feed out to websocket clients, each behind a
// scope-owned binder. Create one with New, then either mount Router into an
// existing server or call Run.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	registry *prometheus.Registry
	hook     tether.Hook
	upgrader websocket.Upgrader
	router   chi.Router

	scope *tether.Scope         // owns every binder the server creates
	feed  *source.Subject[Tick] // shared multicast feed
	clock *tether.Binder[time.Time]
	snap  *tether.Binder[Tick]

	seq     atomic.Int64 // feed sequence numbers
	connSeq atomic.Int64 // connection names
	conns   atomic.Int64 // currently open connections
	started time.Time
}

// New builds the server: root scope, feed, clock pump, snapshot binder, and
// routes. The caller owns the result and must Close it (Run does so on
// shutdown).
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = defaultTickEvery
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		hook:     instrument.Prometheus(instrument.WithRegistry(registry)),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		scope:    tether.NewScope(nil),
		feed:     source.NewSubject[Tick](),
		started:  time.Now(),
	}

	// Cleanups run in reverse registration order, so registering the feed
	// before any binder means every binder unsubscribes before it closes.
	s.scope.OnCleanup(s.feed.Close)

	// The clock turns raw ticker emissions into sequenced feed ticks. Its
	// update callback runs on the ticker goroutine.
	s.clock = tether.New[time.Time](s.scope,
		tether.WithName("clock"),
		tether.WithHook(s.hook),
		tether.WithLogger(logger),
		tether.OnUpdate(s.pump))
	if err := s.clock.Bind(source.NewTicker(cfg.TickEvery)); err != nil {
		s.scope.Dispose()
		return nil, fmt.Errorf("demo: bind clock: %w", err)
	}

	// The snapshot binder backs /snapshot. It shares the feed with every
	// websocket connection's binder.
	snap, err := tether.NewWithSource[Tick](s.scope, s.feed,
		tether.WithName("snapshot"),
		tether.WithHook(s.hook),
		tether.WithLogger(logger))
	if err != nil {
		s.scope.Dispose()
		return nil, fmt.Errorf("demo: bind snapshot: %w", err)
	}
	s.snap = snap

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWS)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.router = r

	return s, nil
}

// pump forwards the clock's latest beat into the feed with a fresh sequence
// number.
func (s *Server) pump() {
	at, ok := s.clock.Read()
	if !ok {
		return
	}
	s.feed.Publish(Tick{Seq: s.seq.Add(1), At: at})
}

// Router returns the handler carrying all demo routes, for mounting into an
// existing HTTP server.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled or the
// listener fails, then shuts down gracefully: the root scope disposes every
// connection binder, which closes the websockets under the read loops.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("demo server starting", "address", s.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("demo server shutdown complete")
		return nil
	}
}

// Close disposes the root scope: every connection binder, the snapshot
// binder, the clock, and finally the feed. Idempotent.
func (s *Server) Close() {
	s.scope.Dispose()
}

// Connections reports how many websocket clients are currently attached.
func (s *Server) Connections() int64 {
	return s.conns.Load()
}

// wsConn is the per-connection state shared by the read loop and the write
// pump. The write pump is the only goroutine that writes to conn.
type wsConn struct {
	name   string
	conn   *websocket.Conn
	binder *tether.Binder[Tick]
	dirty  chan struct{} // 1-slot coalescing signal from the binder
	done   chan struct{} // closed when the read loop exits
}

// wsCommand is what a client may send over the socket.
type wsCommand struct {
	Cmd string `json:"cmd"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{
		name:  fmt.Sprintf("conn-%d", s.connSeq.Add(1)),
		conn:  conn,
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	// The connection's scope owns both the binder and the socket. Closing
	// the socket here unblocks the read loop when the server shuts down.
	scope := tether.NewScope(s.scope)
	scope.OnCleanup(func() { conn.Close() })

	// The update callback only signals; the write pump re-reads the latest
	// value, so a slow client skips beats instead of queueing them.
	c.binder = tether.New[Tick](scope,
		tether.WithName(c.name),
		tether.WithHook(s.hook),
		tether.WithLogger(s.logger),
		tether.OnUpdate(func() {
			select {
			case c.dirty <- struct{}{}:
			default:
			}
		}))
	if err := c.binder.Bind(s.feed); err != nil {
		s.logger.Error("feed bind failed", "conn", c.name, "error", err)
		scope.Dispose()
		return
	}

	s.conns.Add(1)
	s.logger.Info("client connected", "conn", c.name)

	go s.writePump(c)
	go s.readLoop(c, scope)
}

// readLoop consumes client commands until the socket dies, then disposes
// the connection's scope. pause detaches the binder from the feed, resume
// reattaches it.
func (s *Server) readLoop(c *wsConn, scope *tether.Scope) {
	defer func() {
		close(c.done)
		scope.Dispose()
		s.conns.Add(-1)
		s.logger.Info("client disconnected", "conn", c.name)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("websocket read error", "conn", c.name, "error", err)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.logger.Warn("unparseable command", "conn", c.name, "error", err)
			continue
		}

		switch cmd.Cmd {
		case "pause":
			if err := c.binder.Bind(nil); err != nil {
				s.logger.Warn("pause failed", "conn", c.name, "error", err)
			}
		case "resume":
			if err := c.binder.Bind(s.feed); err != nil {
				s.logger.Warn("resume failed", "conn", c.name, "error", err)
			}
		default:
			s.logger.Warn("unknown command", "conn", c.name, "cmd", cmd.Cmd)
		}
	}
}

// writePump owns all writes on the socket: tick frames when the binder
// signals, pings on an interval. It exits when the read loop ends or a
// write fails, closing the socket either way.
func (s *Server) writePump(c *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-c.dirty:
			tick, ok := c.binder.Read()
			if !ok {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(tick); err != nil {
				s.logger.Debug("tick write failed", "conn", c.name, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// snapshotResponse mirrors what any consumer of a binder sees: the latest
// value, whether one exists at all, and the binder's lifecycle state.
type snapshotResponse struct {
	State       string `json:"state"`
	HasValue    bool   `json:"has_value"`
	Value       *Tick  `json:"value,omitempty"`
	Connections int64  `json:"connections"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	resp := snapshotResponse{
		State:       s.snap.State().String(),
		Connections: s.conns.Load(),
	}
	if tick, ok := s.snap.Read(); ok {
		resp.HasValue = true
		resp.Value = &tick
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"uptime_ms":   time.Since(s.started).Milliseconds(),
		"connections": s.conns.Load(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
