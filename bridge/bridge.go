// Package bridge exposes a running batch over WebSocket. Clients receive a
// status snapshot on connect and then at a fixed interval, and may ask the
// batch to stop after the game in progress.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/chainreaction/runner"
)

const (
	MessageStatus = "status"
	CommandStop   = "stop"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// Message is sent from the server to clients.
type Message struct {
	Type   string          `json:"type"`
	Status runner.Snapshot `json:"status"`
}

// Command is sent from clients to the server.
type Command struct {
	Type string `json:"type"`
}

type Options struct {
	// Interval between status pushes. Defaults to 500ms.
	Interval time.Duration
	Logger   *slog.Logger
}

type Server struct {
	status   *runner.Status
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
}

func New(status *runner.Status, opts Options) *Server {
	interval := opts.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		status:   status,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// Local tooling only; any origin may watch.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		quit: make(chan struct{}),
	}
}

// RegisterRoutes adds /ws (the stream) and /status (a one-off JSON snapshot)
// to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/status", s.serveStatus)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Close ends every open stream.
func (s *Server) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Serve accepts connections on ln until ctx is done or the listener fails.
// Open streams are closed either way.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status bridge listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status.Snapshot()); err != nil {
		s.logger.Warn("write status", "err", err)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Debug("bridge client connected")

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The read loop never writes; it asks the write loop for an immediate
	// push instead.
	pushNow := make(chan struct{}, 1)
	done := make(chan struct{})
	go s.readLoop(conn, logger, pushNow, done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.push(conn); err != nil {
		logger.Debug("bridge write", "err", err)
		return
	}
	for {
		select {
		case <-ticker.C:
		case <-pushNow:
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case <-done:
			logger.Debug("bridge client disconnected")
			return
		case <-s.quit:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "batch finished"),
				time.Now().Add(writeWait))
			return
		}
		if err := s.push(conn); err != nil {
			logger.Debug("bridge write", "err", err)
			return
		}
	}
}

func (s *Server) push(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Message{Type: MessageStatus, Status: s.status.Snapshot()})
}

func (s *Server) readLoop(conn *websocket.Conn, logger *slog.Logger, pushNow chan<- struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("bridge read", "err", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warn("bridge: malformed command", "err", err)
			continue
		}
		switch cmd.Type {
		case CommandStop:
			logger.Info("stop requested over bridge")
			s.status.RequestStop()
			select {
			case pushNow <- struct{}{}:
			default:
			}
		default:
			logger.Warn("bridge: unknown command", "type", cmd.Type)
		}
	}
}
