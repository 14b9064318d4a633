// Package wsbridge lets a remote renderer drive playback over a websocket:
// it sends time signals and receives highlight and clear events.
package wsbridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"codenarrate/internal/drift"
	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

const (
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Tokens           []tokenizer.Token
	Track            timeline.Track
	ToleranceMs      int
	SignalsPerSecond float64
	Drift            drift.Options

	// Cache tokenizes code sent with load messages. Nil gets a private
	// cache.
	Cache          *tokenizer.Cache
	Timeline       timeline.Options
	WordDurationMs int

	// AllowedOrigins lists browser origins accepted besides the server's
	// own host. "*" accepts any origin.
	AllowedOrigins []string

	Logger *slog.Logger
}

// Server serves one track. Every connection gets its own synchronizer and
// calibrator.
type Server struct {
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
	builder  *timeline.Builder

	mu       sync.Mutex
	sessions map[string]*websocket.Conn
}

func NewServer(opts Options) *Server {
	if opts.SignalsPerSecond <= 0 {
		opts.SignalsPerSecond = 60
	}
	if opts.Cache == nil {
		opts.Cache = tokenizer.NewCache(16)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topts := opts.Timeline
	if topts.Logger == nil {
		topts.Logger = logger
	}
	s := &Server{
		opts:     opts,
		logger:   logger,
		builder:  timeline.NewBuilder(topts),
		sessions: make(map[string]*websocket.Conn),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// checkOrigin accepts requests without an Origin header, same-host origins
// and the configured allow-list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	s.logger.Warn("websocket origin rejected", "origin", origin, "remote", r.RemoteAddr)
	return false
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("websocket bridge listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Sessions reports how many clients are connected.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := s.newClient(conn)

	s.mu.Lock()
	s.sessions[c.id] = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, c.id)
		s.mu.Unlock()
		c.unsubscribe()
		conn.Close()
		s.logger.Debug("client disconnected", "session", c.id)
	}()

	s.logger.Debug("client connected", "session", c.id, "remote", r.RemoteAddr)
	if err := c.send(Message{Type: TypeLoaded, SessionID: c.id, Tokens: s.opts.Tokens, Track: &s.opts.Track}); err != nil {
		return
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read", "session", c.id, "err", err)
			}
			return
		}
		if err := c.handle(msg); err != nil {
			return
		}
	}
}
