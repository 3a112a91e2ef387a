// Package eventapi exposes the Session Log & Progress Events (C8) NDJSON
// stream over HTTP, the way internal/api/server.go's chi-based Server
// exposes the teacher's WebRPC services — here the only surface is a
// read-only event stream, satisfying "any shell (CLI renderer, web UI)"
// without building a UI: the API renders nothing, it only relays.
package eventapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/faughnn/factreel/internal/workspace"
)

// Config mirrors the teacher's api.Config shape, trimmed to what an
// events-only server needs.
type Config struct {
	Host string
	Port int // 0 for dynamic allocation
}

// DefaultConfig binds to localhost on a dynamic port.
func DefaultConfig() *Config {
	return &Config{Host: "localhost", Port: 0}
}

// Server serves one chi router: a health check and a per-session NDJSON
// event stream upgraded to a websocket connection.
type Server struct {
	ws       *workspace.Workspace
	router   chi.Router
	server   *http.Server
	listener net.Listener
	port     int
	logger   zerolog.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewServer builds a Server rooted at ws, whose session log files live
// under ws.SessionLogPath(sessionID).
func NewServer(cfg *Config, ws *workspace.Workspace, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("event api: listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", healthHandler)

	srv := &Server{ws: ws, router: r, listener: listener, port: port, logger: logger}
	r.Get("/sessions/{sessionID}/stream", srv.streamHandler)
	srv.server = &http.Server{Handler: r, ReadTimeout: 15 * time.Second}

	return srv, nil
}

// Port returns the listening TCP port, useful when Config.Port is 0.
func (s *Server) Port() int { return s.port }

// Start serves requests in the background.
func (s *Server) Start() error {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("event api server error")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// streamHandler upgrades to a websocket connection and relays every NDJSON
// line already in the session's log, then every line appended afterward,
// until the client disconnects. It never renders — one line in, one text
// frame out.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	path := s.ws.SessionLogPath(sessionID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("event api: websocket upgrade failed")
		return
	}
	defer conn.Close()

	f, err := os.Open(path)
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	reader := bufio.NewReader(f)
	drain := func() bool {
		for {
			line, rerr := reader.ReadString('\n')
			if line != "" {
				if werr := conn.WriteMessage(websocket.TextMessage, []byte(line)); werr != nil {
					return false
				}
			}
			if rerr != nil {
				break
			}
		}
		return true
	}
	if !drain() {
		return
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Name == path && ev.Op&fsnotify.Write == fsnotify.Write {
				if !drain() {
					return
				}
			}
		case werr, ok := <-watcher.Errors:
			if !ok || werr != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
