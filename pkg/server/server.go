package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lernhub/boardsync/pkg/protocol"
	"github.com/lernhub/boardsync/pkg/room"
)

// Server is the HTTP/WebSocket front of the sync engine. It upgrades
// client connections under /connect/{roomID} and hands them to the
// room manager.
type Server struct {
	manager  *room.Manager
	config   *Config
	router   chi.Router
	upgrader websocket.Upgrader

	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server around an existing room manager. A nil config
// uses defaults; unset fields are filled in.
func New(manager *room.Manager, config *Config, logger *slog.Logger) *Server {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		manager: manager,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger.With("component", "server"),
	}

	r := chi.NewRouter()
	// chi panics on Use after the first route registration, so config
	// middleware goes on first.
	for _, mw := range config.Middlewares {
		r.Use(mw)
	}
	r.Get("/connect/*", s.handleConnect)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	s.router = r

	return s
}

// Router returns the underlying chi router so callers can mount
// additional routes (metrics, document storage) before Run. Routes
// only: middleware must be passed via Config.Middlewares, since chi
// rejects Use once New has registered the connect routes.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// roomIDFromPath extracts the room identifier from a connect URL.
// The room ID is everything after the last "connect/" marker, so
// proxied prefixes like /api/v1/connect/room-7 still resolve.
func roomIDFromPath(path string) string {
	const marker = "connect/"
	i := strings.LastIndex(path, marker)
	if i < 0 {
		return ""
	}
	return strings.Trim(path[i+len(marker):], "/")
}

// handleConnect upgrades the request and attaches the session to its
// room. Protocol errors after the upgrade are reported as WebSocket
// close frames, not HTTP statuses.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	roomID := roomIDFromPath(r.URL.Path)
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	variant := protocol.ParseVariant(r.URL.Query().Get("protocol"))

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("connection setup panicked", "room", roomID, "panic", rec)
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal error"),
				time.Now().Add(s.config.WriteTimeout))
			ws.Close()
		}
	}()

	if roomID == "" {
		s.logger.Warn("connect without room id", "path", r.URL.Path)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "room id required"),
			time.Now().Add(s.config.WriteTimeout))
		ws.Close()
		return
	}

	c := newConn(s, ws, roomID, sessionID, variant)
	go c.writePump()

	// Join queues the hydration snapshot on the connection before any
	// later diff broadcast can, so the client always sees state first.
	s.manager.Join(roomID, sessionID, c)

	c.readLoop()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.manager.Stats()); err != nil {
		s.logger.Error("stats encode failed", "error", err)
	}
}

// Run starts the HTTP server and blocks until a shutdown signal or a
// listener error.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Address,
		Handler: s.router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the HTTP listener and the room manager.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.manager.Shutdown()
	return err
}
