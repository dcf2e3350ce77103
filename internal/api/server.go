package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/damirbriga107-creator/agrisense-core/internal/auth"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/logging"
)

const gracefulShutdownTimeout = 10 * time.Second

// Server exposes the HTTP surface: the WebSocket subscription endpoint
// and a health check. All domain interaction happens over MQTT and the
// WebSocket hub; there is no REST CRUD surface.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	security config.SecurityConfig
	logger   *logging.Logger
	hub      *Hub
	version  string

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// Deps bundles the server's dependencies.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Hub      *Hub
	Version  string
}

// New creates an API server.
func New(deps Deps) *Server {
	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		security: deps.Security,
		logger:   deps.Logger,
		hub:      deps.Hub,
		version:  deps.Version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  deps.WS.MaxMessageSize,
			WriteBufferSize: deps.WS.MaxMessageSize,
			// Browsers cannot set Authorization headers on WebSocket
			// handshakes, so origins are not restricted here. Auth is
			// the token, checked after upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start begins serving HTTP in the background. The returned error only
// covers listener setup; runtime errors are logged.
func (s *Server) Start(_ context.Context) error {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	router.Get(wsPath, s.handleWebSocket)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("api server listening", "addr", addr, "ws_path", wsPath)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
	}()

	return nil
}

// Close shuts the HTTP server down gracefully.
func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","version":%q,"clients":%d}`, s.version, s.hub.ClientCount())
}

// handleWebSocket upgrades the connection and authenticates the token.
//
// The upgrade happens before auth so a failure can be reported with a
// proper close frame (policy violation, 1008) instead of an opaque
// HTTP error the browser WebSocket API cannot surface.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	claims, err := s.authenticate(r)
	if err != nil {
		s.logger.Warn("websocket authentication failed", "error", err, "remote", r.RemoteAddr)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
		deadline := time.Now().Add(time.Duration(s.wsCfg.PongTimeout) * time.Second)
		//nolint:errcheck // Best-effort close frame before dropping the connection
		conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, s.wsCfg.SendBuffer),
		subscriptions: make(map[string]struct{}),
		claims:        claims,
	}

	s.hub.Register(client)
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
	client.sendWelcome()
}

// authenticate extracts and verifies the bearer token from the query
// string or the Authorization header.
func (s *Server) authenticate(r *http.Request) (*auth.CustomClaims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			token = after
		}
	}
	if token == "" {
		return nil, errNoToken
	}

	claims, err := auth.ParseToken(token, s.security.JWT.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	return claims, nil
}
