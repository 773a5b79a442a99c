package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/embedchat/embedchat/internal/config"
)

// Server is the edge proxy the widget talks to: it terminates CORS and rate
// limiting, forwards chat requests to the upstream completion API, and
// hosts the WebSocket widget gateway.
type Server struct {
	cfg        *config.Config
	upstream   *Upstream
	limiter    *clientLimiter
	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     *log.Logger
}

// NewServer creates an API server from configuration.
func NewServer(cfg *config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:      cfg,
		upstream: NewUpstream(cfg.Proxy),
		limiter: newClientLimiter(
			perMinute(cfg.Proxy.RatePerMinute),
			cfg.Proxy.RateBurst,
		),
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	return s
}

// Start listens on the configured port. Blocks until the server stops.
func (s *Server) Start() error {
	router := s.setupRoutes()

	addr := fmt.Sprintf(":%d", s.cfg.Proxy.Port)
	s.logger.Info("starting embedchat proxy", "addr", addr, "upstream", s.cfg.Proxy.UpstreamURL)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.limiter.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.corsMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	limited := api.PathPrefix("").Subrouter()
	limited.Use(s.rateLimitMiddleware)
	limited.HandleFunc("/chat", s.handleChat).Methods("POST")

	api.HandleFunc("/widget/ws", s.handleWidgetWebSocket)

	// Static widget assets for embedding pages.
	router.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/")))

	return router
}

// originAllowed checks an Origin header against the configured allowlist.
// Requests without an Origin (curl, server-to-server) pass.
func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Proxy.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// corsMiddleware adds CORS headers for allowed origins and answers
// preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if !s.originAllowed(origin) {
				s.writeError(w, "origin not allowed", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware rejects clients whose token bucket is empty.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			s.writeError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// Response helpers
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
