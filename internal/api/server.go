package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"cellarena/internal/game"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support. It combines the
// HTTP router with the WebSocket hub that bridges connections to the
// engine's tick driver.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server with default production configuration.
//
// IMPORTANT: no listener opens until Start() is called. The rate
// limiter's cleanup goroutine does start here and is stopped by Stop().
// This enables testing by constructing the server and using Router()
// directly with httptest.
func NewServer(engine *game.Engine) *Server {
	s := &Server{
		engine: engine,
		wsHub:  NewWebSocketHub(engine),
	}
	engine.SetStepTimeHandler(RecordTick)

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Engine:      s.engine,
		Hub:         s.wsHub,
		RateLimiter: s.rateLimiter,
	})

	return s
}

// Start begins the HTTP server. Call this exactly once; stop the server
// with Stop.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("API server starting on %s", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Router returns the HTTP handler for use with httptest.
//
// Example:
//
//	server := api.NewServer(engine)
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of the HTTP server and background workers.
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimiter.Stop()

	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
