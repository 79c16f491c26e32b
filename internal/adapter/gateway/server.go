// Package gateway exposes the conversation engine over HTTP.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/middleware"
	"champ-ai/internal/usecase"
)

// Responder produces a reply for a conversation transcript.
type Responder interface {
	Respond(ctx context.Context, history []domain.Message) (*usecase.Result, error)
}

// Server is the HTTP front of the engine.
type Server struct {
	responder      Responder
	logger         *slog.Logger
	addr           string
	requestsPerMin int
	burstSize      int

	httpSrv   *http.Server
	boundAddr string
	cancel    context.CancelFunc
}

// NewServer creates a gateway server.
func NewServer(responder Responder, addr string, requestsPerMin, burstSize int, logger *slog.Logger) *Server {
	return &Server{
		responder:      responder,
		logger:         logger,
		addr:           addr,
		requestsPerMin: requestsPerMin,
		burstSize:      burstSize,
	}
}

// Start begins serving. Non-blocking.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/health", s.handleHealth)

	handler := middleware.SecurityHeaders(
		middleware.RateLimit(ctx, s.requestsPerMin, s.burstSize)(mux),
	)

	s.httpSrv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway listen %s: %w", s.addr, err)
	}
	s.boundAddr = ln.Addr().String()

	go func() {
		s.logger.Info("gateway started", "addr", s.boundAddr)
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("gateway server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// BoundAddr returns the actual listen address, set after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
