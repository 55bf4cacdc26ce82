// Package api provides the HTTP adapter for the read-only query surface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/core/search"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Address string
	Port    int
}

// SearchUseCase is the read-side use case the HTTP adapter depends on
type SearchUseCase interface {
	Search(ctx context.Context, request search.Request) ([]meeting.SearchMeeting, error)
}

// HTTPServerAdapter implements the query API using Gin
type HTTPServerAdapter struct {
	router        *gin.Engine
	config        ServerConfig
	searchUseCase SearchUseCase
	logger        ports.Logger
}

// ServerOptions represents options for creating the HTTP server
type ServerOptions struct {
	Config        ServerConfig
	SearchUseCase SearchUseCase
	Logger        ports.Logger
}

// Validate checks if all required dependencies are provided
func (opts *ServerOptions) Validate() error {
	if opts.SearchUseCase == nil {
		return errors.NewValidationError("search use case is required")
	}
	if opts.Logger == nil {
		return errors.NewValidationError("logger is required")
	}
	return nil
}

// NewHTTPServerAdapter creates a new HTTP server adapter
func NewHTTPServerAdapter(opts ServerOptions) (*HTTPServerAdapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server options: %w", err)
	}

	router := gin.Default()

	server := &HTTPServerAdapter{
		router:        router,
		config:        opts.Config,
		searchUseCase: opts.SearchUseCase,
		logger:        opts.Logger,
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *HTTPServerAdapter) setupRoutes() {
	s.router.GET("/meetings", s.getMeetings)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start serves until ctx is cancelled, then shuts down gracefully. The
// browser-facing API allows any origin for GET requests.
func (s *HTTPServerAdapter) Start(ctx context.Context) error {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		MaxAge:         3600,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           corsHandler.Handler(s.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", ports.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.NewHTTPRequestError("HTTP server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.NewHTTPRequestError("HTTP server shutdown failed", err)
	}
	return nil
}

// GetRouter returns the router for testing purposes
func (s *HTTPServerAdapter) GetRouter() *gin.Engine {
	return s.router
}
