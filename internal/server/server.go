// Package server provides the ocrdown web interface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/ocrdown/internal/config"
	"github.com/hyperjump/ocrdown/internal/markdown"
	"github.com/hyperjump/ocrdown/internal/models"
	"github.com/hyperjump/ocrdown/internal/session"
	"github.com/hyperjump/ocrdown/internal/storage"
	"github.com/hyperjump/ocrdown/pkg/utils"
)

// requestSlack is added to the OCR timeout for the per-request deadline.
const requestSlack = 30 * time.Second

// Processor converts an uploaded file into a stored result.
type Processor interface {
	Process(ctx context.Context, filename string, data []byte) (*models.Result, error)
}

// Server is the HTTP server for the upload and results pages.
type Server struct {
	processor  Processor
	store      storage.ResultStore
	sessions   *session.Codec
	renderer   *markdown.Renderer
	config     *config.Config
	extensions []string
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	processor Processor,
	store storage.ResultStore,
	sessions *session.Codec,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		processor:  processor,
		store:      store,
		sessions:   sessions,
		renderer:   markdown.NewRenderer(),
		config:     cfg,
		extensions: cfg.Upload.AllExtensions(),
		logger:     utils.OrNop(logger),
	}
}

// Routes returns the HTTP handler with all routes and middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.OCR.Timeout + requestSlack))

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Get("/results", s.handleResults)
	r.Get("/download/{resultID}", s.handleDownload)
	r.Handle("/static/*", staticHandler())

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
