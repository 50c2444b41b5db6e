package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fogfish/opts"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/parallaxchat/parallax/events"
	"github.com/parallaxchat/parallax/internal/orchestrator"
	"github.com/parallaxchat/parallax/pkg/slogx"
	"github.com/parallaxchat/parallax/provider"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 5 * time.Second

// Server exposes the aggregator over HTTP: POST /api/chat streams
// newline-delimited events, GET /healthz answers liveness probes.
type Server struct {
	addr     string
	defaults map[provider.Key]string
	registry *provider.Registry
	engine   *gin.Engine
}

// Option configures the server at construction time.
type Option = opts.Option[Server]

// WithAddr sets the listen address. Defaults to ":8080".
func WithAddr(addr string) opts.Option[Server] {
	return opts.Type[Server](func(s *Server) error {
		s.addr = addr
		return nil
	})
}

// WithDefaultModel sets the deployment-wide default model variant for one
// provider, used when a request names none.
func WithDefaultModel(key provider.Key, model string) opts.Option[Server] {
	return opts.Type[Server](func(s *Server) error {
		if !key.Valid() {
			return errors.New("httpapi: unknown provider " + string(key))
		}
		s.defaults[key] = model
		return nil
	})
}

// New builds the server around the given adapter registry.
func New(registry *provider.Registry, options ...opts.Option[Server]) (*Server, error) {
	if registry == nil {
		return nil, errors.New("httpapi: registry is required")
	}

	s := &Server{
		addr:     ":8080",
		defaults: map[provider.Key]string{},
		registry: registry,
	}
	if err := opts.Apply(s, options); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery(), requestLogger(), cors())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.POST("/api/chat", s.handleChat)

	s.engine = engine
	return s, nil
}

// Handler returns the routing handler, usable with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout stays zero: responses stream for as long as the
		// slowest upstream model keeps talking.
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("listening", slog.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

type chatRequest struct {
	Prompt         string            `json:"prompt"`
	Instructions   string            `json:"instructions"`
	APIKeys        map[string]string `json:"apiKeys"`
	SelectedModels map[string]string `json:"selectedModels"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing prompt"})
		return
	}

	params := orchestrator.Params{
		Prompt:       req.Prompt,
		Instructions: req.Instructions,
		APIKeys:      keyedByProvider(req.APIKeys),
		Models:       keyedByProvider(req.SelectedModels),
		Defaults:     s.defaults,
	}

	requestID := uuid.NewString()
	log := slog.With(slogx.RequestID(requestID))
	log.Info("aggregation request", slog.Int("active_providers", len(activeKeys(params.APIKeys))))

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	enc := events.NewEncoder(c.Writer)
	if err := orchestrator.Run(c.Request.Context(), s.registry, params, enc); err != nil {
		// the stream is already committed; nothing to send, just record it
		log.Warn("aggregation ended early", slogx.Error(err))
		return
	}
	log.Info("aggregation complete")
}

// keyedByProvider narrows a raw request map to known provider keys. Unknown
// names are dropped rather than rejected so older or newer clients degrade
// quietly.
func keyedByProvider(raw map[string]string) map[provider.Key]string {
	out := make(map[provider.Key]string, len(raw))
	for name, value := range raw {
		key := provider.Key(strings.ToLower(strings.TrimSpace(name)))
		if key.Valid() {
			out[key] = value
		}
	}
	return out
}

func activeKeys(apiKeys map[provider.Key]string) []provider.Key {
	var active []provider.Key
	for _, key := range provider.Keys() {
		if strings.TrimSpace(apiKeys[key]) != "" {
			active = append(active, key)
		}
	}
	return active
}
