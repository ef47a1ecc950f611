// Package server exposes engine snapshots over HTTP for overlays and other
// out-of-process readers. REST endpoints are served with gin; target changes
// are pushed to websocket clients through a Hub.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/surface"
)

const shutdownTimeout = 5 * time.Second

// Reader is the read side of the engine the server needs.
type Reader interface {
	SnapshotSystem() *model.System
	SnapshotBodies() map[int]*model.Body
	SnapshotTarget() *model.Body
	SnapshotPlayer() model.PlayerContext
	Navigate(to surface.Coordinates) (engine.Course, error)
}

// Server serves snapshots from a Reader. It implements http.Handler.
type Server struct {
	reader  Reader
	hub     *Hub
	router  *gin.Engine
	logger  io.Writer
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets where request and websocket logs go. Nil defaults to
// os.Stderr.
func WithLogger(w io.Writer) Option {
	return func(s *Server) { s.logger = w }
}

// WithAllowOrigins restricts CORS to the given origins. The default allows
// any origin.
func WithAllowOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// New builds the router for r.
func New(r Reader, opts ...Option) *Server {
	s := &Server{reader: r}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.log())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(s.log()), gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(s.origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.origins
	}
	router.Use(cors.New(corsCfg))

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/system", s.system)
		api.GET("/bodies", s.bodies)
		api.GET("/bodies/:id", s.body)
		api.GET("/target", s.target)
		api.GET("/player", s.player)
		api.GET("/distance", s.distance)
	}
	router.GET("/ws", func(c *gin.Context) { s.hub.ServeWS(c.Writer, c.Request) })

	s.router = router
	return s
}

// Hub returns the websocket hub. Its NotifyTarget method is meant to be
// registered as the engine's target listener.
func (s *Server) Hub() *Hub { return s.hub }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It runs the hub for the lifetime of the listener.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) log() io.Writer {
	if s.logger != nil {
		return s.logger
	}
	return os.Stderr
}
