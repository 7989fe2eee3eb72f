// Package server wires the gin router, middleware and HTTP server.
package server

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/metrics"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	handlers   *handlers.Handlers
	httpServer *http.Server
	logger     *logging.Logger
}

// New builds the router and the HTTP server around it.
func New(h *handlers.Handlers, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog())
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders:   []string{RequestIDHeader},
	}))

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		logger:   logging.NewLogger("server"),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/orders", s.handlers.CreateOrder)
		api.GET("/orders", s.handlers.ListOrders)
		api.POST("/orders/:id/payment", s.handlers.UpdatePayment)
	}

	if s.config.Features.EnableAccounts {
		s.router.POST("/create", s.handlers.CreateAccount)
		s.router.POST("/login", s.handlers.Login)
	}

	s.setupStatic()
}

// setupStatic serves the landing page on / and any other file under the
// static directory for paths no route claims.
func (s *Server) setupStatic() {
	dir := s.config.Server.StaticDir
	index := filepath.Join(dir, s.config.Server.IndexFile)

	s.router.GET("/", func(c *gin.Context) {
		c.File(index)
	})

	root := http.Dir(dir)
	files := http.FileServer(root)
	s.router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		f, err := root.Open(c.Request.URL.Path)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		info, err := f.Stat()
		f.Close()
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		files.ServeHTTP(c.Writer, c.Request)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
