package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/roach88/foodstand/internal/config"
	"github.com/roach88/foodstand/internal/engine"
)

// PassphraseHeader carries the kitchen passphrase.
const PassphraseHeader = "X-Kitchen-Passphrase"

const shutdownTimeout = 5 * time.Second

// Server is the HTTP surface of one engine.
type Server struct {
	engine *engine.Engine
	cfg    config.Config
	hub    *hub
	router *gin.Engine
}

// New builds the router and attaches the websocket hub to e as a renderer.
func New(e *engine.Engine, cfg config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: e,
		cfg:    cfg,
		hub:    newHub(e, cfg.RefreshInterval),
	}
	e.AddRenderer(s.hub)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))
	s.routes(r)
	s.router = r
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", PassphraseHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) routes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/state", s.getState)
	api.GET("/menu", s.getMenu)
	api.GET("/status", s.getStatus)
	api.POST("/cart", s.addToCart)
	api.DELETE("/cart", s.clearCart)
	api.POST("/orders", s.submitOrder)

	kitchen := api.Group("", s.kitchenGate())
	kitchen.GET("/orders", s.listOrders)
	kitchen.POST("/orders/:number/complete", s.completeOrder)
	kitchen.DELETE("/orders/completed", s.clearCompleted)
	kitchen.DELETE("/orders", s.resetOrders)
	kitchen.POST("/orders/counter/reset", s.resetCounter)
	kitchen.GET("/stats", s.getStats)

	kitchen.POST("/menu/items", s.addMenuItem)
	kitchen.PUT("/menu/items/:id", s.editMenuItem)
	kitchen.DELETE("/menu/items/:id", s.deleteMenuItem)
	kitchen.POST("/menu/extras", s.addExtraOption)
	kitchen.PUT("/menu/extras/:id", s.editExtraOption)
	kitchen.DELETE("/menu/extras/:id", s.deleteExtraOption)
	kitchen.PUT("/inventory/:id", s.setCap)
	kitchen.PUT("/identity", s.setIdentity)
	kitchen.PUT("/theme", s.setTheme)

	r.GET("/ws", s.hub.serve)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Listen until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("http server stopped")
	return nil
}

// kitchenGate rejects requests without the kitchen passphrase. It keeps
// casual customers out of the kitchen screens and is not a security
// boundary.
func (s *Server) kitchenGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.CheckPassphrase(c.GetHeader(PassphraseHeader)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "kitchen passphrase required"})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
