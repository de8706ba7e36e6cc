// Package api serves a read-only HTTP introspection server over
// completed run reports, grounded on qplay's internal/server/router
// (CORS middleware, request-ID injection via google/uuid, structured
// access-log lines through zerolog) but stripped of circuit-rendering and
// program-storage routes: this is a report facade, not an interactive
// stepping or visualisation surface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kegliz/qkqest/internal/logger"
	"github.com/kegliz/qkqest/internal/runstore"
)

var requestCount int64

// Server wraps a gin engine exposing the run store over HTTP.
type Server struct {
	engine *gin.Engine
	log    *logger.Logger
	http   *http.Server
}

// New builds a Server serving store's contents.
func New(store *runstore.Store) *Server {
	log := logger.SpawnForService("api")

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(accessLog(log))
	engine.Use(cors())

	engine.GET("/runs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"runs": store.List()})
	})
	engine.GET("/runs/:id", func(c *gin.Context) {
		rec, ok := store.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusOK, rec.Report)
	})
	engine.GET("/runs/:id/usage", func(c *gin.Context) { serveSeries(c, store, "usage") })
	engine.GET("/runs/:id/ages", func(c *gin.Context) { serveSeries(c, store, "ages") })
	engine.GET("/runs/:id/storage", func(c *gin.Context) { serveSeries(c, store, "storage") })
	engine.NoRoute(func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "not found"}) })

	return &Server{engine: engine, log: log}
}

func serveSeries(c *gin.Context, store *runstore.Store, which string) {
	rec, ok := store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	switch which {
	case "usage":
		c.JSON(http.StatusOK, gin.H{"usage": rec.Usage})
	case "ages":
		c.JSON(http.StatusOK, gin.H{"ages": rec.Ages})
	case "storage":
		c.JSON(http.StatusOK, gin.H{"storage": rec.Storage})
	}
}

// ListenAndServe starts the HTTP server on port, blocking until Shutdown
// is called or the server errors out.
func (s *Server) ListenAndServe(port int) error {
	s.http = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: s.engine}
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept-Encoding")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func accessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqCount := strconv.FormatInt(atomic.AddInt64(&requestCount, 1), 10)
		reqID := c.Request.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-Id", reqID)
		l := log.SpawnForContext(reqCount, reqID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		ev := l.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = l.Error()
		} else if c.Writer.Status() >= http.StatusBadRequest {
			ev = l.Warn()
		}
		ev.Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Msg("request served")
	}
}
