// Package httpapi serves the attendance reports over HTTP. The API is
// read-only: all writes go through the CLI.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/apperr"
	"classtrack/internal/config"
	"classtrack/internal/report"
	"classtrack/internal/store"
)

var reportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classtrack_report_requests_total",
	Help: "Report requests served, by report kind and outcome.",
}, []string{"report", "outcome"})

// Server hosts the read-only report endpoints.
type Server struct {
	cfg     config.App
	db      *store.DB
	reports *report.Repository
}

// NewServer creates a report API server.
func NewServer(cfg config.App, db *store.DB, reports *report.Repository) *Server {
	return &Server{cfg: cfg, db: db, reports: reports}
}

// router builds the gin engine with the read-only report routes.
func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(requestID())
	r.Use(newTokenBucket(s.cfg.RateLimitPerMin).middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		if err := s.db.Client.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": true})
	})

	v1 := r.Group("/v1")
	v1.GET("/reports/course/:code", func(c *gin.Context) {
		rep, err := s.reports.Course(c.Request.Context(), c.Param("code"))
		if err != nil {
			writeError(c, "course", err)
			return
		}
		reportRequests.WithLabelValues("course", "ok").Inc()
		c.JSON(http.StatusOK, rep)
	})
	v1.GET("/reports/student/:roll", func(c *gin.Context) {
		rep, err := s.reports.Student(c.Request.Context(), c.Param("roll"))
		if err != nil {
			writeError(c, "student", err)
			return
		}
		reportRequests.WithLabelValues("student", "ok").Inc()
		c.JSON(http.StatusOK, rep)
	})
	v1.GET("/reports/daily/:date", func(c *gin.Context) {
		date := c.Param("date")
		if _, err := time.Parse("2006-01-02", date); err != nil {
			reportRequests.WithLabelValues("daily", "error").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		rows, err := s.reports.Daily(c.Request.Context(), date, c.Query("course"))
		if err != nil {
			writeError(c, "daily", err)
			return
		}
		if rows == nil {
			rows = []report.DailyRow{}
		}
		reportRequests.WithLabelValues("daily", "ok").Inc()
		c.JSON(http.StatusOK, gin.H{"date": date, "rows": rows})
	})

	return r
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	if s.cfg.Env == "production" || s.cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:         ":" + s.cfg.HTTPPort,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("report API listening on :%s", s.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down report API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	return nil
}

// requestID tags every request and response with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func writeError(c *gin.Context, kind string, err error) {
	reportRequests.WithLabelValues(kind, "error").Inc()
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
