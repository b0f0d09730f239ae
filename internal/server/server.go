// Package server exposes reports, quotes and agents over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dyike/stockdesk/config"
	"github.com/dyike/stockdesk/internal/cache"
	"github.com/dyike/stockdesk/internal/metrics"
	"github.com/dyike/stockdesk/internal/report"
	"github.com/dyike/stockdesk/models"
	"github.com/dyike/stockdesk/pkg/logger"
)

// ReportRunner runs the report workflow.
type ReportRunner interface {
	Run(ctx context.Context, symbol string, opts report.RunOptions, emit report.Emitter) (*models.ReportResult, error)
	Fetch(ctx context.Context, agent, id string) (*models.ResponseRecord, error)
}

// AgentLister is the read side of the agent service.
type AgentLister interface {
	ListAgents(ctx context.Context, limit int) ([]*models.Agent, error)
	ListResponses(ctx context.Context, agent string, limit int) ([]*models.ResponseRecord, error)
}

// QuoteBoard produces the market snapshot.
type QuoteBoard interface {
	Snapshot(ctx context.Context, symbols ...string) (*models.MarketSnapshot, error)
}

// CacheReporter is implemented by quote boards that cache upstream quotes.
type CacheReporter interface {
	CacheStats() cache.Stats
}

// PollSettings are the cadences for the two report modes. They can change
// at runtime when the config file is edited.
type PollSettings struct {
	Blocking report.PollOptions
	Stream   report.PollOptions
}

// PollSettingsFrom reads the poll cadences from cfg.
func PollSettingsFrom(cfg config.Config) PollSettings {
	return PollSettings{
		Blocking: report.PollOptions{Interval: cfg.PollInterval, MaxTicks: cfg.MaxTicks},
		Stream:   report.PollOptions{Interval: cfg.StreamPollInterval, MaxTicks: cfg.StreamMaxTicks},
	}
}

type Deps struct {
	Reports ReportRunner
	Agents  AgentLister
	Quotes  QuoteBoard
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Server struct {
	cfg     config.Config
	deps    Deps
	logger  *zap.Logger
	engine  *gin.Engine
	http    *http.Server
	poll    atomic.Pointer[PollSettings]
	started time.Time
}

func New(cfg config.Config, deps Deps) *Server {
	log := logger.OrNop(deps.Logger)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(RequestID(), Recovery(log), AccessLog(log))
	if cfg.ServerCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Last-Event-ID"}
		corsConfig.ExposeHeaders = []string{requestIDHeader}
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  log,
		engine:  engine,
		started: time.Now(),
	}
	s.SetPollSettings(PollSettingsFrom(cfg))
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// Zero by default: blocking report requests and streams outlive any
		// fixed write deadline.
		WriteTimeout: cfg.ServerWriteTimeout,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	reports := s.engine.Group("/report")
	{
		reports.POST("/:symbol", s.handleRunReport)
		reports.GET("/:symbol", s.handleGetResponse)
		reports.GET("/:symbol/progress", s.handleGetResponse)
		reports.GET("/:symbol/stream", s.handleStreamReport)
	}

	s.engine.GET("/quotes", s.handleQuotes)

	agents := s.engine.Group("/agents")
	{
		agents.GET("", s.handleListAgents)
		agents.GET("/:name/responses", s.handleListResponses)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// SetPollSettings swaps the cadences used by subsequent report requests.
func (s *Server) SetPollSettings(p PollSettings) {
	s.poll.Store(&p)
}

func (s *Server) pollSettings() PollSettings {
	return *s.poll.Load()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if r, ok := s.deps.Quotes.(CacheReporter); ok {
		body["quote_cache"] = r.CacheStats()
	}
	c.JSON(http.StatusOK, body)
}
