package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/stockdesk/config"
	"github.com/dyike/stockdesk/internal/cache"
	"github.com/dyike/stockdesk/internal/extract"
	"github.com/dyike/stockdesk/internal/market"
	"github.com/dyike/stockdesk/internal/metrics"
	"github.com/dyike/stockdesk/internal/raworc"
	"github.com/dyike/stockdesk/internal/report"
	"github.com/dyike/stockdesk/pkg/logger"
)

// app holds the wired components every command draws from.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	client   *raworc.Client
	workflow *report.Workflow
	market   *market.Service
}

func newApp(cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.RaworcAPIKey == "" {
		log.Warn("RAWORC_API_KEY is not set; agent service calls will be rejected")
	}

	m := metrics.New()
	client := raworc.NewClient(raworc.Options{
		BaseURL:   cfg.RaworcAPIURL,
		APIKey:    cfg.RaworcAPIKey,
		Timeout:   cfg.RaworcTimeout,
		RateLimit: cfg.RaworcRateLimit,
		Logger:    log.Named("raworc"),
		Metrics:   m,
	})
	wf := report.NewWorkflow(client, report.WorkflowOptions{
		Template:  cfg.RaworcCoreAgent,
		Freshness: cfg.FreshnessWindow,
		Extractor: extract.New(cfg.RaworcContentURL),
		Logger:    log.Named("report"),
		Metrics:   m,
	})
	board := market.NewService(market.NewYahooFetcher(), market.Options{
		Symbols:     cfg.MarketSymbols,
		Concurrency: cfg.MarketConcurrency,
		Cache:       cache.NewQuoteCache(len(cfg.MarketSymbols)*2, cfg.MarketCacheTTL),
		Logger:      log.Named("market"),
		Metrics:     m,
	})

	return &app{
		cfg:      cfg,
		logger:   log,
		metrics:  m,
		client:   client,
		workflow: wf,
		market:   board,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
