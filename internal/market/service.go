// Package market builds the quote board shown on the dashboard home page.
package market

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dyike/stockdesk/internal/cache"
	"github.com/dyike/stockdesk/internal/metrics"
	"github.com/dyike/stockdesk/models"
	"github.com/dyike/stockdesk/pkg/logger"
)

// TopGainerCount is how many stocks the board highlights.
const TopGainerCount = 5

type Options struct {
	Symbols     []string
	Concurrency int
	Cache       *cache.QuoteCache
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Clock       func() time.Time
}

type Service struct {
	fetcher     Fetcher
	symbols     []string
	concurrency int
	cache       *cache.QuoteCache
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewService(fetcher Fetcher, opts Options) *Service {
	s := &Service{
		fetcher:     fetcher,
		symbols:     opts.Symbols,
		concurrency: opts.Concurrency,
		cache:       opts.Cache,
		logger:      logger.OrNop(opts.Logger),
		metrics:     opts.Metrics,
		now:         opts.Clock,
	}
	if s.concurrency <= 0 {
		s.concurrency = 8
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Snapshot fetches symbols (the configured board when empty) concurrently.
// Symbols that fail are dropped; when all of them fail the mock board is
// returned with IsMockData set. The error is non-nil only on cancellation.
func (s *Service) Snapshot(ctx context.Context, symbols ...string) (*models.MarketSnapshot, error) {
	if len(symbols) == 0 {
		symbols = s.symbols
	}

	results := make([]*models.Quote, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			results[i] = s.quote(gctx, sym)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quotes := make([]*models.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, q)
		}
	}
	s.logger.Info("fetched quotes", zap.Int("valid", len(quotes)), zap.Int("requested", len(symbols)))

	snap := &models.MarketSnapshot{Success: true, Timestamp: s.now().UTC()}
	if len(quotes) == 0 {
		s.logger.Warn("no quotes fetched, serving mock data")
		quotes = MockQuotes()
		snap.IsMockData = true
	}
	snap.Data = quotes
	snap.TopGainers = TopGainers(quotes, TopGainerCount)
	return snap, nil
}

func (s *Service) quote(ctx context.Context, symbol string) *models.Quote {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil
	}
	if q, ok := s.cache.Get(symbol); ok {
		s.metrics.ObserveQuote("cached")
		return q
	}
	q, err := s.fetcher.Quote(ctx, symbol)
	if err != nil {
		s.metrics.ObserveQuote("error")
		s.logger.Debug("quote fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	s.metrics.ObserveQuote("ok")
	s.cache.Set(symbol, q)
	return q
}

// CacheStats reports the quote cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// TopGainers returns up to n non-index quotes ordered by change percent,
// highest first. Ties keep input order.
func TopGainers(quotes []*models.Quote, n int) []*models.Quote {
	stocks := make([]*models.Quote, 0, len(quotes))
	for _, q := range quotes {
		if !q.IsIndex() {
			stocks = append(stocks, q)
		}
	}
	sort.SliceStable(stocks, func(i, j int) bool {
		return stocks[i].RegularMarketChangePercent.GreaterThan(stocks[j].RegularMarketChangePercent)
	})
	if len(stocks) > n {
		stocks = stocks[:n]
	}
	return stocks
}

