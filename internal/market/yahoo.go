package market

import (
	"context"
	"errors"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"github.com/dyike/stockdesk/models"
)

// ErrNoQuote is returned when the provider has nothing for a symbol.
var ErrNoQuote = errors.New("no quote data")

// Fetcher loads one quote.
type Fetcher interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// YahooFetcher reads quotes from Yahoo Finance.
type YahooFetcher struct {
	get func(symbol string) (*finance.Equity, error)
}

func NewYahooFetcher() *YahooFetcher {
	return &YahooFetcher{get: equity.Get}
}

func (y *YahooFetcher) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eq, err := y.get(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if eq == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoQuote, symbol)
	}
	return fromEquity(symbol, eq), nil
}

func fromEquity(symbol string, eq *finance.Equity) *models.Quote {
	q := &models.Quote{
		Symbol:                     eq.Symbol,
		ShortName:                  eq.ShortName,
		RegularMarketPrice:         decimal.NewFromFloat(eq.RegularMarketPrice),
		RegularMarketChange:        decimal.NewFromFloat(eq.RegularMarketChange),
		RegularMarketChangePercent: decimal.NewFromFloat(eq.RegularMarketChangePercent),
		RegularMarketDayHigh:       decimal.NewFromFloat(eq.RegularMarketDayHigh),
		RegularMarketDayLow:        decimal.NewFromFloat(eq.RegularMarketDayLow),
		RegularMarketVolume:        int64(eq.RegularMarketVolume),
		MarketCap:                  eq.MarketCap,
		FiftyTwoWeekHigh:           decimal.NewFromFloat(eq.FiftyTwoWeekHigh),
		FiftyTwoWeekLow:            decimal.NewFromFloat(eq.FiftyTwoWeekLow),
		RegularMarketOpen:          decimal.NewFromFloat(eq.RegularMarketOpen),
		RegularMarketPreviousClose: decimal.NewFromFloat(eq.RegularMarketPreviousClose),
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	if q.ShortName == "" {
		q.ShortName = eq.LongName
	}
	if q.ShortName == "" {
		q.ShortName = q.Symbol
	}
	return q
}
