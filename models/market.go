package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Dashboards consume prices as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Quote is a market snapshot for one symbol.
type Quote struct {
	Symbol                     string          `json:"symbol"`
	ShortName                  string          `json:"shortName"`
	RegularMarketPrice         decimal.Decimal `json:"regularMarketPrice"`
	RegularMarketChange        decimal.Decimal `json:"regularMarketChange"`
	RegularMarketChangePercent decimal.Decimal `json:"regularMarketChangePercent"`
	RegularMarketDayHigh       decimal.Decimal `json:"regularMarketDayHigh"`
	RegularMarketDayLow        decimal.Decimal `json:"regularMarketDayLow"`
	RegularMarketVolume        int64           `json:"regularMarketVolume"`
	MarketCap                  int64           `json:"marketCap"`
	FiftyTwoWeekHigh           decimal.Decimal `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            decimal.Decimal `json:"fiftyTwoWeekLow"`
	RegularMarketOpen          decimal.Decimal `json:"regularMarketOpen"`
	RegularMarketPreviousClose decimal.Decimal `json:"regularMarketPreviousClose"`
}

// IsIndex reports whether the quote is a market index (^GSPC, ^DJI, ...).
func (q *Quote) IsIndex() bool {
	return strings.HasPrefix(q.Symbol, "^")
}

// MarketSnapshot is the quote board returned to the dashboard.
type MarketSnapshot struct {
	Success    bool      `json:"success"`
	Data       []*Quote  `json:"data"`
	TopGainers []*Quote  `json:"topGainers"`
	Timestamp  time.Time `json:"timestamp"`
	IsMockData bool      `json:"isMockData"`
}
