package market

import (
	"github.com/shopspring/decimal"

	"github.com/dyike/stockdesk/models"
)

type mockRow struct {
	symbol, name                   string
	price, change, pct, high, low  string
	volume, cap                    int64
	yearHigh, yearLow, open, close string
}

var mockRows = []mockRow{
	{"^GSPC", "S&P 500", "4783.45", "58.32", "1.24", "4800", "4750", 2400000000, 45200000000000, "4900", "4200", "4760", "4725.13"},
	{"^IXIC", "NASDAQ", "15089.90", "297.14", "2.01", "15100", "14950", 3500000000, 18000000000000, "15500", "13800", "14950", "14792.76"},
	{"^DJI", "Dow Jones", "37305.16", "-195.74", "-0.52", "37450", "37200", 450000000, 12000000000000, "38000", "35500", "37400", "37500.90"},
	{"NVDA", "NVIDIA Corporation", "875.28", "47.12", "5.67", "880", "828", 42000000, 2150000000000, "900", "400", "832", "828.16"},
	{"TSLA", "Tesla, Inc.", "248.50", "10.09", "4.23", "252", "238", 115000000, 785000000000, "299", "138", "240", "238.41"},
	{"AMD", "Advanced Micro Devices", "180.45", "6.75", "3.89", "182", "173", 68000000, 291000000000, "200", "92", "174", "173.70"},
	{"AAPL", "Apple Inc.", "182.89", "4.38", "2.45", "184", "178", 52000000, 2830000000000, "199", "139", "179", "178.51"},
	{"MSFT", "Microsoft Corporation", "425.17", "8.92", "2.14", "428", "416", 23000000, 3160000000000, "450", "325", "418", "416.25"},
}

// MockQuotes is the fixed board served when the provider is unreachable.
func MockQuotes() []*models.Quote {
	out := make([]*models.Quote, 0, len(mockRows))
	for _, r := range mockRows {
		out = append(out, &models.Quote{
			Symbol:                     r.symbol,
			ShortName:                  r.name,
			RegularMarketPrice:         decimal.RequireFromString(r.price),
			RegularMarketChange:        decimal.RequireFromString(r.change),
			RegularMarketChangePercent: decimal.RequireFromString(r.pct),
			RegularMarketDayHigh:       decimal.RequireFromString(r.high),
			RegularMarketDayLow:        decimal.RequireFromString(r.low),
			RegularMarketVolume:        r.volume,
			MarketCap:                  r.cap,
			FiftyTwoWeekHigh:           decimal.RequireFromString(r.yearHigh),
			FiftyTwoWeekLow:            decimal.RequireFromString(r.yearLow),
			RegularMarketOpen:          decimal.RequireFromString(r.open),
			RegularMarketPreviousClose: decimal.RequireFromString(r.close),
		})
	}
	return out
}
