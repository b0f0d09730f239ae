package report

import (
	"bytes"
	"text/template"
	"time"
)

var promptTemplate = template.Must(template.New("report").Parse(
	`Create a complete HTML stock research report for {{.Symbol}}.

The report MUST be a single self-contained HTML file with embedded CSS (no external links).

Required sections:
1. Metadata Section: Company Name, Ticker Symbol ({{.Symbol}}), Report Type (Deep Research Report), Report Date ({{.Date}}), Generated By (agent name)
2. Executive Summary: 3-5 bullet points highlighting key insights
3. Price & Performance: 1Y Return %, 3Y CAGR %, Beta, Market Cap
4. Financial Snapshot (TTM): Revenue, Net Income, Free Cash Flow, Gross Margin %, Debt-to-Equity
5. Valuation Summary: Fair Value Range, Method (DCF/multiples), Key Assumptions (WACC, Terminal Growth, EPS CAGR)
6. Risks: 3-5 key risk factors
7. Catalysts: 2-3 upside drivers
8. Sources/References: At least 3 credible sources (SEC Filings, Yahoo Finance, Company IR, etc.)
9. Footer: © {{.Year}} | Generated automatically by stock-deepresearch agent © {{.Year}}`))

// BuildPrompt renders the research task for symbol as of now (UTC date).
func BuildPrompt(symbol string, now time.Time) string {
	now = now.UTC()
	var buf bytes.Buffer
	_ = promptTemplate.Execute(&buf, struct {
		Symbol string
		Date   string
		Year   int
	}{
		Symbol: DisplaySymbol(symbol),
		Date:   now.Format("2006-01-02"),
		Year:   now.Year(),
	})
	return buf.String()
}
