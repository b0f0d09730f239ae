// Package extract locates the HTML report and its published URL inside a
// finished agent response.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dyike/stockdesk/consts"
	"github.com/dyike/stockdesk/models"
)

type Extractor struct {
	contentBase string
	rules       []Rule
}

// New returns an extractor that builds URLs under contentBase, e.g.
// https://host/content.
func New(contentBase string, rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Extractor{contentBase: strings.TrimRight(contentBase, "/"), rules: rules}
}

// Extract never fails; a response without usable evidence still yields the
// conventional report URL.
func (e *Extractor) Extract(agent, symbol string, resp *models.ResponseRecord) *models.ExtractedReport {
	out := &models.ExtractedReport{}
	if resp == nil {
		out.URL = e.ContentURL(agent, DefaultFilename(symbol))
		return out
	}
	out.HTML = HTML(resp)
	if out.HTML != "" {
		out.Title = Title(out.HTML)
	}

	hit, ok := e.firstHit(resp.Segments, symbol)
	switch {
	case ok && hit.URL != "":
		out.URL = hit.URL
	case ok:
		out.URL = e.ContentURL(agent, hit.Filename)
	default:
		out.URL = e.ContentURL(agent, DefaultFilename(symbol))
	}
	return out
}

func (e *Extractor) firstHit(segments []models.Segment, symbol string) (Hit, bool) {
	for _, rule := range e.rules {
		if hit, ok := rule.Match(segments, symbol); ok {
			return hit, true
		}
	}
	return Hit{}, false
}

// ContentURL joins the content host, the agent and a cleaned filename.
func (e *Extractor) ContentURL(agent, filename string) string {
	return e.contentBase + "/" + agent + "/" + CleanFilename(filename)
}

// HTML returns the first non-empty text output block, else the first
// non-empty final segment.
func HTML(resp *models.ResponseRecord) string {
	for _, block := range resp.OutputContent {
		if block.Type == "text" && block.Content != "" {
			return block.Content
		}
	}
	for _, seg := range resp.Segments {
		if seg.Type == consts.SegmentFinal && seg.Text != "" {
			return seg.Text
		}
	}
	return ""
}

// CleanFilename strips leading slashes and a "content/" prefix.
func CleanFilename(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	return strings.TrimPrefix(name, "content/")
}

func DefaultFilename(symbol string) string {
	sym := strings.ToLower(strings.TrimSpace(symbol))
	if sym == "" {
		return "report.html"
	}
	return sym + "_report.html"
}

// Title reads <title>, falling back to the first <h1>. Empty when the text
// is not parseable HTML or has neither.
func Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
