package extract

import (
	"strings"

	"github.com/dyike/stockdesk/consts"
	"github.com/dyike/stockdesk/models"
)

// Hit is what a rule found: a ready URL, or a filename under the agent's
// content directory.
type Hit struct {
	URL      string
	Filename string
}

// Rule scans a trace for one kind of evidence. Rules are pure and
// independent; the extractor applies them in order and keeps the first hit.
type Rule struct {
	Name  string
	Match func(segments []models.Segment, symbol string) (Hit, bool)
}

// DefaultRules is the URL priority order.
var DefaultRules = []Rule{
	{Name: "publish_result_url", Match: publishResultURL},
	{Name: "output_url", Match: outputURL},
	{Name: "publish_filename", Match: publishFilename},
	{Name: "created_html_file", Match: createdHTMLFile},
}

func publishResultURL(segments []models.Segment, _ string) (Hit, bool) {
	for _, seg := range segments {
		if seg.Type == consts.SegmentToolResult && seg.Tool == consts.ToolPublishAgent {
			if u := seg.PayloadString("url"); u != "" {
				return Hit{URL: u}, true
			}
		}
	}
	return Hit{}, false
}

func outputURL(segments []models.Segment, _ string) (Hit, bool) {
	for _, seg := range segments {
		if seg.Type == consts.SegmentOutput {
			if u := seg.PayloadString("url"); u != "" {
				return Hit{URL: u}, true
			}
		}
	}
	return Hit{}, false
}

func publishFilename(segments []models.Segment, _ string) (Hit, bool) {
	for _, seg := range segments {
		if seg.Tool != consts.ToolPublishAgent {
			continue
		}
		var name string
		switch seg.Type {
		case consts.SegmentToolResult:
			name = seg.PayloadString("filename")
		case consts.SegmentToolCall:
			name = seg.ArgString("filename")
		}
		if name != "" {
			return Hit{Filename: name}, true
		}
	}
	return Hit{}, false
}

// createdHTMLFile prefers an HTML file named after the symbol or following
// the "_report.html" convention, then any HTML file the agent wrote.
func createdHTMLFile(segments []models.Segment, symbol string) (Hit, bool) {
	sym := strings.ToLower(strings.TrimSpace(symbol))
	var fallback string
	for _, seg := range segments {
		if seg.Type != consts.SegmentToolCall || seg.Tool != consts.ToolCreateFile {
			continue
		}
		name := seg.ArgString("filename")
		if !strings.Contains(name, ".html") {
			continue
		}
		lower := strings.ToLower(name)
		if (sym != "" && strings.Contains(lower, sym)) || strings.Contains(lower, "_report.html") {
			return Hit{Filename: name}, true
		}
		if fallback == "" {
			fallback = name
		}
	}
	if fallback != "" {
		return Hit{Filename: fallback}, true
	}
	return Hit{}, false
}
