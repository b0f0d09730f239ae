package models

// ExtractedReport is the renderable result derived from a finished response.
// Every field is optional.
type ExtractedReport struct {
	HTML  string `json:"html,omitempty"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// ReportResult is returned by the blocking report route.
type ReportResult struct {
	Success  bool             `json:"success"`
	Agent    *Agent           `json:"agent"`
	Response *ResponseRecord  `json:"response"`
	Symbol   string           `json:"symbol"`
	Reused   bool             `json:"reused,omitempty"`
	Report   *ExtractedReport `json:"report,omitempty"`
}
