package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/dyike/stockdesk/consts"
)

// ResponseRecord is one report generation attempt as seen by the agent service.
type ResponseRecord struct {
	ID            string         `json:"id"`
	AgentName     string         `json:"agent_name"`
	Status        string         `json:"status"`
	InputContent  []ContentBlock `json:"input_content,omitempty"`
	OutputContent []ContentBlock `json:"output_content"`
	Segments      []Segment      `json:"segments"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
}

// IsSucceeded reports an explicit terminal success status.
func (r *ResponseRecord) IsSucceeded() bool {
	return r != nil && consts.IsSuccessStatus(r.Status)
}

// IsFailed reports an explicit terminal failure status.
func (r *ResponseRecord) IsFailed() bool {
	return r != nil && consts.IsFailureStatus(r.Status)
}

// HasOutput reports whether both the trace and the final content are non-empty.
// The agent service sometimes leaves status untouched after producing output.
func (r *ResponseRecord) HasOutput() bool {
	return r != nil && len(r.Segments) > 0 && len(r.OutputContent) > 0
}

// LastActivity returns updated_at, falling back to created_at. Zero when neither parses.
func (r *ResponseRecord) LastActivity() time.Time {
	if r == nil {
		return time.Time{}
	}
	for _, v := range []string{r.UpdatedAt, r.CreatedAt} {
		if t, ok := parseTimestamp(v); ok {
			return t
		}
	}
	return time.Time{}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ContentBlock is one entry of input or output content. Non-string content is
// kept in Raw and re-emitted unchanged.
type ContentBlock struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`

	raw json.RawMessage
}

func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Type = aux.Type
	c.Content = ""
	if len(aux.Content) > 0 && aux.Content[0] == '"' {
		_ = json.Unmarshal(aux.Content, &c.Content)
	}
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (c ContentBlock) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	type plain ContentBlock
	return json.Marshal(plain(c))
}

// Segment is one event of an agent execution trace. Only the fields the
// dashboard looks at are decoded; the raw JSON is preserved for clients.
type Segment struct {
	Type    string         `json:"type"`
	Tool    string         `json:"tool,omitempty"`
	Channel string         `json:"channel,omitempty"`
	Text    string         `json:"text,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`

	raw json.RawMessage
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type    string          `json:"type"`
		Tool    string          `json:"tool"`
		Channel string          `json:"channel"`
		Text    json.RawMessage `json:"text"`
		Args    json.RawMessage `json:"args"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Segment{
		Type:    aux.Type,
		Tool:    aux.Tool,
		Channel: aux.Channel,
		Args:    decodeObject(aux.Args),
		Payload: decodeObject(aux.Payload),
	}
	if len(aux.Text) > 0 && aux.Text[0] == '"' {
		_ = json.Unmarshal(aux.Text, &s.Text)
	}
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (s Segment) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain Segment
	return json.Marshal(plain(s))
}

// ArgString returns args[key] when it is a string.
func (s Segment) ArgString(key string) string {
	return stringField(s.Args, key)
}

// PayloadString returns payload[key] when it is a string.
func (s Segment) PayloadString(key string) string {
	return stringField(s.Payload, key)
}

func decodeObject(data json.RawMessage) map[string]any {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
