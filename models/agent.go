package models

// Agent is a named agent owned by the orchestration service.
type Agent struct {
	Name        string  `json:"name"`
	CreatedBy   string  `json:"created_by,omitempty"`
	State       string  `json:"state,omitempty"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// RemixRequest clones a template agent into a new named agent.
type RemixRequest struct {
	Name    string `json:"name"`
	Code    bool   `json:"code"`
	Env     bool   `json:"env"`
	Content bool   `json:"content"`
}

// CreateResponseRequest submits a task to an agent.
type CreateResponseRequest struct {
	Input      ResponseInput `json:"input"`
	Background bool          `json:"background"`
}

// ResponseInput wraps the content blocks of a submitted task.
type ResponseInput struct {
	Content []ContentBlock `json:"content"`
}

// NewTextRequest builds a background request with a single text block.
func NewTextRequest(text string) CreateResponseRequest {
	return CreateResponseRequest{
		Input: ResponseInput{
			Content: []ContentBlock{{Type: "text", Content: text}},
		},
		Background: true,
	}
}
