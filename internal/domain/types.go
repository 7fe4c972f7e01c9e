// Package domain holds the gateway's canonical request/response types,
// independent of both the OpenAI wire schema and the Ollama backend schema.
package domain

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the validated internal form of an inbound chat completion
// request. It is constructed once at the HTTP boundary; business logic never
// reaches back into raw JSON.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// DefaultTemperature is applied when the caller omits temperature.
const DefaultTemperature = 0.7

// Validate checks the request shape. Authentication and model authorization
// happen before this runs, so only body-level problems surface here.
func (r *ChatRequest) Validate() *APIError {
	if r.Model == "" {
		return ErrValidation("missing required field: model")
	}
	if r.Messages == nil {
		return ErrValidation("missing required field: messages")
	}
	if len(r.Messages) == 0 {
		return ErrValidation("messages must not be empty")
	}
	for _, m := range r.Messages {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			return nil
		}
	}
	return ErrValidation("messages must contain at least one user or assistant message")
}

// Usage represents token usage as reported by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Finish reasons surfaced to callers.
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// ChatResponse is a complete non-streaming chat completion.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Delta is the incremental message fragment carried by a streaming chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is a choice entry within a streaming chunk. FinishReason is
// null for delta chunks and set on the terminal chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// ChatResponseChunk is one unit of a streamed chat completion.
type ChatResponseChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// Model describes a model entry exposed via GET /v1/models.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the model listing response.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
