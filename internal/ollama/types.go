package ollama

// Message is a chat message in Ollama's native schema.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options is the nested generation options structure of /api/chat.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// ChatResponse is one /api/chat response object. Non-streaming calls return
// a single object with Done=true; streaming calls return one line-delimited
// JSON object per token, the last with Done=true and the eval counts.
type ChatResponse struct {
	Model           string   `json:"model"`
	CreatedAt       string   `json:"created_at,omitempty"`
	Message         *Message `json:"message,omitempty"`
	Done            bool     `json:"done"`
	DoneReason      string   `json:"done_reason,omitempty"`
	PromptEvalCount int      `json:"prompt_eval_count,omitempty"`
	EvalCount       int      `json:"eval_count,omitempty"`
}

// TagModel is one installed model from GET /api/tags.
type TagModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// TagsResponse is the body of GET /api/tags.
type TagsResponse struct {
	Models []TagModel `json:"models"`
}

// errorResponse is Ollama's error body shape.
type errorResponse struct {
	Error string `json:"error"`
}
