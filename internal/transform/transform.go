// Package transform is the pure, stateless mapping between the gateway's
// canonical chat-completion schema and Ollama's native schema, in both
// directions and for both whole and streamed responses.
package transform

import (
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/domain"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/ollama"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
)

// Temperature bounds applied before any policy cap.
const (
	minTemperature = 0.0
	maxTemperature = 2.0
)

// ToBackend maps a validated canonical request into Ollama's schema under
// the given policy. The policy's system prompt, when set, always becomes
// the leading system message; a caller-supplied system message is kept
// after it, in its original position.
func ToBackend(p *policy.Policy, req *domain.ChatRequest) *ollama.ChatRequest {
	messages := make([]ollama.Message, 0, len(req.Messages)+1)
	if p.SystemPrompt != "" {
		messages = append(messages, ollama.Message{Role: domain.RoleSystem, Content: p.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, ollama.Message{Role: m.Role, Content: m.Content})
	}

	temp := clampTemperature(req.Temperature, p.TemperatureCap)
	opts := &ollama.Options{Temperature: &temp}
	if req.MaxTokens > 0 {
		n := req.MaxTokens
		opts.NumPredict = &n
	}

	return &ollama.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   req.Stream,
		Options:  opts,
	}
}

func clampTemperature(t, ceiling *float64) float64 {
	v := domain.DefaultTemperature
	if t != nil {
		v = *t
	}
	if v < minTemperature {
		v = minTemperature
	}
	if v > maxTemperature {
		v = maxTemperature
	}
	if ceiling != nil && v > *ceiling {
		v = *ceiling
	}
	return v
}

// StreamMeta carries the response identity shared by every chunk of one
// streamed completion.
type StreamMeta struct {
	ID      string
	Created int64
	Model   string
}

// FromBackend maps a complete Ollama response into a canonical response.
// The id and created values identify this completion and are supplied by
// the caller. Missing model or message data is a malformed-upstream error.
func FromBackend(resp *ollama.ChatResponse, id string, created int64) (*domain.ChatResponse, *domain.APIError) {
	if resp.Model == "" {
		return nil, domain.ErrMalformedUpstream("backend response missing model")
	}
	if resp.Message == nil {
		return nil, domain.ErrMalformedUpstream("backend response missing message")
	}

	usage := UsageFromBackend(resp)
	return &domain.ChatResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   resp.Model,
		Choices: []domain.Choice{
			{
				Index: 0,
				Message: domain.Message{
					Role:    resp.Message.Role,
					Content: resp.Message.Content,
				},
				FinishReason: finishReason(resp.DoneReason),
			},
		},
		Usage: usage,
	}, nil
}

// ChunkFromBackend maps one streamed Ollama object into a canonical chunk.
// Objects with done=false become delta chunks; the terminal object becomes
// the terminal chunk with an empty delta and finish_reason set.
func ChunkFromBackend(chunk *ollama.ChatResponse, meta StreamMeta) *domain.ChatResponseChunk {
	choice := domain.ChunkChoice{Index: 0}
	if chunk.Done {
		reason := finishReason(chunk.DoneReason)
		choice.FinishReason = &reason
	} else if chunk.Message != nil {
		choice.Delta = domain.Delta{
			Role:    chunk.Message.Role,
			Content: chunk.Message.Content,
		}
	}

	return &domain.ChatResponseChunk{
		ID:      meta.ID,
		Object:  "chat.completion.chunk",
		Created: meta.Created,
		Model:   meta.Model,
		Choices: []domain.ChunkChoice{choice},
	}
}

// UsageFromBackend extracts token usage from a backend object. Counts are
// whatever the backend reported, defaulting to zero when omitted; nothing
// is estimated.
func UsageFromBackend(resp *ollama.ChatResponse) domain.Usage {
	return domain.Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
}

// finishReason maps Ollama's done_reason onto OpenAI finish reasons. A
// max-token cutoff reports "length"; any other or unknown cause is "stop".
func finishReason(doneReason string) string {
	if doneReason == "length" || doneReason == "limit" {
		return domain.FinishReasonLength
	}
	return domain.FinishReasonStop
}
