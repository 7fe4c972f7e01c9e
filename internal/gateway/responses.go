package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/domain"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/server"
)

// writeError emits the uniform error envelope and records the error in the
// request log.
func writeError(ctx context.Context, w http.ResponseWriter, apiErr *domain.APIError) {
	server.AddError(ctx, apiErr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(apiErr.Envelope())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
