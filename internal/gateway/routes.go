package gateway

import (
	"net/http"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/domain"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/server"
)

// ListModels handles GET /v1/models. Authenticated callers see the model
// their key allows; anonymous callers see what the backend has installed.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if header := r.Header.Get("Authorization"); header != "" {
		pol, aerr := h.auth.Authenticate(header)
		if aerr != nil {
			writeError(ctx, w, aerr)
			return
		}
		writeJSON(w, http.StatusOK, domain.ModelList{
			Object: "list",
			Data:   []domain.Model{{ID: pol.AllowedModel, Object: "model", OwnedBy: "ollama"}},
		})
		return
	}

	names, err := h.backend.ListModels(ctx)
	if err != nil {
		server.AddError(ctx, err)
		writeError(ctx, w, domain.ErrUpstream("failed to retrieve models"))
		return
	}

	data := make([]domain.Model, len(names))
	for i, name := range names {
		data[i] = domain.Model{ID: name, Object: "model", OwnedBy: "ollama"}
	}
	writeJSON(w, http.StatusOK, domain.ModelList{Object: "list", Data: data})
}

// Health handles GET /health: liveness of the gateway and the backend,
// independent of auth.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"gateway": "healthy",
		"ollama":  "healthy",
		"status":  "ok",
	}
	code := http.StatusOK

	if err := h.backend.Health(r.Context()); err != nil {
		server.AddError(r.Context(), err)
		body["ollama"] = "unavailable"
		body["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

// Root handles GET / with a service information document.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "ollama-gateway",
		"endpoints": map[string]string{
			"openai_compatible": "/v1/chat/completions",
			"models":            "/v1/models",
			"health":            "/health",
		},
	})
}

// AdminMetrics handles GET /admin/metrics, returning the usage snapshot
// for every key. Guarded by the X-Admin-Key header; an unset admin key
// disables the endpoint entirely.
func (h *Handler) AdminMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.adminKey == "" || r.Header.Get("X-Admin-Key") != h.adminKey {
		writeError(ctx, w, domain.ErrForbidden("forbidden"))
		return
	}

	snapshot, err := h.meter.SnapshotAll(ctx)
	if err != nil {
		server.AddError(ctx, err)
		writeError(ctx, w, domain.ErrInternal("failed to read usage counters"))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
