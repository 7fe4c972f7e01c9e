// Package gateway composes authentication, rate limiting, schema
// transformation and usage metering into the request pipeline.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/auth"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/domain"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/ollama"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/ratelimit"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/server"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/tokens"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/transform"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/usage"
)

// Handler serves the OpenAI-compatible surface of the gateway.
type Handler struct {
	auth      *auth.Authenticator
	limiter   ratelimit.Limiter
	meter     usage.Meter
	backend   *ollama.Client
	estimator *tokens.Estimator
	logger    *slog.Logger
	adminKey  string
}

// NewHandler wires the request pipeline together.
func NewHandler(
	authenticator *auth.Authenticator,
	limiter ratelimit.Limiter,
	meter usage.Meter,
	backend *ollama.Client,
	estimator *tokens.Estimator,
	logger *slog.Logger,
	adminKey string,
) *Handler {
	return &Handler{
		auth:      authenticator,
		limiter:   limiter,
		meter:     meter,
		backend:   backend,
		estimator: estimator,
		logger:    logger,
		adminKey:  adminKey,
	}
}

// Routes registers the gateway's endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/chat/completions", h.ChatCompletions)
	r.Get("/v1/models", h.ListModels)
	r.Get("/health", h.Health)
	r.Get("/", h.Root)
	r.Get("/admin/metrics", h.AdminMetrics)
}

// ChatCompletions handles POST /v1/chat/completions: authenticate ->
// decode -> authorize -> admit -> validate -> transform -> dispatch ->
// translate -> meter. Authentication runs before the body is even parsed,
// so an anonymous caller learns nothing from a malformed payload.
// Rejections before dispatch are never metered.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pol, aerr := h.auth.Authenticate(r.Header.Get("Authorization"))
	if aerr != nil {
		writeError(ctx, w, aerr)
		return
	}
	server.AddLogField(ctx, "key_id", pol.KeyID)

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, domain.ErrValidation("invalid JSON payload"))
		return
	}
	server.AddLogField(ctx, "model", req.Model)

	// Model authorization only applies when the caller named a model; a
	// missing model is a validation problem, caught below.
	if req.Model != "" {
		if aerr := auth.Authorize(pol, req.Model); aerr != nil {
			writeError(ctx, w, aerr)
			return
		}
	}

	if aerr := h.admit(ctx, w, pol, &req); aerr != nil {
		writeError(ctx, w, aerr)
		return
	}

	if verr := req.Validate(); verr != nil {
		writeError(ctx, w, verr)
		return
	}

	backendReq := transform.ToBackend(pol, &req)
	meta := transform.StreamMeta{
		ID:      "chatcmpl-" + uuid.NewString(),
		Created: time.Now().Unix(),
		Model:   req.Model,
	}

	if req.Stream {
		h.streamCompletion(w, r, pol, backendReq, meta)
		return
	}

	resp, err := h.backend.Chat(ctx, backendReq)
	if err != nil {
		h.failUpstream(ctx, w, pol.KeyID, req.Model, err)
		return
	}

	out, terr := transform.FromBackend(resp, meta.ID, meta.Created)
	if terr != nil {
		// The backend answered, so the attempt is billable even though
		// its output was unusable.
		h.record(ctx, pol.KeyID, req.Model, 0, true)
		server.AddError(ctx, terr)
		writeError(ctx, w, terr)
		return
	}

	h.record(ctx, pol.KeyID, req.Model, int64(out.Usage.TotalTokens), true)
	writeJSON(w, http.StatusOK, out)
}

// admit prices the request against its budget and runs rate-limit
// admission. A nil return means the request may proceed.
func (h *Handler) admit(ctx context.Context, w http.ResponseWriter, pol *policy.Policy, req *domain.ChatRequest) *domain.APIError {
	budget := pol.BudgetFor(req.Model)
	if !budget.Enabled() {
		return nil
	}

	cost := int64(1)
	if budget.Unit == policy.UnitTokens {
		cost = h.estimator.EstimateMessages(req.Messages)
	}

	remaining, err := h.limiter.Admit(ctx, pol.KeyID, req.Model, cost, budget)
	if err != nil {
		var rlErr *ratelimit.Error
		if errors.As(err, &rlErr) {
			retry := int(math.Ceil(rlErr.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			return domain.ErrRateLimited(rlErr.Error())
		}
		server.AddError(ctx, err)
		return domain.ErrInternal("rate limit check failed")
	}

	if rl := server.GetRateLimits(ctx); rl != nil {
		rl.ResetSeconds = budget.WindowSeconds
		if budget.Unit == policy.UnitTokens {
			rl.TokensLimit, rl.TokensRemaining = budget.Limit, remaining
		} else {
			rl.RequestsLimit, rl.RequestsRemaining = budget.Limit, remaining
		}
	}
	return nil
}

// streamCompletion relays a backend chat stream as SSE chunks. Chunks are
// pulled one at a time as the outbound transport accepts them; a caller
// disconnect cancels the pull through the request context.
func (h *Handler) streamCompletion(w http.ResponseWriter, r *http.Request, pol *policy.Policy, backendReq *ollama.ChatRequest, meta transform.StreamMeta) {
	ctx := r.Context()

	events, err := h.backend.StreamChat(ctx, backendReq)
	if err != nil {
		h.failUpstream(ctx, w, pol.KeyID, meta.Model, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.record(ctx, pol.KeyID, meta.Model, 0, true)
		writeError(ctx, w, domain.ErrInternal("streaming not supported"))
		return
	}

	// SSE headers go out with the first chunk. Until then the status line
	// is still open, so a stream that fails before producing output can be
	// surfaced as a proper error response.
	var tokenTotal int64
	streaming := false
	for res := range events {
		if res.Err != nil {
			// After the first write the status line is long gone: stop
			// the stream and bill what was observed.
			server.AddError(ctx, res.Err)
			break
		}

		chunk := transform.ChunkFromBackend(res.Chunk, meta)
		data, merr := json.Marshal(chunk)
		if merr != nil {
			server.AddError(ctx, merr)
			break
		}
		if !streaming {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			streaming = true
		}
		if _, werr := fmt.Fprintf(w, "data: %s\n\n", data); werr != nil {
			break
		}
		flusher.Flush()

		if res.Chunk.Done {
			tokenTotal = int64(transform.UsageFromBackend(res.Chunk).TotalTokens)
		}
	}

	if !streaming {
		// The backend accepted the request but its stream yielded nothing
		// usable before the first byte went out.
		h.record(ctx, pol.KeyID, meta.Model, 0, true)
		writeError(ctx, w, domain.ErrMalformedUpstream("backend stream produced no usable output"))
		return
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()

	h.record(ctx, pol.KeyID, meta.Model, tokenTotal, true)
}

// failUpstream translates a dispatch failure into a 502 and meters the
// attempt. A backend that answered with an error status was reached and is
// billed as a request; a connection failure is not.
func (h *Handler) failUpstream(ctx context.Context, w http.ResponseWriter, keyID, model string, err error) {
	server.AddError(ctx, err)

	var statusErr *ollama.StatusError
	if errors.As(err, &statusErr) {
		h.record(ctx, keyID, model, 0, true)
		writeError(ctx, w, domain.ErrUpstream(statusErr.Message))
		return
	}

	h.record(ctx, keyID, model, 0, false)
	writeError(ctx, w, domain.ErrUpstream("upstream backend unreachable"))
}

// record invokes the usage meter once for a terminal outcome. Metering must
// survive caller disconnects, so the recording context is detached from
// request cancellation.
func (h *Handler) record(ctx context.Context, keyID, model string, tokenCount int64, requestCounted bool) {
	if err := h.meter.Record(context.WithoutCancel(ctx), keyID, model, tokenCount, requestCounted); err != nil {
		h.logger.Error("failed to record usage",
			slog.String("key_id", keyID),
			slog.String("model", model),
			slog.String("error", err.Error()),
		)
	}
}
