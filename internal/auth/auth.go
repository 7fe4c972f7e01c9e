// Package auth resolves inbound credentials to API key policies.
package auth

import (
	"strings"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/domain"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
)

const bearerPrefix = "Bearer "

// ExtractKey pulls the API key out of an Authorization header value.
// Both "Bearer <key>" and a bare key are accepted; the Bearer prefix is
// matched case-sensitively.
func ExtractKey(header string) (string, *domain.APIError) {
	key := strings.TrimPrefix(header, bearerPrefix)
	if key == "" {
		return "", domain.ErrMissingKey()
	}
	return key, nil
}

// Authenticator validates API keys against the policy store. It performs a
// pure lookup: no rate-limit or usage state is touched here.
type Authenticator struct {
	store policy.Store
}

// New creates an authenticator backed by the given policy store.
func New(store policy.Store) *Authenticator {
	return &Authenticator{store: store}
}

// Authenticate extracts the credential from an Authorization header value
// and resolves it to a policy. An absent credential yields 401 missing; an
// unknown one yields 401 invalid.
func (a *Authenticator) Authenticate(header string) (*policy.Policy, *domain.APIError) {
	key, err := ExtractKey(header)
	if err != nil {
		return nil, err
	}
	p, ok := a.store.Lookup(policy.HashKey(key))
	if !ok {
		return nil, domain.ErrInvalidKey()
	}
	return p, nil
}

// Authorize checks the resolved policy against the requested model. This is
// deliberately separate from Authenticate: a valid key asking for the wrong
// model is a 403, not a 401.
func Authorize(p *policy.Policy, model string) *domain.APIError {
	if model != p.AllowedModel {
		return domain.ErrModelNotAllowed(model)
	}
	return nil
}
