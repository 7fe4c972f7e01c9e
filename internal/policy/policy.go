// Package policy maps API keys to their authorization policies.
package policy

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/config"
)

// Budget unit constants. A budget counts either requests or estimated
// prompt tokens per window; the deployment's policy decides which.
const (
	UnitRequests = "requests"
	UnitTokens   = "tokens"
)

// Budget is a rate budget: Limit units per WindowSeconds.
type Budget struct {
	Limit         int64
	WindowSeconds int
	Unit          string
}

// Enabled reports whether the budget is configured at all. A zero budget
// means the key is not rate limited.
func (b Budget) Enabled() bool {
	return b.Limit > 0 && b.WindowSeconds > 0
}

// Policy is the per-key authorization record. It is read-only during
// request handling; updates happen out-of-band via configuration.
type Policy struct {
	// KeyID identifies the key in usage counters and logs. It is never
	// the key material itself.
	KeyID string

	// KeyHash is the SHA-256 hash of the API key.
	KeyHash string

	// AllowedModel is the single backend model this key may invoke.
	AllowedModel string

	// SystemPrompt, when set, is prepended as a leading system message.
	SystemPrompt string

	// TemperatureCap, when set, clamps caller-supplied temperature.
	TemperatureCap *float64

	// Budget is the default per-key rate budget.
	Budget Budget

	// ModelBudgets override Budget for specific models. An override
	// supersedes the default entirely, it is not additive.
	ModelBudgets map[string]Budget
}

// BudgetFor resolves the budget for a model, preferring a per-model
// override over the key default.
func (p *Policy) BudgetFor(model string) Budget {
	if b, ok := p.ModelBudgets[model]; ok {
		return b
	}
	return p.Budget
}

// Store resolves a key hash to its policy. Implementations must be safe
// for concurrent readers.
type Store interface {
	Lookup(keyHash string) (*Policy, bool)
}

// HashKey returns the hex SHA-256 hash of an API key, the form keys are
// stored in.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MemoryStore is an in-memory Store built from configuration.
type MemoryStore struct {
	policies map[string]*Policy // key hash -> policy
}

// NewMemoryStore indexes the given policies by key hash.
func NewMemoryStore(policies []*Policy) *MemoryStore {
	s := &MemoryStore{policies: make(map[string]*Policy, len(policies))}
	for _, p := range policies {
		s.policies[p.KeyHash] = p
	}
	return s
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(keyHash string) (*Policy, bool) {
	p, ok := s.policies[keyHash]
	return p, ok
}

// FromConfig converts configured policies into their runtime form.
func FromConfig(configs []config.PolicyConfig) []*Policy {
	policies := make([]*Policy, 0, len(configs))
	for _, pc := range configs {
		p := &Policy{
			KeyID:          pc.KeyID,
			KeyHash:        pc.KeyHash,
			AllowedModel:   pc.Model,
			SystemPrompt:   pc.SystemPrompt,
			TemperatureCap: pc.TemperatureCap,
			Budget:         budgetFromConfig(pc.RateBudget),
		}
		if len(pc.ModelBudgets) > 0 {
			p.ModelBudgets = make(map[string]Budget, len(pc.ModelBudgets))
			for model, bc := range pc.ModelBudgets {
				p.ModelBudgets[model] = budgetFromConfig(bc)
			}
		}
		policies = append(policies, p)
	}
	return policies
}

func budgetFromConfig(bc config.BudgetConfig) Budget {
	unit := bc.Unit
	if unit == "" {
		unit = UnitRequests
	}
	return Budget{Limit: bc.Limit, WindowSeconds: bc.WindowSeconds, Unit: unit}
}
