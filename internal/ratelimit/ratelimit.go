// Package ratelimit enforces fixed-window rate budgets per (key, model).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
)

// Error reports a rejected admission. RetryAfter is how long until the
// current window ends.
type Error struct {
	Limit         int64
	WindowSeconds int
	RetryAfter    time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d per %ds window", e.Limit, e.WindowSeconds)
}

// Limiter admits or rejects a request of the given cost against the budget
// for (keyID, model). On admission it returns the remaining budget in the
// current window. Rejections return *Error.
//
// The check-and-increment for a given (keyID, model) is atomic: two
// concurrent requests can never both be admitted against the last unit of
// budget.
type Limiter interface {
	Admit(ctx context.Context, keyID, model string, cost int64, b policy.Budget) (remaining int64, err error)
}
