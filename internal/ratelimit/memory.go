package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
)

// Memory is an in-process Limiter. Each (keyID, model) pair owns its own
// window with its own lock; there is no lock shared across keys. Expired
// windows are reset lazily on the next access rather than by a sweeper.
type Memory struct {
	windows sync.Map // composite key -> *window
	now     func() time.Time
}

type window struct {
	mu    sync.Mutex
	start time.Time
	count int64
}

// NewMemory creates an in-memory limiter.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Admit implements Limiter.
func (m *Memory) Admit(_ context.Context, keyID, model string, cost int64, b policy.Budget) (int64, error) {
	v, _ := m.windows.LoadOrStore(keyID+"\x00"+model, &window{})
	w := v.(*window)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := m.now()
	dur := time.Duration(b.WindowSeconds) * time.Second
	if w.start.IsZero() || now.Sub(w.start) >= dur {
		w.start = now
		w.count = 0
	}

	if w.count+cost > b.Limit {
		return 0, &Error{
			Limit:         b.Limit,
			WindowSeconds: b.WindowSeconds,
			RetryAfter:    w.start.Add(dur).Sub(now),
		}
	}

	w.count += cost
	return b.Limit - w.count, nil
}
