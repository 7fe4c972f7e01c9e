package usage

import (
	"context"
	"sync"
)

// Memory is an in-process Meter. Counters are monotonically non-decreasing;
// they reset only when the process restarts.
type Memory struct {
	mu    sync.Mutex
	byKey map[string]*Counters
}

// NewMemory creates an in-memory meter.
func NewMemory() *Memory {
	return &Memory{byKey: make(map[string]*Counters)}
}

// Record implements Meter.
func (m *Memory) Record(_ context.Context, keyID, model string, tokens int64, requestCounted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byKey[keyID]
	if !ok {
		c = &Counters{Models: make(map[string]Totals)}
		m.byKey[keyID] = c
	}

	mc := c.Models[model]
	mc.Tokens += tokens
	c.Total.Tokens += tokens
	if requestCounted {
		mc.Requests++
		c.Total.Requests++
	}
	c.Models[model] = mc
	return nil
}

// Snapshot implements Meter.
func (m *Memory) Snapshot(_ context.Context, keyID string) (Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byKey[keyID]
	if !ok {
		return Counters{Models: map[string]Totals{}}, nil
	}
	return copyCounters(c), nil
}

// SnapshotAll implements Meter.
func (m *Memory) SnapshotAll(_ context.Context) (map[string]Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Counters, len(m.byKey))
	for keyID, c := range m.byKey {
		out[keyID] = copyCounters(c)
	}
	return out, nil
}

func copyCounters(c *Counters) Counters {
	cp := Counters{Total: c.Total, Models: make(map[string]Totals, len(c.Models))}
	for model, t := range c.Models {
		cp.Models[model] = t
	}
	return cp
}
