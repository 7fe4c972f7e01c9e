// Package usage accumulates per-key request and token counters for the
// reporting surface.
package usage

import "context"

// Totals are the aggregate counters for one scope.
type Totals struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
}

// Counters is the usage snapshot for a single key: overall totals plus a
// per-model breakdown.
type Counters struct {
	Total  Totals            `json:"total"`
	Models map[string]Totals `json:"models"`
}

// Meter records consumed usage. Record is called exactly once per terminal
// request outcome (success, backend error, or transform error) and never on
// an authentication, authorization, rate-limit, or validation rejection.
// For streams, tokens is the sum over the whole chunk sequence, recorded
// once after the terminal chunk.
type Meter interface {
	Record(ctx context.Context, keyID, model string, tokens int64, requestCounted bool) error

	// Snapshot returns the current counters for one key. The zero value is
	// returned for keys with no recorded usage.
	Snapshot(ctx context.Context, keyID string) (Counters, error)

	// SnapshotAll returns counters for every key with recorded usage.
	SnapshotAll(ctx context.Context) (map[string]Counters, error)
}
