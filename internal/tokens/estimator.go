// Package tokens estimates prompt token counts for rate-limit admission.
//
// Estimates are used only to price a request against a token-unit rate
// budget before dispatch. Usage reported back to callers always comes from
// the backend's own counts, never from these estimates.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/domain"
)

// perMessageOverhead approximates the role/framing tokens each chat
// message adds beyond its content.
const perMessageOverhead = 4

// Estimator counts prompt tokens with the cl100k_base encoding. Local
// models don't ship tokenizers the gateway can load, and cl100k is close
// enough for budgeting; when the encoding is unavailable a chars/4 heuristic
// is used instead.
type Estimator struct {
	once  sync.Once
	codec tokenizer.Codec
}

// NewEstimator creates an estimator. The tokenizer is loaded lazily on
// first use.
func NewEstimator() *Estimator {
	return &Estimator{}
}

func (e *Estimator) getCodec() tokenizer.Codec {
	e.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return
		}
		e.codec = codec
	})
	return e.codec
}

// EstimateMessages returns the estimated prompt token count for a message
// sequence. The result is always at least 1 for a non-empty sequence so a
// request never gets a free admission.
func (e *Estimator) EstimateMessages(messages []domain.Message) int64 {
	var total int64
	codec := e.getCodec()
	for _, m := range messages {
		if codec != nil {
			if ids, _, err := codec.Encode(m.Content); err == nil {
				total += int64(len(ids)) + perMessageOverhead
				continue
			}
		}
		total += int64(len(m.Content))/4 + perMessageOverhead
	}
	if total == 0 && len(messages) > 0 {
		total = 1
	}
	return total
}
