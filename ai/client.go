// Package ai defines the structured AI-analysis capability consumed by
// scoring, narrative synthesis, and template generation.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Request is one structured analysis request. Payload is marshaled to JSON
// and sent as the user turn; Schema constrains the model output.
type Request struct {
	Kind        string // request kind for logs/metrics: category_score, narrative, discovery, criteria, enhancement
	System      string
	Payload     interface{}
	Schema      *genai.Schema
	Temperature float32
}

// Client is the sole non-deterministic dependency of the audit engine.
// Implementations return the model's raw JSON output, a *RefusalError when
// the model explicitly declines, or a transport/model error.
type Client interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// RefusalError indicates the model declined to produce output. It is
// distinct from a transport error and is not retried.
type RefusalError struct {
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("model refused request: %s", e.Reason)
}

// IsRefusal reports whether err is (or wraps) a refusal.
func IsRefusal(err error) bool {
	var refusal *RefusalError
	return errors.As(err, &refusal)
}

// ErrEmptyResponse indicates the model returned no usable content.
var ErrEmptyResponse = errors.New("model returned empty response")
