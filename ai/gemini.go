package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"radioaudit-backend/logging"
	"radioaudit-backend/metrics"
)

const (
	defaultModel   = "gemini-2.5-pro"
	maxRetries     = 3
	initialBackoff = time.Second
)

// Gemini implements Client on the Gemini API with structured JSON output.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed client. The model name comes from
// GEMINI_MODEL when set.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &Gemini{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.model
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate sends one structured request, retrying transport errors with
// doubling backoff. Refusals are returned immediately and never retried.
func (g *Gemini) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	logger := logging.WithComponent("ai")

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	model := g.client.GenerativeModel(g.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = req.Schema
	model.SetTemperature(req.Temperature)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	start := time.Now()
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		resp, err := model.GenerateContent(ctx, genai.Text(string(payload)))
		if err != nil {
			lastErr = err
			logger.Warn().Err(err).Str("kind", req.Kind).Int("attempt", attempt+1).Msg("generation call failed")
			continue
		}

		out, err := extractJSON(resp)
		if err != nil {
			if IsRefusal(err) {
				metrics.Default.AIRequestsTotal.WithLabelValues(req.Kind, "refusal").Inc()
				return nil, err
			}
			lastErr = err
			continue
		}

		metrics.Default.AIRequestsTotal.WithLabelValues(req.Kind, "ok").Inc()
		metrics.Default.AIRequestLatency.WithLabelValues(req.Kind).Observe(time.Since(start).Seconds())
		return out, nil
	}

	metrics.Default.AIRequestsTotal.WithLabelValues(req.Kind, "error").Inc()
	return nil, fmt.Errorf("generation failed after %d attempts: %w", maxRetries, lastErr)
}

// extractJSON pulls the JSON text out of a response, mapping block reasons
// and safety stops to refusals.
func extractJSON(resp *genai.GenerateContentResponse) (json.RawMessage, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, &RefusalError{Reason: fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)}
	}

	if len(resp.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		switch candidate.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonRecitation:
			return nil, &RefusalError{Reason: fmt.Sprintf("candidate stopped: %s", candidate.FinishReason)}
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return nil, ErrEmptyResponse
	}

	return json.RawMessage(out), nil
}
