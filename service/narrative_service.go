package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"radioaudit-backend/ai"
	"radioaudit-backend/logging"
	"radioaudit-backend/models"
)

const narrativeTemperature = 0.4

const narrativeSystemPrompt = `You are a fire and EMS compliance program manager writing an
executive audit narrative. You are given per-category scoring results, the
computed overall score, and the critical findings for one incident's radio
traffic. Synthesize them into a narrative a chief officer can act on:
what went well, what needs work, and what to fix first. Do not invent
findings that are not present in the input.`

// NarrativeService synthesizes the executive narrative from aggregated
// category results.
type NarrativeService struct {
	client ai.Client
}

// NarrativeOption configures the narrative service.
type NarrativeOption func(*NarrativeService)

// WithNarrativeClient sets the AI client.
func WithNarrativeClient(client ai.Client) NarrativeOption {
	return func(s *NarrativeService) {
		s.client = client
	}
}

// NewNarrativeService creates a narrative service.
func NewNarrativeService(opts ...NarrativeOption) (*NarrativeService, error) {
	s := &NarrativeService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		return nil, fmt.Errorf("AI client is required")
	}

	return s, nil
}

// narrativePayload is the user-turn content of a synthesis request
type narrativePayload struct {
	IncidentContext  *models.IncidentContext `json:"incident_context,omitempty"`
	Transcript       string                  `json:"transcript"`
	CategoryScores   []models.CategoryScore  `json:"category_scores"`
	OverallScore     int                     `json:"overall_score"`
	CriticalFindings []string                `json:"critical_findings"`
}

// Synthesize produces the executive narrative for one run. The request
// carries the transcript digest alongside every category result so the
// narrative can quote the traffic itself, not just the scores. At least one
// category score is required.
func (s *NarrativeService) Synthesize(
	ctx context.Context,
	transcript *models.Transcript,
	scores []models.CategoryScore,
	overallScore int,
	criticalFindings []string,
	incidentCtx *models.IncidentContext,
) (*models.AuditNarrative, error) {
	if len(scores) == 0 {
		return nil, ErrNoCategoryScores
	}

	logger := logging.WithComponent("narrative")
	start := time.Now()

	payload := narrativePayload{
		IncidentContext:  incidentCtx,
		CategoryScores:   scores,
		OverallScore:     overallScore,
		CriticalFindings: criticalFindings,
	}
	if transcript != nil {
		payload.Transcript = BuildDigest(transcript, maxDigestChars)
	}

	raw, err := s.client.Generate(ctx, ai.Request{
		Kind:        "narrative",
		System:      narrativeSystemPrompt,
		Payload:     payload,
		Schema:      narrativeSchema(),
		Temperature: narrativeTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing narrative: %w", err)
	}

	var narrative models.AuditNarrative
	if err := json.Unmarshal(raw, &narrative); err != nil {
		return nil, fmt.Errorf("narrative: %w: %v", ErrSchemaViolation, err)
	}
	if narrative.ExecutiveSummary == "" {
		return nil, fmt.Errorf("narrative: %w: empty executive summary", ErrSchemaViolation)
	}

	logger.Info().
		Int("categories", len(scores)).
		Dur("elapsed", time.Since(start)).
		Msg("narrative synthesized")

	return &narrative, nil
}
