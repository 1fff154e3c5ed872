package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"radioaudit-backend/ai"
	"radioaudit-backend/evidence"
	"radioaudit-backend/logging"
	"radioaudit-backend/metrics"
	"radioaudit-backend/models"
)

const (
	// Transcript digest cap keeps scoring payloads well inside model limits.
	maxDigestChars = 12000

	// Evidence hints attached to a scoring payload.
	maxEvidenceHints   = 5
	hintsPerKeyword    = 3
	evidenceWindowSecs = 30.0
	scoringTemperature = 0.2
)

const scoringSystemPrompt = `You are a fire and EMS radio communications compliance auditor.
You evaluate incident radio traffic transcripts against a scoring rubric.
Score every criterion you are given. Cite evidence verbatim from the transcript
with its timestamp. Be strict: a criterion passes only when the transcript
demonstrates it. Report your confidence in each verdict honestly.`

// ScoringConfig holds the tunable thresholds of category scoring.
type ScoringConfig struct {
	ConfidenceThreshold float64
	PassThreshold       float64
	NeedsWorkThreshold  float64
}

// DefaultScoringConfig returns the standard thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		PassThreshold:       DefaultPassThreshold,
		NeedsWorkThreshold:  DefaultNeedsWorkThreshold,
	}
}

// ScoringService scores one template category against one transcript.
type ScoringService struct {
	client ai.Client
	config ScoringConfig
}

// ScoringOption configures the scoring service.
type ScoringOption func(*ScoringService)

// WithScoringClient sets the AI client.
func WithScoringClient(client ai.Client) ScoringOption {
	return func(s *ScoringService) {
		s.client = client
	}
}

// WithScoringConfig overrides the default thresholds.
func WithScoringConfig(cfg ScoringConfig) ScoringOption {
	return func(s *ScoringService) {
		s.config = cfg
	}
}

// NewScoringService creates a scoring service.
func NewScoringService(opts ...ScoringOption) (*ScoringService, error) {
	s := &ScoringService{config: DefaultScoringConfig()}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		return nil, fmt.Errorf("AI client is required")
	}

	return s, nil
}

// scoringPayload is the user-turn content of a category-scoring request
type scoringPayload struct {
	Category        scoringCategory       `json:"category"`
	IncidentContext *models.IncidentContext `json:"incident_context,omitempty"`
	Transcript      string                `json:"transcript"`
	EvidenceHints   []models.Evidence     `json:"evidence_hints,omitempty"`
}

type scoringCategory struct {
	Name           string                     `json:"name"`
	Description    *string                    `json:"description,omitempty"`
	AnalysisPrompt string                     `json:"analysis_prompt,omitempty"`
	Criteria       []models.TemplateCriterion `json:"criteria"`
}

// Score evaluates one category of a rubric against a transcript. The
// returned CategoryScore carries the category's canonical name and a status
// derived from the configured cutoffs, regardless of what the model said.
func (s *ScoringService) Score(
	ctx context.Context,
	transcript *models.Transcript,
	category models.TemplateCategory,
	incidentCtx *models.IncidentContext,
) (*models.CategoryScore, error) {
	if transcript == nil || strings.TrimSpace(transcript.Text) == "" {
		return nil, ErrEmptyTranscript
	}
	if len(category.Criteria) == 0 {
		return nil, fmt.Errorf("category %q: %w", category.Name, ErrNoCriteria)
	}

	logger := logging.WithComponent("scoring")
	start := time.Now()

	payload := scoringPayload{
		Category: scoringCategory{
			Name:           category.Name,
			Description:    category.Description,
			AnalysisPrompt: category.AnalysisPrompt,
			Criteria:       category.Criteria,
		},
		IncidentContext: incidentCtx,
		Transcript:      BuildDigest(transcript, maxDigestChars),
		EvidenceHints:   evidenceHints(transcript.Segments, category),
	}

	raw, err := s.client.Generate(ctx, ai.Request{
		Kind:        "category_score",
		System:      scoringSystemPrompt,
		Payload:     payload,
		Schema:      categoryScoreSchema(),
		Temperature: scoringTemperature,
	})
	if err != nil {
		metrics.Default.CategoriesFailed.Inc()
		return nil, fmt.Errorf("scoring category %q: %w", category.Name, err)
	}

	var score models.CategoryScore
	if err := json.Unmarshal(raw, &score); err != nil {
		metrics.Default.CategoriesFailed.Inc()
		return nil, fmt.Errorf("category %q: %w: %v", category.Name, ErrSchemaViolation, err)
	}
	if len(score.CriteriaScores) == 0 {
		metrics.Default.CategoriesFailed.Inc()
		return nil, fmt.Errorf("category %q: %w: no criteria scores", category.Name, ErrSchemaViolation)
	}

	// The model's copies of name and status are advisory; ours are canonical.
	score.CategoryName = category.Name
	if category.Description != nil {
		score.CategoryDescription = *category.Description
	}
	score.CategoryStatus = StatusForScore(score.OverallCategoryScore, s.config.PassThreshold, s.config.NeedsWorkThreshold)
	score.Timestamp = time.Now().UTC()
	if score.CriticalFindings == nil {
		score.CriticalFindings = make([]string, 0)
	}

	elapsed := time.Since(start)
	metrics.Default.CategoriesScored.Inc()
	metrics.Default.CategoryScoreTime.Observe(elapsed.Seconds())
	logger.Info().
		Str("category", category.Name).
		Float64("score", score.OverallCategoryScore).
		Str("status", string(score.CategoryStatus)).
		Dur("elapsed", elapsed).
		Msg("category scored")

	return &score, nil
}

// BuildDigest renders a transcript for prompting. When segments exist each
// line carries its start timestamp; otherwise the raw text is used. Output
// is truncated at maxChars on a line boundary where possible.
func BuildDigest(transcript *models.Transcript, maxChars int) string {
	var b strings.Builder

	if len(transcript.Segments) == 0 {
		text := transcript.Text
		if len(text) > maxChars {
			text = text[:maxChars]
		}
		return text
	}

	for _, seg := range transcript.Segments {
		line := fmt.Sprintf("[%s] ", models.FormatTimestamp(seg.StartTime))
		if seg.Speaker != nil && *seg.Speaker != "" {
			line += *seg.Speaker + ": "
		}
		line += seg.Text + "\n"

		if b.Len()+len(line) > maxChars {
			break
		}
		b.WriteString(line)
	}

	return strings.TrimRight(b.String(), "\n")
}

// evidenceHints pre-extracts transcript excerpts matching keywords drawn from
// the category's criteria. Hints reduce the model's tendency to paraphrase
// quotes; they never replace its own reading of the transcript.
func evidenceHints(segments []models.TranscriptSegment, category models.TemplateCategory) []models.Evidence {
	if len(segments) == 0 {
		return nil
	}

	var hints []models.Evidence
	seen := make(map[string]bool)

	for _, keyword := range categoryKeywords(category) {
		count := 0
		for ev := range evidence.Extract(segments, keyword, evidenceWindowSecs) {
			if ev.Relevance != models.EvidenceSupporting {
				continue
			}
			key := ev.Timestamp + "|" + ev.Text
			if seen[key] {
				continue
			}
			seen[key] = true
			hints = append(hints, ev)
			count++
			if count >= hintsPerKeyword || len(hints) >= maxEvidenceHints {
				break
			}
		}
		if len(hints) >= maxEvidenceHints {
			break
		}
	}

	return hints
}

var hintStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"this": true, "from": true, "must": true, "should": true, "will": true,
	"all": true, "any": true, "are": true, "was": true, "were": true,
	"have": true, "has": true, "been": true, "when": true, "within": true,
	"unit": true, "units": true, "their": true, "they": true, "upon": true,
}

// categoryKeywords derives search keywords from criterion descriptions.
// Short words and stopwords are dropped; order follows criterion order.
func categoryKeywords(category models.TemplateCategory) []string {
	var keywords []string
	seen := make(map[string]bool)

	for _, crit := range category.Criteria {
		for _, word := range strings.Fields(strings.ToLower(crit.Description)) {
			word = strings.Trim(word, ".,;:()\"'")
			if len(word) < 4 || hintStopwords[word] || seen[word] {
				continue
			}
			seen[word] = true
			keywords = append(keywords, word)
		}
	}

	return keywords
}
