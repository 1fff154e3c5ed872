package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"radioaudit-backend/events"
	"radioaudit-backend/logging"
	"radioaudit-backend/metrics"
	"radioaudit-backend/models"
)

// ModeModular is the only supported audit mode: each category is scored in
// its own AI request and the results are aggregated deterministically.
const ModeModular = "modular"

// DefaultScoringConcurrency bounds concurrent category-scoring requests
// within one run.
const DefaultScoringConcurrency = 3

// TranscriptStore is the transcript lookup the orchestrator needs.
type TranscriptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transcript, error)
}

// TemplateStore is the template lookup the orchestrator and trigger need.
type TemplateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	ListActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Template, error)
}

// AuditStore persists terminal audit runs.
type AuditStore interface {
	Create(ctx context.Context, run *models.AuditRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditRun, error)
}

// IncidentStore is the incident lookup used to enrich scoring prompts.
type IncidentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
}

// AuditService orchestrates audit runs: per-category scoring, aggregation,
// critical-findings extraction, and narrative synthesis. A run is persisted
// exactly once, at its terminal state; while in flight it is visible only
// through the in-flight set.
type AuditService struct {
	transcripts TranscriptStore
	templates   TemplateStore
	audits      AuditStore
	incidents   IncidentStore
	scoring     *ScoringService
	narrative   *NarrativeService
	publisher   *events.Publisher
	concurrency int
	modelName   string

	mu          sync.Mutex
	inFlight    map[string]uuid.UUID // pair key -> audit id
	inFlightIDs map[uuid.UUID]bool
}

// AuditOption configures the audit service.
type AuditOption func(*AuditService)

// WithTranscriptStore sets the transcript store.
func WithTranscriptStore(store TranscriptStore) AuditOption {
	return func(s *AuditService) {
		s.transcripts = store
	}
}

// WithTemplateStore sets the template store.
func WithTemplateStore(store TemplateStore) AuditOption {
	return func(s *AuditService) {
		s.templates = store
	}
}

// WithAuditStore sets the audit store.
func WithAuditStore(store AuditStore) AuditOption {
	return func(s *AuditService) {
		s.audits = store
	}
}

// WithIncidentStore sets the incident store. Optional; without it scoring
// prompts omit incident context.
func WithIncidentStore(store IncidentStore) AuditOption {
	return func(s *AuditService) {
		s.incidents = store
	}
}

// WithScoringService sets the category scoring service.
func WithScoringService(scoring *ScoringService) AuditOption {
	return func(s *AuditService) {
		s.scoring = scoring
	}
}

// WithNarrativeService sets the narrative synthesis service.
func WithNarrativeService(narrative *NarrativeService) AuditOption {
	return func(s *AuditService) {
		s.narrative = narrative
	}
}

// WithPublisher sets the event publisher. Optional.
func WithPublisher(publisher *events.Publisher) AuditOption {
	return func(s *AuditService) {
		s.publisher = publisher
	}
}

// WithConcurrency bounds concurrent category-scoring requests per run.
func WithConcurrency(n int) AuditOption {
	return func(s *AuditService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithModelName records the model identifier on persisted runs.
func WithModelName(name string) AuditOption {
	return func(s *AuditService) {
		s.modelName = name
	}
}

// NewAuditService creates an audit orchestrator.
func NewAuditService(opts ...AuditOption) (*AuditService, error) {
	s := &AuditService{
		concurrency: DefaultScoringConcurrency,
		inFlight:    make(map[string]uuid.UUID),
		inFlightIDs: make(map[uuid.UUID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.transcripts == nil {
		return nil, fmt.Errorf("transcript store is required")
	}
	if s.templates == nil {
		return nil, fmt.Errorf("template store is required")
	}
	if s.audits == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	if s.scoring == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	if s.narrative == nil {
		return nil, fmt.Errorf("narrative service is required")
	}

	return s, nil
}

// StartAudit validates the request, registers the run, and executes it in
// the background. The returned id can be polled with GetAudit.
func (s *AuditService) StartAudit(ctx context.Context, transcriptID, templateID uuid.UUID, mode string) (uuid.UUID, error) {
	if mode != "" && mode != ModeModular {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}

	transcript, err := s.transcripts.GetByID(ctx, transcriptID)
	if err != nil {
		return uuid.Nil, ErrTranscriptNotFound
	}
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return uuid.Nil, ErrTemplateNotFound
	}

	auditID, err := s.register(transcriptID, templateID)
	if err != nil {
		return uuid.Nil, err
	}

	// Process in the background; the run outlives the request context.
	go func() {
		defer s.release(transcriptID, templateID, auditID)
		s.execute(context.Background(), auditID, transcript, template)
	}()

	return auditID, nil
}

// RunAudit executes one audit run synchronously. Used by the
// post-transcription trigger, which supplies its own deadline.
func (s *AuditService) RunAudit(ctx context.Context, transcript *models.Transcript, template *models.Template) (*models.AuditRun, error) {
	auditID, err := s.register(transcript.ID, template.ID)
	if err != nil {
		return nil, err
	}
	defer s.release(transcript.ID, template.ID, auditID)

	return s.execute(ctx, auditID, transcript, template)
}

// GetAudit returns a persisted run, or processing=true while the id is
// still in flight.
func (s *AuditService) GetAudit(ctx context.Context, id uuid.UUID) (run *models.AuditRun, processing bool, err error) {
	s.mu.Lock()
	processing = s.inFlightIDs[id]
	s.mu.Unlock()
	if processing {
		return nil, true, nil
	}

	run, err = s.audits.GetByID(ctx, id)
	if err != nil {
		return nil, false, ErrAuditNotFound
	}
	return run, false, nil
}

func pairKey(transcriptID, templateID uuid.UUID) string {
	return transcriptID.String() + "|" + templateID.String()
}

// register reserves the (transcript, template) pair. At most one run per
// pair is in flight at a time.
func (s *AuditService) register(transcriptID, templateID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(transcriptID, templateID)
	if _, exists := s.inFlight[key]; exists {
		return uuid.Nil, ErrAuditInFlight
	}

	auditID := uuid.New()
	s.inFlight[key] = auditID
	s.inFlightIDs[auditID] = true
	return auditID, nil
}

func (s *AuditService) release(transcriptID, templateID, auditID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, pairKey(transcriptID, templateID))
	delete(s.inFlightIDs, auditID)
}

type categoryResult struct {
	score *models.CategoryScore
	err   error
}

// execute drives the run state machine to a terminal state and persists the
// result. Category failures are tolerated as long as at least one category
// scores; a narrative failure degrades the run instead of failing it.
func (s *AuditService) execute(ctx context.Context, auditID uuid.UUID, transcript *models.Transcript, template *models.Template) (*models.AuditRun, error) {
	logger := logging.WithRun(auditID.String(), transcript.ID.String(), template.ID.String())
	start := time.Now()
	metrics.Default.AuditRunsTotal.Inc()

	run := &models.AuditRun{
		ID:                  auditID,
		TranscriptID:        transcript.ID,
		TemplateID:          template.ID,
		Status:              models.RunStatusPending,
		CategoryScores:      make(models.CategoryScores, 0),
		CriticalFindings:    make(models.StringList, 0),
		Failures:            make(models.CategoryFailures, 0),
		CategoriesAttempted: len(template.Categories),
		Model:               s.modelName,
	}

	incidentCtx := s.incidentContext(ctx, transcript)

	run.Status = models.RunStatusScoringCategories
	logger.Info().Int("categories", len(template.Categories)).Msg("scoring categories")

	results := s.scoreCategories(ctx, transcript, template, incidentCtx)
	for i, res := range results {
		if res.err != nil {
			logger.Warn().Err(res.err).Str("category", template.Categories[i].Name).Msg("category failed")
			run.Failures = append(run.Failures, models.CategoryFailure{
				Category: template.Categories[i].Name,
				Error:    res.err.Error(),
			})
			continue
		}
		run.CategoryScores = append(run.CategoryScores, *res.score)
	}
	run.CategoriesScored = len(run.CategoryScores)

	if run.CategoriesScored == 0 {
		return s.finishFailed(ctx, run, start, logger, ErrNoScoredCategories)
	}

	run.Status = models.RunStatusAggregating
	weights := template.Categories.WeightsByName()
	run.OverallScore = AggregateScores(run.CategoryScores, weights)
	run.CriticalFindings = IdentifyCriticalFindings(run.CategoryScores, s.scoring.config.ConfidenceThreshold)

	run.Status = models.RunStatusSynthesizing
	narrative, err := s.narrative.Synthesize(ctx, transcript, run.CategoryScores, run.OverallScore, run.CriticalFindings, incidentCtx)
	if err != nil {
		// Scores stand on their own; record the failure and complete
		// without a narrative.
		logger.Warn().Err(err).Msg("narrative synthesis failed, completing without narrative")
		msg := err.Error()
		run.SynthesisError = &msg
	} else {
		run.Narrative = narrative
	}

	run.Status = models.RunStatusComplete
	return s.finishComplete(ctx, run, start, logger)
}

// scoreCategories fans category scoring out over a bounded worker pool.
// Results are returned in category order.
func (s *AuditService) scoreCategories(
	ctx context.Context,
	transcript *models.Transcript,
	template *models.Template,
	incidentCtx *models.IncidentContext,
) []categoryResult {
	results := make([]categoryResult, len(template.Categories))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, category := range template.Categories {
		wg.Add(1)
		go func(i int, category models.TemplateCategory) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[i] = categoryResult{err: err}
				return
			}

			score, err := s.scoring.Score(ctx, transcript, category, incidentCtx)
			results[i] = categoryResult{score: score, err: err}
		}(i, category)
	}

	wg.Wait()
	return results
}

// incidentContext fetches the transcript's incident context when available.
// Lookup failures are logged and ignored; context only enriches prompts.
func (s *AuditService) incidentContext(ctx context.Context, transcript *models.Transcript) *models.IncidentContext {
	if s.incidents == nil || transcript.IncidentID == uuid.Nil {
		return nil
	}
	incident, err := s.incidents.GetByID(ctx, transcript.IncidentID)
	if err != nil {
		logger := logging.WithComponent("audit")
		logger.Warn().
			Err(err).
			Str("incidentId", transcript.IncidentID.String()).
			Msg("incident lookup failed, scoring without context")
		return nil
	}
	return &incident.Context
}

func (s *AuditService) finishComplete(ctx context.Context, run *models.AuditRun, start time.Time, logger zerolog.Logger) (*models.AuditRun, error) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.LatencyMS = time.Since(start).Milliseconds()

	if err := s.audits.Create(ctx, run); err != nil {
		logger.Error().Err(err).Msg("failed to persist audit run")
		return run, fmt.Errorf("persisting audit run: %w", err)
	}

	metrics.Default.AuditRunsComplete.Inc()
	metrics.Default.AuditRunDuration.Observe(time.Since(start).Seconds())
	if len(run.Failures) > 0 || run.Narrative == nil {
		metrics.Default.AuditRunsDegraded.Inc()
	}

	logger.Info().
		Int("overallScore", run.OverallScore).
		Int("scored", run.CategoriesScored).
		Int("attempted", run.CategoriesAttempted).
		Int("criticalFindings", len(run.CriticalFindings)).
		Bool("narrative", run.Narrative != nil).
		Msg("audit run complete")

	s.publishTerminal(run)
	return run, nil
}

func (s *AuditService) finishFailed(ctx context.Context, run *models.AuditRun, start time.Time, logger zerolog.Logger, cause error) (*models.AuditRun, error) {
	run.Status = models.RunStatusFailed
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.LatencyMS = time.Since(start).Milliseconds()

	if err := s.audits.Create(ctx, run); err != nil {
		logger.Error().Err(err).Msg("failed to persist failed audit run")
	}

	metrics.Default.AuditRunsFailed.Inc()
	metrics.Default.AuditRunDuration.Observe(time.Since(start).Seconds())
	logger.Error().Err(cause).Int("attempted", run.CategoriesAttempted).Msg("audit run failed")

	s.publishTerminal(run)
	return run, cause
}

// publishTerminal emits the terminal-state event. Publishing is best effort;
// failures are already logged and counted by the publisher.
func (s *AuditService) publishTerminal(run *models.AuditRun) {
	if s.publisher == nil {
		return
	}

	event := events.AuditEvent{
		AuditID:             run.ID.String(),
		TranscriptID:        run.TranscriptID.String(),
		TemplateID:          run.TemplateID.String(),
		Status:              string(run.Status),
		OverallScore:        run.OverallScore,
		CategoriesAttempted: run.CategoriesAttempted,
		CategoriesScored:    run.CategoriesScored,
		Timestamp:           time.Now().Unix(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if run.Status == models.RunStatusFailed {
		_ = s.publisher.PublishFailed(ctx, event)
		return
	}
	_ = s.publisher.PublishCompleted(ctx, event)
}
