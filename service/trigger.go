package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"radioaudit-backend/logging"
	"radioaudit-backend/metrics"
	"radioaudit-backend/models"
)

// DefaultTriggerDeadline bounds the whole post-transcription trigger pass.
// Work not finished by the deadline is abandoned, never failed loudly.
const DefaultTriggerDeadline = 5 * time.Minute

// TriggerService runs audits automatically after a transcript completes,
// one per template selected on the transcript's incident.
type TriggerService struct {
	transcripts TranscriptStore
	templates   TemplateStore
	incidents   IncidentStore
	audits      *AuditService
	deadline    time.Duration
}

// TriggerOption configures the trigger service.
type TriggerOption func(*TriggerService)

// WithTriggerTranscriptStore sets the transcript store.
func WithTriggerTranscriptStore(store TranscriptStore) TriggerOption {
	return func(s *TriggerService) {
		s.transcripts = store
	}
}

// WithTriggerTemplateStore sets the template store.
func WithTriggerTemplateStore(store TemplateStore) TriggerOption {
	return func(s *TriggerService) {
		s.templates = store
	}
}

// WithTriggerIncidentStore sets the incident store.
func WithTriggerIncidentStore(store IncidentStore) TriggerOption {
	return func(s *TriggerService) {
		s.incidents = store
	}
}

// WithTriggerAuditService sets the audit orchestrator.
func WithTriggerAuditService(audits *AuditService) TriggerOption {
	return func(s *TriggerService) {
		s.audits = audits
	}
}

// WithTriggerDeadline overrides the default trigger deadline.
func WithTriggerDeadline(d time.Duration) TriggerOption {
	return func(s *TriggerService) {
		if d > 0 {
			s.deadline = d
		}
	}
}

// NewTriggerService creates a trigger service.
func NewTriggerService(opts ...TriggerOption) (*TriggerService, error) {
	s := &TriggerService{deadline: DefaultTriggerDeadline}
	for _, opt := range opts {
		opt(s)
	}

	if s.transcripts == nil {
		return nil, errors.New("transcript store is required")
	}
	if s.templates == nil {
		return nil, errors.New("template store is required")
	}
	if s.incidents == nil {
		return nil, errors.New("incident store is required")
	}
	if s.audits == nil {
		return nil, errors.New("audit service is required")
	}

	return s, nil
}

// TriggerAudits runs one audit per selected template of the transcript's
// incident. Missing or inactive templates are skipped with a log line.
// Per-template failures never stop the pass, and hitting the deadline
// abandons the remaining templates silently. The error return covers only
// the initial lookups.
func (s *TriggerService) TriggerAudits(ctx context.Context, transcriptID uuid.UUID) error {
	logger := logging.WithComponent("trigger")
	metrics.Default.TriggerRunsTotal.Inc()

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	transcript, err := s.transcripts.GetByID(ctx, transcriptID)
	if err != nil {
		return ErrTranscriptNotFound
	}
	if transcript.IncidentID == uuid.Nil {
		logger.Info().Str("transcriptId", transcriptID.String()).Msg("transcript has no incident, nothing to trigger")
		return nil
	}

	incident, err := s.incidents.GetByID(ctx, transcript.IncidentID)
	if err != nil {
		return ErrIncidentNotFound
	}
	if len(incident.SelectedTemplateIDs) == 0 {
		logger.Info().Str("incidentId", incident.ID.String()).Msg("no templates selected, nothing to trigger")
		return nil
	}

	templates, err := s.templates.ListActiveByIDs(ctx, incident.SelectedTemplateIDs)
	if err != nil {
		return err
	}

	active := make(map[uuid.UUID]bool, len(templates))
	for _, t := range templates {
		active[t.ID] = true
	}
	for _, id := range incident.SelectedTemplateIDs {
		if !active[id] {
			metrics.Default.TemplatesSkipped.Inc()
			logger.Warn().
				Str("templateId", id.String()).
				Str("transcriptId", transcriptID.String()).
				Msg("selected template missing or inactive, skipping")
		}
	}

	for _, template := range templates {
		if ctx.Err() != nil {
			metrics.Default.TriggerTimeouts.Inc()
			logger.Warn().
				Str("transcriptId", transcriptID.String()).
				Str("templateId", template.ID.String()).
				Msg("trigger deadline reached, abandoning remaining audits")
			return nil
		}

		if err := s.runOne(ctx, transcript, template); err != nil {
			logger.Warn().
				Err(err).
				Str("transcriptId", transcriptID.String()).
				Str("templateId", template.ID.String()).
				Msg("triggered audit failed, continuing")
		}
	}

	return nil
}

func (s *TriggerService) runOne(ctx context.Context, transcript *models.Transcript, template *models.Template) error {
	_, err := s.audits.RunAudit(ctx, transcript, template)
	if errors.Is(err, ErrAuditInFlight) {
		// Another caller already started this pair; not a failure.
		return nil
	}
	return err
}
