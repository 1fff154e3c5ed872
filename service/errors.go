package service

import "errors"

var (
	// Scoring preconditions
	ErrEmptyTranscript = errors.New("transcript text is empty")
	ErrNoCriteria      = errors.New("category has no criteria")

	// Narrative precondition
	ErrNoCategoryScores = errors.New("no category scores to synthesize")

	// Orchestrator
	ErrNoScoredCategories = errors.New("no categories scored successfully")
	ErrAuditInFlight      = errors.New("audit already in flight for this transcript and template")
	ErrUnsupportedMode    = errors.New("unsupported audit mode")

	// Generation pipeline
	ErrTokenLimitExceeded = errors.New("combined document text exceeds token budget")

	// Model output
	ErrSchemaViolation = errors.New("model output did not match expected schema")

	// Lookups
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrIncidentNotFound   = errors.New("incident not found")
	ErrDocumentNotFound   = errors.New("policy document not found")
	ErrAuditNotFound      = errors.New("audit not found")
)
