package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EvidenceRelevance distinguishes direct hits from surrounding context
type EvidenceRelevance string

const (
	EvidenceSupporting EvidenceRelevance = "SUPPORTING"
	EvidenceContextual EvidenceRelevance = "CONTEXTUAL"
)

// Evidence is a transcript excerpt backing a criterion score
type Evidence struct {
	Timestamp string            `json:"timestamp"` // mm:ss or h:mm:ss
	Text      string            `json:"text"`
	Relevance EvidenceRelevance `json:"relevance"`
}

// CriterionVerdict is the pass/fail outcome for one criterion
type CriterionVerdict string

const (
	CriterionPass CriterionVerdict = "PASS"
	CriterionFail CriterionVerdict = "FAIL"
)

// CriterionScore is the scored result for one criterion
type CriterionScore struct {
	CriterionID    string           `json:"criterion_id"`
	Score          CriterionVerdict `json:"score"`
	NumericScore   float64          `json:"numeric_score"` // 0..100
	Confidence     float64          `json:"confidence"`    // 0..1
	Reasoning      string           `json:"reasoning"`
	Evidence       []Evidence       `json:"evidence"`
	Recommendation *string          `json:"recommendation,omitempty"`
}

// CategoryStatus grades a whole category
type CategoryStatus string

const (
	CategoryPass             CategoryStatus = "PASS"
	CategoryNeedsImprovement CategoryStatus = "NEEDS_IMPROVEMENT"
	CategoryFail             CategoryStatus = "FAIL"
)

// CategoryScore is the scored result for one template category. It is
// produced once per (audit run, category) and never mutated.
type CategoryScore struct {
	CategoryName         string           `json:"category_name"`
	CategoryDescription  string           `json:"category_description"`
	CriteriaScores       []CriterionScore `json:"criteria_scores"`
	OverallCategoryScore float64          `json:"overall_category_score"` // 0..100
	CategoryStatus       CategoryStatus   `json:"category_status"`
	Summary              string           `json:"summary"`
	CriticalFindings     []string         `json:"critical_findings"`
	Timestamp            time.Time        `json:"timestamp"`
}

// CategoryScores represents the ordered per-category results of a run
type CategoryScores []CategoryScore

// Value implements driver.Valuer for JSONB
func (c CategoryScores) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *CategoryScores) Scan(value interface{}) error {
	return scanJSONB(value, c, func() { *c = make(CategoryScores, 0) })
}

// Recommendation is one prioritized narrative recommendation
type Recommendation struct {
	Priority       string   `json:"priority"`
	Category       string   `json:"category"`
	Recommendation string   `json:"recommendation"`
	ActionItems    []string `json:"action_items"`
}

// AuditNarrative is the synthesized executive narrative for a run
type AuditNarrative struct {
	ExecutiveSummary     string           `json:"executive_summary"`
	OverallScore         float64          `json:"overall_score"` // 0..100
	OverallStatus        string           `json:"overall_status"`
	Strengths            []string         `json:"strengths"`
	AreasForImprovement  []string         `json:"areas_for_improvement"`
	CriticalIssues       []string         `json:"critical_issues"`
	Recommendations      []Recommendation `json:"recommendations"`
	ComplianceHighlights []string         `json:"compliance_highlights"`
}

// Value implements driver.Valuer for JSONB. A nil narrative maps to NULL.
func (n *AuditNarrative) Value() (driver.Value, error) {
	if n == nil {
		return nil, nil
	}
	return json.Marshal(n)
}

// Scan implements sql.Scanner for JSONB
func (n *AuditNarrative) Scan(value interface{}) error {
	return scanJSONB(value, n, func() {})
}

// AuditRunStatus tracks the orchestrator state machine
type AuditRunStatus string

const (
	RunStatusPending           AuditRunStatus = "pending"
	RunStatusScoringCategories AuditRunStatus = "scoring_categories"
	RunStatusAggregating       AuditRunStatus = "aggregating"
	RunStatusSynthesizing      AuditRunStatus = "synthesizing"
	RunStatusComplete          AuditRunStatus = "complete"
	RunStatusFailed            AuditRunStatus = "failed"
)

// CategoryFailure records one category that could not be scored
type CategoryFailure struct {
	Category string `json:"category"`
	Error    string `json:"error"`
}

// CategoryFailures represents the per-category failures of a run
type CategoryFailures []CategoryFailure

// Value implements driver.Valuer for JSONB
func (f CategoryFailures) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB
func (f *CategoryFailures) Scan(value interface{}) error {
	return scanJSONB(value, f, func() { *f = make(CategoryFailures, 0) })
}

// StringList is a JSONB-backed list of strings (critical findings)
type StringList []string

// Value implements driver.Valuer for JSONB
func (l StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB
func (l *StringList) Scan(value interface{}) error {
	return scanJSONB(value, l, func() { *l = make(StringList, 0) })
}

// AuditRun is the persisted result of one orchestrator run. A degraded run
// (fewer categories scored than attempted, or narrative omitted) still
// completes; CategoriesAttempted/CategoriesScored make the difference
// visible to callers.
type AuditRun struct {
	ID                  uuid.UUID        `json:"id"`
	TranscriptID        uuid.UUID        `json:"transcript_id"`
	TemplateID          uuid.UUID        `json:"template_id"`
	Status              AuditRunStatus   `json:"status"`
	CategoryScores      CategoryScores   `json:"category_scores"`
	OverallScore        int              `json:"overall_score"`
	CriticalFindings    StringList       `json:"critical_findings"`
	Narrative           *AuditNarrative  `json:"narrative"`
	Failures            CategoryFailures `json:"failures"`
	CategoriesAttempted int              `json:"categories_attempted"`
	CategoriesScored    int              `json:"categories_scored"`
	SynthesisError      *string          `json:"synthesis_error,omitempty"`
	Model               string           `json:"model,omitempty"`
	LatencyMS           int64            `json:"latency_ms"`
	CreatedAt           time.Time        `json:"created_at"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
}

// scanJSONB handles the value types pgx may hand back for JSONB columns
func scanJSONB(value interface{}, dst interface{}, reset func()) error {
	if value == nil {
		reset()
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		reset()
		return nil
	}

	if len(bytes) == 0 {
		reset()
		return nil
	}

	return json.Unmarshal(bytes, dst)
}
