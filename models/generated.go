package models

// Generation caps. Soft targets are stated in prompts; hard caps are
// enforced on the response.
const (
	MaxDiscoveredCategories  = 20
	SoftDiscoveredCategories = 15
	MaxCriteriaPerCategory   = 15
	SoftCriteriaPerCategory  = 10

	// DefaultTokenBudget bounds combined policy-document text before the
	// first generation call, estimated at 4 chars per token.
	DefaultTokenBudget = 120000
)

// ScoringMethod describes how a generated criterion is meant to be scored
type ScoringMethod string

const (
	ScoringPassFail         ScoringMethod = "PASS_FAIL"
	ScoringNumeric          ScoringMethod = "NUMERIC"
	ScoringCriticalPassFail ScoringMethod = "CRITICAL_PASS_FAIL"
)

// DiscoveredCategory is a candidate category from the discovery turn
type DiscoveredCategory struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Weight               *float64 `json:"weight,omitempty"`
	RegulatoryReferences []string `json:"regulatory_references,omitempty"`
}

// GeneratedCriterion is one criterion from the criteria-generation turn
type GeneratedCriterion struct {
	ID               string        `json:"id"`
	Description      string        `json:"description"`
	EvidenceRequired string        `json:"evidence_required"`
	ScoringMethod    ScoringMethod `json:"scoring_method"`
	Weight           *float64      `json:"weight,omitempty"`
	SourceReference  *string       `json:"source_reference,omitempty"`
}

// GeneratedTemplate is the assembled output of the generation pipeline,
// pending human review. The weight-sum invariant is enforced at
// construction.
type GeneratedTemplate struct {
	Categories []TemplateCategory `json:"categories"`
	Confidence float64            `json:"confidence"` // 0..1
	Notes      []string           `json:"notes"`
}
