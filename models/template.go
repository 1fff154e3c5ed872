package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Weight-sum tolerances. Save accepts the looser bound; updates go through
// the tightened one.
const (
	WeightToleranceSave   = 0.01
	WeightToleranceUpdate = 0.001
)

var (
	ErrNoCategories       = errors.New("template must have at least one category")
	ErrCategoryNoCriteria = errors.New("template category must have at least one criterion")
	ErrWeightOutOfRange   = errors.New("category weight must be between 0 and 1")
	ErrWeightSumInvalid   = errors.New("category weights must sum to 1.0")
)

// TemplateCriterion is a single scorable compliance requirement
type TemplateCriterion struct {
	ID               string  `json:"id"`
	Description      string  `json:"description"`
	ScoringGuidance  string  `json:"scoring_guidance"`
	ExamplePass      *string `json:"example_pass,omitempty"`
	ExampleFail      *string `json:"example_fail,omitempty"`
	SourcePageNumber *int    `json:"source_page_number,omitempty"`
	SourceText       *string `json:"source_text,omitempty"`
}

// TemplateCategory is a weighted grouping of criteria within a rubric
type TemplateCategory struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Description    *string             `json:"description,omitempty"`
	Weight         float64             `json:"weight"` // 0..1
	Criteria       []TemplateCriterion `json:"criteria"`
	AnalysisPrompt string              `json:"analysis_prompt"`
}

// TemplateCategories represents the category set of a rubric
type TemplateCategories []TemplateCategory

// Value implements driver.Valuer for JSONB
func (c TemplateCategories) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *TemplateCategories) Scan(value interface{}) error {
	if value == nil {
		*c = make(TemplateCategories, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*c = make(TemplateCategories, 0)
		return nil
	}

	if len(bytes) == 0 {
		*c = make(TemplateCategories, 0)
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// WeightsByName returns the category name → weight table used for aggregation
func (c TemplateCategories) WeightsByName() map[string]float64 {
	weights := make(map[string]float64, len(c))
	for _, cat := range c {
		weights[cat.Name] = cat.Weight
	}
	return weights
}

// Template represents a compliance rubric. Categories are immutable for the
// duration of any audit run consuming them.
type Template struct {
	ID         uuid.UUID          `json:"id"`
	Name       string             `json:"name"`
	Active     bool               `json:"active"`
	Categories TemplateCategories `json:"categories"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ValidateCategories is the canonical rubric validation used at every
// boundary that accepts or produces a template: at least one category, at
// least one criterion per category, weights in range, and weights summing
// to 1.0 within the given tolerance.
func ValidateCategories(categories []TemplateCategory, tolerance float64) error {
	if len(categories) == 0 {
		return ErrNoCategories
	}

	sum := 0.0
	for _, cat := range categories {
		if len(cat.Criteria) == 0 {
			return fmt.Errorf("category %q: %w", cat.Name, ErrCategoryNoCriteria)
		}
		if cat.Weight < 0 || cat.Weight > 1 {
			return fmt.Errorf("category %q has weight %.3f: %w", cat.Name, cat.Weight, ErrWeightOutOfRange)
		}
		sum += cat.Weight
	}

	if math.Abs(sum-1.0) > tolerance {
		return fmt.Errorf("weights sum to %.4f (tolerance %.3f): %w", sum, tolerance, ErrWeightSumInvalid)
	}

	return nil
}
