package service

import (
	"fmt"
	"math"

	"radioaudit-backend/models"
)

// Default thresholds. Both are configurable on ScoringConfig; the exact
// values are operational tuning, not contract.
const (
	DefaultConfidenceThreshold = 0.75
	DefaultPassThreshold       = 85.0
	DefaultNeedsWorkThreshold  = 70.0
)

// AggregateScores computes the weighted overall score from per-category
// results. A category whose name is missing from weights contributes zero;
// the result is the rounded sum of score × weight contributions. Pure, no
// I/O.
func AggregateScores(scores []models.CategoryScore, weights map[string]float64) int {
	total := 0.0
	for _, score := range scores {
		weight, ok := weights[score.CategoryName]
		if !ok {
			continue
		}
		total += score.OverallCategoryScore * weight
	}
	return int(math.Round(total))
}

// IdentifyCriticalFindings collects each category's own critical findings
// verbatim, prefixed with the category name, plus a synthesized finding for
// every FAIL criterion whose confidence meets the threshold. Failures below
// the threshold are excluded regardless of severity. Output order follows
// category order, then criterion order.
func IdentifyCriticalFindings(scores []models.CategoryScore, confidenceThreshold float64) []string {
	findings := make([]string, 0)
	for _, cat := range scores {
		for _, f := range cat.CriticalFindings {
			findings = append(findings, fmt.Sprintf("%s: %s", cat.CategoryName, f))
		}
		for _, crit := range cat.CriteriaScores {
			if crit.Score != models.CriterionFail {
				continue
			}
			if crit.Confidence < confidenceThreshold {
				continue
			}
			findings = append(findings, fmt.Sprintf(
				"%s: criterion %s failed (confidence %.2f): %s",
				cat.CategoryName, crit.CriterionID, crit.Confidence, crit.Reasoning,
			))
		}
	}
	return findings
}

// StatusForScore maps a 0..100 category score onto a status using the
// configured cutoffs.
func StatusForScore(score, passThreshold, needsWorkThreshold float64) models.CategoryStatus {
	switch {
	case score >= passThreshold:
		return models.CategoryPass
	case score >= needsWorkThreshold:
		return models.CategoryNeedsImprovement
	default:
		return models.CategoryFail
	}
}
