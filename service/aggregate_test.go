package service

import (
	"strings"
	"testing"

	"radioaudit-backend/models"
)

func TestAggregateScores(t *testing.T) {
	scores := []models.CategoryScore{
		{CategoryName: "Communications", OverallCategoryScore: 90},
		{CategoryName: "Safety", OverallCategoryScore: 80},
		{CategoryName: "Command", OverallCategoryScore: 70},
	}
	weights := map[string]float64{
		"Communications": 0.4,
		"Safety":         0.4,
		"Command":        0.2,
	}

	got := AggregateScores(scores, weights)
	if got != 82 {
		t.Errorf("expected 82, got %d", got)
	}
}

func TestAggregateScoresMissingWeight(t *testing.T) {
	scores := []models.CategoryScore{
		{CategoryName: "Communications", OverallCategoryScore: 90},
		{CategoryName: "Unlisted", OverallCategoryScore: 100},
	}
	weights := map[string]float64{"Communications": 1.0}

	if got := AggregateScores(scores, weights); got != 90 {
		t.Errorf("unweighted category should contribute zero, got %d", got)
	}
}

func TestAggregateScoresEmpty(t *testing.T) {
	if got := AggregateScores(nil, map[string]float64{"Safety": 1.0}); got != 0 {
		t.Errorf("expected 0 for no scores, got %d", got)
	}
	if got := AggregateScores([]models.CategoryScore{{CategoryName: "Safety", OverallCategoryScore: 75}}, nil); got != 0 {
		t.Errorf("expected 0 for no weights, got %d", got)
	}
}

func TestAggregateScoresRounds(t *testing.T) {
	scores := []models.CategoryScore{
		{CategoryName: "A", OverallCategoryScore: 85},
		{CategoryName: "B", OverallCategoryScore: 86},
	}
	weights := map[string]float64{"A": 0.5, "B": 0.5}

	if got := AggregateScores(scores, weights); got != 86 {
		t.Errorf("expected 85.5 to round to 86, got %d", got)
	}
}

func TestIdentifyCriticalFindingsConfidenceGate(t *testing.T) {
	scores := []models.CategoryScore{
		{
			CategoryName: "Safety",
			CriteriaScores: []models.CriterionScore{
				{CriterionID: "safety-1", Score: models.CriterionFail, Confidence: 0.5, Reasoning: "no PAR announced"},
				{CriterionID: "safety-2", Score: models.CriterionFail, Confidence: 0.95, Reasoning: "mayday procedure not followed"},
				{CriterionID: "safety-3", Score: models.CriterionPass, Confidence: 0.99, Reasoning: "ok"},
			},
		},
	}

	findings := IdentifyCriticalFindings(scores, DefaultConfidenceThreshold)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %v", len(findings), findings)
	}
	if !strings.Contains(findings[0], "safety-2") {
		t.Errorf("expected finding for safety-2, got %q", findings[0])
	}
	if !strings.HasPrefix(findings[0], "Safety: ") {
		t.Errorf("finding should carry the category name, got %q", findings[0])
	}
}

func TestIdentifyCriticalFindingsIncludesCategoryFindings(t *testing.T) {
	scores := []models.CategoryScore{
		{
			CategoryName:     "Command",
			CriticalFindings: []string{"command never established"},
		},
	}

	findings := IdentifyCriticalFindings(scores, DefaultConfidenceThreshold)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0] != "Command: command never established" {
		t.Errorf("unexpected finding %q", findings[0])
	}
}

func TestIdentifyCriticalFindingsThresholdBoundary(t *testing.T) {
	scores := []models.CategoryScore{
		{
			CategoryName: "Safety",
			CriteriaScores: []models.CriterionScore{
				{CriterionID: "safety-1", Score: models.CriterionFail, Confidence: 0.75, Reasoning: "exactly at threshold"},
			},
		},
	}

	if got := IdentifyCriticalFindings(scores, 0.75); len(got) != 1 {
		t.Errorf("confidence equal to the threshold should be included, got %d findings", len(got))
	}
}

func TestStatusForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  models.CategoryStatus
	}{
		{100, models.CategoryPass},
		{85, models.CategoryPass},
		{84.9, models.CategoryNeedsImprovement},
		{70, models.CategoryNeedsImprovement},
		{69.9, models.CategoryFail},
		{0, models.CategoryFail},
	}

	for _, tt := range tests {
		got := StatusForScore(tt.score, DefaultPassThreshold, DefaultNeedsWorkThreshold)
		if got != tt.want {
			t.Errorf("score %.1f: expected %s, got %s", tt.score, tt.want, got)
		}
	}
}
