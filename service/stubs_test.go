package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"radioaudit-backend/ai"
	"radioaudit-backend/models"
)

// stubClient scripts AI responses per request kind.
type stubClient struct {
	generate func(ctx context.Context, req ai.Request) (json.RawMessage, error)
}

func (c *stubClient) Generate(ctx context.Context, req ai.Request) (json.RawMessage, error) {
	return c.generate(ctx, req)
}

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

type stubTranscripts struct {
	transcripts map[uuid.UUID]*models.Transcript
}

func (s *stubTranscripts) GetByID(_ context.Context, id uuid.UUID) (*models.Transcript, error) {
	t, ok := s.transcripts[id]
	if !ok {
		return nil, fmt.Errorf("no rows in result set")
	}
	return t, nil
}

type stubTemplates struct {
	templates map[uuid.UUID]*models.Template
}

func (s *stubTemplates) GetByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	t, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("no rows in result set")
	}
	return t, nil
}

func (s *stubTemplates) ListActiveByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Template, error) {
	var out []*models.Template
	for _, id := range ids {
		if t, ok := s.templates[id]; ok && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTemplates) Create(_ context.Context, template *models.Template) error {
	template.ID = uuid.New()
	if s.templates == nil {
		s.templates = make(map[uuid.UUID]*models.Template)
	}
	s.templates[template.ID] = template
	return nil
}

func (s *stubTemplates) Update(_ context.Context, template *models.Template) error {
	if _, ok := s.templates[template.ID]; !ok {
		return fmt.Errorf("no rows in result set")
	}
	s.templates[template.ID] = template
	return nil
}

type stubAudits struct {
	mu      sync.Mutex
	created []*models.AuditRun
}

func (s *stubAudits) Create(_ context.Context, run *models.AuditRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, run)
	return nil
}

func (s *stubAudits) GetByID(_ context.Context, id uuid.UUID) (*models.AuditRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.created {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, fmt.Errorf("no rows in result set")
}

func (s *stubAudits) runs() []*models.AuditRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AuditRun, len(s.created))
	copy(out, s.created)
	return out
}

type stubIncidents struct {
	incidents map[uuid.UUID]*models.Incident
}

func (s *stubIncidents) GetByID(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	inc, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("no rows in result set")
	}
	return inc, nil
}

type stubDocuments struct {
	docs map[uuid.UUID]*models.PolicyDocument
}

func (s *stubDocuments) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*models.PolicyDocument, error) {
	var out []*models.PolicyDocument
	for _, id := range ids {
		if d, ok := s.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func testTranscript() *models.Transcript {
	speaker := "Engine 4"
	return &models.Transcript{
		ID:         uuid.New(),
		IncidentID: uuid.New(),
		Text:       "Engine 4 on scene, two story residential, smoke showing. Establishing command.",
		Segments: models.TranscriptSegments{
			{ID: "s1", StartTime: 0, EndTime: 5, Text: "Engine 4 on scene, two story residential, smoke showing.", Speaker: &speaker},
			{ID: "s2", StartTime: 6, EndTime: 10, Text: "Establishing command.", Speaker: &speaker},
		},
	}
}

func testCategory(name string, weight float64) models.TemplateCategory {
	return models.TemplateCategory{
		ID:     slugify(name),
		Name:   name,
		Weight: weight,
		Criteria: []models.TemplateCriterion{
			{ID: slugify(name) + "-1", Description: "Initial on-scene report given", ScoringGuidance: "Look for arrival report with conditions"},
		},
	}
}

func testTemplate(categories ...models.TemplateCategory) *models.Template {
	return &models.Template{
		ID:         uuid.New(),
		Name:       "Structure Fire Audit",
		Active:     true,
		Categories: categories,
	}
}

func categoryScoreJSON(name string, score float64, verdict models.CriterionVerdict, confidence float64) json.RawMessage {
	return mustJSON(models.CategoryScore{
		CategoryName:         name,
		CriteriaScores:       []models.CriterionScore{{CriterionID: slugify(name) + "-1", Score: verdict, NumericScore: score, Confidence: confidence, Reasoning: "observed in traffic"}},
		OverallCategoryScore: score,
		CategoryStatus:       models.CategoryPass,
		Summary:              "summary",
		CriticalFindings:     []string{},
	})
}

func narrativeJSON() json.RawMessage {
	return mustJSON(models.AuditNarrative{
		ExecutiveSummary:     "Overall solid communications discipline.",
		OverallScore:         82,
		OverallStatus:        "NEEDS_IMPROVEMENT",
		Strengths:            []string{"prompt arrival report"},
		AreasForImprovement:  []string{"benchmark announcements"},
		CriticalIssues:       []string{},
		Recommendations:      []models.Recommendation{{Priority: "HIGH", Category: "Command", Recommendation: "announce command on arrival", ActionItems: []string{"review SOG 201"}}},
		ComplianceHighlights: []string{},
	})
}
