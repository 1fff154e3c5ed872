package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"radioaudit-backend/ai"
	"radioaudit-backend/models"
)

func newTestTemplateService(t *testing.T, client ai.Client, docs *stubDocuments, templates *stubTemplates, opts ...TemplateOption) *TemplateService {
	t.Helper()

	all := append([]TemplateOption{
		WithTemplateClient(client),
		WithDocumentStore(docs),
		WithTemplateRepo(templates),
	}, opts...)

	svc, err := NewTemplateService(all...)
	if err != nil {
		t.Fatalf("NewTemplateService: %v", err)
	}
	return svc
}

func testDocuments(texts ...string) (*stubDocuments, []uuid.UUID) {
	docs := &stubDocuments{docs: make(map[uuid.UUID]*models.PolicyDocument)}
	var ids []uuid.UUID
	for i, text := range texts {
		id := uuid.New()
		docs.docs[id] = &models.PolicyDocument{
			ID:   id,
			Name: fmt.Sprintf("sog-%d.pdf", i+1),
			Text: text,
		}
		ids = append(ids, id)
	}
	return docs, ids
}

func discoveryJSON(categories ...models.DiscoveredCategory) json.RawMessage {
	return mustJSON(discoveryResponse{Categories: categories, Confidence: 0.8})
}

func criteriaJSON(n int) json.RawMessage {
	criteria := make([]models.GeneratedCriterion, n)
	for i := range criteria {
		criteria[i] = models.GeneratedCriterion{
			ID:               fmt.Sprintf("crit-%d", i+1),
			Description:      "Benchmark announced over the radio",
			EvidenceRequired: "Listen for the benchmark transmission",
			ScoringMethod:    models.ScoringPassFail,
		}
	}
	return mustJSON(criteriaResponse{Criteria: criteria})
}

func pipelineClient(discovery json.RawMessage, criteriaByCategory map[string]func() (json.RawMessage, error)) *stubClient {
	return &stubClient{
		generate: func(_ context.Context, req ai.Request) (json.RawMessage, error) {
			switch req.Kind {
			case "discovery":
				return discovery, nil
			case "criteria":
				payload, _ := json.Marshal(req.Payload)
				var p struct {
					Category models.DiscoveredCategory `json:"category"`
				}
				_ = json.Unmarshal(payload, &p)
				if fn, ok := criteriaByCategory[p.Category.Name]; ok {
					return fn()
				}
				return criteriaJSON(3), nil
			default:
				return nil, errors.New("unexpected kind " + req.Kind)
			}
		},
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestGenerateTemplateTokenBudget(t *testing.T) {
	docs, ids := testDocuments(strings.Repeat("a", 4100))
	svc := newTestTemplateService(t, &stubClient{}, docs, &stubTemplates{}, WithTokenBudget(1000))

	_, err := svc.GenerateTemplate(context.Background(), ids, "", false)
	if !errors.Is(err, ErrTokenLimitExceeded) {
		t.Errorf("expected ErrTokenLimitExceeded, got %v", err)
	}
}

func TestGenerateTemplateHappyPath(t *testing.T) {
	docs, ids := testDocuments("Units shall announce arrival.", "Command shall be established.")

	client := pipelineClient(discoveryJSON(
		models.DiscoveredCategory{Name: "Communications", Description: "radio discipline", Weight: floatPtr(0.6)},
		models.DiscoveredCategory{Name: "Command", Description: "incident command", Weight: floatPtr(0.4)},
	), nil)

	svc := newTestTemplateService(t, client, docs, &stubTemplates{})

	generated, err := svc.GenerateTemplate(context.Background(), ids, "", false)
	if err != nil {
		t.Fatalf("GenerateTemplate: %v", err)
	}

	if len(generated.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(generated.Categories))
	}
	if generated.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %.2f", generated.Confidence)
	}

	sum := 0.0
	for _, cat := range generated.Categories {
		sum += cat.Weight
		if len(cat.Criteria) == 0 {
			t.Errorf("category %q has no criteria", cat.Name)
		}
	}
	if math.Abs(sum-1.0) > models.WeightToleranceSave {
		t.Errorf("weights should sum to 1.0, got %.4f", sum)
	}

	if err := models.ValidateCategories(generated.Categories, models.WeightToleranceSave); err != nil {
		t.Errorf("generated template should pass save validation: %v", err)
	}
}

func TestGenerateTemplateCapsDiscovery(t *testing.T) {
	docs, ids := testDocuments("policy text")

	categories := make([]models.DiscoveredCategory, models.MaxDiscoveredCategories+3)
	for i := range categories {
		categories[i] = models.DiscoveredCategory{Name: fmt.Sprintf("Category %d", i+1), Description: "d"}
	}

	svc := newTestTemplateService(t, pipelineClient(discoveryJSON(categories...), nil), docs, &stubTemplates{})

	generated, err := svc.GenerateTemplate(context.Background(), ids, "", false)
	if err != nil {
		t.Fatalf("GenerateTemplate: %v", err)
	}
	if len(generated.Categories) != models.MaxDiscoveredCategories {
		t.Errorf("expected cap at %d categories, got %d", models.MaxDiscoveredCategories, len(generated.Categories))
	}
	if !notesContain(generated.Notes, "truncated") {
		t.Errorf("expected truncation note, got %v", generated.Notes)
	}
}

func TestGenerateTemplateCapsCriteria(t *testing.T) {
	docs, ids := testDocuments("policy text")

	client := pipelineClient(
		discoveryJSON(models.DiscoveredCategory{Name: "Safety", Description: "d"}),
		map[string]func() (json.RawMessage, error){
			"Safety": func() (json.RawMessage, error) { return criteriaJSON(models.MaxCriteriaPerCategory + 2), nil },
		},
	)

	svc := newTestTemplateService(t, client, docs, &stubTemplates{})

	generated, err := svc.GenerateTemplate(context.Background(), ids, "", false)
	if err != nil {
		t.Fatalf("GenerateTemplate: %v", err)
	}
	if got := len(generated.Categories[0].Criteria); got != models.MaxCriteriaPerCategory {
		t.Errorf("expected criteria cap %d, got %d", models.MaxCriteriaPerCategory, got)
	}
	if !notesContain(generated.Notes, "truncated") {
		t.Errorf("expected truncation note, got %v", generated.Notes)
	}
}

func TestGenerateTemplateSkipsFailedCategory(t *testing.T) {
	docs, ids := testDocuments("policy text")

	client := pipelineClient(
		discoveryJSON(
			models.DiscoveredCategory{Name: "Communications", Description: "d"},
			models.DiscoveredCategory{Name: "Unscorable", Description: "d"},
		),
		map[string]func() (json.RawMessage, error){
			"Unscorable": func() (json.RawMessage, error) { return nil, &ai.RefusalError{Reason: "OTHER"} },
		},
	)

	svc := newTestTemplateService(t, client, docs, &stubTemplates{})

	generated, err := svc.GenerateTemplate(context.Background(), ids, "", false)
	if err != nil {
		t.Fatalf("a failed category must not fail the pipeline: %v", err)
	}
	if len(generated.Categories) != 1 || generated.Categories[0].Name != "Communications" {
		t.Errorf("expected only Communications to survive, got %+v", generated.Categories)
	}
	if !notesContain(generated.Notes, "skipped") {
		t.Errorf("expected skip note, got %v", generated.Notes)
	}
}

func TestGenerateTemplateNormalizesWeights(t *testing.T) {
	docs, ids := testDocuments("policy text")

	client := pipelineClient(discoveryJSON(
		models.DiscoveredCategory{Name: "A", Description: "d", Weight: floatPtr(0.5)},
		models.DiscoveredCategory{Name: "B", Description: "d", Weight: floatPtr(0.3)},
	), nil)

	svc := newTestTemplateService(t, client, docs, &stubTemplates{})

	generated, err := svc.GenerateTemplate(context.Background(), ids, "", false)
	if err != nil {
		t.Fatalf("GenerateTemplate: %v", err)
	}

	sum := 0.0
	for _, cat := range generated.Categories {
		sum += cat.Weight
	}
	if math.Abs(sum-1.0) > 0.0001 {
		t.Errorf("expected normalized weights, sum %.4f", sum)
	}
	if !notesContain(generated.Notes, "normalized") {
		t.Errorf("expected normalization note, got %v", generated.Notes)
	}
}

func TestSaveTemplateWeightTolerance(t *testing.T) {
	svc := newTestTemplateService(t, &stubClient{}, &stubDocuments{}, &stubTemplates{templates: map[uuid.UUID]*models.Template{}})

	ok := []models.TemplateCategory{testCategory("A", 0.6), testCategory("B", 0.395)}
	if _, err := svc.SaveTemplate(context.Background(), "Rubric", ok, true); err != nil {
		t.Errorf("sum 0.995 should pass save tolerance: %v", err)
	}

	bad := []models.TemplateCategory{testCategory("A", 0.6), testCategory("B", 0.25)}
	if _, err := svc.SaveTemplate(context.Background(), "Rubric", bad, true); !errors.Is(err, models.ErrWeightSumInvalid) {
		t.Errorf("sum 0.85 should fail, got %v", err)
	}

	if _, err := svc.SaveTemplate(context.Background(), "  ", ok, true); err == nil {
		t.Error("blank name should be rejected")
	}
}

func TestUpdateTemplateTightenedTolerance(t *testing.T) {
	templates := &stubTemplates{templates: map[uuid.UUID]*models.Template{}}
	svc := newTestTemplateService(t, &stubClient{}, &stubDocuments{}, templates)

	saved, err := svc.SaveTemplate(context.Background(), "Rubric",
		[]models.TemplateCategory{testCategory("A", 0.5), testCategory("B", 0.5)}, true)
	if err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	// 0.995 passes the save tolerance but not the update tolerance.
	drift := []models.TemplateCategory{testCategory("A", 0.6), testCategory("B", 0.395)}
	if _, err := svc.UpdateTemplate(context.Background(), saved.ID, "Rubric", drift, true); !errors.Is(err, models.ErrWeightSumInvalid) {
		t.Errorf("update should enforce the tightened tolerance, got %v", err)
	}

	exact := []models.TemplateCategory{testCategory("A", 0.6), testCategory("B", 0.4)}
	updated, err := svc.UpdateTemplate(context.Background(), saved.ID, "Rubric v2", exact, false)
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if updated.Name != "Rubric v2" || updated.Active {
		t.Errorf("update should apply name and active, got %+v", updated)
	}

	if _, err := svc.UpdateTemplate(context.Background(), uuid.New(), "x", nil, true); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestGenerateTemplateNoDocuments(t *testing.T) {
	svc := newTestTemplateService(t, &stubClient{}, &stubDocuments{}, &stubTemplates{})

	if _, err := svc.GenerateTemplate(context.Background(), []uuid.UUID{uuid.New()}, "", false); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func notesContain(notes []string, substr string) bool {
	for _, note := range notes {
		if strings.Contains(note, substr) {
			return true
		}
	}
	return false
}
