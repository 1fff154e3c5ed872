package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"radioaudit-backend/ai"
	"radioaudit-backend/models"
)

func newTestAuditService(t *testing.T, client ai.Client, transcripts *stubTranscripts, templates *stubTemplates, audits *stubAudits) *AuditService {
	t.Helper()

	scoring := newTestScoringService(t, client)
	narrative, err := NewNarrativeService(WithNarrativeClient(client))
	if err != nil {
		t.Fatalf("NewNarrativeService: %v", err)
	}

	svc, err := NewAuditService(
		WithTranscriptStore(transcripts),
		WithTemplateStore(templates),
		WithAuditStore(audits),
		WithScoringService(scoring),
		WithNarrativeService(narrative),
		WithModelName("test-model"),
	)
	if err != nil {
		t.Fatalf("NewAuditService: %v", err)
	}
	return svc
}

// scriptedClient answers category_score requests per category name and
// narrative requests with a fixed narrative.
func scriptedClient(perCategory map[string]func() (json.RawMessage, error), narrativeErr error) *stubClient {
	var mu sync.Mutex
	return &stubClient{
		generate: func(_ context.Context, req ai.Request) (json.RawMessage, error) {
			mu.Lock()
			defer mu.Unlock()

			switch req.Kind {
			case "category_score":
				payload, _ := json.Marshal(req.Payload)
				var p struct {
					Category struct {
						Name string `json:"name"`
					} `json:"category"`
				}
				_ = json.Unmarshal(payload, &p)
				if fn, ok := perCategory[p.Category.Name]; ok {
					return fn()
				}
				return nil, errors.New("unexpected category " + p.Category.Name)
			case "narrative":
				if narrativeErr != nil {
					return nil, narrativeErr
				}
				return narrativeJSON(), nil
			default:
				return nil, errors.New("unexpected kind " + req.Kind)
			}
		},
	}
}

func TestRunAuditPartialFailure(t *testing.T) {
	transcript := testTranscript()
	template := testTemplate(
		testCategory("Communications", 0.4),
		testCategory("Safety", 0.3),
		testCategory("Command", 0.2),
		testCategory("Benchmarks", 0.1),
	)

	client := scriptedClient(map[string]func() (json.RawMessage, error){
		"Communications": func() (json.RawMessage, error) {
			return categoryScoreJSON("Communications", 90, models.CriterionPass, 0.9), nil
		},
		"Safety": func() (json.RawMessage, error) {
			return categoryScoreJSON("Safety", 80, models.CriterionPass, 0.9), nil
		},
		"Command": func() (json.RawMessage, error) {
			return categoryScoreJSON("Command", 70, models.CriterionPass, 0.9), nil
		},
		"Benchmarks": func() (json.RawMessage, error) {
			return nil, &ai.RefusalError{Reason: "SAFETY"}
		},
	}, nil)

	audits := &stubAudits{}
	svc := newTestAuditService(t, client,
		&stubTranscripts{transcripts: map[uuid.UUID]*models.Transcript{transcript.ID: transcript}},
		&stubTemplates{templates: map[uuid.UUID]*models.Template{template.ID: template}},
		audits,
	)

	run, err := svc.RunAudit(context.Background(), transcript, template)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}

	if run.Status != models.RunStatusComplete {
		t.Errorf("expected complete, got %s", run.Status)
	}
	if run.CategoriesAttempted != 4 || run.CategoriesScored != 3 {
		t.Errorf("expected 4 attempted / 3 scored, got %d/%d", run.CategoriesAttempted, run.CategoriesScored)
	}
	if len(run.Failures) != 1 || run.Failures[0].Category != "Benchmarks" {
		t.Errorf("expected Benchmarks failure, got %+v", run.Failures)
	}

	// 90*0.4 + 80*0.3 + 70*0.2 = 74; Benchmarks contributes nothing.
	if run.OverallScore != 74 {
		t.Errorf("expected overall score 74, got %d", run.OverallScore)
	}
	if run.Narrative == nil {
		t.Error("expected narrative on completed run")
	}
	if run.Model != "test-model" {
		t.Errorf("expected model recorded, got %q", run.Model)
	}
	if run.CompletedAt == nil {
		t.Error("expected completed_at set")
	}

	// Category order follows template order despite concurrent scoring.
	names := make([]string, 0, len(run.CategoryScores))
	for _, cs := range run.CategoryScores {
		names = append(names, cs.CategoryName)
	}
	want := []string{"Communications", "Safety", "Command"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("category order: expected %v, got %v", want, names)
			break
		}
	}

	if got := len(audits.runs()); got != 1 {
		t.Errorf("expected exactly one persisted run, got %d", got)
	}
}

func TestRunAuditAllCategoriesFail(t *testing.T) {
	transcript := testTranscript()
	template := testTemplate(testCategory("Safety", 1.0))

	client := scriptedClient(map[string]func() (json.RawMessage, error){
		"Safety": func() (json.RawMessage, error) { return nil, errors.New("model unavailable") },
	}, nil)

	audits := &stubAudits{}
	svc := newTestAuditService(t, client,
		&stubTranscripts{transcripts: map[uuid.UUID]*models.Transcript{transcript.ID: transcript}},
		&stubTemplates{templates: map[uuid.UUID]*models.Template{template.ID: template}},
		audits,
	)

	run, err := svc.RunAudit(context.Background(), transcript, template)
	if !errors.Is(err, ErrNoScoredCategories) {
		t.Fatalf("expected ErrNoScoredCategories, got %v", err)
	}
	if run.Status != models.RunStatusFailed {
		t.Errorf("expected failed status, got %s", run.Status)
	}

	persisted := audits.runs()
	if len(persisted) != 1 || persisted[0].Status != models.RunStatusFailed {
		t.Errorf("failed run should be persisted, got %+v", persisted)
	}
}

func TestRunAuditNarrativeDegrades(t *testing.T) {
	transcript := testTranscript()
	template := testTemplate(testCategory("Safety", 1.0))

	client := scriptedClient(map[string]func() (json.RawMessage, error){
		"Safety": func() (json.RawMessage, error) { return categoryScoreJSON("Safety", 95, models.CriterionPass, 0.9), nil },
	}, errors.New("narrative model down"))

	audits := &stubAudits{}
	svc := newTestAuditService(t, client,
		&stubTranscripts{transcripts: map[uuid.UUID]*models.Transcript{transcript.ID: transcript}},
		&stubTemplates{templates: map[uuid.UUID]*models.Template{template.ID: template}},
		audits,
	)

	run, err := svc.RunAudit(context.Background(), transcript, template)
	if err != nil {
		t.Fatalf("narrative failure must not fail the run: %v", err)
	}
	if run.Status != models.RunStatusComplete {
		t.Errorf("expected complete, got %s", run.Status)
	}
	if run.Narrative != nil {
		t.Error("expected nil narrative on degraded run")
	}
	if run.SynthesisError == nil {
		t.Error("expected synthesis error recorded")
	}
	if run.OverallScore != 95 {
		t.Errorf("scores must stand without a narrative, got %d", run.OverallScore)
	}
}

func TestRunAuditDeduplicates(t *testing.T) {
	transcript := testTranscript()
	template := testTemplate(testCategory("Safety", 1.0))

	block := make(chan struct{})
	client := &stubClient{
		generate: func(_ context.Context, req ai.Request) (json.RawMessage, error) {
			if req.Kind == "category_score" {
				<-block
				return categoryScoreJSON("Safety", 90, models.CriterionPass, 0.9), nil
			}
			return narrativeJSON(), nil
		},
	}

	audits := &stubAudits{}
	svc := newTestAuditService(t, client,
		&stubTranscripts{transcripts: map[uuid.UUID]*models.Transcript{transcript.ID: transcript}},
		&stubTemplates{templates: map[uuid.UUID]*models.Template{template.ID: template}},
		audits,
	)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunAudit(context.Background(), transcript, template)
		done <- err
	}()

	// Wait for the first run to register its pair.
	for i := 0; i < 100; i++ {
		svc.mu.Lock()
		registered := len(svc.inFlight) == 1
		svc.mu.Unlock()
		if registered {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err := svc.RunAudit(context.Background(), transcript, template)
	if !errors.Is(err, ErrAuditInFlight) {
		t.Errorf("expected ErrAuditInFlight for duplicate pair, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Pair released; a new run may start.
	if _, err := svc.register(transcript.ID, template.ID); err != nil {
		t.Errorf("pair should be released after terminal state: %v", err)
	}
}

func TestStartAuditValidation(t *testing.T) {
	transcript := testTranscript()
	template := testTemplate(testCategory("Safety", 1.0))

	client := scriptedClient(map[string]func() (json.RawMessage, error){
		"Safety": func() (json.RawMessage, error) { return categoryScoreJSON("Safety", 90, models.CriterionPass, 0.9), nil },
	}, nil)

	audits := &stubAudits{}
	svc := newTestAuditService(t, client,
		&stubTranscripts{transcripts: map[uuid.UUID]*models.Transcript{transcript.ID: transcript}},
		&stubTemplates{templates: map[uuid.UUID]*models.Template{template.ID: template}},
		audits,
	)

	if _, err := svc.StartAudit(context.Background(), transcript.ID, template.ID, "monolithic"); !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("expected ErrUnsupportedMode, got %v", err)
	}
	if _, err := svc.StartAudit(context.Background(), uuid.New(), template.ID, ModeModular); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("expected ErrTranscriptNotFound, got %v", err)
	}
	if _, err := svc.StartAudit(context.Background(), transcript.ID, uuid.New(), ModeModular); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestStartAuditBackgroundCompletion(t *testing.T) {
	transcript := testTranscript()
	template := testTemplate(testCategory("Safety", 1.0))

	client := scriptedClient(map[string]func() (json.RawMessage, error){
		"Safety": func() (json.RawMessage, error) { return categoryScoreJSON("Safety", 90, models.CriterionPass, 0.9), nil },
	}, nil)

	audits := &stubAudits{}
	svc := newTestAuditService(t, client,
		&stubTranscripts{transcripts: map[uuid.UUID]*models.Transcript{transcript.ID: transcript}},
		&stubTemplates{templates: map[uuid.UUID]*models.Template{template.ID: template}},
		audits,
	)

	auditID, err := svc.StartAudit(context.Background(), transcript.ID, template.ID, ModeModular)
	if err != nil {
		t.Fatalf("StartAudit: %v", err)
	}
	if auditID == uuid.Nil {
		t.Fatal("expected a run id")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		run, processing, err := svc.GetAudit(context.Background(), auditID)
		if err == nil && !processing {
			if run.Status != models.RunStatusComplete {
				t.Errorf("expected complete, got %s", run.Status)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not complete in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
