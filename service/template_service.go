package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"radioaudit-backend/ai"
	"radioaudit-backend/logging"
	"radioaudit-backend/metrics"
	"radioaudit-backend/models"
)

const (
	discoveryTemperature   = 0.3
	criteriaTemperature    = 0.3
	enhancementTemperature = 0.5
)

const discoverySystemPrompt = `You are a fire and EMS compliance analyst reading policy documents.
Identify the distinct compliance categories a radio-traffic audit rubric
should cover, based only on the documents provided. Aim for at most %d
categories; merge overlapping topics rather than splitting them. For each
category give a short name, a description, and, where the documents imply
relative importance, a weight between 0 and 1.`

const criteriaSystemPrompt = `You are a fire and EMS compliance analyst writing audit criteria.
For the given category, derive concrete scorable criteria from the policy
documents. Aim for at most %d criteria; each must be observable in radio
traffic alone. Reference the source passage when you can.`

const enhancementSystemPrompt = `You are refining one audit criterion. Write concise scoring
guidance for an auditor, plus one example radio exchange that would pass
and one that would fail.`

// PolicyDocumentStore is the document lookup the generation pipeline needs.
type PolicyDocumentStore interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PolicyDocument, error)
}

// TemplateCRUDStore persists rubric templates.
type TemplateCRUDStore interface {
	Create(ctx context.Context, template *models.Template) error
	Update(ctx context.Context, template *models.Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

// TemplateService owns rubric templates: the multi-turn generation pipeline
// plus validated save and update.
type TemplateService struct {
	client      ai.Client
	documents   PolicyDocumentStore
	templates   TemplateCRUDStore
	tokenBudget int
	enhance     bool
}

// TemplateOption configures the template service.
type TemplateOption func(*TemplateService)

// WithTemplateClient sets the AI client.
func WithTemplateClient(client ai.Client) TemplateOption {
	return func(s *TemplateService) {
		s.client = client
	}
}

// WithDocumentStore sets the policy document store.
func WithDocumentStore(store PolicyDocumentStore) TemplateOption {
	return func(s *TemplateService) {
		s.documents = store
	}
}

// WithTemplateRepo sets the template store.
func WithTemplateRepo(store TemplateCRUDStore) TemplateOption {
	return func(s *TemplateService) {
		s.templates = store
	}
}

// WithTokenBudget overrides the default document token budget.
func WithTokenBudget(budget int) TemplateOption {
	return func(s *TemplateService) {
		if budget > 0 {
			s.tokenBudget = budget
		}
	}
}

// WithEnhancement enables the per-criterion enhancement turn.
func WithEnhancement(enabled bool) TemplateOption {
	return func(s *TemplateService) {
		s.enhance = enabled
	}
}

// NewTemplateService creates a template service.
func NewTemplateService(opts ...TemplateOption) (*TemplateService, error) {
	s := &TemplateService{tokenBudget: models.DefaultTokenBudget}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		return nil, fmt.Errorf("AI client is required")
	}
	if s.documents == nil {
		return nil, fmt.Errorf("policy document store is required")
	}
	if s.templates == nil {
		return nil, fmt.Errorf("template store is required")
	}

	return s, nil
}

type discoveryResponse struct {
	Categories []models.DiscoveredCategory `json:"categories"`
	Confidence float64                     `json:"confidence"`
	Notes      []string                    `json:"notes"`
}

type criteriaResponse struct {
	Criteria []models.GeneratedCriterion `json:"criteria"`
}

type enhancementResponse struct {
	ScoringGuidance string `json:"scoring_guidance"`
	ExamplePass     string `json:"example_pass"`
	ExampleFail     string `json:"example_fail"`
}

type discoveryPayload struct {
	Documents    []documentExcerpt `json:"documents"`
	Instructions string            `json:"instructions,omitempty"`
}

type criteriaPayload struct {
	Category  models.DiscoveredCategory `json:"category"`
	Documents []documentExcerpt         `json:"documents"`
}

type documentExcerpt struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// GenerateTemplate runs the multi-turn generation pipeline over the given
// policy documents: discovery, per-category criteria, optional enhancement,
// then assembly with normalized weights. The result is a draft pending
// human review; it is not persisted.
func (s *TemplateService) GenerateTemplate(ctx context.Context, documentIDs []uuid.UUID, instructions string, enhance bool) (*models.GeneratedTemplate, error) {
	logger := logging.WithComponent("template_generation")

	docs, err := s.documents.GetByIDs(ctx, documentIDs)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrDocumentNotFound
	}

	excerpts := make([]documentExcerpt, 0, len(docs))
	totalChars := 0
	for _, doc := range docs {
		excerpts = append(excerpts, documentExcerpt{Name: doc.Name, Text: doc.Text})
		totalChars += len(doc.Text)
	}

	// Rough token estimate at 4 chars per token, checked before the first
	// model call so oversized corpora fail fast.
	if totalChars/4 > s.tokenBudget {
		metrics.Default.TokenBudgetRejects.Inc()
		return nil, fmt.Errorf("%w: ~%d tokens over budget %d", ErrTokenLimitExceeded, totalChars/4, s.tokenBudget)
	}

	result := &models.GeneratedTemplate{Notes: make([]string, 0)}

	discovery, err := s.discoverCategories(ctx, excerpts, instructions)
	if err != nil {
		return nil, err
	}
	result.Confidence = discovery.Confidence
	result.Notes = append(result.Notes, discovery.Notes...)

	discovered := discovery.Categories
	if len(discovered) == 0 {
		return nil, fmt.Errorf("discovery: %w: no categories", ErrSchemaViolation)
	}
	if len(discovered) > models.MaxDiscoveredCategories {
		result.Notes = append(result.Notes, fmt.Sprintf(
			"discovery returned %d categories; truncated to %d", len(discovered), models.MaxDiscoveredCategories))
		discovered = discovered[:models.MaxDiscoveredCategories]
	}

	for _, cat := range discovered {
		category, err := s.buildCategory(ctx, cat, excerpts, result, enhance || s.enhance)
		if err != nil {
			// A failed category is dropped, not fatal.
			logger.Warn().Err(err).Str("category", cat.Name).Msg("category generation failed, skipping")
			result.Notes = append(result.Notes, fmt.Sprintf("category %q skipped: %v", cat.Name, err))
			continue
		}
		result.Categories = append(result.Categories, *category)
	}

	if len(result.Categories) == 0 {
		return nil, fmt.Errorf("generation produced no usable categories")
	}

	normalizeWeights(result)

	if err := models.ValidateCategories(result.Categories, models.WeightToleranceSave); err != nil {
		return nil, fmt.Errorf("generated template invalid: %w", err)
	}

	metrics.Default.TemplatesGenerated.Inc()
	logger.Info().
		Int("documents", len(docs)).
		Int("categories", len(result.Categories)).
		Float64("confidence", result.Confidence).
		Msg("template generated")

	return result, nil
}

func (s *TemplateService) discoverCategories(ctx context.Context, excerpts []documentExcerpt, instructions string) (*discoveryResponse, error) {
	raw, err := s.client.Generate(ctx, ai.Request{
		Kind:        "discovery",
		System:      fmt.Sprintf(discoverySystemPrompt, models.SoftDiscoveredCategories),
		Payload:     discoveryPayload{Documents: excerpts, Instructions: instructions},
		Schema:      discoverySchema(),
		Temperature: discoveryTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering categories: %w", err)
	}

	var resp discoveryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("discovery: %w: %v", ErrSchemaViolation, err)
	}
	return &resp, nil
}

func (s *TemplateService) buildCategory(
	ctx context.Context,
	discovered models.DiscoveredCategory,
	excerpts []documentExcerpt,
	result *models.GeneratedTemplate,
	enhance bool,
) (*models.TemplateCategory, error) {
	raw, err := s.client.Generate(ctx, ai.Request{
		Kind:        "criteria",
		System:      fmt.Sprintf(criteriaSystemPrompt, models.SoftCriteriaPerCategory),
		Payload:     criteriaPayload{Category: discovered, Documents: excerpts},
		Schema:      criteriaSchema(),
		Temperature: criteriaTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generating criteria: %w", err)
	}

	var resp criteriaResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("criteria: %w: %v", ErrSchemaViolation, err)
	}
	if len(resp.Criteria) == 0 {
		return nil, fmt.Errorf("criteria: %w: empty criteria list", ErrSchemaViolation)
	}

	generated := resp.Criteria
	if len(generated) > models.MaxCriteriaPerCategory {
		result.Notes = append(result.Notes, fmt.Sprintf(
			"category %q returned %d criteria; truncated to %d",
			discovered.Name, len(generated), models.MaxCriteriaPerCategory))
		generated = generated[:models.MaxCriteriaPerCategory]
	}

	category := &models.TemplateCategory{
		ID:          slugify(discovered.Name),
		Name:        discovered.Name,
		Description: &discovered.Description,
		Criteria:    make([]models.TemplateCriterion, 0, len(generated)),
	}
	if discovered.Weight != nil {
		category.Weight = *discovered.Weight
	}
	if len(discovered.RegulatoryReferences) > 0 {
		category.AnalysisPrompt = "Relevant references: " + strings.Join(discovered.RegulatoryReferences, "; ")
	}

	for i, gen := range generated {
		category.Criteria = append(category.Criteria, s.buildCriterion(ctx, category.ID, i, gen, enhance))
	}

	return category, nil
}

// buildCriterion converts a generated criterion, optionally running the
// enhancement turn. Enhancement failures keep the unenhanced criterion.
func (s *TemplateService) buildCriterion(ctx context.Context, categoryID string, index int, gen models.GeneratedCriterion, enhance bool) models.TemplateCriterion {
	crit := models.TemplateCriterion{
		ID:              gen.ID,
		Description:     gen.Description,
		ScoringGuidance: gen.EvidenceRequired,
		SourceText:      gen.SourceReference,
	}
	if crit.ID == "" {
		crit.ID = fmt.Sprintf("%s-%d", categoryID, index+1)
	}

	if !enhance {
		return crit
	}

	raw, err := s.client.Generate(ctx, ai.Request{
		Kind:        "enhancement",
		System:      enhancementSystemPrompt,
		Payload:     gen,
		Schema:      enhancementSchema(),
		Temperature: enhancementTemperature,
	})
	if err != nil {
		logger := logging.WithComponent("template_generation")
		logger.Warn().
			Err(err).
			Str("criterion", crit.ID).
			Msg("enhancement failed, keeping unenhanced criterion")
		return crit
	}

	var resp enhancementResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger := logging.WithComponent("template_generation")
		logger.Warn().
			Err(err).
			Str("criterion", crit.ID).
			Msg("enhancement response unreadable, keeping unenhanced criterion")
		return crit
	}

	if resp.ScoringGuidance != "" {
		crit.ScoringGuidance = resp.ScoringGuidance
	}
	if resp.ExamplePass != "" {
		crit.ExamplePass = &resp.ExamplePass
	}
	if resp.ExampleFail != "" {
		crit.ExampleFail = &resp.ExampleFail
	}
	return crit
}

// normalizeWeights rescales category weights to sum to 1.0. Categories with
// no usable weights get equal shares. A note records any adjustment.
func normalizeWeights(result *models.GeneratedTemplate) {
	sum := 0.0
	for _, cat := range result.Categories {
		if cat.Weight > 0 {
			sum += cat.Weight
		}
	}

	n := len(result.Categories)
	if sum <= 0 {
		for i := range result.Categories {
			result.Categories[i].Weight = 1.0 / float64(n)
		}
		result.Notes = append(result.Notes, "no category weights suggested; assigned equal weights")
		return
	}

	if diff := sum - 1.0; diff > models.WeightToleranceSave || diff < -models.WeightToleranceSave {
		result.Notes = append(result.Notes, fmt.Sprintf("category weights summed to %.3f; normalized to 1.0", sum))
	}
	for i := range result.Categories {
		if result.Categories[i].Weight <= 0 {
			// A zero-weight category still counts; give it the smallest
			// suggested weight before normalizing.
			result.Categories[i].Weight = minPositiveWeight(result.Categories)
		}
	}
	sum = 0.0
	for _, cat := range result.Categories {
		sum += cat.Weight
	}
	for i := range result.Categories {
		result.Categories[i].Weight /= sum
	}
}

func minPositiveWeight(categories []models.TemplateCategory) float64 {
	min := 1.0
	for _, cat := range categories {
		if cat.Weight > 0 && cat.Weight < min {
			min = cat.Weight
		}
	}
	return min
}

// SaveTemplate validates and persists a new rubric template.
func (s *TemplateService) SaveTemplate(ctx context.Context, name string, categories []models.TemplateCategory, active bool) (*models.Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("template name is required")
	}
	if err := models.ValidateCategories(categories, models.WeightToleranceSave); err != nil {
		return nil, err
	}

	template := &models.Template{
		Name:       name,
		Active:     active,
		Categories: categories,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// UpdateTemplate validates and persists changes to an existing template.
// Updates go through the tightened weight tolerance.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id uuid.UUID, name string, categories []models.TemplateCategory, active bool) (*models.Template, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTemplateNotFound
	}

	if strings.TrimSpace(name) != "" {
		template.Name = name
	}
	if categories != nil {
		if err := models.ValidateCategories(categories, models.WeightToleranceUpdate); err != nil {
			return nil, err
		}
		template.Categories = categories
	}
	template.Active = active

	if err := s.templates.Update(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// GetTemplate retrieves a template by id.
func (s *TemplateService) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

// slugify derives a stable id fragment from a category name.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '/':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
