package service

import "github.com/google/generative-ai-go/genai"

// Output schemas for structured AI-analysis requests. Field names line up
// with the JSON tags on the corresponding models so responses unmarshal
// directly.

func evidenceSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"timestamp": {Type: genai.TypeString, Description: "mm:ss or h:mm:ss offset into the transcript"},
			"text":      {Type: genai.TypeString},
			"relevance": {Type: genai.TypeString, Enum: []string{"SUPPORTING", "CONTEXTUAL"}},
		},
		Required: []string{"timestamp", "text", "relevance"},
	}
}

func criterionScoreSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"criterion_id":   {Type: genai.TypeString},
			"score":          {Type: genai.TypeString, Enum: []string{"PASS", "FAIL"}},
			"numeric_score":  {Type: genai.TypeNumber, Description: "0 to 100"},
			"confidence":     {Type: genai.TypeNumber, Description: "0 to 1"},
			"reasoning":      {Type: genai.TypeString},
			"evidence":       {Type: genai.TypeArray, Items: evidenceSchema()},
			"recommendation": {Type: genai.TypeString, Nullable: true},
		},
		Required: []string{"criterion_id", "score", "numeric_score", "confidence", "reasoning", "evidence"},
	}
}

func categoryScoreSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category_name":          {Type: genai.TypeString},
			"category_description":   {Type: genai.TypeString},
			"criteria_scores":        {Type: genai.TypeArray, Items: criterionScoreSchema()},
			"overall_category_score": {Type: genai.TypeNumber, Description: "0 to 100"},
			"category_status":        {Type: genai.TypeString, Enum: []string{"PASS", "NEEDS_IMPROVEMENT", "FAIL"}},
			"summary":                {Type: genai.TypeString},
			"critical_findings":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"category_name", "criteria_scores", "overall_category_score", "category_status", "summary", "critical_findings"},
	}
}

func narrativeSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"executive_summary": {Type: genai.TypeString},
			"overall_score":     {Type: genai.TypeNumber, Description: "0 to 100"},
			"overall_status":    {Type: genai.TypeString},
			"strengths":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"areas_for_improvement": {
				Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString},
			},
			"critical_issues": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"recommendations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"priority":       {Type: genai.TypeString},
						"category":       {Type: genai.TypeString},
						"recommendation": {Type: genai.TypeString},
						"action_items":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					},
					Required: []string{"priority", "category", "recommendation", "action_items"},
				},
			},
			"compliance_highlights": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{
			"executive_summary", "overall_score", "overall_status", "strengths",
			"areas_for_improvement", "critical_issues", "recommendations", "compliance_highlights",
		},
	}
}

func discoverySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"categories": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":                  {Type: genai.TypeString},
						"description":           {Type: genai.TypeString},
						"weight":                {Type: genai.TypeNumber, Nullable: true},
						"regulatory_references": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					},
					Required: []string{"name", "description"},
				},
			},
			"confidence": {Type: genai.TypeNumber, Description: "0 to 1"},
			"notes":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"categories", "confidence"},
	}
}

func criteriaSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"criteria": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":                {Type: genai.TypeString},
						"description":       {Type: genai.TypeString},
						"evidence_required": {Type: genai.TypeString},
						"scoring_method":    {Type: genai.TypeString, Enum: []string{"PASS_FAIL", "NUMERIC", "CRITICAL_PASS_FAIL"}},
						"weight":            {Type: genai.TypeNumber, Nullable: true},
						"source_reference":  {Type: genai.TypeString, Nullable: true},
					},
					Required: []string{"id", "description", "evidence_required", "scoring_method"},
				},
			},
		},
		Required: []string{"criteria"},
	}
}

func enhancementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scoring_guidance": {Type: genai.TypeString},
			"example_pass":     {Type: genai.TypeString},
			"example_fail":     {Type: genai.TypeString},
		},
		Required: []string{"scoring_guidance", "example_pass", "example_fail"},
	}
}
