package handlers

import (
	"errors"
	"net/http"

	"radioaudit-backend/models"
	"radioaudit-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TemplateHandler handles HTTP requests for rubric templates
type TemplateHandler struct {
	templateService *service.TemplateService
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateService *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// GenerateTemplateRequest represents the request body for template generation
type GenerateTemplateRequest struct {
	PolicyDocumentIDs []string `json:"policy_document_ids" binding:"required"`
	Instructions      string   `json:"instructions"`
	Enhance           bool     `json:"enhance"`
}

// GenerateTemplate handles POST /api/templates/generate
func (h *TemplateHandler) GenerateTemplate(c *gin.Context) {
	var req GenerateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.PolicyDocumentIDs))
	for _, idStr := range req.PolicyDocumentIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_DOCUMENT_ID",
					"message": "Invalid policy document ID format: " + idStr,
				},
			})
			return
		}
		ids = append(ids, id)
	}

	generated, err := h.templateService.GenerateTemplate(c.Request.Context(), ids, req.Instructions, req.Enhance)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DOCUMENT_NOT_FOUND",
					"message": "No policy documents found for the given IDs",
				},
			})
		case errors.Is(err, service.ErrTokenLimitExceeded):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TOKEN_LIMIT_EXCEEDED",
					"message": err.Error(),
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GENERATION_FAILED",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    generated,
	})
}

// SaveTemplateRequest represents the request body for saving a template
type SaveTemplateRequest struct {
	Name       string                    `json:"name" binding:"required"`
	Active     bool                      `json:"active"`
	Categories []models.TemplateCategory `json:"categories" binding:"required"`
}

// SaveTemplate handles POST /api/templates
func (h *TemplateHandler) SaveTemplate(c *gin.Context) {
	var req SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	template, err := h.templateService.SaveTemplate(c.Request.Context(), req.Name, req.Categories, req.Active)
	if err != nil {
		status, code := templateErrorStatus(err, "SAVE_FAILED")
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    template,
	})
}

// UpdateTemplateRequest represents the request body for updating a template
type UpdateTemplateRequest struct {
	Name       string                    `json:"name"`
	Active     bool                      `json:"active"`
	Categories []models.TemplateCategory `json:"categories"`
}

// UpdateTemplate handles PUT /api/templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid template ID format",
			},
		})
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	template, err := h.templateService.UpdateTemplate(c.Request.Context(), id, req.Name, req.Categories, req.Active)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Template not found",
				},
			})
			return
		}
		status, code := templateErrorStatus(err, "UPDATE_FAILED")
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    template,
	})
}

// GetTemplate handles GET /api/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid template ID format",
			},
		})
		return
	}

	template, err := h.templateService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Template not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    template,
	})
}

// templateErrorStatus maps template validation failures to 422 and
// everything else to 500.
func templateErrorStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, models.ErrNoCategories),
		errors.Is(err, models.ErrCategoryNoCriteria),
		errors.Is(err, models.ErrWeightOutOfRange),
		errors.Is(err, models.ErrWeightSumInvalid):
		return http.StatusUnprocessableEntity, "INVALID_TEMPLATE"
	default:
		return http.StatusInternalServerError, fallback
	}
}
