package handlers

import (
	"net/http"

	"radioaudit-backend/models"
	"radioaudit-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IncidentHandler handles HTTP requests for incidents
type IncidentHandler struct {
	incidentRepo *repository.IncidentRepository
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(incidentRepo *repository.IncidentRepository) *IncidentHandler {
	return &IncidentHandler{incidentRepo: incidentRepo}
}

// CreateIncidentRequest represents the request body for creating an incident
type CreateIncidentRequest struct {
	Context             models.IncidentContext `json:"context"`
	SelectedTemplateIDs []string               `json:"selected_template_ids"`
}

// CreateIncident handles POST /api/incidents
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	var req CreateIncidentRequest
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

	templateIDs, ok := parseTemplateIDs(c, req.SelectedTemplateIDs)
	if !ok {
		return
	}

	incident := &models.Incident{
		Context:             req.Context,
		SelectedTemplateIDs: templateIDs,
	}
	if err := h.incidentRepo.Create(c.Request.Context(), incident); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    incident,
	})
}

// GetIncident handles GET /api/incidents/:id
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid incident ID format",
			},
		})
		return
	}

	incident, err := h.incidentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Incident not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    incident,
	})
}

// SelectTemplatesRequest represents the request body for template selection
type SelectTemplatesRequest struct {
	TemplateIDs []string `json:"template_ids" binding:"required"`
}

// SelectTemplates handles PUT /api/incidents/:id/templates. The selection
// drives which audits the post-transcription trigger starts.
func (h *IncidentHandler) SelectTemplates(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid incident ID format",
			},
		})
		return
	}

	var req SelectTemplatesRequest
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

	templateIDs, ok := parseTemplateIDs(c, req.TemplateIDs)
	if !ok {
		return
	}

	if _, err := h.incidentRepo.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Incident not found",
			},
		})
		return
	}

	// Selecting a missing template is allowed; the trigger skips it later.
	if err := h.incidentRepo.UpdateSelectedTemplates(c.Request.Context(), id, templateIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPDATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"incident_id":  id,
			"template_ids": templateIDs,
		},
	})
}

// parseTemplateIDs parses a list of template id strings, writing the error
// response itself on failure.
func parseTemplateIDs(c *gin.Context, idStrs []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(idStrs))
	for _, idStr := range idStrs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TEMPLATE_ID",
					"message": "Invalid template ID format: " + idStr,
				},
			})
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
