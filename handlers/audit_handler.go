package handlers

import (
	"errors"
	"net/http"

	"radioaudit-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler handles HTTP requests for audit runs
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// StartAuditRequest represents the request body for starting an audit
type StartAuditRequest struct {
	TranscriptID string `json:"transcript_id" binding:"required"`
	TemplateID   string `json:"template_id" binding:"required"`
	Mode         string `json:"mode"`
}

// StartAudit handles POST /api/audits
func (h *AuditHandler) StartAudit(c *gin.Context) {
	var req StartAuditRequest
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

	transcriptID, err := uuid.Parse(req.TranscriptID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSCRIPT_ID",
				"message": "Invalid transcript_id format",
			},
		})
		return
	}

	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TEMPLATE_ID",
				"message": "Invalid template_id format",
			},
		})
		return
	}

	auditID, err := h.auditService.StartAudit(c.Request.Context(), transcriptID, templateID, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedMode):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNSUPPORTED_MODE",
					"message": err.Error(),
				},
			})
		case errors.Is(err, service.ErrTranscriptNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TRANSCRIPT_NOT_FOUND",
					"message": "Transcript not found",
				},
			})
		case errors.Is(err, service.ErrTemplateNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TEMPLATE_NOT_FOUND",
					"message": "Template not found",
				},
			})
		case errors.Is(err, service.ErrAuditInFlight):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AUDIT_IN_FLIGHT",
					"message": "An audit for this transcript and template is already running",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "START_FAILED",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"audit_id": auditID,
			"status":   "pending",
			"message":  "Audit started. Poll /api/audits/:id for results.",
		},
	})
}

// GetAudit handles GET /api/audits/:id
func (h *AuditHandler) GetAudit(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid audit ID format",
			},
		})
		return
	}

	run, processing, err := h.auditService.GetAudit(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Audit not found",
			},
		})
		return
	}

	if processing {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"audit_id": id,
				"status":   "processing",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    run,
	})
}
