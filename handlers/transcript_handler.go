package handlers

import (
	"context"
	"net/http"

	"radioaudit-backend/logging"
	"radioaudit-backend/models"
	"radioaudit-backend/repository"
	"radioaudit-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TranscriptHandler handles HTTP requests for transcripts
type TranscriptHandler struct {
	transcriptRepo *repository.TranscriptRepository
	auditRepo      *repository.AuditRepository
	triggerService *service.TriggerService
}

// NewTranscriptHandler creates a new transcript handler
func NewTranscriptHandler(transcriptRepo *repository.TranscriptRepository, auditRepo *repository.AuditRepository, triggerService *service.TriggerService) *TranscriptHandler {
	return &TranscriptHandler{
		transcriptRepo: transcriptRepo,
		auditRepo:      auditRepo,
		triggerService: triggerService,
	}
}

// CreateTranscriptRequest represents the request body for storing a transcript
type CreateTranscriptRequest struct {
	IncidentID string                    `json:"incident_id"`
	Text       string                    `json:"text" binding:"required"`
	Segments   models.TranscriptSegments `json:"segments"`
}

// CreateTranscript handles POST /api/transcripts
func (h *TranscriptHandler) CreateTranscript(c *gin.Context) {
	var req CreateTranscriptRequest
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

	transcript := &models.Transcript{
		Text:     req.Text,
		Segments: req.Segments,
	}
	if req.IncidentID != "" {
		incidentID, err := uuid.Parse(req.IncidentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_INCIDENT_ID",
					"message": "Invalid incident_id format",
				},
			})
			return
		}
		transcript.IncidentID = incidentID
	}

	if err := h.transcriptRepo.Create(c.Request.Context(), transcript); err != nil {
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
		"data":    transcript,
	})
}

// GetTranscript handles GET /api/transcripts/:id
func (h *TranscriptHandler) GetTranscript(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid transcript ID format",
			},
		})
		return
	}

	transcript, err := h.transcriptRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Transcript not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transcript,
	})
}

// ListAudits handles GET /api/transcripts/:id/audits, returning every
// terminal audit run recorded for the transcript.
func (h *TranscriptHandler) ListAudits(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid transcript ID format",
			},
		})
		return
	}

	runs, err := h.auditRepo.ListByTranscriptID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    runs,
	})
}

// CompleteTranscript handles POST /api/transcripts/:id/complete. It fires
// the post-transcription audit trigger in the background and returns
// immediately; the trigger's deadline and per-template failures never reach
// the caller.
func (h *TranscriptHandler) CompleteTranscript(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid transcript ID format",
			},
		})
		return
	}

	if _, err := h.transcriptRepo.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Transcript not found",
			},
		})
		return
	}

	go func() {
		bgCtx := context.Background()
		if err := h.triggerService.TriggerAudits(bgCtx, id); err != nil {
			logger := logging.WithComponent("handlers")
			logger.Warn().
				Err(err).
				Str("transcriptId", id.String()).
				Msg("post-transcription trigger failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"transcript_id": id,
			"message":       "Audit trigger started",
		},
	})
}
