package handlers

import (
	"net/http"
	"time"

	"medquery/agent"
	apperrors "medquery/errors"
	"medquery/web/format"
	"medquery/web/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RAGHandler serves the question-answering endpoints for patients and
// clinical staff.
type RAGHandler struct {
	agent  *agent.Agent
	logger *zap.Logger

	patientProfile agent.Profile
	staffProfile   agent.Profile
}

func NewRAGHandler(ag *agent.Agent, patientProfile, staffProfile agent.Profile, logger *zap.Logger) *RAGHandler {
	return &RAGHandler{
		agent:          ag,
		logger:         logger,
		patientProfile: patientProfile,
		staffProfile:   staffProfile,
	}
}

type patientChatRequest struct {
	Query string `json:"query" binding:"required"`
}

type staffQueryRequest struct {
	PatientID int64  `json:"patient_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
}

// PatientChat answers a question from an authenticated patient about their
// own records. Validation problems come back as a polite in-band answer
// rather than a protocol error, since the client reads the text aloud.
func (h *RAGHandler) PatientChat(c *gin.Context) {
	var req patientChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "query is required")
		return
	}

	patientID := middleware.PatientID(c)
	if patientID <= 0 {
		respondWithClientError(c, http.StatusForbidden, "token carries no patient identity")
		return
	}

	start := time.Now()
	answer, err := h.agent.AnswerQuery(c.Request.Context(), req.Query, patientID, h.patientProfile)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			c.JSON(http.StatusOK, gin.H{
				"query":       req.Query,
				"answer":      "Maaf, pertanyaan Anda terlalu pendek. Mohon ajukan pertanyaan yang lebih lengkap ya 😊",
				"success":     false,
				"sources":     []string{},
				"suggestions": format.DefaultSuggestions(),
			})
			return
		}
		respondWithError(c, http.StatusInternalServerError, err, "could not process question", h.logger,
			zap.Int64("patient_id", patientID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":           answer.Query,
		"answer":          answer.Text,
		"success":         answer.Success,
		"sources":         answer.Sources,
		"suggestions":     answer.Suggestions,
		"processing_time": time.Since(start).Seconds(),
	})
}

// StaffQuery answers a question from clinical staff about an explicit
// patient. The answer is returned both as markdown and rendered HTML,
// with the supporting evidence attached.
func (h *RAGHandler) StaffQuery(c *gin.Context) {
	var req staffQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "patient_id and query are required")
		return
	}

	answer, err := h.agent.AnswerQuery(c.Request.Context(), req.Query, req.PatientID, h.staffProfile)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			respondWithClientError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(c, http.StatusInternalServerError, err, "could not process question", h.logger,
			zap.Int64("patient_id", req.PatientID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":              answer.Query,
		"answer":             answer.Text,
		"answer_html":        format.HTML(answer.Text),
		"success":            answer.Success,
		"sources":            answer.Sources,
		"relevant_documents": answer.Evidence,
	})
}

// Health reports service liveness.
func (h *RAGHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "medquery",
	})
}
