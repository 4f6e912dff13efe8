package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"medquery/database"
	"medquery/utils"
	"medquery/web/middleware"
	"medquery/web/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentHandler accepts PDF uploads, extracts their text and stores
// them so they become searchable evidence.
type DocumentHandler struct {
	store     *database.PostgresStore
	pdf       *services.PDFService
	uploadDir string
	logger    *zap.Logger
}

func NewDocumentHandler(store *database.PostgresStore, pdf *services.PDFService, uploadDir string, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:     store,
		pdf:       pdf,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Upload stores a PDF for a patient. Staff supply patient_id as a form
// field; patients may only upload to their own record.
func (h *DocumentHandler) Upload(c *gin.Context) {
	patientID := middleware.PatientID(c)
	if middleware.Role(c) == middleware.RoleStaff {
		var req struct {
			PatientID int64 `form:"patient_id" binding:"required"`
		}
		if err := c.ShouldBind(&req); err != nil {
			respondWithClientError(c, http.StatusBadRequest, "patient_id is required")
			return
		}
		patientID = req.PatientID
	}
	if patientID <= 0 {
		respondWithClientError(c, http.StatusBadRequest, "patient_id is required")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondWithClientError(c, http.StatusBadRequest, "file is required")
		return
	}

	sanitized := utils.SanitizeFilename(file.Filename)
	if sanitized == "" {
		respondWithClientError(c, http.StatusBadRequest, "invalid or unsafe filename")
		return
	}
	if strings.ToLower(filepath.Ext(sanitized)) != ".pdf" {
		respondWithClientError(c, http.StatusBadRequest, "only PDF documents are accepted")
		return
	}

	// Prefix with a fresh id so uploads never collide.
	stored := uuid.New().String() + "_" + sanitized
	dst := filepath.Join(h.uploadDir, stored)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		respondWithError(c, http.StatusInternalServerError, err, "could not save file", h.logger,
			zap.String("filename", sanitized))
		return
	}
	if !utils.VerifyFileExists(h.uploadDir, stored) {
		respondWithClientError(c, http.StatusInternalServerError, "file verification failed after upload")
		return
	}

	extracted, err := h.pdf.ExtractText(dst)
	if err != nil {
		respondWithError(c, http.StatusUnprocessableEntity, err, "could not extract text from PDF", h.logger,
			zap.String("filename", sanitized))
		return
	}

	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	docID, err := h.store.InsertDocument(c.Request.Context(), database.MedicalDocument{
		PatientID:   patientID,
		FileName:    sanitized,
		FileURL:     "/uploads/" + stored,
		ExtractText: extracted,
		Tags:        tags,
	})
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err, "could not store document", h.logger,
			zap.Int64("patient_id", patientID), zap.String("filename", sanitized))
		return
	}

	h.logger.Info("Document uploaded",
		zap.Int64("patient_id", patientID),
		zap.String("doc_id", docID.String()),
		zap.String("filename", sanitized),
		zap.Int("extracted_chars", len(extracted)))

	c.JSON(http.StatusCreated, gin.H{
		"doc_id":          docID.String(),
		"file_name":       sanitized,
		"file_url":        "/uploads/" + stored,
		"extracted_chars": len(extracted),
		"tags":            tags,
	})
}
