package services

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFService extracts text from uploaded PDF documents so it can be
// stored alongside the document and searched later.
type PDFService struct {
	logger   *zap.Logger
	maxChars int
}

// NewPDFService builds a PDFService. maxChars caps the extracted text;
// zero or negative means no cap.
func NewPDFService(logger *zap.Logger, maxChars int) *PDFService {
	return &PDFService{
		logger:   logger,
		maxChars: maxChars,
	}
}

// ExtractText extracts all text content from a PDF file.
// Returns the full text with page markers for context.
func (ps *PDFService) ExtractText(pdfPath string) (string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var fullText strings.Builder
	totalPages := r.NumPage()

	ps.logger.Debug("Extracting text from PDF",
		zap.String("path", pdfPath),
		zap.Int("pages", totalPages))

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			ps.logger.Warn("Skipping null page",
				zap.Int("page", pageNum))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			ps.logger.Warn("Failed to extract text from page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		// Add page marker for context
		fullText.WriteString(fmt.Sprintf("--- Page %d ---\n", pageNum))
		fullText.WriteString(text)
		fullText.WriteString("\n\n")

		if ps.maxChars > 0 && fullText.Len() >= ps.maxChars {
			fullText.WriteString(fmt.Sprintf("\n[... Remaining %d pages truncated ...]\n", totalPages-pageNum))
			ps.logger.Info("Truncated PDF extraction at size limit",
				zap.Int("pages_included", pageNum),
				zap.Int("pages_total", totalPages),
				zap.Int("max_chars", ps.maxChars))
			break
		}
	}

	extractedText := fullText.String()
	ps.logger.Info("PDF text extraction completed",
		zap.String("path", pdfPath),
		zap.Int("pages", totalPages),
		zap.Int("characters", len(extractedText)))

	return extractedText, nil
}
