package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MedicalDocument is one uploaded free-text document (scanned letter, lab
// report, referral) with its extracted text.
type MedicalDocument struct {
	DocID       uuid.UUID
	PatientID   int64
	RecordID    *uuid.UUID
	FileName    string
	FileURL     string
	ExtractText string
	Tags        []string
	CreatedAt   time.Time
}

// RecentDocuments returns the most recent documents with non-empty
// extracted text for a patient, newest first.
func (s *PostgresStore) RecentDocuments(ctx context.Context, patientID int64, limit int) ([]MedicalDocument, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT doc_id, patient_id, record_id, file_name, file_url, extract_text, tags, created_at
		FROM medical_documents
		WHERE patient_id = $1
		  AND extract_text <> ''
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.DB.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent documents: %w", err)
	}
	defer rows.Close()

	var docs []MedicalDocument
	for rows.Next() {
		var doc MedicalDocument
		if err := rows.Scan(&doc.DocID, &doc.PatientID, &doc.RecordID, &doc.FileName,
			&doc.FileURL, &doc.ExtractText, pq.Array(&doc.Tags), &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// InsertDocument stores an uploaded document and its extracted text.
func (s *PostgresStore) InsertDocument(ctx context.Context, doc MedicalDocument) (uuid.UUID, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if doc.DocID == uuid.Nil {
		doc.DocID = uuid.New()
	}
	query := `
		INSERT INTO medical_documents (doc_id, patient_id, record_id, file_name, file_url, extract_text, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := s.DB.ExecContext(ctx, query, doc.DocID, doc.PatientID, doc.RecordID,
		doc.FileName, doc.FileURL, doc.ExtractText, pq.Array(doc.Tags))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert document: %w", err)
	}
	return doc.DocID, nil
}

// ReferencedUploads returns the set of file URLs that document rows still
// point at, used to tell live uploads from orphans.
func (s *PostgresStore) ReferencedUploads(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `SELECT file_url FROM medical_documents WHERE file_url <> ''`)
	if err != nil {
		return nil, fmt.Errorf("query referenced uploads: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan file url: %w", err)
		}
		refs[url] = struct{}{}
	}
	return refs, rows.Err()
}
