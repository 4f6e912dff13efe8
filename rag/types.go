package rag

import (
	"context"

	"medquery/database"

	"github.com/google/uuid"
)

// ChunkKind identifies where an evidence chunk came from.
type ChunkKind int

const (
	KindDocument ChunkKind = iota
	KindVisitRecord
	KindAllergySummary
	KindMetricSummary
)

func (k ChunkKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindVisitRecord:
		return "visit_record"
	case KindAllergySummary:
		return "allergy_summary"
	case KindMetricSummary:
		return "metric_summary"
	default:
		return "unknown"
	}
}

// EvidenceChunk is one unit of retrieved text with its relevance score.
// Chunks live for a single query-answer operation and are never persisted.
type EvidenceChunk struct {
	SourceID  string            `json:"doc_id"`
	PatientID int64             `json:"patient_id"`
	RecordID  *uuid.UUID        `json:"record_id,omitempty"`
	Text      string            `json:"chunk_text"`
	Score     float64           `json:"similarity_score"`
	Kind      ChunkKind         `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Retrieval carries the ranked evidence plus the always-include context
// blocks for one operation. Empty strings mean the block is absent.
type Retrieval struct {
	Evidence     []EvidenceChunk
	Allergies    string
	Calculations string
	Metrics      string
}

// RecordStore is the read surface the retriever needs from the clinical
// record store. *database.PostgresStore satisfies it.
type RecordStore interface {
	RecentDocuments(ctx context.Context, patientID int64, limit int) ([]database.MedicalDocument, error)
	RecentVisitRecords(ctx context.Context, patientID int64, limit int) ([]database.VisitRecord, error)
	PatientAllergies(ctx context.Context, patientID int64) ([]database.Allergy, error)
	MetricHistory(ctx context.Context, userID int64, limit int) ([]database.MetricReading, error)
	CalculationHistory(ctx context.Context, userID int64, limit int) ([]database.Calculation, error)
}
