package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultQueryTimeout = 10 * time.Second

// PostgresStore is the read surface over the clinical record tables plus
// the document ingestion write path. One instance is shared process-wide.
type PostgresStore struct {
	DB           *sql.DB
	queryTimeout time.Duration
}

var (
	sharedOnce  sync.Once
	sharedStore *PostgresStore
	sharedErr   error
)

func NewPostgresStore(connStr string, queryTimeout time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &PostgresStore{DB: db, queryTimeout: queryTimeout}, nil
}

// Shared returns the process-wide store, connecting on first use. Safe for
// concurrent first access; callers that can should prefer the injected
// store from main instead.
func Shared(connStr string, queryTimeout time.Duration) (*PostgresStore, error) {
	sharedOnce.Do(func() {
		sharedStore, sharedErr = NewPostgresStore(connStr, queryTimeout)
	})
	return sharedStore, sharedErr
}

// queryCtx bounds a single store call. Retrieval treats an expired
// deadline on one evidence kind as a partial failure, not a fatal one.
func (s *PostgresStore) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// EnsureSchema creates the required tables if they do not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS medical_documents (
            doc_id UUID PRIMARY KEY,
            patient_id BIGINT NOT NULL,
            record_id UUID,
            file_name TEXT NOT NULL DEFAULT '',
            file_url TEXT NOT NULL DEFAULT '',
            extract_text TEXT NOT NULL DEFAULT '',
            tags TEXT[] DEFAULT '{}'::TEXT[],
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_medical_documents_patient ON medical_documents(patient_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS medical_records (
            record_id UUID PRIMARY KEY,
            patient_id BIGINT NOT NULL,
            visit_date DATE,
            visit_type TEXT,
            doctor_name TEXT,
            facility_name TEXT,
            diagnosis_summary TEXT,
            notes TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_medical_records_patient ON medical_records(patient_id, visit_date DESC)`,
		`CREATE TABLE IF NOT EXISTS diagnoses (
            id UUID PRIMARY KEY,
            record_id UUID REFERENCES medical_records(record_id) ON DELETE CASCADE,
            diagnosis_name TEXT NOT NULL,
            icd_code TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS prescriptions (
            id UUID PRIMARY KEY,
            record_id UUID REFERENCES medical_records(record_id) ON DELETE CASCADE,
            drug_name TEXT NOT NULL,
            dosage TEXT,
            frequency TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS lab_results (
            id UUID PRIMARY KEY,
            record_id UUID REFERENCES medical_records(record_id) ON DELETE CASCADE,
            test_name TEXT NOT NULL,
            result_value TEXT NOT NULL,
            result_unit TEXT,
            normal_range TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS allergies (
            id UUID PRIMARY KEY,
            patient_id BIGINT NOT NULL,
            allergy_name TEXT NOT NULL,
            severity TEXT,
            notes TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_allergies_patient ON allergies(patient_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS health_metrics_history (
            id UUID PRIMARY KEY,
            user_id BIGINT NOT NULL,
            metric_type TEXT NOT NULL,
            metric_value DOUBLE PRECISION NOT NULL,
            unit TEXT,
            recorded_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_health_metrics_user ON health_metrics_history(user_id, recorded_at DESC)`,
		`CREATE TABLE IF NOT EXISTS health_calculations (
            id UUID PRIMARY KEY,
            user_id BIGINT NOT NULL,
            calculation_type TEXT NOT NULL,
            result_data JSONB NOT NULL DEFAULT '{}'::jsonb,
            calculated_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_health_calculations_user ON health_calculations(user_id, calculated_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
