package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Allergy is one recorded patient allergy.
type Allergy struct {
	ID          uuid.UUID
	PatientID   int64
	AllergyName string
	Severity    string
	Notes       string
	CreatedAt   time.Time
}

// PatientAllergies returns all allergies for a patient, newest first.
func (s *PostgresStore) PatientAllergies(ctx context.Context, patientID int64) ([]Allergy, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT id, patient_id, allergy_name, COALESCE(severity, ''), COALESCE(notes, ''), created_at
		FROM allergies
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.DB.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("query allergies: %w", err)
	}
	defer rows.Close()

	var allergies []Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.ID, &a.PatientID, &a.AllergyName, &a.Severity, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan allergy row: %w", err)
		}
		allergies = append(allergies, a)
	}
	return allergies, rows.Err()
}
