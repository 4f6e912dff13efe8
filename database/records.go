package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VisitRecord is one medical-record visit with its joined diagnosis,
// prescription and lab aggregates reduced to display strings.
type VisitRecord struct {
	RecordID         uuid.UUID
	PatientID        int64
	VisitDate        *time.Time
	VisitType        string
	DoctorName       string
	FacilityName     string
	DiagnosisSummary string
	Notes            string
	Diagnoses        string // "Diabetes Mellitus, Hipertensi"
	ICDCodes         string // "E11, I10"
	Prescriptions    string // "Metformin (500mg, 2x1); ..."
	LabResults       string // "HbA1c: 7.2 % [Normal: 4-5.6]; ..."
}

// RecentVisitRecords returns the most recent visit records for a patient
// with diagnoses, prescriptions and lab results aggregated per visit.
func (s *PostgresStore) RecentVisitRecords(ctx context.Context, patientID int64, limit int) ([]VisitRecord, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT
			mr.record_id,
			mr.patient_id,
			mr.visit_date,
			COALESCE(mr.visit_type, ''),
			COALESCE(mr.doctor_name, ''),
			COALESCE(mr.facility_name, ''),
			COALESCE(mr.diagnosis_summary, ''),
			COALESCE(mr.notes, ''),
			COALESCE(string_agg(DISTINCT d.diagnosis_name, ', '), ''),
			COALESCE(string_agg(DISTINCT d.icd_code, ', '), ''),
			COALESCE(string_agg(DISTINCT p.drug_name || ' (' || COALESCE(p.dosage, '') || ', ' || COALESCE(p.frequency, '') || ')', '; '), ''),
			COALESCE(string_agg(DISTINCT lr.test_name || ': ' || lr.result_value || ' ' || COALESCE(lr.result_unit, '') ||
				CASE WHEN lr.normal_range IS NOT NULL THEN ' [Normal: ' || lr.normal_range || ']' ELSE '' END, '; '), '')
		FROM medical_records mr
		LEFT JOIN diagnoses d ON mr.record_id = d.record_id
		LEFT JOIN prescriptions p ON mr.record_id = p.record_id
		LEFT JOIN lab_results lr ON mr.record_id = lr.record_id
		WHERE mr.patient_id = $1
		GROUP BY mr.record_id, mr.patient_id, mr.visit_date, mr.visit_type,
			mr.doctor_name, mr.facility_name, mr.diagnosis_summary, mr.notes
		ORDER BY mr.visit_date DESC
		LIMIT $2
	`
	rows, err := s.DB.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query visit records: %w", err)
	}
	defer rows.Close()

	var records []VisitRecord
	for rows.Next() {
		var rec VisitRecord
		var visitDate sql.NullTime
		if err := rows.Scan(&rec.RecordID, &rec.PatientID, &visitDate, &rec.VisitType,
			&rec.DoctorName, &rec.FacilityName, &rec.DiagnosisSummary, &rec.Notes,
			&rec.Diagnoses, &rec.ICDCodes, &rec.Prescriptions, &rec.LabResults); err != nil {
			return nil, fmt.Errorf("scan visit record row: %w", err)
		}
		if visitDate.Valid {
			d := visitDate.Time
			rec.VisitDate = &d
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
