package rag

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"medquery/database"
)

// Accepted chunk text is capped so a single blob cannot swallow the whole
// context budget.
const maxChunkChars = 3000

const dateLayout = "2 January 2006"

const unknownDate = "Tanggal tidak diketahui"

func formatDate(t *time.Time) string {
	if t == nil {
		return unknownDate
	}
	return t.Format(dateLayout)
}

// composeVisitText reduces one joined visit record to a single context
// block. When the composite exceeds the chunk cap it is rebuilt from the
// diagnosis, summary and prescription lines only; notes and labs are the
// first to go.
func composeVisitText(rec database.VisitRecord) string {
	visitType := rec.VisitType
	if visitType == "" {
		visitType = "kunjungan"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("=== Rekam Medis - %s (%s) ===", formatDate(rec.VisitDate), visitType))
	if rec.DoctorName != "" {
		parts = append(parts, "Dokter: "+rec.DoctorName)
	}
	if rec.FacilityName != "" {
		parts = append(parts, "Fasilitas: "+rec.FacilityName)
	}
	if rec.Diagnoses != "" {
		line := "Diagnosis: " + rec.Diagnoses
		if rec.ICDCodes != "" {
			line += " (ICD: " + rec.ICDCodes + ")"
		}
		parts = append(parts, line)
	}
	if rec.DiagnosisSummary != "" {
		parts = append(parts, "Ringkasan: "+rec.DiagnosisSummary)
	}
	if rec.Notes != "" {
		parts = append(parts, "Catatan: "+rec.Notes)
	}
	if rec.Prescriptions != "" {
		parts = append(parts, "Resep Obat: "+rec.Prescriptions)
	}
	if rec.LabResults != "" {
		parts = append(parts, "Hasil Lab: "+rec.LabResults)
	}

	combined := strings.Join(parts, "\n")
	if len(combined) <= maxChunkChars {
		return combined
	}

	var important []string
	if rec.Diagnoses != "" {
		important = append(important, "Diagnosis: "+rec.Diagnoses)
	}
	if rec.DiagnosisSummary != "" {
		summary := rec.DiagnosisSummary
		if len(summary) > 500 {
			summary = summary[:500]
		}
		important = append(important, "Ringkasan: "+summary)
	}
	if rec.Prescriptions != "" {
		important = append(important, "Resep: "+rec.Prescriptions)
	}
	return strings.Join(important, "\n")
}

// composeAllergies renders the always-include allergy block, or "" when
// the patient has none on file.
func composeAllergies(allergies []database.Allergy) string {
	if len(allergies) == 0 {
		return ""
	}
	var lines []string
	for _, a := range allergies {
		severity := a.Severity
		if severity == "" {
			severity = "moderate"
		}
		line := fmt.Sprintf("- %s (Tingkat: %s)", a.AllergyName, severity)
		if a.Notes != "" {
			line += " (" + a.Notes + ")"
		}
		lines = append(lines, line)
	}
	return "=== Riwayat Alergi ===\n" + strings.Join(lines, "\n")
}

// composeMetrics groups readings by metric type (rows arrive newest first)
// and renders the latest value with a trend against the prior reading.
func composeMetrics(readings []database.MetricReading) string {
	if len(readings) == 0 {
		return ""
	}

	var order []string
	byType := make(map[string][]database.MetricReading)
	for _, m := range readings {
		if _, seen := byType[m.MetricType]; !seen {
			order = append(order, m.MetricType)
		}
		byType[m.MetricType] = append(byType[m.MetricType], m)
	}

	var lines []string
	for _, metricType := range order {
		values := byType[metricType]
		latest := values[0]
		line := fmt.Sprintf("%s: %s %s (Terakhir: %s)",
			metricType, formatNumber(latest.MetricValue), latest.Unit, formatDate(latest.RecordedAt))
		if len(values) > 1 {
			previous := values[1]
			var trend string
			switch {
			case latest.MetricValue > previous.MetricValue:
				trend = "↑ Naik"
			case latest.MetricValue < previous.MetricValue:
				trend = "↓ Turun"
			default:
				trend = "→ Stabil"
			}
			line += " [" + trend + "]"
		}
		lines = append(lines, line)
	}
	return "=== Riwayat Metrik Kesehatan ===\n" + strings.Join(lines, "\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
