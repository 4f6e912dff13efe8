package rag

import (
	"strings"
	"testing"
	"time"

	"medquery/database"

	"github.com/google/uuid"
)

func TestComposeVisitText(t *testing.T) {
	visitDate := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	rec := database.VisitRecord{
		RecordID:         uuid.New(),
		PatientID:        1,
		VisitDate:        &visitDate,
		VisitType:        "rawat jalan",
		DoctorName:       "dr. Sari",
		FacilityName:     "RS Medika",
		Diagnoses:        "Diabetes Mellitus",
		ICDCodes:         "E11",
		DiagnosisSummary: "Terkontrol dengan obat oral",
		Notes:            "Kontrol ulang 1 bulan",
		Prescriptions:    "Metformin (500mg, 2x1)",
		LabResults:       "HbA1c: 7.2 % [Normal: 4-5.6]",
	}

	got := composeVisitText(rec)
	wantLines := []string{
		"=== Rekam Medis - 12 March 2025 (rawat jalan) ===",
		"Dokter: dr. Sari",
		"Fasilitas: RS Medika",
		"Diagnosis: Diabetes Mellitus (ICD: E11)",
		"Ringkasan: Terkontrol dengan obat oral",
		"Catatan: Kontrol ulang 1 bulan",
		"Resep Obat: Metformin (500mg, 2x1)",
		"Hasil Lab: HbA1c: 7.2 % [Normal: 4-5.6]",
	}
	if got != strings.Join(wantLines, "\n") {
		t.Errorf("composeVisitText() =\n%s\nwant:\n%s", got, strings.Join(wantLines, "\n"))
	}
}

func TestComposeVisitTextDefaults(t *testing.T) {
	got := composeVisitText(database.VisitRecord{RecordID: uuid.New()})
	want := "=== Rekam Medis - " + unknownDate + " (kunjungan) ==="
	if got != want {
		t.Errorf("composeVisitText(empty) = %q, want %q", got, want)
	}
}

func TestComposeVisitTextOverflowKeepsEssentials(t *testing.T) {
	rec := database.VisitRecord{
		RecordID:         uuid.New(),
		Diagnoses:        "Diabetes Mellitus",
		DiagnosisSummary: strings.Repeat("s", 600),
		Notes:            strings.Repeat("n", maxChunkChars),
		Prescriptions:    "Metformin (500mg, 2x1)",
	}

	got := composeVisitText(rec)
	if strings.Contains(got, "Catatan:") {
		t.Error("overflow rebuild should drop notes")
	}
	if !strings.Contains(got, "Diagnosis: Diabetes Mellitus") {
		t.Error("overflow rebuild must keep diagnosis")
	}
	if !strings.Contains(got, "Resep: Metformin (500mg, 2x1)") {
		t.Error("overflow rebuild must keep prescriptions")
	}
	if !strings.Contains(got, "Ringkasan: "+strings.Repeat("s", 500)) || strings.Contains(got, strings.Repeat("s", 501)) {
		t.Error("overflow rebuild should cap the summary at 500 chars")
	}
}

func TestComposeAllergies(t *testing.T) {
	tests := []struct {
		name      string
		allergies []database.Allergy
		want      string
	}{
		{
			name: "severity_and_notes",
			allergies: []database.Allergy{
				{AllergyName: "Penisilin", Severity: "berat", Notes: "reaksi anafilaksis"},
			},
			want: "=== Riwayat Alergi ===\n- Penisilin (Tingkat: berat) (reaksi anafilaksis)",
		},
		{
			name: "default_severity",
			allergies: []database.Allergy{
				{AllergyName: "Udang"},
			},
			want: "=== Riwayat Alergi ===\n- Udang (Tingkat: moderate)",
		},
		{
			name:      "empty",
			allergies: nil,
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := composeAllergies(tt.allergies)
			if got != tt.want {
				t.Errorf("composeAllergies() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComposeMetricsTrends(t *testing.T) {
	newer := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

	// Rows arrive newest first, mixed across metric types.
	readings := []database.MetricReading{
		{MetricType: "weight", MetricValue: 72.5, Unit: "kg", RecordedAt: &newer},
		{MetricType: "heart_rate", MetricValue: 80, Unit: "bpm", RecordedAt: &newer},
		{MetricType: "weight", MetricValue: 74, Unit: "kg", RecordedAt: &older},
		{MetricType: "heart_rate", MetricValue: 80, Unit: "bpm", RecordedAt: &older},
	}

	got := composeMetrics(readings)
	if !strings.HasPrefix(got, "=== Riwayat Metrik Kesehatan ===\n") {
		t.Fatalf("composeMetrics() missing header:\n%s", got)
	}
	if !strings.Contains(got, "weight: 72.5 kg (Terakhir: 1 June 2025) [↓ Turun]") {
		t.Errorf("weight line wrong:\n%s", got)
	}
	if !strings.Contains(got, "heart_rate: 80 bpm (Terakhir: 1 June 2025) [→ Stabil]") {
		t.Errorf("heart_rate line wrong:\n%s", got)
	}
}

func TestComposeMetricsSingleReadingHasNoTrend(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	got := composeMetrics([]database.MetricReading{
		{MetricType: "weight", MetricValue: 70, Unit: "kg", RecordedAt: &now},
	})
	if strings.Contains(got, "[") {
		t.Errorf("single reading should have no trend marker:\n%s", got)
	}
	if !strings.Contains(got, "weight: 70 kg (Terakhir: 1 June 2025)") {
		t.Errorf("composeMetrics() = %q", got)
	}
}
