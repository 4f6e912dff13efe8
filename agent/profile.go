package agent

import (
	"time"

	"medquery/config"
	"medquery/prompts"
)

// Profile parameterizes the pipeline for one caller population. The
// patient-facing profile favors recall and resilience (lower threshold,
// metric context, one more attempt, TTS-safe output); the staff-facing
// profile is stricter and exposes the raw evidence.
type Profile struct {
	Name                string
	SystemPrompt        string
	UserInstructions    string
	NoDataMessage       string
	SimilarityThreshold float64
	MaxAttempts         int
	RetryDelay          time.Duration
	Temperature         float64
	TopP                float64
	MaxResponseTokens   int
	FrequencyPenalty    float64
	PresencePenalty     float64
	IncludeMetrics      bool
	PlainText           bool
	Suggestions         bool
	ExposeEvidence      bool
}

const patientNoData = "Halo! 😊 Saya tidak menemukan informasi rekam medis atau data kesehatan yang relevan untuk menjawab pertanyaan Anda saat ini. " +
	"Ini bisa terjadi karena: Belum ada dokumen medis yang diunggah. Belum ada riwayat kunjungan medis. " +
	"Belum ada data perhitungan kesehatan (BMI, BMR, TDEE, dll). Pertanyaan Anda memerlukan informasi yang belum tersedia. " +
	"Silakan coba dengan pertanyaan lain. Jika Anda butuh bantuan, jangan ragu untuk menghubungi tim kesehatan kami! 💙"

const staffNoData = "Maaf, tidak ditemukan informasi rekam medis yang relevan untuk menjawab pertanyaan Anda. " +
	"Pastikan pasien telah mengunggah dokumen medis atau memiliki riwayat kunjungan medis."

const patientInstructions = `Instruksi:
- Jawablah pertanyaan dengan RAMAH dan MENYENANGKAN dalam bahasa Indonesia
- Berikan penjelasan yang LENGKAP dan DETAIL
- Gunakan bahasa yang mudah dipahami
- Gunakan PLAIN TEXT saja, JANGAN gunakan markdown (tidak boleh **bold**, ###, dll)
- Jika informasi tersedia, jelaskan dengan jelas
- Jika informasi tidak tersedia, katakan dengan sopan`

const staffInstructions = `Jawablah pertanyaan tersebut dengan jelas dan mudah dipahami berdasarkan informasi rekam medis di atas.
Jika informasi tidak tersedia, beri tahu pasien dengan sopan.`

// PatientProfile builds the mobile patient-facing profile from config.
func PatientProfile(cfg *config.Config) Profile {
	return Profile{
		Name:                "patient",
		SystemPrompt:        prompts.PatientSystem(),
		UserInstructions:    patientInstructions,
		NoDataMessage:       patientNoData,
		SimilarityThreshold: cfg.PatientSimilarityThreshold,
		MaxAttempts:         cfg.PatientMaxAttempts,
		RetryDelay:          cfg.PatientRetryDelay,
		Temperature:         cfg.PatientTemperature,
		TopP:                0.95,
		MaxResponseTokens:   cfg.PatientMaxResponseTokens,
		IncludeMetrics:      true,
		PlainText:           true,
		Suggestions:         true,
	}
}

// StaffProfile builds the staff-facing profile from config.
func StaffProfile(cfg *config.Config) Profile {
	return Profile{
		Name:                "staff",
		SystemPrompt:        prompts.StaffSystem(),
		UserInstructions:    staffInstructions,
		NoDataMessage:       staffNoData,
		SimilarityThreshold: cfg.StaffSimilarityThreshold,
		MaxAttempts:         cfg.StaffMaxAttempts,
		RetryDelay:          cfg.StaffRetryDelay,
		Temperature:         cfg.StaffTemperature,
		TopP:                0.9,
		MaxResponseTokens:   cfg.StaffMaxResponseTokens,
		FrequencyPenalty:    0.1,
		PresencePenalty:     0.1,
		ExposeEvidence:      true,
	}
}
