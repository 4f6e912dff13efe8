package agent

import (
	"errors"
	"fmt"

	apperrors "medquery/errors"
)

// fallbackMessage maps an exhausted or fatal generation failure to one of
// the fixed user-facing apology texts. Raw backend error text never
// reaches the caller.
func fallbackMessage(profile Profile, err error, evidenceCount int) string {
	friendly := profile.PlainText

	switch {
	case errors.Is(err, apperrors.ErrRateLimited):
		if friendly {
			return "Maaf, layanan sedang sibuk. Silakan coba lagi beberapa saat lagi. 🙏"
		}
		return "Maaf, layanan sedang sibuk. Silakan coba lagi beberapa saat lagi."
	case errors.Is(err, apperrors.ErrGenerationTimeout):
		if friendly {
			return "Maaf, waktu tunggu habis. Silakan coba lagi dengan pertanyaan yang lebih spesifik. ⏱️"
		}
		return "Maaf, waktu tunggu habis. Silakan coba lagi dengan pertanyaan yang lebih spesifik."
	case errors.Is(err, apperrors.ErrEmptyAnswer):
		msg := "Maaf, saya mengalami kesulitan menghasilkan jawaban yang lengkap untuk pertanyaan Anda. "
		msg += fmt.Sprintf("Namun, saya menemukan %d dokumen relevan dalam rekam medis Anda. ", evidenceCount)
		msg += "Silakan coba lagi dengan pertanyaan yang lebih spesifik, atau hubungi tim kesehatan untuk informasi lebih detail."
		if friendly {
			msg += " 😔"
		}
		return msg
	default:
		msg := "Maaf, terjadi kesalahan saat memproses pertanyaan Anda. "
		msg += fmt.Sprintf("Ditemukan %d dokumen relevan, tetapi tidak dapat menghasilkan jawaban. ", evidenceCount)
		msg += "Silakan coba lagi dengan pertanyaan yang berbeda atau hubungi administrator."
		if friendly {
			msg += " 😔"
		}
		return msg
	}
}
