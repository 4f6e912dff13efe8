package format

import "strings"

const maxSuggestions = 4

type suggestionGroup struct {
	keywords    []string
	suggestions []string
}

var suggestionGroups = []suggestionGroup{
	{
		keywords: []string{"alergi", "allergy"},
		suggestions: []string{
			"Obat apa yang harus saya hindari?",
			"Apakah ada makanan yang perlu saya hindari?",
		},
	},
	{
		keywords: []string{"obat", "resep"},
		suggestions: []string{
			"Kapan saya harus minum obat ini?",
			"Apa efek samping obat saya?",
		},
	},
	{
		keywords: []string{"lab", "hasil"},
		suggestions: []string{
			"Apakah hasil lab saya normal?",
			"Kapan saya perlu cek lab lagi?",
		},
	},
	{
		keywords: []string{"diagnosis", "diagnosa"},
		suggestions: []string{
			"Bagaimana cara merawat kondisi saya?",
			"Apakah kondisi saya bisa sembuh?",
		},
	},
	{
		keywords: []string{"bmi", "berat", "tinggi"},
		suggestions: []string{
			"Berapa berat badan ideal saya?",
			"Bagaimana cara menjaga berat badan sehat?",
		},
	},
	{
		keywords: []string{"kalori", "bmr", "tdee"},
		suggestions: []string{
			"Berapa kebutuhan kalori harian saya?",
			"Makanan apa yang baik untuk saya?",
		},
	},
	{
		keywords: []string{"jantung", "heart", "detak"},
		suggestions: []string{
			"Apakah detak jantung saya normal?",
			"Olahraga apa yang aman untuk jantung saya?",
		},
	},
}

// DefaultSuggestions are offered when the question matches no known topic.
func DefaultSuggestions() []string {
	return []string{
		"Apa diagnosis terakhir saya?",
		"Obat apa saja yang sedang saya konsumsi?",
		"Apakah saya punya alergi?",
		"Bagaimana hasil lab terakhir saya?",
	}
}

// Suggestions returns follow-up questions for the first topic group the
// query mentions. Groups are checked in a fixed order, so a query touching
// several topics only ever gets the highest-priority one.
func Suggestions(query string) []string {
	q := strings.ToLower(query)

	for _, g := range suggestionGroups {
		for _, kw := range g.keywords {
			if strings.Contains(q, kw) {
				out := g.suggestions
				if len(out) > maxSuggestions {
					out = out[:maxSuggestions]
				}
				return out
			}
		}
	}
	return DefaultSuggestions()
}
