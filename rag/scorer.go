package rag

import "strings"

// Indonesian function words dropped before scoring, alongside any token of
// length <= 2.
var stopWords = map[string]struct{}{
	"yang": {}, "dan": {}, "atau": {}, "dari": {}, "di": {}, "ke": {},
	"pada": {}, "untuk": {}, "dengan": {}, "bagaimana": {}, "apa": {},
	"apakah": {}, "saya": {}, "ini": {}, "itu": {},
}

// Clinical terms that boost visit-record relevance when they appear in
// both the query and the candidate block.
var clinicalKeywords = []string{
	"diagnosis", "diagnosa", "obat", "resep", "lab", "alergi", "allergy",
	"diabetes", "hipertensi", "tekanan", "darah", "gula", "kolesterol",
}

// queryTokens lower-cases and whitespace-splits s, dropping stop words and
// tokens of length <= 2.
func queryTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

func textTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		tokens[w] = struct{}{}
	}
	return tokens
}

// Score computes query-coverage overlap between a query and a text blob:
// the fraction of filtered query tokens that appear verbatim in the text.
// It is deliberately asymmetric and ignores candidate length entirely, so
// a one-word candidate covering a one-word query scores the same 1.0 as a
// full document. Kept for compatibility with the existing ranking; known
// ranking-quality caveat.
func Score(query, text string) float64 {
	q := queryTokens(query)
	if len(q) == 0 {
		return 0
	}
	t := textTokens(text)
	matches := 0
	for w := range q {
		if _, ok := t[w]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(q))
}

// clinicalBoost adds +0.2 (capped at 1.0) when both query and block
// mention any clinical keyword.
func clinicalBoost(score float64, queryLower, blockLower string) float64 {
	queryMatch := false
	blockMatch := false
	for _, kw := range clinicalKeywords {
		if !queryMatch && strings.Contains(queryLower, kw) {
			queryMatch = true
		}
		if !blockMatch && strings.Contains(blockLower, kw) {
			blockMatch = true
		}
		if queryMatch && blockMatch {
			break
		}
	}
	if queryMatch && blockMatch {
		score += 0.2
		if score > 1.0 {
			score = 1.0
		}
	}
	return score
}
