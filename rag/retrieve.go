package rag

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Retriever gathers evidence for one patient query from every evidence
// kind. It holds no request state; one instance serves all requests.
type Retriever struct {
	store  RecordStore
	logger *zap.Logger
}

func NewRetriever(store RecordStore, logger *zap.Logger) *Retriever {
	return &Retriever{store: store, logger: logger}
}

// Options parameterize one retrieval run.
type Options struct {
	MaxDocuments   int
	Threshold      float64
	IncludeMetrics bool // patient-facing profile also pulls metric/calculation history
}

// Retrieve fetches all evidence kinds concurrently, scores and filters
// them, and returns the merged, deduplicated, score-ordered evidence plus
// the always-include blocks. A failure in any single kind is logged and
// that kind is skipped; retrieval itself never fails.
func (r *Retriever) Retrieve(ctx context.Context, query string, patientID int64, opts Options) Retrieval {
	var (
		wg     sync.WaitGroup
		docs   []EvidenceChunk
		visits []EvidenceChunk
		ret    Retrieval
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		docs, err = r.retrieveDocuments(ctx, query, patientID, opts)
		if err != nil {
			r.logger.Warn("Document retrieval failed, continuing with partial evidence",
				zap.Int64("patient_id", patientID), zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		visits, err = r.retrieveVisitRecords(ctx, query, patientID, opts)
		if err != nil {
			r.logger.Warn("Visit record retrieval failed, continuing with partial evidence",
				zap.Int64("patient_id", patientID), zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		allergies, err := r.store.PatientAllergies(ctx, patientID)
		if err != nil {
			r.logger.Warn("Allergy retrieval failed, continuing without allergy context",
				zap.Int64("patient_id", patientID), zap.Error(err))
			return
		}
		ret.Allergies = composeAllergies(allergies)
	}()

	if opts.IncludeMetrics {
		wg.Add(2)
		go func() {
			defer wg.Done()
			calcs, err := r.store.CalculationHistory(ctx, patientID, 10)
			if err != nil {
				r.logger.Warn("Calculation retrieval failed, continuing without calculation context",
					zap.Int64("patient_id", patientID), zap.Error(err))
				return
			}
			ret.Calculations = composeCalculations(calcs)
		}()
		go func() {
			defer wg.Done()
			readings, err := r.store.MetricHistory(ctx, patientID, 20)
			if err != nil {
				r.logger.Warn("Metric retrieval failed, continuing without metric context",
					zap.Int64("patient_id", patientID), zap.Error(err))
				return
			}
			ret.Metrics = composeMetrics(readings)
		}()
	}

	wg.Wait()

	ret.Evidence = mergeEvidence(docs, visits, opts.MaxDocuments)
	return ret
}

// retrieveDocuments scores recent free-text documents against the query.
// Acceptance is two-pass: the full threshold first, and when nothing
// passes it, a relaxed threshold*0.3 pass over non-zero scores so a total
// lexical mismatch does not yield an empty result while partial overlap
// exists.
func (r *Retriever) retrieveDocuments(ctx context.Context, query string, patientID int64, opts Options) ([]EvidenceChunk, error) {
	rows, err := r.store.RecentDocuments(ctx, patientID, opts.MaxDocuments*2)
	if err != nil {
		return nil, err
	}

	type scored struct {
		chunk EvidenceChunk
		score float64
	}
	var candidates []scored
	for _, doc := range rows {
		if doc.ExtractText == "" {
			continue
		}
		score := Score(query, doc.ExtractText)
		text := doc.ExtractText
		if len(text) > maxChunkChars {
			text = text[:maxChunkChars]
		}
		recordID := doc.RecordID
		candidates = append(candidates, scored{
			chunk: EvidenceChunk{
				SourceID:  doc.DocID.String(),
				PatientID: doc.PatientID,
				RecordID:  recordID,
				Text:      text,
				Score:     score,
				Kind:      KindDocument,
				Metadata: map[string]string{
					"file_url":   doc.FileURL,
					"created_at": doc.CreatedAt.Format(dateLayout),
					"source":     "medical_document",
				},
			},
			score: score,
		})
	}

	var accepted []EvidenceChunk
	for _, c := range candidates {
		if c.score >= opts.Threshold {
			accepted = append(accepted, c.chunk)
		}
	}
	if len(accepted) == 0 {
		relaxed := opts.Threshold * 0.3
		for _, c := range candidates {
			if c.score > 0 && c.score >= relaxed {
				accepted = append(accepted, c.chunk)
			}
		}
	}
	return accepted, nil
}

// retrieveVisitRecords reduces each recent visit to one composite block
// and scores it. Visits are never threshold-filtered: a vague query still
// surfaces recent visits via the 0.3 default score.
func (r *Retriever) retrieveVisitRecords(ctx context.Context, query string, patientID int64, opts Options) ([]EvidenceChunk, error) {
	rows, err := r.store.RecentVisitRecords(ctx, patientID, opts.MaxDocuments*3)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	hasTokens := len(queryTokens(query)) > 0

	var chunks []EvidenceChunk
	for _, rec := range rows {
		text := composeVisitText(rec)
		var score float64
		if hasTokens {
			score = clinicalBoost(Score(query, text), queryLower, strings.ToLower(text))
		} else {
			score = 0.3
		}

		recordID := rec.RecordID
		metadata := map[string]string{
			"visit_type":    rec.VisitType,
			"doctor_name":   rec.DoctorName,
			"facility_name": rec.FacilityName,
			"source":        "medical_record",
		}
		if rec.VisitDate != nil {
			metadata["visit_date"] = formatDate(rec.VisitDate)
		}
		chunks = append(chunks, EvidenceChunk{
			SourceID:  "record_" + rec.RecordID.String(),
			PatientID: rec.PatientID,
			RecordID:  &recordID,
			Text:      text,
			Score:     score,
			Kind:      KindVisitRecord,
			Metadata:  metadata,
		})
	}
	return chunks, nil
}

// mergeEvidence combines document and visit chunks, dropping visit chunks
// whose record already arrived as a document, then ranks by score and
// caps at maxDocuments.
func mergeEvidence(docs, visits []EvidenceChunk, maxDocuments int) []EvidenceChunk {
	seen := make(map[uuid.UUID]struct{})
	for _, d := range docs {
		if d.RecordID != nil {
			seen[*d.RecordID] = struct{}{}
		}
	}

	merged := make([]EvidenceChunk, 0, len(docs)+len(visits))
	merged = append(merged, docs...)
	for _, v := range visits {
		if v.RecordID != nil {
			if _, dup := seen[*v.RecordID]; dup {
				continue
			}
		}
		merged = append(merged, v)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if maxDocuments > 0 && len(merged) > maxDocuments {
		merged = merged[:maxDocuments]
	}
	return merged
}
