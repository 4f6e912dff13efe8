package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"medquery/config"
	"medquery/database"
	apperrors "medquery/errors"
	"medquery/llmclient"
	"medquery/rag"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeStore struct {
	documents []database.MedicalDocument
	visits    []database.VisitRecord
	calls     int
}

func (f *fakeStore) RecentDocuments(ctx context.Context, patientID int64, limit int) ([]database.MedicalDocument, error) {
	f.calls++
	return f.documents, nil
}

func (f *fakeStore) RecentVisitRecords(ctx context.Context, patientID int64, limit int) ([]database.VisitRecord, error) {
	return f.visits, nil
}

func (f *fakeStore) PatientAllergies(ctx context.Context, patientID int64) ([]database.Allergy, error) {
	return nil, nil
}

func (f *fakeStore) MetricHistory(ctx context.Context, userID int64, limit int) ([]database.MetricReading, error) {
	return nil, nil
}

func (f *fakeStore) CalculationHistory(ctx context.Context, userID int64, limit int) ([]database.Calculation, error) {
	return nil, nil
}

// fakeGenerator replays a scripted response per attempt and records the
// prompts it was called with.
type fakeGenerator struct {
	responses []func() (string, error)
	prompts   []string
}

func (f *fakeGenerator) Chat(ctx context.Context, messages []llmclient.Message, opts llmclient.Options) (string, error) {
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	i := len(f.prompts) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i]()
}

func respond(text string, err error) func() (string, error) {
	return func() (string, error) { return text, err }
}

func testConfig() *config.Config {
	return &config.Config{
		LLMModel:                   "test-model",
		MaxContextDocuments:        5,
		ContextTokenLimit:          6000,
		PatientSimilarityThreshold: 0.6,
		StaffSimilarityThreshold:   0.7,
		PatientMaxAttempts:         3,
		StaffMaxAttempts:           2,
		PatientRetryDelay:          time.Millisecond,
		StaffRetryDelay:            time.Millisecond,
		PatientTemperature:         0.8,
		StaffTemperature:           0.7,
		PatientMaxResponseTokens:   2000,
		StaffMaxResponseTokens:     2500,
	}
}

func testAgent(store rag.RecordStore, gen Generator) *Agent {
	logger, _ := zap.NewDevelopment()
	cfg := testConfig()
	return New(cfg, rag.NewRetriever(store, logger), gen, logger)
}

func matchingStore() *fakeStore {
	return &fakeStore{
		documents: []database.MedicalDocument{
			{
				DocID:       uuid.New(),
				PatientID:   1,
				ExtractText: "diagnosis diabetes mellitus, terapi metformin",
			},
		},
	}
}

func TestAnswerQueryValidation(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{responses: []func() (string, error){respond("jawaban yang cukup panjang", nil)}}
	a := testAgent(store, gen)
	cfg := testConfig()

	tests := []struct {
		name      string
		query     string
		patientID int64
	}{
		{"missing_patient", "apa diagnosis saya", 0},
		{"negative_patient", "apa diagnosis saya", -3},
		{"short_query", "ab", 1},
		{"whitespace_query", "   a   ", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.AnswerQuery(context.Background(), tt.query, tt.patientID, PatientProfile(cfg))
			if !apperrors.IsInvalidInput(err) {
				t.Errorf("AnswerQuery(%q, %d) error = %v, want invalid input", tt.query, tt.patientID, err)
			}
		})
	}
	if store.calls != 0 {
		t.Errorf("store queried %d times during validation failures, want 0", store.calls)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("generator called %d times during validation failures, want 0", len(gen.prompts))
	}
}

func TestAnswerQueryNoEvidence(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){respond("tidak boleh terpanggil", nil)}}
	a := testAgent(&fakeStore{}, gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "apa diagnosis saya", 1, PatientProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if answer.Success {
		t.Error("no-evidence answer should have Success=false")
	}
	if answer.Text != patientNoData {
		t.Errorf("Text = %q, want fixed no-data message", answer.Text)
	}
	if len(answer.Suggestions) == 0 {
		t.Error("patient no-data answer should carry default suggestions")
	}
	if len(gen.prompts) != 0 {
		t.Error("generation backend must not be called without evidence")
	}
}

func TestAnswerQuerySuccessNormalizesPlainText(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){
		respond("**Gula darah Anda normal** dan stabil.", nil),
	}}
	a := testAgent(matchingStore(), gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "diagnosis diabetes saya", 1, PatientProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if !answer.Success {
		t.Fatal("Success = false, want true")
	}
	if answer.Text != "Gula darah Anda normal dan stabil." {
		t.Errorf("Text = %q, markdown not stripped", answer.Text)
	}
	if len(answer.Sources) == 0 {
		t.Error("successful answer should list its sources")
	}
	if len(answer.Suggestions) == 0 {
		t.Error("patient answer should carry suggestions")
	}
	if len(answer.Evidence) != 0 {
		t.Error("patient answer must not expose raw evidence")
	}
}

func TestAnswerQueryStaffExposesEvidence(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){
		respond("**Diagnosis terakhir**: diabetes mellitus tipe 2.", nil),
	}}
	a := testAgent(matchingStore(), gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "diagnosis diabetes pasien", 1, StaffProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if !answer.Success {
		t.Fatal("Success = false, want true")
	}
	if !strings.Contains(answer.Text, "**") {
		t.Error("staff answer should keep markdown intact")
	}
	if len(answer.Evidence) == 0 {
		t.Error("staff answer should expose the evidence list")
	}
	if len(answer.Suggestions) != 0 {
		t.Error("staff answer should not carry patient suggestions")
	}
}

func TestAnswerQueryRetriesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){
		respond("", apperrors.ErrServiceUnavailable),
		respond("", apperrors.ErrRateLimited),
		respond("Jawaban lengkap pada percobaan ketiga.", nil),
	}}
	a := testAgent(matchingStore(), gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "diagnosis diabetes saya", 1, PatientProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if !answer.Success {
		t.Fatalf("Success = false after eventual success, text: %q", answer.Text)
	}
	if len(gen.prompts) != 3 {
		t.Errorf("generator called %d times, want 3", len(gen.prompts))
	}
}

func TestAnswerQueryExhaustsAttempts(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){
		respond("", apperrors.ErrRateLimited),
	}}
	a := testAgent(matchingStore(), gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "diagnosis diabetes saya", 1, PatientProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v, exhaustion must yield a fallback answer", err)
	}
	if answer.Success {
		t.Error("Success = true after exhaustion")
	}
	if !strings.Contains(answer.Text, "sibuk") {
		t.Errorf("Text = %q, want busy apology", answer.Text)
	}
	if len(gen.prompts) != cfg.PatientMaxAttempts {
		t.Errorf("generator called %d times, want %d", len(gen.prompts), cfg.PatientMaxAttempts)
	}
}

func TestAnswerQueryNonTransientStopsImmediately(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){
		respond("", apperrors.WrapError(apperrors.ErrGeneration, "model rejected request")),
	}}
	a := testAgent(matchingStore(), gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "diagnosis diabetes saya", 1, PatientProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if answer.Success {
		t.Error("Success = true after fatal failure")
	}
	if len(gen.prompts) != 1 {
		t.Errorf("generator called %d times, want 1 for non-retryable failure", len(gen.prompts))
	}
}

func TestAnswerQueryShortAnswerCountsRunes(t *testing.T) {
	// 12 bytes but only 3 characters; the minimum-length check must not
	// be fooled by multibyte encodings.
	gen := &fakeGenerator{responses: []func() (string, error){
		respond("😊😊😊", nil),
		respond("Jawaban lengkap setelah percobaan ulang.", nil),
	}}
	a := testAgent(matchingStore(), gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "diagnosis diabetes saya", 1, PatientProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if !answer.Success {
		t.Fatalf("Success = false, text: %q", answer.Text)
	}
	if len(gen.prompts) != 2 {
		t.Errorf("generator called %d times, want 2 (short multibyte answer must trigger a retry)", len(gen.prompts))
	}
	if answer.Text == "😊😊😊" {
		t.Error("short multibyte answer was accepted as final")
	}
}

func TestAnswerQueryDegradesPromptAfterEmptyAnswer(t *testing.T) {
	gen := &fakeGenerator{responses: []func() (string, error){
		respond("ok", nil), // below the minimum answer length
		respond("Jawaban lengkap setelah prompt disederhanakan.", nil),
	}}
	a := testAgent(matchingStore(), gen)
	cfg := testConfig()

	answer, err := a.AnswerQuery(context.Background(), "diagnosis diabetes saya", 1, PatientProfile(cfg))
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if !answer.Success {
		t.Fatalf("Success = false, text: %q", answer.Text)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("generator called %d times, want 2", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "Berikut adalah rekam medis pasien:") {
		t.Error("first attempt should use the full prompt")
	}
	if !strings.Contains(gen.prompts[1], "Konteks rekam medis:") {
		t.Error("second attempt should use the simplified prompt")
	}
}
