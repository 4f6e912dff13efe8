package agent

import (
	"context"
	"strings"

	"medquery/config"
	apperrors "medquery/errors"
	"medquery/llmclient"
	"medquery/rag"
	"medquery/web/format"

	"go.uber.org/zap"
)

// Generator is the generation backend surface the agent needs;
// *llmclient.Client satisfies it.
type Generator interface {
	Chat(ctx context.Context, messages []llmclient.Message, opts llmclient.Options) (string, error)
}

// Answer is the result of one query-answer operation.
type Answer struct {
	Query       string              `json:"query"`
	Text        string              `json:"answer"`
	Success     bool                `json:"success"`
	Sources     []string            `json:"sources"`
	Suggestions []string            `json:"suggestions,omitempty"`
	Evidence    []rag.EvidenceChunk `json:"relevant_documents,omitempty"`
}

// Agent sequences one query-answer transaction: validate, retrieve,
// assemble, generate, post-process. It holds no request state and is safe
// for concurrent use.
type Agent struct {
	cfg       *config.Config
	retriever *rag.Retriever
	generator Generator
	logger    *zap.Logger
}

func New(cfg *config.Config, retriever *rag.Retriever, generator Generator, logger *zap.Logger) *Agent {
	return &Agent{
		cfg:       cfg,
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// AnswerQuery runs the full pipeline for one patient question under the
// given profile. Validation failures return ErrInvalidInput before any
// retrieval work; every other failure mode yields a user-facing Answer.
func (a *Agent) AnswerQuery(ctx context.Context, query string, patientID int64, profile Profile) (*Answer, error) {
	query = strings.TrimSpace(query)
	if patientID <= 0 {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput, "patient id is required")
	}
	if len(query) < 3 {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput, "query must be at least 3 characters")
	}

	retrieval := a.retriever.Retrieve(ctx, query, patientID, rag.Options{
		MaxDocuments:   a.cfg.MaxContextDocuments,
		Threshold:      profile.SimilarityThreshold,
		IncludeMetrics: profile.IncludeMetrics,
	})

	budget := rag.ContextBudget(a.cfg.ContextTokenLimit, len(query), len(profile.SystemPrompt))
	evidenceCtx := rag.Assemble(retrieval, budget)

	if evidenceCtx.Empty() {
		a.logger.Info("No relevant evidence found, skipping generation",
			zap.Int64("patient_id", patientID), zap.String("query", query))
		return a.noDataAnswer(query, profile), nil
	}

	text, err := a.invoke(ctx, profile, query, evidenceCtx.Serialize())
	if err != nil {
		a.logger.Error("Generation failed after retries",
			zap.Int64("patient_id", patientID),
			zap.Int("evidence_chunks", len(retrieval.Evidence)),
			zap.Error(err))
		answer := &Answer{
			Query:   query,
			Text:    fallbackMessage(profile, err, len(retrieval.Evidence)),
			Success: false,
			Sources: evidenceCtx.Sources,
		}
		a.finish(answer, retrieval, profile)
		return answer, nil
	}

	if profile.PlainText {
		text = format.PlainText(text)
	}

	answer := &Answer{
		Query:   query,
		Text:    text,
		Success: true,
		Sources: evidenceCtx.Sources,
	}
	a.finish(answer, retrieval, profile)
	return answer, nil
}

// finish attaches the profile-dependent extras: follow-up suggestions for
// the patient profile, the raw evidence list for the staff profile.
func (a *Agent) finish(answer *Answer, retrieval rag.Retrieval, profile Profile) {
	if profile.Suggestions {
		answer.Suggestions = format.Suggestions(answer.Query)
	}
	if profile.ExposeEvidence {
		answer.Evidence = retrieval.Evidence
	}
}

func (a *Agent) noDataAnswer(query string, profile Profile) *Answer {
	answer := &Answer{
		Query:   query,
		Text:    profile.NoDataMessage,
		Success: false,
		Sources: []string{},
	}
	if profile.Suggestions {
		answer.Suggestions = format.DefaultSuggestions()
	}
	return answer
}
