package agent

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	apperrors "medquery/errors"
	"medquery/llmclient"

	"go.uber.org/zap"
)

// A generated answer shorter than this is treated as a transient failure.
const minAnswerChars = 10

// Context cap for the simplified prompt used after an empty response.
const degradedContextChars = 1000

// Fixed wait before the degraded retry.
const degradedRetryDelay = 2 * time.Second

// invokeState tracks the generation attempt state machine. The degraded
// state swaps in a drastically shortened prompt after the backend fails
// to produce output for the full one.
type invokeState int

const (
	stateAttempting invokeState = iota
	stateDegraded
	stateFailed
)

// invoke calls the generation backend with up to profile.MaxAttempts
// attempts. Only transient failure classes are retried, with a linear
// attempt*RetryDelay backoff; the first empty/short response switches to
// the degraded prompt instead of repeating the identical call. On
// exhaustion the last classification is returned.
func (a *Agent) invoke(ctx context.Context, profile Profile, query, contextText string) (string, error) {
	prompt := buildUserPrompt(profile, query, contextText)
	opts := llmclient.Options{
		Model:            a.cfg.LLMModel,
		Temperature:      profile.Temperature,
		TopP:             profile.TopP,
		MaxTokens:        profile.MaxResponseTokens,
		FrequencyPenalty: profile.FrequencyPenalty,
		PresencePenalty:  profile.PresencePenalty,
	}

	state := stateAttempting
	var lastErr error
	for attempt := 1; attempt <= profile.MaxAttempts; attempt++ {
		messages := []llmclient.Message{
			{Role: "system", Content: profile.SystemPrompt},
			{Role: "user", Content: prompt},
		}
		text, err := a.generator.Chat(ctx, messages, opts)
		if n := utf8.RuneCountInString(text); err == nil && n < minAnswerChars {
			err = apperrors.WrapErrorf(apperrors.ErrEmptyAnswer, "answer too short (%d chars)", n)
		}
		if err == nil {
			if attempt > 1 || state == stateDegraded {
				a.logger.Info("Generation succeeded after retry",
					zap.String("profile", profile.Name),
					zap.Int("attempt", attempt),
					zap.Bool("degraded", state == stateDegraded))
			}
			return text, nil
		}
		lastErr = err

		if !apperrors.IsTransient(err) {
			a.logger.Error("Non-retryable generation failure",
				zap.String("profile", profile.Name), zap.Int("attempt", attempt), zap.Error(err))
			state = stateFailed
			break
		}
		if attempt == profile.MaxAttempts {
			state = stateFailed
			break
		}

		var wait time.Duration
		if apperrors.IsEmptyAnswer(err) && state == stateAttempting {
			// The model produced nothing for the full prompt; retry with
			// a drastically shortened one rather than the identical call.
			state = stateDegraded
			prompt = buildDegradedPrompt(query, contextText)
			wait = degradedRetryDelay
			a.logger.Warn("Empty generation output, retrying with simplified prompt",
				zap.String("profile", profile.Name), zap.Int("attempt", attempt))
		} else {
			wait = time.Duration(attempt) * profile.RetryDelay
			a.logger.Warn("Transient generation failure, retrying",
				zap.String("profile", profile.Name),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return "", apperrors.WrapError(apperrors.ErrGenerationTimeout, "canceled while waiting to retry")
		}
	}
	return "", lastErr
}

func buildUserPrompt(profile Profile, query, contextText string) string {
	return fmt.Sprintf(`Berikut adalah rekam medis pasien:

%s

Pertanyaan pasien: %s

%s`, contextText, query, profile.UserInstructions)
}

func buildDegradedPrompt(query, contextText string) string {
	if len(contextText) > degradedContextChars {
		contextText = contextText[:degradedContextChars]
	}
	return fmt.Sprintf(`Pertanyaan: %s

Konteks rekam medis:
%s

Jawablah pertanyaan dengan ramah dan jelas dalam bahasa Indonesia. Gunakan PLAIN TEXT saja tanpa markdown.`, query, contextText)
}

// sleepCtx pauses without stalling shutdown; the wait aborts when the
// request context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
